package web

import (
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bronystylecrazy/metaroute/build"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3"
)

func NewFiberApp(config Config) (*fiber.App, error) {
	limit, err := ParseBodyLimit(config.BodyLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid web.body_limit: %w", err)
	}
	return fiber.New(fiber.Config{
		AppName:      BuildAppName(config.Name),
		BodyLimit:    limit,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}), nil
}

func BuildAppName(name string) string {
	if name == "" {
		name = build.Name
	}
	return fmt.Sprintf("%s (%s %s %s)", name, build.Version, build.Commit, build.BuildDate)
}

func BuildFiberListenConfig(config Config) (fiber.ListenConfig, error) {
	out := fiber.ListenConfig{
		ShutdownTimeout:       config.Server.ShutdownTimeout,
		DisableStartupMessage: true,
	}
	if config.TLS.CertFile == "" && config.TLS.CertKeyFile == "" {
		return out, nil
	}
	if config.TLS.CertFile == "" || config.TLS.CertKeyFile == "" {
		return fiber.ListenConfig{}, errors.New("both cert_file and cert_key_file are required")
	}
	tlsVersion, err := ParseTLSMinVersion(config.TLS.TLSMinVersion)
	if err != nil {
		return fiber.ListenConfig{}, err
	}
	out.CertFile = config.TLS.CertFile
	out.CertKeyFile = config.TLS.CertKeyFile
	out.TLSMinVersion = tlsVersion
	return out, nil
}

func ParseAddr(config Config) string {
	return fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
}

func ParseTLSMinVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported tls version %q (expected 1.2 or 1.3)", v)
	}
}

func ParseBodyLimit(v string) (int, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return fiber.DefaultBodyLimit, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(math.MaxInt) {
		return 0, fmt.Errorf("body limit overflows int")
	}
	return int(n), nil
}
