package web

import "time"

type Config struct {
	Name   string       `mapstructure:"name"`
	Server ServerConfig `mapstructure:"server"`
	TLS    TLSConfig    `mapstructure:"tls"`
	CORS   CORSConfig   `mapstructure:"cors"`

	// BodyLimit accepts human readable sizes such as "4 MiB".
	BodyLimit    string        `mapstructure:"body_limit"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	AccessLog   bool   `mapstructure:"access_log"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TLSConfig struct {
	CertFile      string `mapstructure:"cert_file"`
	CertKeyFile   string `mapstructure:"cert_key_file"`
	TLSMinVersion string `mapstructure:"tls_min_version"`
}

type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	AllowHeaders []string `mapstructure:"allow_headers"`
}

func DefaultConfig() Config {
	return Config{
		Name: "metaroute",
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowHeaders: []string{"*"},
		},
		BodyLimit:    "4 MiB",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		AccessLog:    true,
		MetricsPath:  "/metrics",
	}
}
