package otel

import (
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Enabled            bool              `mapstructure:"enabled"`
	ServiceName        string            `mapstructure:"service_name"`
	ServiceNamespace   string            `mapstructure:"service_namespace"`
	ResourceAttributes map[string]string `mapstructure:"resource_attributes"`
	Traces             TracesConfig      `mapstructure:"traces"`
}

type TracesConfig struct {
	// Exporter is none, otlp or memory. memory keeps spans in process and is
	// meant for tests.
	Exporter   string     `mapstructure:"exporter"`
	Sampler    string     `mapstructure:"sampler"`
	SamplerArg float64    `mapstructure:"sampler_arg"`
	OTLP       OTLPConfig `mapstructure:"otlp"`
}

type OTLPConfig struct {
	Endpoint    string            `mapstructure:"endpoint"`
	Protocol    string            `mapstructure:"protocol"`
	Headers     map[string]string `mapstructure:"headers"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Compression string            `mapstructure:"compression"`
	Insecure    bool              `mapstructure:"insecure"`
	TLS         TLSConfig         `mapstructure:"tls"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:      "metaroute",
		ServiceNamespace: "metaroute",
		Traces: TracesConfig{
			Exporter:   "none",
			Sampler:    "parentbased_traceidratio",
			SamplerArg: 1,
			OTLP: OTLPConfig{
				Endpoint:    "http://localhost:4317",
				Protocol:    "grpc",
				Timeout:     10 * time.Second,
				Compression: "gzip",
			},
		},
	}
}

func (c OTLPConfig) EndpointForGRPC() string {
	endpoint := strings.TrimSpace(c.Endpoint)
	if !strings.Contains(endpoint, "://") {
		return endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

// EndpointForHTTP splits the endpoint into host and URL path.
func (c OTLPConfig) EndpointForHTTP() (string, string) {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return "", ""
	}
	if !strings.Contains(endpoint, "://") {
		if !strings.Contains(endpoint, "/") {
			return endpoint, ""
		}
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return c.Endpoint, ""
	}
	return u.Host, strings.TrimSpace(u.Path)
}
