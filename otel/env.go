package otel

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overlays the standard OTEL_* variables on cfg. lookup is
// os.LookupEnv outside tests.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(env string, dst *string) {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(env string, dst *bool) {
		if v, ok := lookup(env); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("OTEL_SERVICE_NAME", &cfg.ServiceName)
	boolean("OTEL_ENABLED", &cfg.Enabled)
	str("OTEL_TRACES_EXPORTER", &cfg.Traces.Exporter)
	str("OTEL_TRACES_SAMPLER", &cfg.Traces.Sampler)
	if v, ok := lookup("OTEL_TRACES_SAMPLER_ARG"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.Traces.SamplerArg = f
		}
	}
	if v, ok := lookup("OTEL_RESOURCE_ATTRIBUTES"); ok {
		attrs := ParseHeaders(v)
		if len(attrs) > 0 && cfg.ResourceAttributes == nil {
			cfg.ResourceAttributes = map[string]string{}
		}
		for k, val := range attrs {
			cfg.ResourceAttributes[k] = val
		}
	}

	otlp := &cfg.Traces.OTLP
	for _, prefix := range []string{"OTEL_EXPORTER_OTLP_", "OTEL_EXPORTER_OTLP_TRACES_"} {
		str(prefix+"ENDPOINT", &otlp.Endpoint)
		str(prefix+"PROTOCOL", &otlp.Protocol)
		str(prefix+"COMPRESSION", &otlp.Compression)
		boolean(prefix+"INSECURE", &otlp.Insecure)
		str(prefix+"CERTIFICATE", &otlp.TLS.CAFile)
		str(prefix+"CLIENT_CERTIFICATE", &otlp.TLS.CertFile)
		str(prefix+"CLIENT_KEY", &otlp.TLS.KeyFile)
		if v, ok := lookup(prefix + "TIMEOUT"); ok {
			if d, ok := ParseTimeout(v); ok {
				otlp.Timeout = d
			}
		}
		if v, ok := lookup(prefix + "HEADERS"); ok {
			if headers := ParseHeaders(v); len(headers) > 0 {
				otlp.Headers = headers
			}
		}
	}
	return cfg
}

// ParseTimeout accepts milliseconds, as the OTEL variables specify, or a Go
// duration.
func ParseTimeout(value string) (time.Duration, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return time.Duration(n) * time.Millisecond, true
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, false
	}
	return d, true
}

// ParseHeaders parses "k1=v1,k2=v2". Malformed pairs are skipped.
func ParseHeaders(value string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
