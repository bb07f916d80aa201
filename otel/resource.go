package otel

import (
	"context"
	"os"

	"github.com/bronystylecrazy/metaroute/build"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

func NewResource(ctx context.Context, config Config) (*resource.Resource, error) {
	info := build.Current()
	environment := "development"
	if build.IsProduction() {
		environment = "production"
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceNamespace(config.ServiceNamespace),
		semconv.ServiceVersion(info.Version),
		semconv.DeploymentEnvironmentName(environment),
	}
	if hostName, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(hostName))
	}
	for k, v := range config.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}
