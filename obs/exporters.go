package obs

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

const otlpDialTimeout = 10 * time.Second

// newOTLPExporter tries gRPC first and falls back to OTLP/HTTP on the same
// endpoint, so one configured endpoint works against collectors exposing
// either protocol.
func newOTLPExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	ctx, cancel := context.WithTimeout(ctx, otlpDialTimeout)
	defer cancel()

	exporter, grpcErr := newOTLPGRPC(ctx, endpoint, opts)
	if grpcErr == nil {
		return exporter, nil
	}

	exporter, httpErr := newOTLPHTTP(ctx, endpoint, opts)
	if httpErr != nil {
		return nil, errors.Join(grpcErr, httpErr)
	}
	return exporter, nil
}

func newOTLPGRPC(ctx context.Context, endpoint string, opts Options) (sdktrace.SpanExporter, error) {
	dialOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if opts.Insecure {
		dialOpts = append(dialOpts, otlptracegrpc.WithInsecure())
	} else {
		dialOpts = append(dialOpts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{})))
	}
	if len(opts.Headers) > 0 {
		dialOpts = append(dialOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}
	dialOpts = append(dialOpts, otlptracegrpc.WithDialOption(grpc.WithBlock()))
	return otlptracegrpc.New(ctx, dialOpts...)
}

func newOTLPHTTP(ctx context.Context, endpoint string, opts Options) (sdktrace.SpanExporter, error) {
	httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if opts.Insecure {
		httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
	}
	if len(opts.Headers) > 0 {
		httpOpts = append(httpOpts, otlptracehttp.WithHeaders(opts.Headers))
	}
	return otlptracehttp.New(ctx, httpOpts...)
}
