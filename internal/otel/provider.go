// Package otel owns the OpenTelemetry log pipeline: an sdk LoggerProvider
// exporting to the session log file and, when configured, an OTLP/HTTP
// collector. Metrics stay on the global meter provider and need no setup
// here.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the export targets for the log pipeline.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // session log file, pretty-printed records
	Endpoint     string    // OTLP/HTTP collector, optional
	Insecure     bool      // plain HTTP for the collector connection
}

// Provider wraps the sdk LoggerProvider behind nil-safe lifecycle calls.
// A disabled Provider carries no pipeline and all its methods no-op.
type Provider struct {
	logs    *sdklog.LoggerProvider
	enabled bool
}

// New assembles the log pipeline described by cfg. Disabled configs
// yield an inert Provider; enabled ones need at least one export target.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()

	var procs []sdklog.Processor
	if cfg.LogWriter != nil {
		proc, err := fileProcessor(cfg.LogWriter, cfg.BatchTimeout)
		if err != nil {
			return nil, err
		}
		procs = append(procs, proc)
	}
	if cfg.Endpoint != "" {
		proc, err := otlpProcessor(ctx, cfg.Endpoint, cfg.Insecure, cfg.BatchTimeout)
		if err != nil {
			return nil, err
		}
		procs = append(procs, proc)
	}
	if len(procs) == 0 {
		return nil, errors.New("otel enabled but no log writer or endpoint configured")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range procs {
		opts = append(opts, sdklog.WithProcessor(proc))
	}

	return &Provider{
		logs:    sdklog.NewLoggerProvider(opts...),
		enabled: true,
	}, nil
}

// fileProcessor batches records into w as pretty-printed JSON.
func fileProcessor(w io.Writer, timeout time.Duration) (sdklog.Processor, error) {
	exp, err := stdoutlog.New(
		stdoutlog.WithWriter(w),
		stdoutlog.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("file log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(timeout)), nil
}

// otlpProcessor batches records to an OTLP/HTTP collector.
func otlpProcessor(ctx context.Context, endpoint string, insecure bool, timeout time.Duration) (sdklog.Processor, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(timeout)), nil
}

// LoggerProvider exposes the sdk provider for the slog bridge.
// Nil when the Provider is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Flush pushes buffered records out to the exporters.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush: %w", err)
	}
	return nil
}

// Shutdown flushes and tears the pipeline down. The Provider is unusable
// afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown: %w", err)
	}
	return nil
}

// Enabled reports whether a pipeline was assembled.
func (p *Provider) Enabled() bool {
	return p.enabled
}
