// Package tracing configura o OpenTelemetry com o exporter stdout.
//
// Sem Setup o provider global é no-op e os spans criados em application não custam nada.
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup registra um TracerProvider global que escreve spans em outputFile
// (ou os.Stdout quando vazio). O shutdown retornado faz flush e fecha o arquivo.
func Setup(serviceName, serviceVersion, outputFile string) (func(context.Context) error, error) {
	if outputFile == "" {
		return install(serviceName, serviceVersion, os.Stdout, nil)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, err
	}
	return install(serviceName, serviceVersion, f, f)
}

var newExporter = func(w io.Writer) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(w))
}

// install fecha c se falhar; em caso de sucesso c é fechado pelo shutdown.
func install(serviceName, serviceVersion string, w io.Writer, c io.Closer) (shutdown func(context.Context) error, err error) {
	defer func() {
		if err != nil && c != nil {
			_ = c.Close()
		}
	}()

	exporter, err := newExporter(w)
	if err != nil {
		return nil, err
	}
	tp, err := NewProvider(serviceName, serviceVersion, exporter)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if c != nil {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}

// NewProvider monta o provider com o exporter dado, sem registrá-lo como global.
func NewProvider(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
