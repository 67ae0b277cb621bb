// Package tracing wraps OpenTelemetry so workers can record one span per access cycle
// without importing the SDK directly. Until Init succeeds every span is a no-op.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const tracerName = "github.com/Adarsh-Kmt/FairGroupMutex"

var (
	providerOnce sync.Once
	providerErr  error
	provider     *sdktrace.TracerProvider

	// traceFile is the output file opened by Init, closed by Shutdown.
	traceFile *os.File
)

// Init installs a global tracer provider exporting spans as JSON to outputFile, or to stdout when outputFile is empty.
// Only the first call has an effect.
func Init(serviceName, serviceVersion, outputFile string) error {

	var w io.Writer = os.Stdout
	var f *os.File
	if outputFile != "" {
		var err error
		if f, err = os.Create(outputFile); err != nil {
			return errors.Wrapf(err, "creating trace file %s", outputFile)
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err == nil {
		var installed bool
		installed, err = install(serviceName, serviceVersion, exporter)
		if installed && err == nil {
			traceFile = f
			return nil
		}
	} else {
		err = errors.Wrap(err, "creating stdout trace exporter")
	}

	if f != nil {
		f.Close()
	}
	return err
}

func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {

	_, err := install(serviceName, serviceVersion, exporter)
	return err
}

func install(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (installed bool, err error) {

	providerOnce.Do(func() {
		installed = true

		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = errors.Wrap(err, "building trace resource")
			return
		}

		provider = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
	})

	return installed, providerErr
}

// Shutdown flushes and stops the provider installed by Init, if any, then closes its output file.
func Shutdown(ctx context.Context) error {

	if provider == nil {
		return nil
	}

	err := provider.Shutdown(ctx)
	if traceFile != nil {
		err = multierr.Append(err, errors.Wrap(traceFile.Close(), "closing trace file"))
		traceFile = nil
	}
	return err
}

type Span struct {
	span trace.Span
}

func StartSpan(ctx context.Context, name string) (context.Context, *Span) {

	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, &Span{span: span}
}

func (s *Span) WithAttributes(attrs map[string]string) *Span {

	if s == nil || len(attrs) == 0 {
		return s
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	s.span.SetAttributes(kvs...)
	return s
}

// AddEvent marks a point inside the span, e.g. the moment a worker was admitted.
func (s *Span) AddEvent(name string) {

	if s == nil {
		return
	}
	s.span.AddEvent(name)
}

func EndSpan(s *Span, err error) {

	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
