// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires optional OTLP tracing for the decompilation
// pipeline. When disabled, or when the collector is unreachable, every
// span degrades to a no-op; decompilation never depends on it.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Config selects the exporter target.
type Config struct {
	Enabled     bool
	ExporterURL string
	ServiceName string
}

// Init installs the global tracer provider and returns a cleanup that
// flushes pending spans. Exporting is batched, so an unreachable collector
// costs nothing on the hot path.
func Init(ctx context.Context, config Config) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(config.ExporterURL),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String("dev"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

// GetTracer returns the process tracer. Safe before Init; spans are then
// no-ops.
func GetTracer() oteltrace.Tracer {
	return otel.Tracer("wasmdec")
}
