// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	cleanup, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("disabled init failed: %v", err)
	}
	cleanup()
}

// Init must succeed even when no collector listens; spans are dropped by
// the batcher instead of failing decompilation.
func TestInit_UnreachableCollector(t *testing.T) {
	ctx := context.Background()
	cleanup, err := Init(ctx, Config{
		Enabled:     true,
		ExporterURL: "127.0.0.1:37999",
		ServiceName: "wasmdec-test",
	})
	if err != nil {
		t.Fatalf("init must not fail when the collector is down: %v", err)
	}
	defer cleanup()

	tracer := GetTracer()
	if tracer == nil {
		t.Fatal("GetTracer returned nil")
	}
	_, span := tracer.Start(ctx, "decompile_function")
	span.End()
}

func TestGetTracer_BeforeInit(t *testing.T) {
	tracer := GetTracer()
	if tracer == nil {
		t.Fatal("GetTracer returned nil")
	}
	_, span := tracer.Start(context.Background(), "decompile_module")
	span.End()
}
