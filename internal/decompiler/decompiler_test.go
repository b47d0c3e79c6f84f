// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package decompiler_test

import (
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/wasmdec/internal/decompiler"
	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/dotandev/wasmdec/internal/wasm/wasmtest"
)

func plain(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func parsed(t *testing.T, b *wasmtest.Builder) *wasm.Module {
	t.Helper()
	mod, err := wasm.ParseModule(b.Build())
	require.NoError(t, err)
	return mod
}

// mixedModule has a bit of everything: straight line, identity, a counting
// loop, and a diamond.
func mixedModule(t *testing.T) *wasm.Module {
	t.Helper()
	b := wasmtest.NewModule()
	void := b.Type(nil, nil)
	ident := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	arm := b.Type(nil, []wasm.ValType{wasm.I32})
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	b.Func(ident, nil, wasmtest.Body(wasmtest.LocalGet(0)))
	b.Func(void, []wasm.ValType{wasm.I32}, wasmtest.Body(
		wasmtest.Loop(wasmtest.Void,
			wasmtest.LocalGet(0),
			wasmtest.I32Const(1),
			wasmtest.Op(wasm.OpI32Add),
			wasmtest.LocalSet(0),
			wasmtest.LocalGet(0),
			wasmtest.I32Const(10),
			wasmtest.Op(wasm.OpI32LtS),
			wasmtest.BrIf(0),
		),
	))
	b.Func(ident, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.IfElseSig(arm,
			wasmtest.I32Const(1),
			wasmtest.I32Const(2),
		),
	))
	return parsed(t, b)
}

func TestFunction_ProducesText(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule()
	ident := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	b.Func(ident, nil, wasmtest.Body(wasmtest.LocalGet(0)))
	b.Export("identity", 0)
	mod := parsed(t, b)

	d := &decompiler.Decompiler{}
	r, err := d.Function(context.Background(), mod, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), r.Index)
	assert.Equal(t, "identity", r.Name)
	assert.False(t, r.Degraded)
	assert.Contains(t, r.Text, "func 0 identity(arg0: i32) {")
	assert.Contains(t, r.Text, "return arg0")
}

func TestFunction_NotFound(t *testing.T) {
	b := wasmtest.NewModule()
	void := b.Type(nil, nil)
	b.ImportFunc("env", "tick", void)
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	mod := parsed(t, b)

	d := &decompiler.Decompiler{}
	_, err := d.Function(context.Background(), mod, 99)
	require.ErrorIs(t, err, errors.ErrFunctionNotFound)

	// Imports have no body to decompile.
	_, err = d.Function(context.Background(), mod, 0)
	require.ErrorIs(t, err, errors.ErrFunctionNotFound)
}

func TestModule_DeterministicAcrossWorkerCounts(t *testing.T) {
	plain(t)
	mod := mixedModule(t)

	seq, err := (&decompiler.Decompiler{Workers: 1}).Module(context.Background(), mod)
	require.NoError(t, err)
	par, err := (&decompiler.Decompiler{Workers: 4}).Module(context.Background(), mod)
	require.NoError(t, err)

	assert.Equal(t, seq.Text, par.Text)
	require.Len(t, seq.Funcs, 4)
	for i, r := range seq.Funcs {
		assert.Equal(t, uint32(i), r.Index)
		assert.NotEmpty(t, r.Text)
	}
	assert.Zero(t, seq.Failed)
	assert.Zero(t, seq.Degraded)
	assert.Contains(t, seq.Text, "module {")
}

func TestModule_IsolatesFailures(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule()
	void := b.Type(nil, nil)
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpI32Add)))
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	mod := parsed(t, b)

	res, err := (&decompiler.Decompiler{}).Module(context.Background(), mod)
	require.NoError(t, err, "one bad function must not fail the module run")

	assert.Equal(t, 1, res.Failed)
	require.ErrorIs(t, res.Funcs[0].Err, errors.ErrMalformed)
	assert.Empty(t, res.Funcs[0].Text)

	assert.Contains(t, res.Text, "func 1() {")
	assert.NotContains(t, res.Text, "func 0(")
}

func TestModule_CountsDegraded(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule()
	void := b.Type(nil, nil)
	twice := b.Type([]wasm.ValType{wasm.I32, wasm.I32}, nil)
	// The loop leaves for two different landings, which structured folding
	// cannot express.
	b.Func(twice, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void,
			wasmtest.Block(wasmtest.Void,
				wasmtest.Loop(wasmtest.Void,
					wasmtest.LocalGet(0),
					wasmtest.BrIf(2),
					wasmtest.LocalGet(1),
					wasmtest.BrIf(1),
					wasmtest.Br(0),
				),
			),
			wasmtest.Op(wasm.OpNop),
		),
	))
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	mod := parsed(t, b)

	res, err := (&decompiler.Decompiler{}).Module(context.Background(), mod)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Degraded)
	assert.Zero(t, res.Failed)
	assert.True(t, res.Funcs[0].Degraded)
	assert.False(t, res.Funcs[1].Degraded)
	assert.Contains(t, res.Funcs[0].Text, "@2:")
	assert.Contains(t, res.Text, res.Funcs[0].Text)
}

func TestModule_HonorsCancellation(t *testing.T) {
	mod := mixedModule(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := (&decompiler.Decompiler{}).Module(ctx, mod)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestGraph_Stages(t *testing.T) {
	plain(t)
	mod := mixedModule(t)
	d := &decompiler.Decompiler{}

	raw, err := d.Graph(context.Background(), mod, 3, false)
	require.NoError(t, err)
	norm, err := d.Graph(context.Background(), mod, 3, true)
	require.NoError(t, err)

	assert.Contains(t, raw, "digraph func_3")
	assert.Contains(t, norm, "digraph func_3")
	assert.NotEqual(t, raw, norm, "normalization renumbers and fuses regions")

	_, err = d.Graph(context.Background(), mod, 42, false)
	require.ErrorIs(t, err, errors.ErrFunctionNotFound)
}

// benchModule builds a module with count copies of a loop-heavy function.
func benchModule(b *testing.B, count int) *wasm.Module {
	b.Helper()
	builder := wasmtest.NewModule()
	ident := builder.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	for i := 0; i < count; i++ {
		builder.Func(ident, nil, wasmtest.Body(
			wasmtest.Loop(wasmtest.Void,
				wasmtest.LocalGet(0),
				wasmtest.I32Const(1),
				wasmtest.Op(wasm.OpI32Sub),
				wasmtest.LocalTee(0),
				wasmtest.BrIf(0),
			),
			wasmtest.LocalGet(0),
		))
	}
	mod, err := wasm.ParseModule(builder.Build())
	if err != nil {
		b.Fatalf("Failed to parse module: %v", err)
	}
	return mod
}

// BenchmarkFunction benchmarks one function through the whole pipeline
func BenchmarkFunction(b *testing.B) {
	old := color.NoColor
	color.NoColor = true
	b.Cleanup(func() { color.NoColor = old })

	mod := benchModule(b, 1)
	d := &decompiler.Decompiler{}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := d.Function(context.Background(), mod, 0); err != nil {
			b.Fatalf("Failed to decompile function: %v", err)
		}
	}
}

// BenchmarkModule benchmarks a 64-function module through the worker pool
func BenchmarkModule(b *testing.B) {
	old := color.NoColor
	color.NoColor = true
	b.Cleanup(func() { color.NoColor = old })

	mod := benchModule(b, 64)
	d := &decompiler.Decompiler{Workers: 4}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := d.Module(context.Background(), mod); err != nil {
			b.Fatalf("Failed to decompile module: %v", err)
		}
	}
}
