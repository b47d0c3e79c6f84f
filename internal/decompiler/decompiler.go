// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package decompiler drives the pipeline: expression building, graph
// normalization, structure recovery, printing. A function run is pure and
// sequential; the module driver fans out over a bounded worker pool and
// keeps failures scoped to the function that caused them.
package decompiler

import (
	"context"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/logger"
	"github.com/dotandev/wasmdec/internal/passes"
	"github.com/dotandev/wasmdec/internal/printer"
	"github.com/dotandev/wasmdec/internal/structure"
	"github.com/dotandev/wasmdec/internal/telemetry"
	"github.com/dotandev/wasmdec/internal/wasm"
)

// Decompiler carries run options.
type Decompiler struct {
	// Workers bounds module fan-out; zero or less means one per CPU.
	Workers int
}

// FuncResult is one function's trip through the pipeline.
type FuncResult struct {
	Index    uint32
	Name     string
	Text     string
	Degraded bool // labeled fallback instead of structured statements
	Err      error
}

// ModuleResult collects per-function results plus the assembled output.
// Functions that failed outright are counted and left out of Text.
type ModuleResult struct {
	Text     string
	Funcs    []FuncResult
	Degraded int
	Failed   int
}

// Function decompiles one defined function to pseudo-code.
func (d *Decompiler) Function(ctx context.Context, mod *wasm.Module, funcIdx uint32) (*FuncResult, error) {
	_, span := telemetry.GetTracer().Start(ctx, "decompile_function")
	span.SetAttributes(attribute.Int("func.index", int(funcIdx)))
	defer span.End()

	log := logger.Logger.With("func", funcIdx)

	fn := mod.FuncByIndex(funcIdx)
	if fn == nil {
		err := errors.WrapFunctionNotFound(funcIdx)
		span.RecordError(err)
		return nil, err
	}

	c, err := ir.BuildFunc(fn, mod)
	if err != nil {
		span.RecordError(err)
		log.Error("expression build failed", "error", err)
		return nil, err
	}

	an, _, err := passes.Normalize(c)
	if err != nil {
		span.RecordError(err)
		log.Error("normalization failed", "error", err)
		return nil, err
	}

	f := structure.Recover(c, an)
	res := &FuncResult{
		Index:    funcIdx,
		Name:     c.FuncName,
		Text:     printer.Func(f),
		Degraded: f.Degraded(),
	}
	if res.Degraded {
		span.SetAttributes(attribute.Bool("func.degraded", true))
		log.Warn("structure recovery degraded to labels", "error", f.Err)
	}
	return res, nil
}

// Module decompiles every defined function and assembles module output in
// index order regardless of worker scheduling.
func (d *Decompiler) Module(ctx context.Context, mod *wasm.Module) (*ModuleResult, error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "decompile_module")
	span.SetAttributes(attribute.Int("module.funcs", len(mod.Funcs)))
	defer span.End()

	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FuncResult, len(mod.Funcs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, fn := range mod.Funcs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, fn *wasm.Function) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			r, err := d.Function(ctx, mod, fn.Index)
			if err != nil {
				results[i] = FuncResult{Index: fn.Index, Name: fn.Name, Err: err}
				return
			}
			results[i] = *r
		}(i, fn)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &ModuleResult{Funcs: results}
	bodies := make([]string, 0, len(results))
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			out.Failed++
			continue
		}
		if r.Degraded {
			out.Degraded++
		}
		bodies = append(bodies, r.Text)
	}
	out.Text = printer.Assemble(mod, bodies)

	logger.Logger.Debug("module decompiled",
		"funcs", len(results), "degraded", out.Degraded, "failed", out.Failed)
	return out, nil
}

// Graph renders one function's control-flow graph as graphviz dot, either
// fresh from the CFG builder or after normalization.
func (d *Decompiler) Graph(ctx context.Context, mod *wasm.Module, funcIdx uint32, normalized bool) (string, error) {
	_, span := telemetry.GetTracer().Start(ctx, "render_graph")
	span.SetAttributes(
		attribute.Int("func.index", int(funcIdx)),
		attribute.Bool("graph.normalized", normalized),
	)
	defer span.End()

	fn := mod.FuncByIndex(funcIdx)
	if fn == nil {
		err := errors.WrapFunctionNotFound(funcIdx)
		span.RecordError(err)
		return "", err
	}
	c, err := ir.BuildFunc(fn, mod)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if normalized {
		if _, _, err := passes.Normalize(c); err != nil {
			span.RecordError(err)
			return "", err
		}
	}
	return ir.Graphviz(c), nil
}
