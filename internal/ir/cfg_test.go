// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir_test

import (
	"testing"

	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/dotandev/wasmdec/internal/wasm/wasmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cfgFor builds a single-function module around the body and runs both
// builder stages.
func cfgFor(t *testing.T, params, results, locals []wasm.ValType, body []byte) *ir.CFG {
	t.Helper()
	b := wasmtest.NewModule()
	ti := b.Type(params, results)
	b.Func(ti, locals, body)
	return moduleCFG(t, b, 0)
}

func moduleCFG(t *testing.T, b *wasmtest.Builder, funcIdx uint32) *ir.CFG {
	t.Helper()
	mod, err := wasm.ParseModule(b.Build())
	require.NoError(t, err)
	fn := mod.FuncByIndex(funcIdx)
	require.NotNil(t, fn)
	c, err := ir.BuildFunc(fn, mod)
	require.NoError(t, err)
	return c
}

// succIDs flattens a region's successor targets.
func succIDs(r *ir.Region) []int {
	ids := make([]int, len(r.Succs))
	for i, e := range r.Succs {
		ids[i] = e.To.ID
	}
	return ids
}

func TestBuildCFG_StraightLine(t *testing.T) {
	c := cfgFor(t, nil, nil, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))

	require.Len(t, c.Regions, 2)
	assert.Same(t, c.Regions[0], c.Entry)
	assert.Same(t, c.Regions[1], c.Exit)

	require.Len(t, c.Entry.Stmts, 1)
	assert.IsType(t, &ir.Nop{}, c.Entry.Stmts[0])
	assert.Equal(t, ir.TermReturn, c.Entry.Term.Kind)
	assert.Equal(t, []int{1}, succIDs(c.Entry))
	assert.Equal(t, ir.TermNone, c.Exit.Term.Kind)
	assert.Empty(t, c.Exit.Succs)
}

func TestBuildCFG_BlockBr(t *testing.T) {
	c := cfgFor(t, nil, nil, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void, wasmtest.Br(0)),
	))

	// entry, exit, join, inner body.
	require.Len(t, c.Regions, 4)
	join, inner := c.Regions[2], c.Regions[3]

	assert.Equal(t, ir.TermBr, c.Entry.Term.Kind)
	assert.Equal(t, []int{3}, succIDs(c.Entry))

	assert.Equal(t, ir.TermBr, inner.Term.Kind)
	assert.Equal(t, []int{2}, succIDs(inner))

	assert.Equal(t, ir.TermReturn, join.Term.Kind)
	assert.Equal(t, []int{1}, succIDs(join))
	require.Len(t, join.Preds, 1)
	assert.Same(t, inner, join.Preds[0].From)
}

func TestBuildCFG_IfElseDiamond(t *testing.T) {
	b := wasmtest.NewModule()
	main := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	res := b.Type(nil, []wasm.ValType{wasm.I32})
	b.Func(main, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.IfElseSig(res, wasmtest.I32Const(1), wasmtest.I32Const(2)),
	))
	c := moduleCFG(t, b, 0)

	require.Len(t, c.Regions, 5)
	join, trueR, falseR := c.Regions[2], c.Regions[3], c.Regions[4]

	assert.Equal(t, ir.TermBrIf, c.Entry.Term.Kind)
	require.IsType(t, &ir.GetLocal{}, c.Entry.Term.Cond)
	// Taken first.
	assert.Equal(t, []int{3, 4}, succIDs(c.Entry))

	require.Len(t, trueR.Succs, 1)
	assert.Same(t, join, trueR.Succs[0].To)
	assert.Equal(t, int64(1), trueR.Succs[0].Args[0].(*ir.Const).I)

	require.Len(t, falseR.Succs, 1)
	assert.Same(t, join, falseR.Succs[0].To)
	assert.Equal(t, int64(2), falseR.Succs[0].Args[0].(*ir.Const).I)

	assert.Equal(t, []wasm.ValType{wasm.I32}, join.Params)
	assert.Equal(t, ir.TermReturn, join.Term.Kind)
	require.Len(t, join.Term.Args, 1)
	assert.Equal(t, 0, join.Term.Args[0].(*ir.Param).Index)
}

func TestBuildCFG_OneArmedIf(t *testing.T) {
	c := cfgFor(t, []wasm.ValType{wasm.I32}, nil, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.If(wasmtest.Void, wasmtest.Op(wasm.OpNop)),
	))

	require.Len(t, c.Regions, 5)
	join, trueR, falseR := c.Regions[2], c.Regions[3], c.Regions[4]

	assert.Equal(t, []int{3, 4}, succIDs(c.Entry))
	require.Len(t, trueR.Stmts, 1)

	// The synthesized false arm is an empty forwarder.
	assert.Empty(t, falseR.Stmts)
	assert.Equal(t, ir.TermBr, falseR.Term.Kind)
	assert.Equal(t, []int{2}, succIDs(falseR))

	require.Len(t, join.Preds, 2)
	assert.Equal(t, ir.TermReturn, join.Term.Kind)
}

func TestBuildCFG_InfiniteLoop(t *testing.T) {
	c := cfgFor(t, nil, nil, nil, wasmtest.Body(
		wasmtest.Loop(wasmtest.Void, wasmtest.Br(0)),
	))

	require.Len(t, c.Regions, 4)
	join, header := c.Regions[2], c.Regions[3]

	assert.Equal(t, []int{3}, succIDs(c.Entry))

	// The branch goes back to the loop header itself.
	assert.Equal(t, ir.TermBr, header.Term.Kind)
	assert.Equal(t, []int{3}, succIDs(header))
	require.Len(t, header.Preds, 2)

	// Nothing leaves the loop, so its join is never entered.
	assert.Empty(t, join.Preds)
}

func TestBuildCFG_BrIfFallthrough(t *testing.T) {
	c := cfgFor(t, []wasm.ValType{wasm.I32}, nil, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void,
			wasmtest.LocalGet(0),
			wasmtest.BrIf(0),
			wasmtest.Op(wasm.OpNop),
		),
	))

	require.Len(t, c.Regions, 5)
	join, inner, fall := c.Regions[2], c.Regions[3], c.Regions[4]

	assert.Equal(t, ir.TermBrIf, inner.Term.Kind)
	assert.Equal(t, []int{2, 4}, succIDs(inner))

	require.Len(t, fall.Stmts, 1)
	assert.IsType(t, &ir.Nop{}, fall.Stmts[0])
	assert.Equal(t, []int{2}, succIDs(fall))

	require.Len(t, join.Preds, 2)
}

func TestBuildCFG_ConditionalReturn(t *testing.T) {
	c := cfgFor(t, nil, []wasm.ValType{wasm.I32}, nil, wasmtest.Body(
		wasmtest.I32Const(7),
		wasmtest.I32Const(1),
		wasmtest.BrIf(0),
	))

	require.Len(t, c.Regions, 4)
	ret, fall := c.Regions[2], c.Regions[3]

	// The taken side lands in a shared return region.
	assert.Equal(t, ir.TermBrIf, c.Entry.Term.Kind)
	assert.Equal(t, []int{2, 3}, succIDs(c.Entry))
	assert.Equal(t, []wasm.ValType{wasm.I32}, ret.Params)
	assert.Equal(t, ir.TermReturn, ret.Term.Kind)
	require.Len(t, ret.Term.Args, 1)
	assert.Equal(t, 0, ret.Term.Args[0].(*ir.Param).Index)
	assert.Equal(t, []int{1}, succIDs(ret))

	// Both outgoing edges carry the same argument tuple.
	require.Len(t, c.Entry.Succs, 2)
	assert.Same(t, c.Entry.Succs[0].Args[0], c.Entry.Succs[1].Args[0])
	assert.Equal(t, int64(7), c.Entry.Succs[0].Args[0].(*ir.Const).I)

	// The fallthrough keeps the value as a parameter and returns it too.
	assert.Equal(t, []wasm.ValType{wasm.I32}, fall.Params)
	assert.Equal(t, ir.TermReturn, fall.Term.Kind)
	require.Len(t, c.Exit.Preds, 2)
}

func TestBuildCFG_BrTableFanout(t *testing.T) {
	c := cfgFor(t, []wasm.ValType{wasm.I32}, nil, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void,
			wasmtest.Block(wasmtest.Void,
				wasmtest.LocalGet(0),
				wasmtest.BrTable([]uint32{0, 1}, 1),
			),
		),
	))

	require.Len(t, c.Regions, 6)
	outerJoin, innerJoin, body := c.Regions[2], c.Regions[4], c.Regions[5]

	assert.Equal(t, ir.TermBrTable, body.Term.Kind)
	require.IsType(t, &ir.GetLocal{}, body.Term.Cond)
	// Cases in table order, then the default.
	assert.Equal(t, []int{4, 2, 2}, succIDs(body))

	assert.Equal(t, ir.TermBr, innerJoin.Term.Kind)
	assert.Equal(t, []int{2}, succIDs(innerJoin))
	assert.Equal(t, ir.TermReturn, outerJoin.Term.Kind)
	require.Len(t, c.Exit.Preds, 1)
}

func TestBuildCFG_UnreachableTerminator(t *testing.T) {
	c := cfgFor(t, nil, nil, nil, wasmtest.Body(wasmtest.Op(wasm.OpUnreachable)))

	require.Len(t, c.Regions, 2)
	assert.Equal(t, ir.TermUnreachable, c.Entry.Term.Kind)
	assert.Empty(t, c.Entry.Succs)
	assert.Empty(t, c.Exit.Preds)
}

func TestBuildCFG_LoopCarriedValues(t *testing.T) {
	b := wasmtest.NewModule()
	main := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	b.Func(main, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.LoopSig(main,
			wasmtest.I32Const(1),
			wasmtest.Op(wasm.OpI32Add),
			wasmtest.LocalTee(0),
			wasmtest.LocalGet(0),
			wasmtest.Op(wasm.OpI32Eqz),
			wasmtest.BrIf(0),
		),
	))
	c := moduleCFG(t, b, 0)

	require.Len(t, c.Regions, 5)
	join, header, fall := c.Regions[2], c.Regions[3], c.Regions[4]

	// Entry seeds the loop parameter with the local's value.
	require.Len(t, c.Entry.Succs, 1)
	assert.Same(t, header, c.Entry.Succs[0].To)
	require.Len(t, c.Entry.Succs[0].Args, 1)
	assert.Equal(t, 0, c.Entry.Succs[0].Args[0].(*ir.GetLocal).Index)

	assert.Equal(t, []wasm.ValType{wasm.I32}, header.Params)
	require.Len(t, header.Stmts, 1)
	set := header.Stmts[0].(*ir.SetLocal)
	add := set.X.(*ir.Binary)
	require.IsType(t, &ir.Param{}, add.X)

	// Taken edge loops back to the header carrying the next value.
	assert.Equal(t, ir.TermBrIf, header.Term.Kind)
	assert.Equal(t, []int{3, 4}, succIDs(header))
	assert.Same(t, header.Succs[0].Args[0], header.Succs[1].Args[0])

	assert.Equal(t, []wasm.ValType{wasm.I32}, fall.Params)
	assert.Equal(t, []int{2}, succIDs(fall))
	assert.Equal(t, ir.TermReturn, join.Term.Kind)
}
