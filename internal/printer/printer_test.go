// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package printer_test

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/passes"
	"github.com/dotandev/wasmdec/internal/printer"
	"github.com/dotandev/wasmdec/internal/structure"
	"github.com/dotandev/wasmdec/internal/wasm"
	"github.com/dotandev/wasmdec/internal/wasm/wasmtest"
)

// plain pins colors off so goldens compare bare text.
func plain(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func textWant(s string) string {
	return strings.TrimLeft(dedent.Dedent(s), "\n")
}

func recovered(t *testing.T, params, results, locals []wasm.ValType, body []byte) *structure.Func {
	t.Helper()
	b := wasmtest.NewModule()
	ti := b.Type(params, results)
	b.Func(ti, locals, body)
	return recoveredAt(t, b, 0)
}

func recoveredAt(t *testing.T, b *wasmtest.Builder, funcIdx uint32) *structure.Func {
	t.Helper()
	return recoveredFrom(t, parsed(t, b), funcIdx)
}

func parsed(t *testing.T, b *wasmtest.Builder) *wasm.Module {
	t.Helper()
	mod, err := wasm.ParseModule(b.Build())
	require.NoError(t, err)
	return mod
}

func recoveredFrom(t *testing.T, mod *wasm.Module, funcIdx uint32) *structure.Func {
	t.Helper()
	fn := mod.FuncByIndex(funcIdx)
	require.NotNil(t, fn)
	c, err := ir.BuildFunc(fn, mod)
	require.NoError(t, err)
	a, _, err := passes.Normalize(c)
	require.NoError(t, err)
	f := structure.Recover(c, a)
	require.NoError(t, f.Err)
	return f
}

func rawBody(regions ...*ir.Region) []structure.Node {
	nodes := make([]structure.Node, len(regions))
	for i, r := range regions {
		nodes[i] = &structure.Raw{Span: structure.Span{Regions: []int{r.ID}}, Region: r}
	}
	return nodes
}

func TestFunc_StructuredBody(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule()
	main := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	arm := b.Type(nil, []wasm.ValType{wasm.I32})
	b.Func(main, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.IfElseSig(arm,
			wasmtest.I32Const(1),
			wasmtest.I32Const(2),
		),
	))
	f := recoveredAt(t, b, 0)

	want := textWant(`
		func 0(arg0: i32) {
		  i0: i32

		  if (arg0) {
		    i0 = 1
		  } else {
		    i0 = 2
		  }
		  return i0
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_GuardLadderStaysFlat(t *testing.T) {
	plain(t)
	f := recovered(t, []wasm.ValType{wasm.I32, wasm.I32}, []wasm.ValType{wasm.I32}, nil, wasmtest.Body(
		wasmtest.LocalGet(0),
		wasmtest.If(wasmtest.Void, wasmtest.I32Const(1), wasmtest.Op(wasm.OpReturn)),
		wasmtest.LocalGet(1),
		wasmtest.If(wasmtest.Void, wasmtest.I32Const(2), wasmtest.Op(wasm.OpReturn)),
		wasmtest.I32Const(0),
	))

	want := textWant(`
		func 0(arg0: i32, arg1: i32) {
		  if (arg0) {
		    return 1
		  }
		  if (arg1) {
		    return 2
		  }
		  return 0
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_WhileLoop(t *testing.T) {
	plain(t)
	f := recovered(t, nil, nil, []wasm.ValType{wasm.I32}, wasmtest.Body(
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

	// The trailing bare return is dropped; falling off the end reads the same.
	want := textWant(`
		func 0() {
		  i0: i32

		  loop L0 {
		    i0 = i0 + 1
		    if (i0 <_s 10) {
		      continue L0
		    }
		    break L0
		  }
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_TableSwitch(t *testing.T) {
	plain(t)
	f := recovered(t, []wasm.ValType{wasm.I32}, nil, nil, wasmtest.Body(
		wasmtest.Block(wasmtest.Void,
			wasmtest.Block(wasmtest.Void,
				wasmtest.LocalGet(0),
				wasmtest.BrTable([]uint32{0, 1}, 1),
			),
			wasmtest.Op(wasm.OpNop),
		),
	))

	want := textWant(`
		func 0(arg0: i32) {
		  switch (arg0) {
		  case 0:
		    nop
		  case 1:
		  default:
		  }
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_ExpressionForms(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule().WithMemory()
	b.Global(wasm.I32, true)
	ti := b.Type([]wasm.ValType{wasm.I32}, nil)
	b.Func(ti, nil, wasmtest.Body(
		wasmtest.I32Const(7),
		wasmtest.I32Const(9),
		wasmtest.LocalGet(0),
		wasmtest.Op(wasm.OpSelect),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.LocalGet(0),
		wasmtest.Op(wasm.OpI32Eqz),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.F32Const(1.5),
		wasmtest.F32Const(2.5),
		wasmtest.Op(wasm.OpF32Min),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.LocalGet(0),
		wasmtest.Mem(wasm.OpI32Load, 2, 4),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.LocalGet(0),
		wasmtest.I32Const(1),
		wasmtest.Mem(wasm.OpI32Store, 2, 0),
		wasmtest.GlobalGet(0),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.LocalGet(0),
		wasmtest.GlobalSet(0),
	))
	f := recoveredAt(t, b, 0)

	// Static load/store offsets fold into the printed address.
	want := textWant(`
		func 0(arg0: i32) {
		  drop(select(arg0 ? 7 : 9))
		  drop(eqz(arg0))
		  drop(min 1.5 2.5)
		  drop(memory[arg0 + 4])
		  *(arg0) = 1
		  drop(globals[0])
		  global[0] = arg0
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_CallForms(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule().WithTable().WithMemory()
	pair := b.Type(nil, []wasm.ValType{wasm.I32, wasm.I32})
	sink := b.Type([]wasm.ValType{wasm.I32}, nil)
	b.ImportFunc("env", "pair", pair)
	b.ImportFunc("env", "sink", sink)
	main := b.Type([]wasm.ValType{wasm.I32}, nil)
	b.Func(main, nil, wasmtest.Body(
		wasmtest.Call(0),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.LocalGet(0),
		wasmtest.Call(1),
		wasmtest.I32Const(7),
		wasmtest.LocalGet(0),
		wasmtest.CallIndirect(sink),
		wasmtest.MemorySize(),
		wasmtest.Op(wasm.OpDrop),
		wasmtest.I32Const(1),
		wasmtest.MemoryGrow(),
		wasmtest.Op(wasm.OpDrop),
	))
	f := recoveredAt(t, b, 2)

	want := textWant(`
		func 2(arg0: i32) {
		  i0: i32
		  i1: i32

		  i0, i1 = func0()
		  drop(i1)
		  drop(i0)
		  func1(arg0)
		  arg0(7)
		  drop(memory.size)
		  drop(memory_grow(1))
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_LabeledFallback(t *testing.T) {
	plain(t)
	c := &ir.CFG{Type: &wasm.FuncType{}}
	entry := c.NewRegion(nil)
	exit := c.NewRegion(nil)
	c.Entry, c.Exit = entry, exit
	a := c.NewRegion(nil)
	b := c.NewRegion([]wasm.ValType{wasm.I32})
	d := c.NewRegion(nil)
	e := c.NewRegion(nil)

	entry.Term = ir.Terminator{Kind: ir.TermBrTable, Cond: ir.ConstI32(1)}
	ir.Connect(entry, a, nil)
	ir.Connect(entry, d, nil)
	ir.Connect(entry, d, nil)
	a.Term = ir.Terminator{Kind: ir.TermBr}
	ir.Connect(a, b, []ir.Expr{ir.ConstI32(5)})
	b.Term = ir.Terminator{Kind: ir.TermReturn, Args: []ir.Expr{&ir.Param{Index: 0, T: wasm.I32}}}
	ir.Connect(b, exit, nil)
	d.Term = ir.Terminator{Kind: ir.TermUnreachable}
	e.Term = ir.Terminator{Kind: ir.TermReturn}
	ir.Connect(e, exit, nil)

	f := &structure.Func{
		CFG:  c,
		Err:  errors.WrapIrreducible(0, "residual control flow"),
		Body: rawBody(entry, a, b, d, e),
	}
	require.True(t, f.Degraded())

	// The entry block goes unlabeled, block parameters ride on the label,
	// and the final block's empty return is left off.
	want := textWant(`
		func 0() {
		  br_table 1 (@2, @4 default @4)

		  @2:
		    br @3 with (5)

		  @3(b0: i32):
		    return b0

		  @4:
		    unreachable

		  @5:
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_LabeledConditional(t *testing.T) {
	plain(t)
	c := &ir.CFG{
		FuncIndex: 3,
		FuncName:  "pick",
		Type:      &wasm.FuncType{Params: []wasm.ValType{wasm.I32}, Results: []wasm.ValType{wasm.I32}},
		Locals:    []ir.Local{{Type: wasm.I32, Name: "arg0"}},
		NumParams: 1,
	}
	entry := c.NewRegion(nil)
	exit := c.NewRegion(nil)
	c.Entry, c.Exit = entry, exit
	a := c.NewRegion(nil)
	b := c.NewRegion(nil)

	entry.Term = ir.Terminator{Kind: ir.TermBrIf, Cond: &ir.GetLocal{Index: 0, T: wasm.I32}}
	ir.Connect(entry, a, nil)
	ir.Connect(entry, b, nil)
	a.Term = ir.Terminator{Kind: ir.TermReturn, Args: []ir.Expr{ir.ConstI32(1)}}
	ir.Connect(a, exit, nil)
	b.Term = ir.Terminator{Kind: ir.TermReturn, Args: []ir.Expr{ir.ConstI32(2)}}
	ir.Connect(b, exit, nil)

	f := &structure.Func{
		CFG:  c,
		Err:  errors.WrapIrreducible(3, "residual control flow"),
		Body: rawBody(entry, a, b),
	}

	want := textWant(`
		func 3 pick(arg0: i32) {
		  if arg0
		    br @2
		  br @3

		  @2:
		    return 1

		  @3:
		    return 2
		}
	`)
	if diff := cmp.Diff(want, printer.Func(f)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestModule_WrapsFunctions(t *testing.T) {
	plain(t)
	b := wasmtest.NewModule()
	void := b.Type(nil, nil)
	ident := b.Type([]wasm.ValType{wasm.I32}, []wasm.ValType{wasm.I32})
	b.ImportFunc("env", "log", ident)
	b.Func(void, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	b.Func(ident, nil, wasmtest.Body(wasmtest.LocalGet(0)))
	mod := parsed(t, b)
	funcs := []*structure.Func{recoveredFrom(t, mod, 1), recoveredFrom(t, mod, 2)}

	want := textWant(`
		module {

		import func 0 env.log (i32) -> (i32)

		func 1() {
		  nop
		}

		func 2(arg0: i32) {
		  return arg0
		}

		}
	`)
	if diff := cmp.Diff(want, printer.Module(mod, funcs)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFunc_ColorsControlKeywords(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = old })

	f := recovered(t, nil, nil, nil, wasmtest.Body(wasmtest.Op(wasm.OpNop)))
	out := printer.Func(f)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "func")
}
