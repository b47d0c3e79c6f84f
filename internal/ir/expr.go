// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package ir holds the decompiler's intermediate representation: typed
// expression trees, statements, and the explicit control-flow graph of
// regions and parameter-carrying edges. The expression builder turns a
// decoded function body into a flat statement stream annotated with control
// items, and the CFG builder turns that stream into a graph. Everything
// downstream (normalization, structure recovery, printing) works on these
// types.
package ir

import (
	"github.com/dotandev/wasmdec/internal/wasm"
)

// Expr is a side-effect-ordered expression tree. Operands evaluate left to
// right; a tree is built and consumed inside a single region.
type Expr interface {
	// Type is the wasm value type the expression produces.
	Type() wasm.ValType

	exprNode()
}

// Const is an i32/i64/f32/f64 literal. Integer payloads live in I (sign
// extended for i32), float payloads in F.
type Const struct {
	T wasm.ValType
	I int64
	F float64
}

// Param reads the n-th parameter of the region the expression lives in.
type Param struct {
	Index int
	T     wasm.ValType
}

// GetLocal reads a function local. Indices cover parameters, declared
// locals, and builder/pass temporaries, in that order.
type GetLocal struct {
	Index int
	T     wasm.ValType
}

// GetGlobal reads a module global.
type GetGlobal struct {
	Index uint32
	T     wasm.ValType
}

// Unary applies a one-operand instruction.
type Unary struct {
	Op wasm.Opcode
	X  Expr
	T  wasm.ValType
}

// Binary applies a two-operand instruction. X is the first-pushed (left)
// operand.
type Binary struct {
	Op   wasm.Opcode
	X, Y Expr
	T    wasm.ValType
}

// Select is the wasm select instruction: Cond != 0 picks True.
type Select struct {
	Cond        Expr
	True, False Expr
}

// Call is a direct call producing exactly one value. Zero-result calls are
// CallStmt statements; multi-result calls lower to TupleSet.
type Call struct {
	Func uint32
	Args []Expr
	T    wasm.ValType
}

// CallIndirect calls through the table; Callee is the table index operand.
type CallIndirect struct {
	TypeIndex uint32
	Callee    Expr
	Args      []Expr
	T         wasm.ValType
}

// Load reads memory at Addr+Offset. Op keeps the width/sign variant.
type Load struct {
	Op     wasm.Opcode
	Addr   Expr
	Offset uint32
	T      wasm.ValType
}

// MemorySize is the current memory size in pages.
type MemorySize struct{}

// MemoryGrow grows memory by Delta pages and yields the old size.
type MemoryGrow struct {
	Delta Expr
}

// Bottom is the polymorphic placeholder for values on unreachable paths.
// The expression builder never emits it (dead code is swallowed before any
// pop happens); it exists for hand-built graphs and for printing.
type Bottom struct {
	T wasm.ValType
}

func (e *Const) Type() wasm.ValType        { return e.T }
func (e *Param) Type() wasm.ValType        { return e.T }
func (e *GetLocal) Type() wasm.ValType     { return e.T }
func (e *GetGlobal) Type() wasm.ValType    { return e.T }
func (e *Unary) Type() wasm.ValType        { return e.T }
func (e *Binary) Type() wasm.ValType       { return e.T }
func (e *Select) Type() wasm.ValType       { return e.True.Type() }
func (e *Call) Type() wasm.ValType         { return e.T }
func (e *CallIndirect) Type() wasm.ValType { return e.T }
func (e *Load) Type() wasm.ValType         { return e.T }
func (e *MemorySize) Type() wasm.ValType   { return wasm.I32 }
func (e *MemoryGrow) Type() wasm.ValType   { return wasm.I32 }
func (e *Bottom) Type() wasm.ValType       { return e.T }

func (*Const) exprNode()        {}
func (*Param) exprNode()        {}
func (*GetLocal) exprNode()     {}
func (*GetGlobal) exprNode()    {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*Select) exprNode()       {}
func (*Call) exprNode()         {}
func (*CallIndirect) exprNode() {}
func (*Load) exprNode()         {}
func (*MemorySize) exprNode()   {}
func (*MemoryGrow) exprNode()   {}
func (*Bottom) exprNode()       {}

// ConstI32 builds an i32 literal.
func ConstI32(v int32) *Const { return &Const{T: wasm.I32, I: int64(v)} }

// ConstI64 builds an i64 literal.
func ConstI64(v int64) *Const { return &Const{T: wasm.I64, I: v} }

// ConstF32 builds an f32 literal.
func ConstF32(v float32) *Const { return &Const{T: wasm.F32, F: float64(v)} }

// ConstF64 builds an f64 literal.
func ConstF64(v float64) *Const { return &Const{T: wasm.F64, F: v} }

// IsConst reports whether e is a literal.
func IsConst(e Expr) bool {
	_, ok := e.(*Const)
	return ok
}

// WalkExpr calls fn for e and every subexpression, preorder. fn returning
// false prunes the subtree.
func WalkExpr(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch x := e.(type) {
	case *Unary:
		WalkExpr(x.X, fn)
	case *Binary:
		WalkExpr(x.X, fn)
		WalkExpr(x.Y, fn)
	case *Select:
		WalkExpr(x.Cond, fn)
		WalkExpr(x.True, fn)
		WalkExpr(x.False, fn)
	case *Call:
		for _, a := range x.Args {
			WalkExpr(a, fn)
		}
	case *CallIndirect:
		for _, a := range x.Args {
			WalkExpr(a, fn)
		}
		WalkExpr(x.Callee, fn)
	case *Load:
		WalkExpr(x.Addr, fn)
	case *MemoryGrow:
		WalkExpr(x.Delta, fn)
	}
}

// MapExpr rewrites the tree bottom-up: children are mapped first, then fn
// runs on the (possibly updated) node and its result replaces it. fn must
// return a non-nil expression.
func MapExpr(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *Unary:
		x.X = MapExpr(x.X, fn)
	case *Binary:
		x.X = MapExpr(x.X, fn)
		x.Y = MapExpr(x.Y, fn)
	case *Select:
		x.Cond = MapExpr(x.Cond, fn)
		x.True = MapExpr(x.True, fn)
		x.False = MapExpr(x.False, fn)
	case *Call:
		for i, a := range x.Args {
			x.Args[i] = MapExpr(a, fn)
		}
	case *CallIndirect:
		for i, a := range x.Args {
			x.Args[i] = MapExpr(a, fn)
		}
		x.Callee = MapExpr(x.Callee, fn)
	case *Load:
		x.Addr = MapExpr(x.Addr, fn)
	case *MemoryGrow:
		x.Delta = MapExpr(x.Delta, fn)
	}
	return fn(e)
}
