// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import "github.com/dotandev/wasmdec/internal/wasm"

// Stmt is a side-effecting statement inside a region.
type Stmt interface {
	stmtNode()
}

// Nop carries a wasm nop through to the output.
type Nop struct{}

// Drop evaluates X for its effects and discards the value.
type Drop struct {
	X Expr
}

// SetLocal assigns a function local.
type SetLocal struct {
	Index int
	X     Expr
}

// TupleSet assigns the results of a multi-result call to one local per
// result, in result order.
type TupleSet struct {
	Indices []int
	X       Expr
}

// SetGlobal assigns a module global.
type SetGlobal struct {
	Index uint32
	X     Expr
}

// Store writes X to memory at Addr+Offset. Op keeps the width variant.
type Store struct {
	Op     wasm.Opcode
	Addr   Expr
	Offset uint32
	X      Expr
}

// CallStmt is a call whose type has no results; X is a *Call or
// *CallIndirect.
type CallStmt struct {
	X Expr
}

func (*Nop) stmtNode()      {}
func (*Drop) stmtNode()     {}
func (*SetLocal) stmtNode() {}
func (*TupleSet) stmtNode() {}
func (*SetGlobal) stmtNode() {}
func (*Store) stmtNode()    {}
func (*CallStmt) stmtNode() {}

// WalkStmt calls fn for every expression tree the statement holds.
func WalkStmt(s Stmt, fn func(Expr) bool) {
	switch x := s.(type) {
	case *Drop:
		WalkExpr(x.X, fn)
	case *SetLocal:
		WalkExpr(x.X, fn)
	case *TupleSet:
		WalkExpr(x.X, fn)
	case *SetGlobal:
		WalkExpr(x.X, fn)
	case *Store:
		WalkExpr(x.Addr, fn)
		WalkExpr(x.X, fn)
	case *CallStmt:
		WalkExpr(x.X, fn)
	}
}

// MapStmt rewrites every expression tree the statement holds with MapExpr.
func MapStmt(s Stmt, fn func(Expr) Expr) {
	switch x := s.(type) {
	case *Drop:
		x.X = MapExpr(x.X, fn)
	case *SetLocal:
		x.X = MapExpr(x.X, fn)
	case *TupleSet:
		x.X = MapExpr(x.X, fn)
	case *SetGlobal:
		x.X = MapExpr(x.X, fn)
	case *Store:
		x.Addr = MapExpr(x.Addr, fn)
		x.X = MapExpr(x.X, fn)
	case *CallStmt:
		x.X = MapExpr(x.X, fn)
	}
}
