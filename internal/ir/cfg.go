// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"

	"github.com/dotandev/wasmdec/internal/wasm"
)

// TermKind discriminates region terminators.
type TermKind int

const (
	// TermNone is the unterminated state. After construction it appears
	// only on the synthetic exit region.
	TermNone TermKind = iota
	TermBr
	TermBrIf
	TermBrTable
	TermReturn
	TermUnreachable
)

func (k TermKind) String() string {
	switch k {
	case TermNone:
		return "none"
	case TermBr:
		return "br"
	case TermBrIf:
		return "br_if"
	case TermBrTable:
		return "br_table"
	case TermReturn:
		return "return"
	case TermUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("term(%d)", int(k))
}

// Terminator ends a region. Branch arguments ride on the outgoing edges;
// only Return keeps its result expressions here, since its edge to the exit
// region carries nothing.
type Terminator struct {
	Kind TermKind
	Cond Expr // BrIf condition or BrTable index
	Args []Expr
}

// Edge is a directed, parameter-carrying edge. Args are evaluated in the
// source region; on a region with several successors every edge carries the
// same argument tuple.
type Edge struct {
	From, To *Region
	Args     []Expr
	Back     bool // target does not come after the source in reverse postorder
}

// Region is a basic block with typed parameters. Successor order is fixed
// by the terminator: Br [target]; BrIf [taken, fallthrough]; BrTable
// [cases..., default]; Return [exit].
type Region struct {
	ID     int
	Params []wasm.ValType
	Stmts  []Stmt
	Term   Terminator
	Preds  []*Edge
	Succs  []*Edge
}

// Local is one slot of a function's local table: parameters first, then
// declared locals, then synthesized temporaries.
type Local struct {
	Type wasm.ValType
	Name string
}

// CFG is the per-function control-flow graph. Entry has no parameters and
// no predecessors; Exit is synthetic, collects Return edges, and is the
// only region allowed to keep TermNone.
type CFG struct {
	FuncIndex uint32
	FuncName  string
	Type      *wasm.FuncType
	Locals    []Local
	NumParams int

	// UserLocals is the size of the bytecode's local index space: parameters
	// plus declared locals. Slots at or past it are synthesized temporaries.
	UserLocals int

	Regions []*Region
	Entry   *Region
	Exit    *Region

	nextID int
}

// NewRegion allocates a region and registers it with the graph.
func (c *CFG) NewRegion(params []wasm.ValType) *Region {
	r := &Region{ID: c.nextID, Params: params}
	c.nextID++
	c.Regions = append(c.Regions, r)
	return r
}

// Connect adds an edge from one region to another.
func Connect(from, to *Region, args []Expr) *Edge {
	e := &Edge{From: from, To: to, Args: args}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
	return e
}

// Retarget points the edge at a new destination, fixing both predecessor
// lists. Argument tuples are untouched; callers reconcile them against the
// new target's parameters.
func (e *Edge) Retarget(to *Region) {
	removeEdge(&e.To.Preds, e)
	e.To = to
	to.Preds = append(to.Preds, e)
}

// Unlink removes the region's edges from its neighbors. The region itself
// stays in c.Regions until the caller compacts the slice.
func (r *Region) Unlink() {
	for _, e := range r.Succs {
		removeEdge(&e.To.Preds, e)
	}
	r.Succs = nil
	for _, e := range r.Preds {
		removeEdge(&e.From.Succs, e)
	}
	r.Preds = nil
}

func removeEdge(edges *[]*Edge, e *Edge) {
	for i, x := range *edges {
		if x == e {
			*edges = append((*edges)[:i], (*edges)[i+1:]...)
			return
		}
	}
}

// Compact drops regions for which keep returns false. IDs keep their old
// values; edge lists must already be consistent.
func (c *CFG) Compact(keep func(*Region) bool) {
	out := c.Regions[:0]
	for _, r := range c.Regions {
		if keep(r) {
			out = append(out, r)
		}
	}
	for i := len(out); i < len(c.Regions); i++ {
		c.Regions[i] = nil
	}
	c.Regions = out
}

// AddTemp appends a synthesized temporary to the local table and returns
// its index. Names continue the declared-local scheme: a type prefix and
// the slot's position among non-parameter locals.
func (c *CFG) AddTemp(t wasm.ValType) int {
	idx := len(c.Locals)
	c.Locals = append(c.Locals, Local{Type: t, Name: localName(t, idx-c.NumParams)})
	return idx
}

// LocalType returns the value type of a local slot.
func (c *CFG) LocalType(idx int) wasm.ValType {
	return c.Locals[idx].Type
}

func localName(t wasm.ValType, pos int) string {
	prefix := "i"
	if t == wasm.F32 || t == wasm.F64 {
		prefix = "f"
	}
	return fmt.Sprintf("%s%d", prefix, pos)
}

// paramName is the printed name of the n-th function parameter.
func paramName(i int) string {
	return fmt.Sprintf("arg%d", i)
}

// NewLocals builds the local table for a function: named parameters
// followed by named declared locals.
func NewLocals(fn *wasm.Function) []Local {
	locals := make([]Local, 0, len(fn.Type.Params)+len(fn.Locals))
	for i := range fn.Type.Params {
		locals = append(locals, Local{Type: fn.Type.Params[i], Name: paramName(i)})
	}
	for i, t := range fn.Locals {
		locals = append(locals, Local{Type: t, Name: localName(t, i)})
	}
	return locals
}
