// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dotandev/wasmdec/internal/wasm"
)

// Graphviz renders the region graph as a DOT digraph for debugging. Every
// region becomes one box node listing its parameters, statements, and
// terminator; expressions print in a compact prefix form. The synthetic exit
// region and edges into it are omitted, a return terminator already marks
// them.
func Graphviz(c *CFG) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph func_%d {\n", c.FuncIndex)
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=lightblue];\n")
	b.WriteString("\n")

	for _, r := range c.Regions {
		if r == c.Exit {
			continue
		}
		fmt.Fprintf(&b, "  block_%d [label=\"Block %d\\l", r.ID, r.ID)
		if len(r.Params) > 0 {
			b.WriteString("params: ")
			for i, t := range r.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(t.String())
			}
			b.WriteString("\\l")
		}
		for _, s := range r.Stmts {
			dotStmt(&b, s)
		}
		dotTerm(&b, c, r)
		b.WriteString("\"];\n")
	}

	b.WriteString("\n")
	for _, r := range c.Regions {
		if r == c.Exit {
			continue
		}
		for _, e := range r.Succs {
			if e.To == c.Exit {
				continue
			}
			fmt.Fprintf(&b, "  block_%d -> block_%d;\n", r.ID, e.To.ID)
		}
	}

	fmt.Fprintf(&b, "  block_%d [fillcolor=lightgreen];\n", c.Entry.ID)
	b.WriteString("}\n")
	return b.String()
}

func dotStmt(b *strings.Builder, s Stmt) {
	switch s := s.(type) {
	case *Nop:
		b.WriteString("nop\\l")
	case *Drop:
		b.WriteString("drop ")
		dotExpr(b, s.X)
		b.WriteString("\\l")
	case *SetLocal:
		fmt.Fprintf(b, "local_%d = ", s.Index)
		dotExpr(b, s.X)
		b.WriteString("\\l")
	case *TupleSet:
		b.WriteString("local_[")
		for i, idx := range s.Indices {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(idx))
		}
		b.WriteString("] = ")
		dotExpr(b, s.X)
		b.WriteString("\\l")
	case *SetGlobal:
		fmt.Fprintf(b, "global_%d = ", s.Index)
		dotExpr(b, s.X)
		b.WriteString("\\l")
	case *Store:
		b.WriteString("store(")
		dotExpr(b, s.Addr)
		b.WriteString(", ")
		dotExpr(b, s.X)
		b.WriteString(")\\l")
	case *CallStmt:
		dotExpr(b, s.X)
		b.WriteString("\\l")
	}
}

func dotTerm(b *strings.Builder, c *CFG, r *Region) {
	switch r.Term.Kind {
	case TermNone:
		b.WriteString("unknown\\l")
	case TermUnreachable:
		b.WriteString("unreachable\\l")
	case TermReturn:
		b.WriteString("return")
		dotArgs(b, r.Term.Args)
		b.WriteString("\\l")
	case TermBr:
		if len(r.Succs) < 1 {
			b.WriteString("br\\l")
			return
		}
		fmt.Fprintf(b, "br block_%d", r.Succs[0].To.ID)
		dotArgs(b, r.Succs[0].Args)
		b.WriteString("\\l")
	case TermBrIf:
		if len(r.Succs) < 2 {
			b.WriteString("br_if\\l")
			return
		}
		b.WriteString("br_if ")
		dotExpr(b, r.Term.Cond)
		fmt.Fprintf(b, " then block_%d else block_%d", r.Succs[0].To.ID, r.Succs[1].To.ID)
		dotArgs(b, r.Succs[0].Args)
		b.WriteString("\\l")
	case TermBrTable:
		if len(r.Succs) < 1 {
			b.WriteString("br_table\\l")
			return
		}
		b.WriteString("br_table ")
		dotExpr(b, r.Term.Cond)
		b.WriteString(" [")
		for i, e := range r.Succs[:len(r.Succs)-1] {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "block_%d", e.To.ID)
		}
		fmt.Fprintf(b, "] default block_%d", r.Succs[len(r.Succs)-1].To.ID)
		dotArgs(b, r.Succs[0].Args)
		b.WriteString("\\l")
	}
}

// dotArgs appends a space-prefixed comma-joined argument list, or nothing.
func dotArgs(b *strings.Builder, args []Expr) {
	for i, a := range args {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(", ")
		}
		dotExpr(b, a)
	}
}

func dotExpr(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *Const:
		b.WriteString(dotConst(e))
	case *Param:
		fmt.Fprintf(b, "param_%d", e.Index)
	case *GetLocal:
		fmt.Fprintf(b, "local_%d", e.Index)
	case *GetGlobal:
		fmt.Fprintf(b, "global_%d", e.Index)
	case *Unary:
		b.WriteString(UnaryName(e.Op))
		b.WriteString("(")
		dotExpr(b, e.X)
		b.WriteString(")")
	case *Binary:
		name, _ := BinaryName(e.Op)
		b.WriteString(name)
		b.WriteString("(")
		dotExpr(b, e.X)
		b.WriteString(", ")
		dotExpr(b, e.Y)
		b.WriteString(")")
	case *Select:
		b.WriteString("select(")
		dotExpr(b, e.Cond)
		b.WriteString(" ? ")
		dotExpr(b, e.True)
		b.WriteString(" : ")
		dotExpr(b, e.False)
		b.WriteString(")")
	case *Call:
		fmt.Fprintf(b, "call func_%d", e.Func)
		if len(e.Args) > 0 {
			b.WriteString("(")
			for i, a := range e.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				dotExpr(b, a)
			}
			b.WriteString(")")
		}
	case *CallIndirect:
		fmt.Fprintf(b, "call_indirect type_%d(", e.TypeIndex)
		dotExpr(b, e.Callee)
		for _, a := range e.Args {
			b.WriteString(", ")
			dotExpr(b, a)
		}
		b.WriteString(")")
	case *Load:
		b.WriteString("load(")
		dotExpr(b, e.Addr)
		b.WriteString(")")
	case *MemorySize:
		b.WriteString("memory.size")
	case *MemoryGrow:
		b.WriteString("memory.grow(")
		dotExpr(b, e.Delta)
		b.WriteString(")")
	case *Bottom:
		b.WriteString("⊥")
	default:
		b.WriteString("?")
	}
}

// dotConst spells literals unambiguously: i64 carries an L suffix and floats
// print as raw bit patterns so distinct NaNs stay distinguishable.
func dotConst(e *Const) string {
	switch e.T {
	case wasm.I64:
		return strconv.FormatInt(e.I, 10) + "L"
	case wasm.F32:
		return strconv.FormatUint(uint64(math.Float32bits(float32(e.F))), 10) + "f"
	case wasm.F64:
		return strconv.FormatUint(math.Float64bits(e.F), 10) + "d"
	}
	return strconv.FormatInt(int64(int32(e.I)), 10)
}
