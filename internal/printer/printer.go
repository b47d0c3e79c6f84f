// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package printer renders recovered functions as pseudo-code text: the
// structured statement tree when recovery succeeded, labeled blocks when it
// fell back. Color is plain fatih/color, so output piped away from a
// terminal stays clean automatically.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/structure"
	"github.com/dotandev/wasmdec/internal/wasm"
)

var (
	kw  = color.New(color.FgBlue).SprintFunc()
	lbl = color.New(color.FgCyan).SprintFunc()
)

type writer struct {
	sb     strings.Builder
	indent int
}

func (w *writer) line(s string) {
	w.sb.WriteString(strings.Repeat("  ", w.indent))
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *writer) blank() { w.sb.WriteByte('\n') }

// Module renders every function inside a module wrapper, imported
// function signatures first.
func Module(mod *wasm.Module, funcs []*structure.Func) string {
	bodies := make([]string, len(funcs))
	for i, f := range funcs {
		bodies[i] = Func(f)
	}
	return Assemble(mod, bodies)
}

// Assemble wraps pre-rendered function texts in the module form. The
// decompiler driver feeds it per-function output so whole trees need not
// stay live across a module run.
func Assemble(mod *wasm.Module, bodies []string) string {
	var sb strings.Builder
	sb.WriteString(kw("module") + " {\n")
	if len(mod.ImportedFuncs) > 0 {
		sb.WriteByte('\n')
		for i, imp := range mod.ImportedFuncs {
			sig := "?"
			if ft, err := mod.TypeOf(uint32(i)); err == nil {
				sig = ft.String()
			}
			sb.WriteString(kw("import") + " " + kw("func") + " " + strconv.Itoa(i) +
				" " + imp.Module + "." + imp.Name + " " + sig + "\n")
		}
	}
	for _, body := range bodies {
		sb.WriteByte('\n')
		sb.WriteString(body)
	}
	sb.WriteString("\n}\n")
	return sb.String()
}

// Func renders one recovered function: header, declared locals and
// temporaries, then the body.
func Func(f *structure.Func) string {
	c := f.CFG
	w := &writer{}

	params := make([]string, c.NumParams)
	for i, l := range c.Locals[:c.NumParams] {
		params[i] = l.Name + ": " + l.Type.String()
	}
	head := kw("func") + " " + strconv.FormatUint(uint64(c.FuncIndex), 10)
	if c.FuncName != "" {
		head += " " + c.FuncName
	}
	w.line(head + "(" + strings.Join(params, ", ") + ") {")

	w.indent = 1
	if len(c.Locals) > c.NumParams {
		for _, l := range c.Locals[c.NumParams:] {
			w.line(l.Name + ": " + l.Type.String())
		}
		w.blank()
	}

	if f.Degraded() {
		writeRaw(w, c, f.Body)
	} else {
		writeNodes(w, c, trimReturn(f.Body))
	}
	w.indent = 0
	w.line("}")
	return w.sb.String()
}

// trimReturn drops a trailing bare return; falling off the end means the
// same thing.
func trimReturn(nodes []structure.Node) []structure.Node {
	if n := len(nodes); n > 0 {
		if r, ok := nodes[n-1].(*structure.Return); ok && len(r.Args) == 0 {
			return nodes[:n-1]
		}
	}
	return nodes
}

func writeNodes(w *writer, c *ir.CFG, nodes []structure.Node) {
	for _, n := range nodes {
		switch x := n.(type) {
		case *structure.Simple:
			for _, s := range x.Stmts {
				w.line(stmtString(c, s))
			}
		case *structure.If:
			w.line(kw("if") + " (" + exprString(c, x.Cond) + ") {")
			w.indent++
			writeNodes(w, c, x.Then)
			w.indent--
			if len(x.Else) > 0 {
				w.line("} " + kw("else") + " {")
				w.indent++
				writeNodes(w, c, x.Else)
				w.indent--
			}
			w.line("}")
		case *structure.Loop:
			w.line(kw("loop") + " " + loopLabel(x.Label) + " {")
			w.indent++
			writeNodes(w, c, x.Body)
			w.indent--
			w.line("}")
		case *structure.Break:
			w.line(kw("break") + " " + loopLabel(x.Label))
		case *structure.Continue:
			w.line(kw("continue") + " " + loopLabel(x.Label))
		case *structure.Switch:
			w.line(kw("switch") + " (" + exprString(c, x.Cond) + ") {")
			for i, cs := range x.Cases {
				w.line(kw("case") + " " + strconv.Itoa(i) + ":")
				w.indent++
				writeNodes(w, c, cs)
				w.indent--
			}
			w.line(kw("default") + ":")
			w.indent++
			writeNodes(w, c, x.Default)
			w.indent--
			w.line("}")
		case *structure.Return:
			w.line(returnString(c, x.Args))
		case *structure.Unreachable:
			w.line(kw("unreachable"))
		case *structure.Raw:
			writeRawBlock(w, c, x.Region, false)
		}
	}
}

// writeRaw lays out the labeled fallback: one block per region, a blank
// line apart, the entry first and unlabeled.
func writeRaw(w *writer, c *ir.CFG, nodes []structure.Node) {
	for i, n := range nodes {
		if i > 0 {
			w.blank()
		}
		if raw, ok := n.(*structure.Raw); ok {
			writeRawBlock(w, c, raw.Region, i == len(nodes)-1)
		}
	}
}

func writeRawBlock(w *writer, c *ir.CFG, r *ir.Region, last bool) {
	indent := w.indent
	if r != c.Entry {
		w.line(rawLabel(r) + ":")
		w.indent++
	}
	for _, s := range r.Stmts {
		w.line(stmtString(c, s))
	}
	writeTerm(w, c, r, last)
	w.indent = indent
}

func rawLabel(r *ir.Region) string {
	s := lbl("@" + strconv.Itoa(r.ID))
	if len(r.Params) == 0 {
		return s
	}
	ps := make([]string, len(r.Params))
	for i, t := range r.Params {
		ps[i] = "b" + strconv.Itoa(i) + ": " + t.String()
	}
	return s + "(" + strings.Join(ps, ", ") + ")"
}

func writeTerm(w *writer, c *ir.CFG, r *ir.Region, last bool) {
	switch r.Term.Kind {
	case ir.TermBr:
		w.line(brString(c, r.Succs[0]))
	case ir.TermBrIf:
		w.line(kw("if") + " " + exprString(c, r.Term.Cond))
		w.indent++
		w.line(brString(c, r.Succs[0]))
		w.indent--
		w.line(brString(c, r.Succs[1]))
	case ir.TermBrTable:
		n := len(r.Succs)
		targets := make([]string, n-1)
		for i, e := range r.Succs[:n-1] {
			targets[i] = lbl("@" + strconv.Itoa(e.To.ID))
		}
		def := r.Succs[n-1]
		s := kw("br_table") + " " + exprString(c, r.Term.Cond) +
			" (" + strings.Join(targets, ", ") +
			" default " + lbl("@"+strconv.Itoa(def.To.ID)) + ")"
		w.line(s + withArgs(c, def.Args))
	case ir.TermReturn:
		// The last block falling off the end needs no explicit return.
		if last && len(r.Term.Args) == 0 {
			return
		}
		w.line(returnString(c, r.Term.Args))
	case ir.TermUnreachable:
		w.line(kw("unreachable"))
	default:
		w.line("unknown")
	}
}

func brString(c *ir.CFG, e *ir.Edge) string {
	return kw("br") + " " + lbl("@"+strconv.Itoa(e.To.ID)) + withArgs(c, e.Args)
}

func withArgs(c *ir.CFG, args []ir.Expr) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = exprString(c, a)
	}
	return " with (" + strings.Join(parts, ", ") + ")"
}

func returnString(c *ir.CFG, args []ir.Expr) string {
	if len(args) == 0 {
		return kw("return")
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = exprString(c, a)
	}
	return kw("return") + " " + strings.Join(parts, ", ")
}

func loopLabel(n int) string { return lbl(fmt.Sprintf("L%d", n)) }
