// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package structure recovers structured control flow from a normalized
// region graph: linear chains, if/else diamonds, natural loops with break
// and continue, and br_table switches. Folding happens on an overlay of
// supernodes so the graph itself is never changed. Shapes that cannot be
// folded do not fail the function; it falls back to a complete labeled
// rendering and carries an irreducible-control-flow diagnostic.
package structure

import (
	"fmt"

	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/logger"
)

// Node is one statement of the recovered tree.
type Node interface {
	// Covers lists the IDs of the regions the node subsumes.
	Covers() []int
}

// Span records the regions a node was folded from. Nodes that only restate
// a terminator (returns, branch markers) carry an empty span; the region
// itself is covered by its Simple node.
type Span struct {
	Regions []int
}

func (s Span) Covers() []int { return s.Regions }

// Simple is the straight-line statement run of one region.
type Simple struct {
	Span
	Stmts []ir.Stmt
}

// If runs Then when Cond is nonzero; Else may be nil.
type If struct {
	Span
	Cond ir.Expr
	Then []Node
	Else []Node
}

// Loop repeats Body until a Break reaches past it. Label numbers loops
// within the function in source order.
type Loop struct {
	Span
	Label int
	Body  []Node
}

// Break leaves the loop with the matching label.
type Break struct {
	Span
	Label int
}

// Continue restarts the loop with the matching label.
type Continue struct {
	Span
	Label int
}

// Switch dispatches on Cond. Cases keep br_table order, Default runs for
// out-of-range values, and no case falls through to the next.
type Switch struct {
	Span
	Cond    ir.Expr
	Cases   [][]Node
	Default []Node
}

// Return leaves the function with the given results.
type Return struct {
	Span
	Args []ir.Expr
}

// Unreachable traps.
type Unreachable struct {
	Span
}

// Raw is the fallback form: one region rendered as a labeled block with an
// explicit terminator.
type Raw struct {
	Span
	Region *ir.Region
}

// Func is the recovered body of one function.
type Func struct {
	CFG  *ir.CFG
	Body []Node

	// Err is the irreducible-control-flow diagnostic when the body fell
	// back to labeled regions. The tree is complete either way.
	Err error
}

// Degraded reports whether the body is the labeled fallback.
func (f *Func) Degraded() bool { return f.Err != nil }

// Recover builds the structured statement tree for a normalized graph. The
// analysis must describe the graph's current shape.
func Recover(c *ir.CFG, a *ir.Analysis) *Func {
	log := logger.Logger.With("func", c.FuncIndex)
	if a.Irreducible {
		log.Debug("labeled fallback", "reason", "irreducible control flow")
		return degraded(c, "irreducible control flow")
	}

	ov := newOverlay(c)
	if reason := ov.foldLoops(a); reason != "" {
		log.Debug("labeled fallback", "reason", reason)
		return degraded(c, reason)
	}
	ov.reduce(nil)

	live := 0
	for _, n := range ov.all {
		if !n.dead {
			live++
		}
	}
	root := ov.home[c.Entry.ID]
	if live != 1 || !terminated(root) {
		reason := fmt.Sprintf("residual control flow across %d nodes", live)
		log.Debug("labeled fallback", "reason", reason)
		return degraded(c, reason)
	}

	log.Debug("structured", "stmts", len(root.body), "loops", len(a.Loops))
	return &Func{CFG: c, Body: root.body}
}

// degraded renders every region as a labeled block, in ID order.
func degraded(c *ir.CFG, reason string) *Func {
	f := &Func{CFG: c, Err: errors.WrapIrreducible(c.FuncIndex, reason)}
	for _, r := range c.Regions {
		if r == c.Exit {
			continue
		}
		f.Body = append(f.Body, &Raw{Span: Span{Regions: []int{r.ID}}, Region: r})
	}
	return f
}
