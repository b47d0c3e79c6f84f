// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"sort"

	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/wasm"
)

// snode is a supernode of the folding overlay: the statements recovered so
// far plus the control flow still to be resolved. kind is TermNone once the
// body ends in a return, trap, or loop marker and nothing leaves the node.
type snode struct {
	body  []Node
	kind  ir.TermKind
	cond  ir.Expr
	succs []*snode
	preds []*snode

	// regions are the covered region IDs, in absorption order.
	regions []int
	dead    bool
}

// overlay mirrors a CFG as one supernode per region. The CFG itself is
// never touched; every fold rewrites only overlay edges.
type overlay struct {
	cfg *ir.CFG
	all []*snode // creation order, dead nodes included

	// home maps a region ID to the supernode currently covering it.
	home []*snode
}

func newOverlay(c *ir.CFG) *overlay {
	ov := &overlay{cfg: c, home: make([]*snode, len(c.Regions))}
	for _, r := range c.Regions {
		if r == c.Exit {
			continue
		}
		n := &snode{regions: []int{r.ID}}
		n.body = append(n.body, &Simple{Span: Span{Regions: []int{r.ID}}, Stmts: r.Stmts})
		switch r.Term.Kind {
		case ir.TermReturn:
			n.body = append(n.body, &Return{Args: r.Term.Args})
		case ir.TermUnreachable:
			n.body = append(n.body, &Unreachable{})
		default:
			n.kind = r.Term.Kind
			n.cond = r.Term.Cond
		}
		ov.all = append(ov.all, n)
		ov.home[r.ID] = n
	}
	for _, r := range c.Regions {
		if r == c.Exit {
			continue
		}
		n := ov.home[r.ID]
		for _, e := range r.Succs {
			if e.To == c.Exit {
				continue
			}
			s := ov.home[e.To.ID]
			n.succs = append(n.succs, s)
			s.preds = append(s.preds, n)
		}
	}
	return ov
}

// reduce folds until no rule applies. A nil scope covers every node; loop
// folding passes the loop's members so nothing outside is absorbed.
func (ov *overlay) reduce(scope map[*snode]bool) {
	in := func(n *snode) bool { return scope == nil || scope[n] }

	var work []*snode
	queued := make(map[*snode]bool)
	push := func(n *snode) {
		if !n.dead && in(n) && !queued[n] {
			queued[n] = true
			work = append(work, n)
		}
	}
	for _, n := range ov.all {
		push(n)
	}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		queued[n] = false
		if n.dead || !in(n) {
			continue
		}
		var fired bool
		switch n.kind {
		case ir.TermBr:
			fired = ov.foldChain(n, in)
		case ir.TermBrIf:
			fired = ov.foldIf(n, in)
		case ir.TermBrTable:
			fired = ov.foldSwitch(n, in)
		}
		if fired {
			push(n)
			for _, p := range n.preds {
				push(p)
			}
		}
	}
}

// foldChain absorbs a single successor that has no other way in.
func (ov *overlay) foldChain(n *snode, in func(*snode) bool) bool {
	if len(n.succs) != 1 {
		return false
	}
	s := n.succs[0]
	if s == n || s.dead || !in(s) || len(s.preds) != 1 {
		return false
	}
	n.body = append(n.body, s.body...)
	n.kind, n.cond = s.kind, s.cond
	n.succs = s.succs
	for _, t := range n.succs {
		replacePred(t, s, n)
	}
	ov.consume(n, s)
	return true
}

// foldIf resolves a two-way branch. Terminated arms fold first as guards,
// keeping early returns flat; two plain arms meeting at one join become a
// full if/else. The folded-away fallthrough arm negates the condition.
func (ov *overlay) foldIf(n *snode, in func(*snode) bool) bool {
	if len(n.succs) != 2 {
		return false
	}
	t, f := n.succs[0], n.succs[1]
	ta := ov.armOK(n, t, in)
	fa := ov.armOK(n, f, in)

	switch {
	case ta && terminated(t):
		n.body = append(n.body, &If{Span: spanOf(t), Cond: n.cond, Then: t.body})
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{f}
		ov.consume(n, t)
	case fa && terminated(f):
		n.body = append(n.body, &If{Span: spanOf(f), Cond: negate(n.cond), Then: f.body})
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{t}
		ov.consume(n, f)
	case ta && fa:
		j := t.succs[0]
		if f.succs[0] != j {
			return false
		}
		n.body = append(n.body, &If{Span: spanOf(t, f), Cond: n.cond, Then: t.body, Else: f.body})
		removePred(j, t)
		removePred(j, f)
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{j}
		j.preds = append(j.preds, n)
		ov.consume(n, t)
		ov.consume(n, f)
	case ta && t.succs[0] == f:
		n.body = append(n.body, &If{Span: spanOf(t), Cond: n.cond, Then: t.body})
		removePred(f, t)
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{f}
		ov.consume(n, t)
	case fa && f.succs[0] == t:
		n.body = append(n.body, &If{Span: spanOf(f), Cond: negate(n.cond), Then: f.body})
		removePred(t, f)
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{t}
		ov.consume(n, f)
	default:
		return false
	}
	return true
}

// foldSwitch resolves a br_table whose arms all either terminate or meet
// at one join. Case order is table order with the default last.
func (ov *overlay) foldSwitch(n *snode, in func(*snode) bool) bool {
	if len(n.succs) == 0 {
		return false
	}
	var j *snode
	for _, s := range n.succs {
		if !ov.armOK(n, s, in) {
			return false
		}
		if terminated(s) {
			continue
		}
		if j != nil && j != s.succs[0] {
			return false
		}
		j = s.succs[0]
	}

	arms := n.succs
	bodies := make([][]Node, len(arms))
	for i, s := range arms {
		bodies[i] = s.body
	}
	n.body = append(n.body, &Switch{
		Span:    spanOf(arms...),
		Cond:    n.cond,
		Cases:   bodies[:len(bodies)-1],
		Default: bodies[len(bodies)-1],
	})
	for _, s := range arms {
		if !terminated(s) {
			removePred(j, s)
		}
		ov.consume(n, s)
	}
	if j != nil {
		n.kind, n.cond, n.succs = ir.TermBr, nil, []*snode{j}
		j.preds = append(j.preds, n)
	} else {
		n.kind, n.cond, n.succs = ir.TermNone, nil, nil
	}
	return true
}

// armOK reports whether x can fold into n: reachable only through n, in
// scope, and already reduced to either a terminated body or a plain branch
// that leaves the pair.
func (ov *overlay) armOK(n, x *snode, in func(*snode) bool) bool {
	if x == n || x.dead || !in(x) || len(x.preds) != 1 {
		return false
	}
	if terminated(x) {
		return true
	}
	return x.kind == ir.TermBr && len(x.succs) == 1 && x.succs[0] != n && x.succs[0] != x
}

func terminated(x *snode) bool { return x.kind == ir.TermNone }

// consume moves x's coverage into n and detaches it. Body and edges have
// already been taken over by the caller.
func (ov *overlay) consume(n, x *snode) {
	n.regions = append(n.regions, x.regions...)
	for _, id := range x.regions {
		ov.home[id] = n
	}
	x.dead = true
	x.succs = nil
	x.preds = nil
}

func removePred(n, p *snode) {
	for i, x := range n.preds {
		if x == p {
			n.preds = append(n.preds[:i], n.preds[i+1:]...)
			return
		}
	}
}

func replacePred(n, old, now *snode) {
	for i, x := range n.preds {
		if x == old {
			n.preds[i] = now
			return
		}
	}
}

// spanOf collects the regions covered by the given nodes, sorted.
func spanOf(nodes ...*snode) Span {
	var ids []int
	for _, n := range nodes {
		ids = append(ids, n.regions...)
	}
	sort.Ints(ids)
	return Span{Regions: ids}
}

// negate wraps a branch condition in eqz so the fallthrough arm can serve
// as the taken arm of a one-sided if.
func negate(cond ir.Expr) ir.Expr {
	op := wasm.OpI32Eqz
	if cond.Type() == wasm.I64 {
		op = wasm.OpI64Eqz
	}
	return &ir.Unary{Op: op, X: cond, T: wasm.I32}
}
