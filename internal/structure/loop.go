// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package structure

import (
	"fmt"
	"sort"

	"github.com/dotandev/wasmdec/internal/ir"
)

// foldLoops folds every natural loop into a single supernode, innermost
// first so an inner loop is already opaque when its parent is handled. It
// returns a reason when some loop cannot fold, and "" on success.
func (ov *overlay) foldLoops(a *ir.Analysis) string {
	if len(a.Loops) == 0 {
		return ""
	}

	// Labels follow source order, so L0 is the first loop a reader meets.
	order := make([]*ir.Loop, len(a.Loops))
	copy(order, a.Loops)
	sort.Slice(order, func(i, j int) bool {
		return a.Pos[order[i].Header] < a.Pos[order[j].Header]
	})
	labels := make(map[*ir.Loop]int, len(order))
	for i, l := range order {
		labels[l] = i
	}

	inner := make([]*ir.Loop, len(order))
	copy(inner, order)
	sort.SliceStable(inner, func(i, j int) bool {
		return inner[i].Depth > inner[j].Depth
	})
	for _, l := range inner {
		if reason := ov.foldLoop(l, labels); reason != "" {
			return reason
		}
	}
	return ""
}

// foldLoop rewrites one loop in place at its header node. Edges back to
// this header or an enclosing one become continue markers, edges out of the
// loop become break markers, and the body is then reduced like any other
// subgraph. The fold succeeds when everything collapses into the header.
func (ov *overlay) foldLoop(l *ir.Loop, labels map[*ir.Loop]int) string {
	h := ov.home[l.Header.ID]
	label := labels[l]

	ids := make([]int, 0, len(l.Body))
	for r := range l.Body {
		ids = append(ids, r.ID)
	}
	sort.Ints(ids)
	scope := make(map[*snode]bool)
	var members []*snode
	for _, id := range ids {
		n := ov.home[id]
		if !scope[n] {
			scope[n] = true
			members = append(members, n)
		}
	}

	// One pass to classify every edge leaving a member. Exit edges are only
	// replaced once they are known to share a single landing.
	type exitEdge struct {
		m     *snode
		i     int
		trail []*snode
	}
	var exit *snode
	exits := make(map[*snode]bool)
	var breaks []exitEdge
	first := len(ov.all)
	for _, m := range members {
		for i, s := range m.succs {
			if s == h {
				ov.divert(m, i, &Continue{Label: label}, nil)
				continue
			}
			if scope[s] {
				continue
			}
			final, trail := ov.chase(s, scope)
			if final == h {
				ov.divert(m, i, &Continue{Span: spanOf(trail...), Label: label}, trail)
				continue
			}
			if p := enclosingHeader(ov, l, final); p != nil {
				ov.divert(m, i, &Continue{Span: spanOf(trail...), Label: labels[p]}, trail)
				continue
			}
			if !exits[final] {
				exits[final] = true
				exit = final
			}
			breaks = append(breaks, exitEdge{m, i, trail})
		}
	}
	if len(exits) > 1 {
		return fmt.Sprintf("loop at region %d has %d exit targets", l.Header.ID, len(exits))
	}
	for _, b := range breaks {
		ov.divert(b.m, b.i, &Break{Span: spanOf(b.trail...), Label: label}, b.trail)
	}

	for _, mk := range ov.all[first:] {
		scope[mk] = true
	}
	ov.reduce(scope)

	live := 0
	for n := range scope {
		if !n.dead {
			live++
		}
	}
	if live != 1 || !terminated(h) {
		return fmt.Sprintf("loop at region %d left %d unstructured nodes", l.Header.ID, live)
	}

	h.body = []Node{&Loop{Span: spanOf(h), Label: label, Body: h.body}}
	if exit != nil {
		h.kind = ir.TermBr
		h.succs = []*snode{exit}
		exit.preds = append(exit.preds, h)
	}
	return ""
}

// divert replaces m's i-th successor edge with a fresh terminated node
// holding only the marker statement; reduction then folds it like any arm.
// Forwarders the edge chased through fold into the marker node so their
// regions stay covered.
func (ov *overlay) divert(m *snode, i int, marker Node, trail []*snode) {
	removePred(m.succs[i], m)
	mk := &snode{body: []Node{marker}, preds: []*snode{m}}
	for _, tr := range trail {
		removePred(tr.succs[0], tr)
		mk.regions = append(mk.regions, tr.regions...)
		for _, id := range tr.regions {
			ov.home[id] = mk
		}
		tr.dead = true
		tr.succs = nil
		tr.preds = nil
	}
	m.succs[i] = mk
	ov.all = append(ov.all, mk)
}

// chase resolves where an edge leaving the loop actually lands, stepping
// over the empty forwarding nodes critical-edge splitting leaves on branch
// targets. It returns the landing node and the forwarders crossed.
func (ov *overlay) chase(s *snode, scope map[*snode]bool) (*snode, []*snode) {
	var trail []*snode
	for !scope[s] && s.kind == ir.TermBr && len(s.succs) == 1 && len(s.preds) == 1 && forwarder(s) {
		trail = append(trail, s)
		s = s.succs[0]
	}
	return s, trail
}

// forwarder reports whether the node carries no statements of its own.
func forwarder(s *snode) bool {
	if len(s.body) != 1 {
		return false
	}
	sim, ok := s.body[0].(*Simple)
	return ok && len(sim.Stmts) == 0
}

// enclosingHeader returns the ancestor loop whose header the node currently
// is, or nil. A jump there from inside l is that loop's continue.
func enclosingHeader(ov *overlay, l *ir.Loop, s *snode) *ir.Loop {
	for p := l.Parent; p != nil; p = p.Parent {
		if ov.home[p.Header.ID] == s {
			return p
		}
	}
	return nil
}
