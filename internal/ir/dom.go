// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package ir

import "sort"

// Loop is a natural loop: a dominating header plus the regions that can
// reach one of its latches without leaving through the header.
type Loop struct {
	Header  *Region
	Latches []*Region
	Body    map[*Region]bool
	Parent  *Loop
	Depth   int // 1 for outermost
}

// Analysis carries the derived views of a CFG: traversal order, dominator
// and postdominator trees, and the loop nest. It is recomputed rather than
// maintained; passes that restructure the graph ask for a fresh one.
type Analysis struct {
	RPO   []*Region           // reachable regions, entry first
	Pos   map[*Region]int     // RPO position
	IDom  map[*Region]*Region // immediate dominator; entry absent
	IPDom map[*Region]*Region // immediate postdominator; exit absent

	Loops  []*Loop
	LoopOf map[*Region]*Loop // innermost loop containing the region

	// Irreducible is set when some retreating edge targets a region that
	// does not dominate its source. Loop entries like that cannot be
	// folded; structure recovery falls back to labeled output.
	Irreducible bool

	domDepth map[*Region]int
}

// Analyze computes the analysis for the current shape of the graph and
// marks retreating edges. Unreachable regions appear in no view.
func Analyze(c *CFG) *Analysis {
	a := &Analysis{
		Pos:    make(map[*Region]int),
		LoopOf: make(map[*Region]*Loop),
	}
	a.RPO = reversePostorder(c.Entry, forward)
	for i, r := range a.RPO {
		a.Pos[r] = i
	}
	a.IDom = idoms(a.RPO, a.Pos, preds)

	a.domDepth = make(map[*Region]int, len(a.RPO))
	for _, r := range a.RPO {
		a.domDepth[r] = a.domDepth[a.IDom[r]] + 1
	}

	// Postdominators come from the reversed graph, rooted at the exit.
	// Regions with no path to the exit stay absent.
	rpo := reversePostorder(c.Exit, backward)
	pos := make(map[*Region]int, len(rpo))
	for i, r := range rpo {
		pos[r] = i
	}
	a.IPDom = idoms(rpo, pos, succs)

	a.markBackEdges()
	a.findLoops()
	return a
}

// Dominates reports whether d dominates r. A region dominates itself.
func (a *Analysis) Dominates(d, r *Region) bool {
	for r != nil {
		if r == d {
			return true
		}
		r = a.IDom[r]
	}
	return false
}

// PostDominates reports whether d postdominates r.
func (a *Analysis) PostDominates(d, r *Region) bool {
	for r != nil {
		if r == d {
			return true
		}
		r = a.IPDom[r]
	}
	return false
}

// NCA returns the nearest common ancestor of x and y in the dominator
// tree, or nil when either is unreachable.
func (a *Analysis) NCA(x, y *Region) *Region {
	if _, ok := a.Pos[x]; !ok {
		return nil
	}
	if _, ok := a.Pos[y]; !ok {
		return nil
	}
	for a.domDepth[x] > a.domDepth[y] {
		x = a.IDom[x]
	}
	for a.domDepth[y] > a.domDepth[x] {
		y = a.IDom[y]
	}
	for x != y {
		x = a.IDom[x]
		y = a.IDom[y]
	}
	return x
}

func (a *Analysis) markBackEdges() {
	for _, r := range a.RPO {
		for _, e := range r.Succs {
			to, ok := a.Pos[e.To]
			e.Back = ok && to <= a.Pos[r]
		}
	}
}

// findLoops builds the natural-loop nest from true back edges. A
// retreating edge whose target does not dominate its source makes the
// graph irreducible.
func (a *Analysis) findLoops() {
	byHeader := make(map[*Region]*Loop)
	for _, r := range a.RPO {
		for _, e := range r.Succs {
			if !e.Back {
				continue
			}
			if !a.Dominates(e.To, r) {
				a.Irreducible = true
				continue
			}
			l := byHeader[e.To]
			if l == nil {
				l = &Loop{Header: e.To, Body: map[*Region]bool{e.To: true}}
				byHeader[e.To] = l
				a.Loops = append(a.Loops, l)
			}
			l.Latches = append(l.Latches, r)
			a.flood(l, r)
		}
	}

	// Innermost wins: assign large bodies first so smaller ones overwrite.
	sort.Slice(a.Loops, func(i, j int) bool {
		if len(a.Loops[i].Body) != len(a.Loops[j].Body) {
			return len(a.Loops[i].Body) > len(a.Loops[j].Body)
		}
		return a.Pos[a.Loops[i].Header] < a.Pos[a.Loops[j].Header]
	})
	for _, l := range a.Loops {
		for r := range l.Body {
			a.LoopOf[r] = l
		}
	}
	for _, l := range a.Loops {
		for _, m := range a.Loops {
			if m == l || len(m.Body) <= len(l.Body) || !m.Body[l.Header] {
				continue
			}
			if l.Parent == nil || len(m.Body) < len(l.Parent.Body) {
				l.Parent = m
			}
		}
	}
	for _, l := range a.Loops {
		l.Depth = 1
		for p := l.Parent; p != nil; p = p.Parent {
			l.Depth++
		}
	}
}

// flood walks backward from a latch, adding everything that reaches it
// without passing through the header.
func (a *Analysis) flood(l *Loop, latch *Region) {
	if l.Body[latch] {
		return
	}
	stack := []*Region{latch}
	l.Body[latch] = true
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range r.Preds {
			if _, ok := a.Pos[e.From]; !ok {
				continue
			}
			if !l.Body[e.From] {
				l.Body[e.From] = true
				stack = append(stack, e.From)
			}
		}
	}
}

type direction int

const (
	forward direction = iota
	backward
)

func succs(r *Region) []*Edge { return r.Succs }
func preds(r *Region) []*Edge { return r.Preds }

// reversePostorder runs a depth-first walk from root, following Succs
// (forward) or Preds (backward), and returns the reversed finish order.
func reversePostorder(root *Region, dir direction) []*Region {
	visited := make(map[*Region]bool)
	var order []*Region

	var dfs func(r *Region)
	dfs = func(r *Region) {
		if visited[r] {
			return
		}
		visited[r] = true
		if dir == forward {
			for _, e := range r.Succs {
				dfs(e.To)
			}
		} else {
			for _, e := range r.Preds {
				dfs(e.From)
			}
		}
		order = append(order, r)
	}
	dfs(root)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// idoms is Cooper, Harvey, and Kennedy's "A Simple, Fast Dominance
// Algorithm" over an arbitrary order and edge view, so the same code
// serves dominators and postdominators.
func idoms(order []*Region, pos map[*Region]int, in func(*Region) []*Edge) map[*Region]*Region {
	if len(order) == 0 {
		return nil
	}
	root := order[0]
	idom := make(map[*Region]*Region, len(order))
	idom[root] = root

	other := func(r *Region, e *Edge) *Region {
		if e.From == r {
			return e.To
		}
		return e.From
	}
	intersect := func(b1, b2 *Region) *Region {
		for b1 != b2 {
			for pos[b1] > pos[b2] {
				b1 = idom[b1]
			}
			for pos[b2] > pos[b1] {
				b2 = idom[b2]
			}
		}
		return b1
	}

	changed := true
	for changed {
		changed = false
		for _, r := range order[1:] {
			var newIdom *Region
			for _, e := range in(r) {
				p := other(r, e)
				if _, ok := pos[p]; !ok {
					continue
				}
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom == nil {
				continue
			}
			if idom[r] != newIdom {
				idom[r] = newIdom
				changed = true
			}
		}
	}

	delete(idom, root)
	return idom
}
