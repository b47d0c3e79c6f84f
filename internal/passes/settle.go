// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import "github.com/dotandev/wasmdec/internal/ir"

// settleDefs sinks synthesized temporaries toward their uses. A definition
// moves only when all three hold: the temporary has exactly one assignment,
// every use sits under a single region of the dominator tree distinct from
// the defining one, and the right-hand side provably reads the same value
// there — a constant, or a local whose sole assignment already ran when the
// definition did (an earlier statement of the same region, or a strictly
// dominating region). Moved definitions land at the front of the target in
// temporary-index order; everything else keeps its position.
func settleDefs(c *ir.CFG, a *ir.Analysis) int {
	n := len(c.Locals)
	if n == c.UserLocals {
		return 0
	}

	type site struct {
		r   *ir.Region
		set *ir.SetLocal // nil when the write is a TupleSet
		idx int
	}
	defs := make([][]site, n)
	uses := make([]map[*ir.Region]bool, n)

	for _, r := range c.Regions {
		mark := func(e ir.Expr) bool {
			if g, ok := e.(*ir.GetLocal); ok && g.Index >= c.UserLocals {
				if uses[g.Index] == nil {
					uses[g.Index] = make(map[*ir.Region]bool)
				}
				uses[g.Index][r] = true
			}
			return true
		}
		for si, s := range r.Stmts {
			switch x := s.(type) {
			case *ir.SetLocal:
				defs[x.Index] = append(defs[x.Index], site{r, x, si})
			case *ir.TupleSet:
				for _, i := range x.Indices {
					defs[i] = append(defs[i], site{r, nil, si})
				}
			}
			ir.WalkStmt(s, mark)
		}
		if r.Term.Cond != nil {
			ir.WalkExpr(r.Term.Cond, mark)
		}
		for _, x := range r.Term.Args {
			ir.WalkExpr(x, mark)
		}
	}

	stable := func(d site) bool {
		switch x := d.set.X.(type) {
		case *ir.Const:
			return true
		case *ir.GetLocal:
			src := defs[x.Index]
			switch len(src) {
			case 0:
				return true
			case 1:
				w := src[0]
				if w.r == d.r {
					return w.idx < d.idx
				}
				return a.Dominates(w.r, d.r)
			}
		}
		return false
	}

	type move struct {
		from, to *ir.Region
		set      *ir.SetLocal
	}
	var moves []move
	for i := c.UserLocals; i < n; i++ {
		if len(defs[i]) != 1 || defs[i][0].set == nil || len(uses[i]) == 0 {
			continue
		}
		d := defs[i][0]
		var landing *ir.Region
		for u := range uses[i] {
			if landing == nil {
				landing = u
			} else {
				landing = a.NCA(landing, u)
			}
			if landing == nil {
				break
			}
		}
		if landing == nil || landing == d.r || !a.Dominates(d.r, landing) {
			continue
		}
		if !stable(d) {
			continue
		}
		moves = append(moves, move{d.r, landing, d.set})
	}
	if len(moves) == 0 {
		return 0
	}

	dropSet := make(map[ir.Stmt]bool, len(moves))
	batch := make(map[*ir.Region][]ir.Stmt)
	for _, m := range moves {
		dropSet[m.set] = true
		batch[m.to] = append(batch[m.to], m.set)
	}
	for _, r := range c.Regions {
		if len(r.Stmts) == 0 {
			continue
		}
		out := r.Stmts[:0]
		for _, s := range r.Stmts {
			if !dropSet[s] {
				out = append(out, s)
			}
		}
		r.Stmts = out
	}
	for _, r := range c.Regions {
		if b := batch[r]; len(b) > 0 {
			r.Stmts = append(b, r.Stmts...)
		}
	}
	return len(moves)
}
