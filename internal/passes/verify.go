// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import (
	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/ir"
)

// verify re-checks every pipeline postcondition on the finished graph.
// A failure means a pass bug rather than bad input; the message names the
// pass whose guarantee broke and the regions involved.
func verify(c *ir.CFG, a *ir.Analysis) error {
	for i, r := range a.RPO {
		if r.ID != i {
			return errors.WrapInvariant("renumber", "region %d sits at reverse-postorder position %d", r.ID, i)
		}
	}
	for i, r := range c.Regions {
		if r.ID != i {
			return errors.WrapInvariant("renumber", "region list out of order at slot %d (id %d)", i, r.ID)
		}
		if _, ok := a.Pos[r]; !ok && r != c.Exit {
			return errors.WrapInvariant("dce", "region %d unreachable", r.ID)
		}
	}

	for _, r := range a.RPO {
		if err := checkTerminator(c, r); err != nil {
			return err
		}
		if len(r.Params) != 0 {
			return errors.WrapInvariant("params", "region %d keeps %d parameters", r.ID, len(r.Params))
		}
		for _, e := range r.Succs {
			if len(e.Args) != 0 {
				return errors.WrapInvariant("params", "edge %d->%d carries %d arguments", r.ID, e.To.ID, len(e.Args))
			}
			if len(r.Succs) > 1 && len(e.To.Preds) > 1 {
				return errors.WrapInvariant("split", "critical edge %d->%d", r.ID, e.To.ID)
			}
		}
	}

	return checkDefCoverage(c, a)
}

func checkTerminator(c *ir.CFG, r *ir.Region) error {
	count := func(want string) error {
		return errors.WrapInvariant("fuse", "region %d: %s terminator with %d successors, want %s",
			r.ID, r.Term.Kind, len(r.Succs), want)
	}
	switch r.Term.Kind {
	case ir.TermBr:
		if len(r.Succs) != 1 {
			return count("1")
		}
	case ir.TermBrIf:
		if len(r.Succs) != 2 {
			return count("2")
		}
		if r.Term.Cond == nil {
			return errors.WrapInvariant("fuse", "region %d: br_if without a condition", r.ID)
		}
	case ir.TermBrTable:
		if len(r.Succs) < 1 {
			return count("at least 1")
		}
		if r.Term.Cond == nil {
			return errors.WrapInvariant("fuse", "region %d: br_table without an index", r.ID)
		}
	case ir.TermReturn:
		if len(r.Succs) != 1 || r.Succs[0].To != c.Exit {
			return errors.WrapInvariant("fuse", "region %d: return must edge to the exit", r.ID)
		}
	case ir.TermUnreachable:
		if len(r.Succs) != 0 {
			return count("0")
		}
	case ir.TermNone:
		if r != c.Exit {
			return errors.WrapInvariant("fuse", "region %d: unterminated", r.ID)
		}
	}
	return nil
}

// checkDefCoverage proves every temporary read observes an assignment: a
// single definition must dominate each use (and precede it inside its own
// region), several definitions must together cut every entry-to-use path.
func checkDefCoverage(c *ir.CFG, a *ir.Analysis) error {
	n := len(c.Locals)
	if n == c.UserLocals {
		return nil
	}

	type site struct {
		r   *ir.Region
		idx int
	}
	defs := make([][]site, n)
	uses := make([][]site, n)
	record := func(table [][]site, i int, r *ir.Region, idx int) {
		if i >= c.UserLocals {
			table[i] = append(table[i], site{r, idx})
		}
	}

	for _, r := range a.RPO {
		markAt := func(idx int) func(ir.Expr) bool {
			return func(e ir.Expr) bool {
				if g, ok := e.(*ir.GetLocal); ok {
					record(uses, g.Index, r, idx)
				}
				return true
			}
		}
		for si, s := range r.Stmts {
			switch x := s.(type) {
			case *ir.SetLocal:
				record(defs, x.Index, r, si)
			case *ir.TupleSet:
				for _, i := range x.Indices {
					record(defs, i, r, si)
				}
			}
			ir.WalkStmt(s, markAt(si))
		}
		after := markAt(len(r.Stmts))
		if r.Term.Cond != nil {
			ir.WalkExpr(r.Term.Cond, after)
		}
		for _, x := range r.Term.Args {
			ir.WalkExpr(x, after)
		}
	}

	coveredLocally := func(ds []site, u site) bool {
		for _, d := range ds {
			if d.r == u.r && d.idx < u.idx {
				return true
			}
		}
		return false
	}

	// reachesUnassigned floods forward from the entry, stopping at regions
	// that contain a definition, and reports whether the flood arrives at
	// the target.
	reachesUnassigned := func(barrier map[*ir.Region]bool, target *ir.Region) bool {
		if target == c.Entry {
			return true
		}
		seen := map[*ir.Region]bool{c.Entry: true}
		var work []*ir.Region
		if !barrier[c.Entry] {
			work = append(work, c.Entry)
		}
		for len(work) > 0 {
			r := work[len(work)-1]
			work = work[:len(work)-1]
			for _, e := range r.Succs {
				if seen[e.To] {
					continue
				}
				seen[e.To] = true
				if e.To == target {
					return true
				}
				if !barrier[e.To] {
					work = append(work, e.To)
				}
			}
		}
		return false
	}

	for i := c.UserLocals; i < n; i++ {
		if len(uses[i]) == 0 {
			continue
		}
		name := c.Locals[i].Name
		switch len(defs[i]) {
		case 0:
			return errors.WrapInvariant("settle", "temporary %s read but never assigned", name)
		case 1:
			d := defs[i][0]
			for _, u := range uses[i] {
				if u.r == d.r {
					if u.idx <= d.idx {
						return errors.WrapInvariant("settle", "temporary %s read before its definition in region %d", name, u.r.ID)
					}
					continue
				}
				if !a.Dominates(d.r, u.r) {
					return errors.WrapInvariant("settle", "temporary %s: definition in region %d does not dominate use in region %d",
						name, d.r.ID, u.r.ID)
				}
			}
		default:
			barrier := make(map[*ir.Region]bool, len(defs[i]))
			for _, d := range defs[i] {
				barrier[d.r] = true
			}
			for _, u := range uses[i] {
				if coveredLocally(defs[i], u) {
					continue
				}
				if reachesUnassigned(barrier, u.r) {
					return errors.WrapInvariant("params", "temporary %s used in region %d on a path with no prior assignment", name, u.r.ID)
				}
			}
		}
	}
	return nil
}
