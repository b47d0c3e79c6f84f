// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import "github.com/dotandev/wasmdec/internal/ir"

// lowerBranchParams turns value-carrying edges into plain control edges by
// routing every value through a function temporary.
//
// Phase one works on sources: a multi-successor region computes its shared
// argument tuple into fresh temporaries ahead of the terminator and all its
// edges become temporary reads. The values were pushed before the branch
// condition in the original bytecode, so materializing them first preserves
// evaluation order, and afterwards any argument still owned by an
// expression is on a single-successor edge.
//
// Phase two works on targets: each parameterized region gets one temporary
// per parameter, every predecessor appends the assignments before its own
// terminator, the edge tuples are cleared, and parameter references inside
// the region become temporary reads.
func lowerBranchParams(c *ir.CFG) int {
	lowered := 0

	for _, r := range c.Regions {
		if len(r.Succs) < 2 || len(r.Succs[0].Args) == 0 {
			continue
		}
		args := r.Succs[0].Args
		reads := make([]ir.Expr, len(args))
		for i, a := range args {
			idx := c.AddTemp(a.Type())
			r.Stmts = append(r.Stmts, &ir.SetLocal{Index: idx, X: a})
			reads[i] = &ir.GetLocal{Index: idx, T: a.Type()}
		}
		for _, e := range r.Succs {
			e.Args = reads
		}
	}

	for _, r := range c.Regions {
		if len(r.Params) == 0 {
			continue
		}
		temps := make([]int, len(r.Params))
		for i, t := range r.Params {
			temps[i] = c.AddTemp(t)
		}
		for _, e := range r.Preds {
			for i, a := range e.Args {
				e.From.Stmts = append(e.From.Stmts, &ir.SetLocal{Index: temps[i], X: a})
			}
			e.Args = nil
		}

		// Rewrite the body, the terminator, and the region's own outgoing
		// tuples. A self-loop's arguments were appended as statements just
		// above and are rewritten here with everything else: an argument at
		// tuple position i can only reference parameters at index >= i, so
		// the assignment sequence never reads a slot an earlier one
		// overwrote.
		sub := func(x ir.Expr) ir.Expr {
			if p, ok := x.(*ir.Param); ok {
				return &ir.GetLocal{Index: temps[p.Index], T: p.T}
			}
			return x
		}
		for _, s := range r.Stmts {
			ir.MapStmt(s, sub)
		}
		if r.Term.Cond != nil {
			r.Term.Cond = ir.MapExpr(r.Term.Cond, sub)
		}
		for i, a := range r.Term.Args {
			r.Term.Args[i] = ir.MapExpr(a, sub)
		}
		for _, e := range r.Succs {
			for i, a := range e.Args {
				e.Args[i] = ir.MapExpr(a, sub)
			}
		}

		lowered += len(r.Params)
		r.Params = nil
	}
	return lowered
}
