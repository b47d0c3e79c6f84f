// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import "github.com/dotandev/wasmdec/internal/ir"

// fuseBlocks collapses straight-line chains: a region whose only successor
// has it as its only predecessor absorbs that successor's statements and
// terminator. Edges carrying arguments and targets carrying parameters are
// left alone; substituting values into the absorbed body could duplicate
// effects. Runs to fixpoint so whole chains fold in one call.
func fuseBlocks(c *ir.CFG) int {
	fused := 0
	gone := make(map[*ir.Region]bool)
	for changed := true; changed; {
		changed = false
		for _, u := range c.Regions {
			if gone[u] || u.Term.Kind != ir.TermBr || len(u.Succs) != 1 {
				continue
			}
			e := u.Succs[0]
			v := e.To
			if v == u || v == c.Exit || len(v.Preds) != 1 {
				continue
			}
			if len(e.Args) != 0 || len(v.Params) != 0 {
				continue
			}

			u.Stmts = append(u.Stmts, v.Stmts...)
			u.Term = v.Term
			u.Succs = u.Succs[:0]
			for _, ve := range v.Succs {
				ve.From = u
				u.Succs = append(u.Succs, ve)
			}
			v.Stmts, v.Succs, v.Preds = nil, nil, nil
			gone[v] = true
			fused++
			changed = true
		}
	}
	if fused > 0 {
		c.Compact(func(r *ir.Region) bool { return !gone[r] })
	}
	return fused
}
