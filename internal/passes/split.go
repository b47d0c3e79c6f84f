// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import "github.com/dotandev/wasmdec/internal/ir"

// splitCriticalEdges puts an empty forwarding region on every edge that
// leaves a multi-successor source for a multi-predecessor target.
// Parameter elimination relies on it: each predecessor of a parameterized
// region must own a spot where assignments can go without running on a
// sibling edge's path.
func splitCriticalEdges(c *ir.CFG) int {
	split := 0
	n := len(c.Regions)
	for i := 0; i < n; i++ {
		r := c.Regions[i]
		if len(r.Succs) < 2 {
			continue
		}
		for _, e := range r.Succs {
			to := e.To
			if to == c.Exit || len(to.Preds) < 2 {
				continue
			}
			mid := c.NewRegion(to.Params)
			mid.Term = ir.Terminator{Kind: ir.TermBr}
			e.Retarget(mid)
			ir.Connect(mid, to, ir.ParamRefs(mid.Params))
			split++
		}
	}
	return split
}
