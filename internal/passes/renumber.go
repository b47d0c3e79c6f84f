// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import (
	"sort"

	"github.com/dotandev/wasmdec/internal/ir"
)

// renumber reassigns region IDs to reverse-postorder positions and sorts
// the region list to match, so iteration order, identities, and printed
// output all agree. The walk uses an explicit stack; successor order is
// fixed by the terminators, which makes the numbering deterministic.
func renumber(c *ir.CFG) {
	type frame struct {
		r *ir.Region
		i int
	}
	seen := map[*ir.Region]bool{c.Entry: true}
	post := make([]*ir.Region, 0, len(c.Regions))
	stack := []frame{{r: c.Entry}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.i < len(f.r.Succs) {
			e := f.r.Succs[f.i]
			f.i++
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, frame{r: e.To})
			}
			continue
		}
		post = append(post, f.r)
		stack = stack[:len(stack)-1]
	}

	id := 0
	for i := len(post) - 1; i >= 0; i-- {
		post[i].ID = id
		id++
	}
	// An exit nothing returns to is missed by the walk; it still needs a
	// slot, after every reachable region.
	if !seen[c.Exit] {
		c.Exit.ID = id
	}
	sort.Slice(c.Regions, func(i, j int) bool { return c.Regions[i].ID < c.Regions[j].ID })
}
