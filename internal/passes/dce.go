// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package passes

import "github.com/dotandev/wasmdec/internal/ir"

// removeDeadRegions drops every region unreachable from the entry, together
// with its edges. The synthetic exit survives even when nothing returns;
// non-terminating functions still need it as the postdominator root.
func removeDeadRegions(c *ir.CFG) int {
	reach := map[*ir.Region]bool{c.Entry: true}
	work := []*ir.Region{c.Entry}
	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]
		for _, e := range r.Succs {
			if !reach[e.To] {
				reach[e.To] = true
				work = append(work, e.To)
			}
		}
	}

	removed := 0
	for _, r := range c.Regions {
		if reach[r] || r == c.Exit {
			continue
		}
		r.Unlink()
		removed++
	}
	if removed > 0 {
		c.Compact(func(r *ir.Region) bool { return reach[r] || r == c.Exit })
	}
	return removed
}
