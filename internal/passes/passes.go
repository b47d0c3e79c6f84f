// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package passes normalizes a freshly built control-flow graph into the
// canonical form structure recovery consumes: only reachable regions, IDs in
// reverse postorder, no trivial chains, no critical edges, and no
// value-carrying edges or region parameters. The passes run in a fixed
// order, each establishing a precondition of the next, and a verifier
// re-checks every postcondition on the finished graph.
package passes

import (
	"github.com/dotandev/wasmdec/internal/ir"
	"github.com/dotandev/wasmdec/internal/logger"
)

// Stats counts what the pipeline did to one function.
type Stats struct {
	RegionsRemoved int
	RegionsFused   int
	EdgesSplit     int
	ParamsLowered  int
	DefsSettled    int
}

// Normalize rewrites c in place and returns the analysis of the final
// graph. The graph must come straight from the CFG builder; afterwards
// callers treat it as immutable.
func Normalize(c *ir.CFG) (*ir.Analysis, Stats, error) {
	var st Stats
	log := logger.Logger.With("func", c.FuncIndex)

	st.RegionsRemoved = removeDeadRegions(c)
	log.Debug("dead regions removed", "count", st.RegionsRemoved)

	renumber(c)

	st.RegionsFused = fuseBlocks(c)
	log.Debug("blocks fused", "count", st.RegionsFused)

	st.EdgesSplit = splitCriticalEdges(c)
	log.Debug("critical edges split", "count", st.EdgesSplit)

	st.ParamsLowered = lowerBranchParams(c)
	log.Debug("branch parameters lowered", "count", st.ParamsLowered)

	// Settling needs dominators. It moves statements but never edges, so
	// the analysis stays valid across it; only the final renumber forces a
	// fresh one.
	a := ir.Analyze(c)
	st.DefsSettled = settleDefs(c, a)
	log.Debug("definitions settled", "count", st.DefsSettled)

	renumber(c)
	a = ir.Analyze(c)

	if err := verify(c, a); err != nil {
		return nil, st, err
	}
	log.Debug("normalized", "regions", len(c.Regions), "loops", len(a.Loops), "irreducible", a.Irreducible)
	return a, st, nil
}
