// Package ranker orders candidate solutions into escalating tiers and
// enforces the no-repeat invariant: nothing already attempted is ever
// offered again.
package ranker

import (
	"sort"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ledger"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// RankAndFilter removes candidates whose commands were already
// attempted, then orders the rest by tier ascending, confidence
// descending, and insertion order as the tie-break.
func RankAndFilter(candidates []types.Solution, fc types.FailureContext) []types.Solution {
	filtered := make([]types.Solution, 0, len(candidates))
	for _, c := range candidates {
		if c.Validate() != nil {
			continue
		}
		if attempted(&c, fc) {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Tier != filtered[j].Tier {
			return filtered[i].Tier < filtered[j].Tier
		}
		return filtered[i].Confidence.Rank() > filtered[j].Confidence.Rank()
	})
	return filtered
}

// attempted reports whether any of the candidate's commands has an
// identity already present in the attempted set. One known command is
// enough to disqualify: re-proposing a failed command is forbidden,
// and a succeeded one needs no retry.
func attempted(s *types.Solution, fc types.FailureContext) bool {
	for _, cmd := range s.Commands {
		if fc.Attempted(ledger.CommandSignature(cmd)) {
			return true
		}
	}
	return false
}

// LowestTier returns the lowest tier present among candidates, or 0
// when there are none.
func LowestTier(candidates []types.Solution) types.Tier {
	var lowest types.Tier
	for _, c := range candidates {
		if lowest == 0 || c.Tier < lowest {
			lowest = c.Tier
		}
	}
	return lowest
}
