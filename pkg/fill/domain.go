package fill

import (
	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// candidate is one domain value for a slot: a word and its precomputed
// difficulty, used later for the orchestrator's difficulty histogram.
type candidate struct {
	Word       string
	Difficulty float64
}

func toCandidates(entries []*dictionary.Entry) []candidate {
	out := make([]candidate, len(entries))
	for i, e := range entries {
		out[i] = candidate{Word: e.Surface, Difficulty: e.DifficultyScore}
	}
	return out
}

// buildDomain computes slot's initial candidate list. Slots shorter than
// 3 letters are not dictionary-constrained (I6 exempts them): every
// combination consistent with already-fixed crossing letters is a valid
// domain value. relaxed reports whether a length>=3 slot had to fall back
// to the unfiltered candidate list because its strict list was empty.
func buildDomain(idx *dictionary.Index, g *grid.Grid, s *grid.Slot, cfg Config) (dom []candidate, relaxed bool) {
	if s.Length < 3 {
		return freeLetterDomain(g.Pattern(s)), false
	}

	pattern := dictionary.Pattern{Constraints: dictionary.ConstraintsFromPattern(g.Pattern(s))}

	if cfg.Tier == dictionary.Easy && cfg.Phase == 1 {
		return toCandidates(idx.CandidatesFiltered(s.Length, pattern, dictionary.Easy, cfg.MaxDifficulty)), false
	}
	if cfg.Tier == dictionary.Easy {
		filtered := idx.CandidatesFiltered(s.Length, pattern, dictionary.Easy, cfg.MaxDifficulty)
		if len(filtered) > 0 {
			return toCandidates(filtered), false
		}
		return toCandidates(idx.Candidates(s.Length, pattern, dictionary.Easy)), true
	}
	return toCandidates(idx.Candidates(s.Length, pattern, cfg.Tier)), false
}

func freeLetterDomain(pattern string) []candidate {
	words := expandPattern(pattern, 0, nil)
	out := make([]candidate, len(words))
	for i, w := range words {
		out[i] = candidate{Word: w}
	}
	return out
}

func expandPattern(pattern string, i int, prefix []byte) []string {
	if i == len(pattern) {
		return []string{string(prefix)}
	}
	if pattern[i] != '.' {
		return expandPattern(pattern, i+1, append(append([]byte{}, prefix...), pattern[i]))
	}
	var out []string
	for ch := byte('A'); ch <= 'Z'; ch++ {
		out = append(out, expandPattern(pattern, i+1, append(append([]byte{}, prefix...), ch))...)
	}
	return out
}
