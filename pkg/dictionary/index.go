package dictionary

import "sort"

type posLetterKey struct {
	length int
	pos    int
	letter byte
}

// Index is the read-only, normalized word store. Safe for concurrent use
// once Load/finalize has returned: no method mutates it.
type Index struct {
	byLength   map[int][]*Entry
	byPosition map[posLetterKey][]*Entry
	bySurface  map[string]*Entry
}

func newIndex() *Index {
	return &Index{
		byLength:   make(map[int][]*Entry),
		byPosition: make(map[posLetterKey][]*Entry),
		bySurface:  make(map[string]*Entry),
	}
}

func (idx *Index) add(e *Entry) {
	if existing, ok := idx.bySurface[e.Surface]; ok {
		_ = existing
		return // dictionary rows are deduplicated by surface, first wins
	}
	idx.bySurface[e.Surface] = e
	idx.byLength[e.Length] = append(idx.byLength[e.Length], e)
	for i := 0; i < len(e.Surface); i++ {
		key := posLetterKey{length: e.Length, pos: i, letter: e.Surface[i]}
		idx.byPosition[key] = append(idx.byPosition[key], e)
	}
}

func (idx *Index) finalize() {}

// Contains reports whether word (after normalization) is a dictionary
// entry.
func (idx *Index) Contains(word string) bool {
	_, ok := idx.LookupBySurface(word)
	return ok
}

// LookupBySurface returns the entry for word, if present.
func (idx *Index) LookupBySurface(word string) (*Entry, bool) {
	norm, ok := normalize(word)
	if !ok {
		return nil, false
	}
	e, ok := idx.bySurface[norm]
	return e, ok
}

func (idx *Index) candidateSet(length int, constraints []Constraint) []*Entry {
	if len(constraints) == 0 {
		return idx.byLength[length]
	}
	base := idx.byPosition[posLetterKey{length: length, pos: constraints[0].Position, letter: constraints[0].Letter}]
	for _, c := range constraints[1:] {
		set := idx.byPosition[posLetterKey{length: length, pos: c.Position, letter: c.Letter}]
		if len(set) < len(base) {
			base = set
		}
	}
	var out []*Entry
outer:
	for _, e := range base {
		for _, c := range constraints {
			if c.Position >= len(e.Surface) || e.Surface[c.Position] != c.Letter {
				continue outer
			}
		}
		out = append(out, e)
	}
	return out
}

// Candidates returns every entry of the given length matching pattern,
// ordered non-increasing by Score(entry, tier); ties break alphabetically
// by surface for determinism (the scoring formula does not specify a
// secondary order).
func (idx *Index) Candidates(length int, pattern Pattern, tier Tier) []*Entry {
	return idx.rank(idx.candidateSet(length, pattern.Constraints), pattern.Banned, tier, nil)
}

// CandidatesFiltered is Candidates with an additional strict upper bound
// on difficulty score, used for EASY-tier phase-1 filtering.
func (idx *Index) CandidatesFiltered(length int, pattern Pattern, tier Tier, maxDifficulty float64) []*Entry {
	return idx.rank(idx.candidateSet(length, pattern.Constraints), pattern.Banned, tier, &maxDifficulty)
}

func (idx *Index) rank(set []*Entry, banned map[string]bool, tier Tier, maxDifficulty *float64) []*Entry {
	out := make([]*Entry, 0, len(set))
	for _, e := range set {
		if banned != nil && banned[e.Surface] {
			continue
		}
		if maxDifficulty != nil && !(e.DifficultyScore < *maxDifficulty) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := Score(out[i], tier), Score(out[j], tier)
		if si != sj {
			return si > sj
		}
		return out[i].Surface < out[j].Surface
	})
	return out
}
