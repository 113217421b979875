package fill

import (
	"context"
	"sync"
	"time"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// Solve assigns a dictionary word to every slot registered on g. It never
// mutates g itself (each internal search runs against a clone); on
// success the caller is expected to re-apply Result.Words to the real
// grid, matching the orchestrator's "CP solver reads Grid, emits
// assignments; orchestrator re-applies" contract.
func Solve(ctx context.Context, g *grid.Grid, idx *dictionary.Index, cfg Config) (*Result, error) {
	slots := g.Slots
	if len(slots) == 0 {
		return &Result{Words: map[int]string{}, Relaxed: map[int]bool{}}, nil
	}

	domains := make(map[int][]candidate, len(slots))
	preRelaxed := make(map[int]bool)
	for _, s := range slots {
		dom, relaxed := buildDomain(idx, g, s, cfg)
		domains[s.ID] = dom
		if relaxed {
			preRelaxed[s.ID] = true
		}
	}

	if cfg.Phase == 1 {
		for _, s := range slots {
			if s.Length >= 3 && len(domains[s.ID]) == 0 {
				return nil, ErrUnsat
			}
		}
	} else if len(preRelaxed) > cfg.MediumSlotLimit {
		return nil, ErrUnsat
	}

	constraints := buildConstraints(slots)
	if !arcConsistency(domains, constraints) {
		return nil, ErrUnsat
	}

	deadline := time.Now().Add(cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	root := selectMRV(g, slots, domains, nil)
	rootDomain := filterDomain(g, root, domains[root.ID], nil)
	if len(rootDomain) == 0 {
		return nil, ErrUnsat
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	blocks := splitBlocks(rootDomain, workers)

	type outcome struct {
		words   map[int]string
		relaxed map[int]bool
		err     error
	}
	results := make([]outcome, len(blocks))
	var wg sync.WaitGroup
	for i, block := range blocks {
		wg.Add(1)
		go func(i int, block []candidate) {
			defer wg.Done()
			results[i] = searchBlock(g, slots, domains, root, block, preRelaxed, deadline)
		}(i, block)
	}
	wg.Wait()

	// Block order mirrors the root domain's score order, so picking the
	// first successful block reproduces exactly what a single-threaded
	// search trying candidates in order would have found first: running
	// the blocks concurrently only changes wall-clock time, not the
	// result (property P8).
	for _, r := range results {
		if r.err == nil {
			return &Result{Words: r.words, Relaxed: r.relaxed}, nil
		}
	}
	for _, r := range results {
		if r.err == ErrTimeout {
			return nil, ErrTimeout
		}
	}
	return nil, ErrUnsat
}

func searchBlock(g *grid.Grid, slots []*grid.Slot, domains map[int][]candidate, root *grid.Slot, block []candidate, preRelaxed map[int]bool, deadline time.Time) (out struct {
	words   map[int]string
	relaxed map[int]bool
	err     error
}) {
	gc := g.Clone()
	assigned := map[int]string{}
	used := map[string]bool{}
	relaxed := map[int]bool{}
	for id := range preRelaxed {
		relaxed[id] = true
	}

	for _, cand := range block {
		if time.Now().After(deadline) {
			out.err = ErrTimeout
			return
		}
		token := gc.Snapshot()
		if placeWord(gc, root, cand.Word) != nil {
			gc.Rollback(token)
			continue
		}
		assigned[root.ID] = cand.Word
		used[cand.Word] = true
		words, rel, err := backtrack(gc, slots, domains, assigned, used, relaxed, deadline)
		if err == nil {
			out.words, out.relaxed = words, rel
			return
		}
		delete(assigned, root.ID)
		delete(used, cand.Word)
		gc.Rollback(token)
		if err == ErrTimeout {
			out.err = ErrTimeout
			return
		}
	}
	out.err = ErrUnsat
	return
}

func backtrack(g *grid.Grid, slots []*grid.Slot, domains map[int][]candidate, assigned map[int]string, used map[string]bool, relaxed map[int]bool, deadline time.Time) (map[int]string, map[int]bool, error) {
	if time.Now().After(deadline) {
		return nil, nil, ErrTimeout
	}
	if len(assigned) == len(slots) {
		return cloneStrMap(assigned), cloneBoolMap(relaxed), nil
	}

	slot := selectMRV(g, slots, domains, assigned)
	if slot == nil {
		return nil, nil, ErrUnsat
	}
	cands := filterDomain(g, slot, domains[slot.ID], used)
	if len(cands) == 0 {
		return nil, nil, ErrUnsat
	}

	for _, cand := range cands {
		if time.Now().After(deadline) {
			return nil, nil, ErrTimeout
		}
		token := g.Snapshot()
		if err := placeWord(g, slot, cand.Word); err != nil {
			g.Rollback(token)
			continue
		}
		assigned[slot.ID] = cand.Word
		used[cand.Word] = true

		words, rel, err := backtrack(g, slots, domains, assigned, used, relaxed, deadline)
		if err == nil {
			return words, rel, nil
		}
		delete(assigned, slot.ID)
		delete(used, cand.Word)
		g.Rollback(token)
		if err == ErrTimeout {
			return nil, nil, ErrTimeout
		}
	}
	return nil, nil, ErrUnsat
}

// selectMRV picks the unassigned slot with the fewest remaining
// consistent candidates, breaking ties by slot id for determinism.
func selectMRV(g *grid.Grid, slots []*grid.Slot, domains map[int][]candidate, assigned map[int]string) *grid.Slot {
	var best *grid.Slot
	bestSize := -1
	for _, s := range slots {
		if _, done := assigned[s.ID]; done {
			continue
		}
		size := len(filterDomain(g, s, domains[s.ID], nil))
		if bestSize == -1 || size < bestSize || (size == bestSize && s.ID < best.ID) {
			best, bestSize = s, size
		}
	}
	return best
}

func filterDomain(g *grid.Grid, s *grid.Slot, dom []candidate, used map[string]bool) []candidate {
	pattern := g.Pattern(s)
	out := make([]candidate, 0, len(dom))
	for _, c := range dom {
		if used != nil && used[c.Word] {
			continue
		}
		if matchesPattern(c.Word, pattern) {
			out = append(out, c)
		}
	}
	return out
}

func matchesPattern(word, pattern string) bool {
	if len(word) != len(pattern) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '.' && pattern[i] != word[i] {
			return false
		}
	}
	return true
}

func placeWord(g *grid.Grid, s *grid.Slot, word string) error {
	for i, co := range s.Cells {
		if err := g.PlaceLetter(co.Row, co.Col, rune(word[i])); err != nil {
			return err
		}
	}
	return nil
}

func splitBlocks(dom []candidate, workers int) [][]candidate {
	if workers > len(dom) {
		workers = len(dom)
	}
	if workers < 1 {
		workers = 1
	}
	blocks := make([][]candidate, workers)
	base := len(dom) / workers
	rem := len(dom) % workers
	idx := 0
	for i := 0; i < workers; i++ {
		n := base
		if i < rem {
			n++
		}
		blocks[i] = dom[idx : idx+n]
		idx += n
	}
	return blocks
}

func cloneStrMap(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
