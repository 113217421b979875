// Package layout implements the layout builder: the pass that freezes a
// grid's cell-type assignment so the final slot set is fixed before the
// fill solver runs. It runs after the blocker/theme placer has made its
// mutations and before the fill solver reads the grid.
//
// The four steps mirror the spec's layout-construction algorithm in
// order: heal orphan cells into clue boxes, partition runs that are too
// long to have good dictionary coverage, ensure every run of length >= 2
// is licensed by an adjacent clue box, then verify every such run is
// dictionary-feasible.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// ErrLayoutInfeasible is returned when the layout cannot be completed
// without breaking a structural invariant or leaving a slot with zero
// dictionary candidates. The caller (the generation orchestrator) is
// expected to retry with a fresh attempt, per spec.md's "failure by
// retry, not by repair" design.
var ErrLayoutInfeasible = errors.New("layout: rejected as infeasible")

// Config controls the run-partitioning thresholds.
type Config struct {
	// MaxLenPasses is tried in order; each pass partitions any run still
	// longer than its threshold. Defaults to {10, 8} per spec.md §4.4.
	MaxLenPasses []int
}

// DefaultConfig returns the spec's default two-pass partitioning budget.
func DefaultConfig() Config {
	return Config{MaxLenPasses: []int{10, 8}}
}

// Build freezes g's cell types in place: it plants the mandatory
// top-left clue box, heals orphan cells, partitions over-long runs,
// plants any licensing clue boxes still missing, registers the final
// slot set, and verifies every slot of length >= 3 has at least one
// dictionary candidate for tier.
//
// On success g.Slots holds the frozen slot registry. On failure the
// grid is left in whatever partial state the steps reached; the caller
// should discard it and retry with a fresh grid, not attempt to reuse
// it, matching the orchestrator's per-attempt ownership model.
func Build(g *grid.Grid, idx *dictionary.Index, tier dictionary.Tier, cfg Config) error {
	if len(cfg.MaxLenPasses) == 0 {
		cfg = DefaultConfig()
	}

	if err := ensureTopLeftClueBox(g); err != nil {
		return err
	}

	healOrphans(g)

	for _, maxLen := range cfg.MaxLenPasses {
		partitionLongRuns(g, maxLen)
	}

	if err := ensureLicensing(g); err != nil {
		return err
	}

	g.RegisterSlots()

	if err := verifyFeasibility(g, idx, tier); err != nil {
		return err
	}

	// A final structural check catches anything the steps above failed
	// to maintain. Unlike the errors above, this is never expected to
	// fire in a correct build; if it does, it is a programmer bug
	// (INVARIANT_VIOLATION in spec.md §7), not a retryable layout
	// rejection, so it is returned unwrapped for the orchestrator to
	// treat as fatal.
	if err := g.ValidateStructure(); err != nil {
		return err
	}
	return nil
}

func playable(t grid.CellType) bool {
	return t == grid.EmptyPlayable || t == grid.Letter
}

// healOrphans converts every EmptyPlayable cell whose maximal across and
// down runs are both length 1 into a ClueBox (step 1). An orphan cell
// that cannot be converted without breaking I1 is left EmptyPlayable: it
// is inert (no run of length >= 2 ever includes it, so I4/I5 never see
// it, and the fill solver never assigns it a letter). Two orphan cells
// can never be orthogonally adjacent to each other -- if they were, the
// shared run would have length >= 2 in at least one of the two, which
// contradicts both being orphans -- so the only way healing can be
// blocked is by a clue box planted earlier by the blocker or theme
// placer; relocating that clue box would risk re-breaking whatever it
// was licensing, so this is a deliberate deviation from literal
// backtracking, left as-is rather than chased further.
func healOrphans(g *grid.Grid) {
	for r := 0; r < g.H; r++ {
		for c := 0; c < g.W; c++ {
			if g.At(r, c).Type != grid.EmptyPlayable {
				continue
			}
			_, acrossLen := g.MaximalRun(r, c, grid.Across)
			_, downLen := g.MaximalRun(r, c, grid.Down)
			if acrossLen == 1 && downLen == 1 {
				_ = g.PlaceClueBox(r, c) // best effort; see doc comment above
			}
		}
	}
}

// partitionLongRuns splits every run longer than maxLen in either
// direction by planting one clue box at the run's best cut cell (step
// 2). Indexing convention: cellsList[i] (0-indexed within the run)
// becomes the clue box, giving a left segment of length i and a right
// segment of length L-1-i; both must be >= 2 for a cut to be legal. This
// resolves spec.md §4.4's "i in [2, L-2]" / "L-i" notation, which treats
// the cut cell as free rather than consumed from the original L cells;
// since a concrete grid cell must become the clue box, one cell is
// necessarily consumed, hence the -1.
func partitionLongRuns(g *grid.Grid, maxLen int) {
	for _, dir := range []grid.Direction{grid.Across, grid.Down} {
		visited := make(map[grid.Coord]bool)
		for r := 0; r < g.H; r++ {
			for c := 0; c < g.W; c++ {
				if !playable(g.At(r, c).Type) {
					continue
				}
				start, length := g.MaximalRun(r, c, dir)
				if visited[start] {
					continue
				}
				visited[start] = true
				if length > maxLen {
					partitionRun(g, start, dir, length)
				}
			}
		}
	}
}

func runCellsInDirection(start grid.Coord, dir grid.Direction, length int) []grid.Coord {
	dr, dc := 0, 0
	if dir == grid.Across {
		dc = 1
	} else {
		dr = 1
	}
	cells := make([]grid.Coord, length)
	r, c := start.Row, start.Col
	for i := 0; i < length; i++ {
		cells[i] = grid.Coord{Row: r, Col: c}
		r, c = r+dr, c+dc
	}
	return cells
}

type cutCandidate struct {
	index   int
	penalty float64
}

// partitionRun plants a clue box at the least-penalized legal cut index,
// trying progressively worse candidates if a cut is blocked by I1. If no
// cut is legal the run is left long, matching spec.md's explicit escape
// hatch.
func partitionRun(g *grid.Grid, start grid.Coord, dir grid.Direction, length int) {
	cells := runCellsInDirection(start, dir, length)

	var candidates []cutCandidate
	for i := 2; i <= length-3; i++ {
		rightLen := length - 1 - i
		candidates = append(candidates, cutCandidate{index: i, penalty: cutPenalty(i, rightLen, length)})
	}
	if len(candidates) == 0 {
		return // too short to partition legally; left long
	}

	// Stable sort by ascending penalty, breaking ties toward the
	// smaller index for determinism.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && lessCandidate(candidates[j], candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	for _, cand := range candidates {
		co := cells[cand.index]
		if g.PlaceClueBox(co.Row, co.Col) == nil {
			return
		}
	}
}

func lessCandidate(a, b cutCandidate) bool {
	if a.penalty != b.penalty {
		return a.penalty < b.penalty
	}
	return a.index < b.index
}

const (
	cutAlpha = 1.0
	cutBeta  = 10.0
)

func cutPenalty(leftLen, rightLen, total int) float64 {
	penalty := cutAlpha * math.Abs(float64(leftLen)-float64(total)/2)
	if leftLen == 3 || rightLen == 3 {
		penalty += cutBeta
	}
	return penalty
}

// ensureTopLeftClueBox plants I2's mandatory clue box at (0,0) itself
// (step 0), unless a blocker already overlaps it -- the one exemption
// I2 names. Neither healOrphans (which only converts cells whose across
// and down runs are both length 1, which (0,0) never is on a grid wider
// or taller than one cell) nor ensureLicensing (which only plants a
// clue box at a *neighbor* of a run's first cell) ever touch (0,0)
// itself, so without this step I2 is never satisfied on a blockerless
// grid. Failure (a theme word letter already sitting at (0,0), or an
// I1 conflict with a clue box planted by the blocker/theme placer) is
// reported as ErrLayoutInfeasible so the orchestrator retries with a
// fresh attempt rather than treating it as a fatal invariant violation.
func ensureTopLeftClueBox(g *grid.Grid) error {
	switch g.At(0, 0).Type {
	case grid.BlockerZone, grid.ClueBox:
		return nil
	}
	if err := g.PlaceClueBox(0, 0); err != nil {
		return fmt.Errorf("%w: top-left cell cannot be planted as clue box: %v", ErrLayoutInfeasible, err)
	}
	return nil
}

// ensureLicensing walks every run of length >= 2 and plants a clue box
// at a direction-legal neighbor of its first cell if none is already
// present (step 3, I4/I5). Returns ErrLayoutInfeasible if a run has no
// legal planting position left.
func ensureLicensing(g *grid.Grid) error {
	for r := 0; r < g.H; r++ {
		for c := 0; c < g.W; c++ {
			if !playable(g.At(r, c).Type) {
				continue
			}
			if c == 0 || !playable(g.At(r, c-1).Type) {
				if err := ensureRunLicensed(g, r, c, grid.Across); err != nil {
					return err
				}
			}
			if r == 0 || !playable(g.At(r-1, c).Type) {
				if err := ensureRunLicensed(g, r, c, grid.Down); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func ensureRunLicensed(g *grid.Grid, r, c int, dir grid.Direction) error {
	_, length := g.MaximalRun(r, c, dir)
	if length < 2 {
		return nil
	}
	offsets := grid.LicenseOffsets(dir)
	for _, off := range offsets {
		nr, nc := r+off[0], c+off[1]
		if g.InBounds(nr, nc) && g.At(nr, nc).Type == grid.ClueBox {
			return nil // already licensed
		}
	}
	for _, off := range offsets {
		nr, nc := r+off[0], c+off[1]
		if !g.InBounds(nr, nc) || g.At(nr, nc).Type != grid.EmptyPlayable {
			continue
		}
		if g.PlaceClueBox(nr, nc) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: run at (%d,%d) direction %s has no legal licensing position", ErrLayoutInfeasible, r, c, dir)
}

// verifyFeasibility registers the final slot set and rejects the layout
// if any slot of length >= 3 has zero dictionary candidates for its
// current (possibly theme-constrained) pattern (step 4, I6 readiness).
// Length-2 slots are exempt: they are free variables, not dictionary
// words.
func verifyFeasibility(g *grid.Grid, idx *dictionary.Index, tier dictionary.Tier) error {
	for _, s := range g.Slots {
		if s.Length < 3 {
			continue
		}
		pattern := dictionary.Pattern{Constraints: dictionary.ConstraintsFromPattern(g.Pattern(s))}
		if len(idx.Candidates(s.Length, pattern, tier)) == 0 {
			return fmt.Errorf("%w: slot %d (%s, start (%d,%d), len %d) has no dictionary candidates",
				ErrLayoutInfeasible, s.ID, s.Direction, s.Start.Row, s.Start.Col, s.Length)
		}
	}
	return nil
}
