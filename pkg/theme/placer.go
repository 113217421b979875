package theme

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// ErrThemePlacementFailed is returned when the minimum theme-word
// coverage (2 words, or Place's target count when that is lower; words-only
// mode disables the floor) cannot
// be met after exhausting every candidate position for every entry.
var ErrThemePlacementFailed = errors.New("theme: could not place the minimum required theme words")

// Entry is a pre-normalized theme word supplied by an external source.
type Entry struct {
	Word   string
	Clue   string
	Source string // "user" skips crossing-feasibility checks; any other tag does not
}

// Placed records where and how a theme entry was planted.
type Placed struct {
	Entry     Entry
	Start     grid.Coord
	Direction grid.Direction
}

// Place attempts to plant theme words from entries onto g, in list order,
// up to a target count derived from the grid's expected slot count.
// wordsOnlyMode disables the 2-word minimum-coverage floor; the floor is
// never higher than the target count, so an empty entry list succeeds.
//
// Tie-break resolution (Open Question a): candidate positions are scored
// first by the number of potential crossings with cells already written
// by a prior theme word (higher is better), then by Manhattan distance
// to the nearest such cell (lower is better, since closer placements are
// more likely to interlock later); any remaining ties are broken by the
// seeded RNG via a pre-shuffle of the candidate list, so the ordering is
// reproducible for a given seed but not hand-picked.
// idx is consulted to reject candidate positions that would leave a
// crossing slot dictionary-infeasible, for every entry except those
// tagged source="user" (who take responsibility for their own
// feasibility; a nil idx skips the check for everyone).
func Place(g *grid.Grid, entries []Entry, wordsOnlyMode bool, rng *rand.Rand, idx *dictionary.Index) ([]Placed, error) {
	target := int(math.Floor(0.4 * float64(expectedSlotCount(g))))
	if target > len(entries) {
		target = len(entries)
	}
	minRequired := 2
	if wordsOnlyMode {
		minRequired = 0
	}
	if minRequired > target {
		minRequired = target
	}

	var placed []Placed
	for _, e := range entries {
		if len(placed) >= target {
			break
		}
		p, ok := placeOne(g, e, rng, idx)
		if ok {
			placed = append(placed, p)
		}
	}
	if len(placed) < minRequired {
		return nil, ErrThemePlacementFailed
	}
	return placed, nil
}

// expectedSlotCount approximates how many slots a finished layout of this
// size will have, used only to size the theme-word target; real slot
// registration happens later in the layout builder.
func expectedSlotCount(g *grid.Grid) int {
	return (g.H * g.W) / 4
}

type candidatePos struct {
	start     grid.Coord
	direction grid.Direction
	crossings int
	distance  int
}

func placeOne(g *grid.Grid, e Entry, rng *rand.Rand, idx *dictionary.Index) (Placed, bool) {
	candidates := enumerateCandidates(g, e.Word)
	if len(candidates) == 0 {
		return Placed{}, false
	}

	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].crossings != candidates[j].crossings {
			return candidates[i].crossings > candidates[j].crossings
		}
		return candidates[i].distance < candidates[j].distance
	})

	skipFeasibility := e.Source == "user" || idx == nil
	for _, cand := range candidates {
		token := g.Snapshot()
		if err := writeWord(g, cand.start, cand.direction, e.Word); err != nil {
			g.Rollback(token)
			continue
		}
		if err := plantBoundaries(g, cand.start, cand.direction, len(e.Word)); err != nil {
			g.Rollback(token)
			continue
		}
		if !skipFeasibility && !crossingsFeasible(g, cand.start, cand.direction, len(e.Word), idx) {
			g.Rollback(token)
			continue
		}
		return Placed{Entry: e, Start: cand.start, Direction: cand.direction}, true
	}
	return Placed{}, false
}

// crossingsFeasible checks that every run crossing the just-planted word,
// if already length >= 3, still has at least one dictionary candidate.
func crossingsFeasible(g *grid.Grid, start grid.Coord, dir grid.Direction, length int, idx *dictionary.Index) bool {
	dr, dc := 0, 0
	if dir == grid.Across {
		dc = 1
	} else {
		dr = 1
	}
	cross := grid.Down
	if dir == grid.Down {
		cross = grid.Across
	}
	r, c := start.Row, start.Col
	for i := 0; i < length; i++ {
		crossStart, runLen := g.MaximalRun(r, c, cross)
		if runLen >= 3 {
			pattern := runPattern(g, crossStart, cross, runLen)
			if len(idx.Candidates(runLen, dictionary.Pattern{Constraints: dictionary.ConstraintsFromPattern(pattern)}, dictionary.Medium)) == 0 {
				return false
			}
		}
		r, c = r+dr, c+dc
	}
	return true
}

func runPattern(g *grid.Grid, start grid.Coord, dir grid.Direction, length int) string {
	dr, dc := 0, 0
	if dir == grid.Across {
		dc = 1
	} else {
		dr = 1
	}
	buf := make([]byte, length)
	r, c := start.Row, start.Col
	for i := 0; i < length; i++ {
		cell := g.At(r, c)
		if cell.Type == grid.Letter {
			buf[i] = byte(cell.Ch)
		} else {
			buf[i] = '.'
		}
		r, c = r+dr, c+dc
	}
	return string(buf)
}


func enumerateCandidates(g *grid.Grid, word string) []candidatePos {
	n := len(word)
	var out []candidatePos
	for _, dir := range []grid.Direction{grid.Across, grid.Down} {
		dr, dc := 0, 0
		if dir == grid.Across {
			dc = 1
		} else {
			dr = 1
		}
		for r := 0; r < g.H; r++ {
			for c := 0; c < g.W; c++ {
				er, ec := r+dr*(n-1), c+dc*(n-1)
				if !g.InBounds(er, ec) {
					continue
				}
				if ok, crossings := fits(g, r, c, dr, dc, word); ok {
					out = append(out, candidatePos{
						start:     grid.Coord{Row: r, Col: c},
						direction: dir,
						crossings: crossings,
						distance:  nearestLetterDistance(g, r, c),
					})
				}
			}
		}
	}
	return out
}

func fits(g *grid.Grid, r, c, dr, dc int, word string) (bool, int) {
	crossings := 0
	rr, cc := r, c
	for i := 0; i < len(word); i++ {
		cell := g.At(rr, cc)
		switch cell.Type {
		case grid.EmptyPlayable:
			// ok, nothing to cross
		case grid.Letter:
			if cell.Ch != rune(word[i]) {
				return false, 0
			}
			crossings++
		default:
			return false, 0
		}
		rr, cc = rr+dr, cc+dc
	}
	return true, crossings
}

func nearestLetterDistance(g *grid.Grid, r, c int) int {
	best := g.H + g.W
	for rr := 0; rr < g.H; rr++ {
		for cc := 0; cc < g.W; cc++ {
			if g.At(rr, cc).Type != grid.Letter {
				continue
			}
			d := abs(rr-r) + abs(cc-c)
			if d < best {
				best = d
			}
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func writeWord(g *grid.Grid, start grid.Coord, dir grid.Direction, word string) error {
	dr, dc := 0, 0
	if dir == grid.Across {
		dc = 1
	} else {
		dr = 1
	}
	r, c := start.Row, start.Col
	for i := 0; i < len(word); i++ {
		if err := g.PlaceLetter(r, c, rune(word[i])); err != nil {
			return err
		}
		r, c = r+dr, c+dc
	}
	return nil
}

// plantBoundaries plants the leading licensing clue box (I4) and, if the
// cell right after the word is still empty_playable, a trailing clue box
// so the word's slot cannot later grow past its planted length.
func plantBoundaries(g *grid.Grid, start grid.Coord, dir grid.Direction, length int) error {
	dr, dc := 0, 0
	if dir == grid.Across {
		dc = 1
	} else {
		dr = 1
	}

	lr, lc := start.Row-dr, start.Col-dc
	if g.InBounds(lr, lc) {
		if err := plantLeadingClue(g, start, dir); err != nil {
			return err
		}
	}

	er, ec := start.Row+dr*length, start.Col+dc*length
	if g.InBounds(er, ec) && g.At(er, ec).Type == grid.EmptyPlayable {
		_ = g.PlaceClueBox(er, ec) // best effort: if I1 blocks it, the layout builder heals this later
	}
	return nil
}

// plantLeadingClue tries the directly preceding cell first, then the
// other direction-legal neighbors of the licensing rule, in the order
// spec.md lists them.
func plantLeadingClue(g *grid.Grid, start grid.Coord, dir grid.Direction) error {
	var offsets [][2]int
	if dir == grid.Across {
		offsets = [][2]int{{0, -1}, {-1, 0}, {1, 0}}
	} else {
		offsets = [][2]int{{-1, 0}, {0, -1}, {0, 1}}
	}
	for _, off := range offsets {
		r, c := start.Row+off[0], start.Col+off[1]
		if !g.InBounds(r, c) {
			continue
		}
		if g.At(r, c).Type == grid.ClueBox {
			return nil // already licensed
		}
		if err := g.PlaceClueBox(r, c); err == nil {
			return nil
		}
	}
	return errors.New("theme: no legal licensing position for placed word")
}
