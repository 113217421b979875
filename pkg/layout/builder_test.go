package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

func fixtureIndex(t *testing.T, rows string) *dictionary.Index {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "words.tsv")
	header := "surface\tlength\tfrequency\tis_compound\tis_stopword\tdifficulty_score\tis_adult\n"
	if err := os.WriteFile(path, []byte(header+rows), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	idx, err := dictionary.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return idx
}

func TestHealOrphansConvertsIsolatedCell(t *testing.T) {
	// A lone cell with both edges on every side is isolated in both
	// directions and has no existing clue-box neighbor to conflict with.
	g := grid.New(1, 1)
	healOrphans(g)
	if g.At(0, 0).Type != grid.ClueBox {
		t.Fatalf("expected (0,0) healed to clue_box, got %s", g.At(0, 0).Type)
	}
}

func TestHealOrphansLeavesBlockedOrphanAlone(t *testing.T) {
	// (2,2) is isolated by clue boxes on every side (kept clear of the
	// grid's I3 bottom-right 2x2 zone): healing is blocked by I1, so it
	// is left empty_playable rather than forced.
	g := grid.New(5, 5)
	for _, co := range []grid.Coord{{1, 2}, {2, 1}, {2, 3}, {3, 2}} {
		if err := g.PlaceClueBox(co.Row, co.Col); err != nil {
			t.Fatalf("PlaceClueBox(%d,%d): %v", co.Row, co.Col, err)
		}
	}
	healOrphans(g)
	if g.At(2, 2).Type != grid.EmptyPlayable {
		t.Fatalf("expected (2,2) left empty_playable, got %s", g.At(2, 2).Type)
	}
}

func TestPartitionLongRunsSplitsOverLongRun(t *testing.T) {
	g := grid.New(1, 12)
	partitionLongRuns(g, 10)
	start, length := g.MaximalRun(0, 0, grid.Across)
	if length >= 12 {
		t.Fatalf("expected run to be split below original length 12, got start=%v length=%d", start, length)
	}
	foundClue := false
	for c := 2; c <= 9; c++ {
		if g.At(0, c).Type == grid.ClueBox {
			foundClue = true
		}
	}
	if !foundClue {
		t.Fatalf("expected a clue box planted somewhere in the legal cut range")
	}
}

func TestPartitionLongRunsLeavesShortRunAlone(t *testing.T) {
	g := grid.New(1, 8)
	partitionLongRuns(g, 10)
	_, length := g.MaximalRun(0, 0, grid.Across)
	if length != 8 {
		t.Fatalf("expected untouched run of length 8, got %d", length)
	}
}

func TestEnsureLicensingPlantsMissingClue(t *testing.T) {
	// A blank 3x4 grid: licensing row 0's across run plants a clue box at
	// (1,0), below its start, which also cuts row 1 so that its remaining
	// run (1,1)-(1,3) is licensed by that box on its left.
	g := grid.New(3, 4)
	if err := ensureLicensing(g); err != nil {
		t.Fatalf("ensureLicensing: %v", err)
	}
	start, length := g.MaximalRun(1, 1, grid.Across)
	if length < 2 {
		t.Fatalf("expected row 1 to retain a licensable run, got length %d", length)
	}
	licensed := false
	for _, off := range grid.LicenseOffsets(grid.Across) {
		r, c := start.Row+off[0], start.Col+off[1]
		if g.InBounds(r, c) && g.At(r, c).Type == grid.ClueBox {
			licensed = true
		}
	}
	if !licensed {
		t.Fatalf("expected row 1's run to end up licensed")
	}
}

func TestEnsureTopLeftClueBoxPlantsOnBlankGrid(t *testing.T) {
	g := grid.New(5, 5)
	if err := ensureTopLeftClueBox(g); err != nil {
		t.Fatalf("ensureTopLeftClueBox: %v", err)
	}
	if g.At(0, 0).Type != grid.ClueBox {
		t.Fatalf("expected (0,0) planted as clue_box, got %s", g.At(0, 0).Type)
	}
}

func TestEnsureTopLeftClueBoxSkipsBlockerZone(t *testing.T) {
	g := grid.New(5, 5)
	if err := g.SetBlocker(grid.Rect{R: 0, C: 0, H: 2, W: 2}); err != nil {
		t.Fatalf("SetBlocker: %v", err)
	}
	if err := ensureTopLeftClueBox(g); err != nil {
		t.Fatalf("ensureTopLeftClueBox: %v", err)
	}
	if g.At(0, 0).Type != grid.BlockerZone {
		t.Fatalf("expected (0,0) left as blocker_zone, got %s", g.At(0, 0).Type)
	}
}

func TestBuildPlantsTopLeftClueBoxOnBlankGrid(t *testing.T) {
	// No pre-placement at all: a truly blank, blocker-less grid must
	// come out of Build with (0,0) converted to a clue box, regardless
	// of whether the rest of the layout turns out feasible.
	idx := fixtureIndex(t, "ABC\t3\t0.9\t0\t0\t0.1\t0\nABCD\t4\t0.9\t0\t0\t0.1\t0\nABCDE\t5\t0.9\t0\t0\t0.1\t0\n")
	g := grid.New(5, 5)
	err := Build(g, idx, dictionary.Medium, DefaultConfig())
	if err != nil && !errors.Is(err, ErrLayoutInfeasible) {
		t.Fatalf("Build: unexpected error %v", err)
	}
	if g.At(0, 0).Type != grid.ClueBox {
		t.Fatalf("expected (0,0) to be clue_box after Build, got %s", g.At(0, 0).Type)
	}
}

func TestPlaceClueBoxRejectsBottomRightZone(t *testing.T) {
	g := grid.New(5, 5)
	for _, co := range []grid.Coord{{3, 3}, {3, 4}, {4, 3}, {4, 4}} {
		if err := g.PlaceClueBox(co.Row, co.Col); !errors.Is(err, grid.ErrBottomRightZone) {
			t.Errorf("PlaceClueBox(%d,%d) = %v, want ErrBottomRightZone", co.Row, co.Col, err)
		}
	}
}

func TestBuildRejectsInfeasibleLayout(t *testing.T) {
	// The classic minimal 3x3 barred layout (see pkg/grid's own
	// validate_test.go) has a length-3 across run and a length-3 down
	// run; with no 3-letter dictionary entry, feasibility must fail.
	idx := fixtureIndex(t, "CASA\t4\t0.9\t0\t0\t0.1\t0\n")
	g := grid.New(3, 3)
	for _, co := range []grid.Coord{{0, 0}, {0, 2}, {2, 0}} {
		_ = g.PlaceClueBox(co.Row, co.Col)
	}
	err := Build(g, idx, dictionary.Medium, DefaultConfig())
	if !errors.Is(err, ErrLayoutInfeasible) {
		t.Fatalf("expected ErrLayoutInfeasible, got %v", err)
	}
}

func TestBuildSucceedsWithFeasibleLayout(t *testing.T) {
	idx := fixtureIndex(t, "ABC\t3\t0.9\t0\t0\t0.1\t0\n")
	g := grid.New(3, 3)
	for _, co := range []grid.Coord{{0, 0}, {0, 2}, {2, 0}} {
		_ = g.PlaceClueBox(co.Row, co.Col)
	}
	if err := Build(g, idx, dictionary.Medium, DefaultConfig()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Slots) == 0 {
		t.Fatalf("expected slots registered")
	}
	if err := g.ValidateStructure(); err != nil {
		t.Fatalf("unexpected post-build structural failure: %v", err)
	}
}
