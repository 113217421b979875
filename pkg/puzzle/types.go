package puzzle

import (
	"context"
	"time"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
	"github.com/crosswordsmith/rebusgen/pkg/theme"
)

// Config is the orchestrator's input, GeneratorConfig per spec.md §6.
type Config struct {
	Height           int
	Width            int
	Tier             dictionary.Tier
	Language         string // passthrough tag, not interpreted by the core
	Seed             int64
	CompletionTarget float64 // accepted in [0,1]; GeneratePuzzle does not read it, so no attempt stops early
	Blocker          theme.BlockerRequest
	MaxAttempts      int
	SolverTimeout    time.Duration
	SolverWorkers    int
	AllowPhase2      bool
	WordsOnlyMode    bool // disables theme's 2-word minimum-coverage floor

	Title  string
	Author string
	Theme  string
}

// ThemeSource resolves the ordered list of theme entries to attempt for
// one generation run; may return the empty slice.
type ThemeSource func() []theme.Entry

// ClueEmitter receives a sealed grid's slots and returns clue text,
// keyed the way pkg/clues.Generator keys it ("<id>-<direction>"). The
// core blindly attaches whatever comes back without inspection.
type ClueEmitter interface {
	GenerateClues(ctx context.Context, g *grid.Grid, slots []*grid.Slot) (map[string]string, error)
}

// SlotSource identifies how a slot's word was obtained.
type SlotSource string

const (
	SourceUser   SlotSource = "user"
	SourceDummy  SlotSource = "dummy"
	SourceGemini SlotSource = "gemini"
	SourceFill   SlotSource = "fill"
)

// SlotResult is one row of the output slot table.
type SlotResult struct {
	ID        int
	Start     grid.Coord
	Direction grid.Direction
	Length    int
	Word      string
	Source    SlotSource
	Clue      string
}

// ThemeCoverage reports how many of the requested theme words actually
// made it onto the grid.
type ThemeCoverage struct {
	Requested int
	Placed    int
	Words     []string
}

// DifficultyHistogram buckets fill slots of length >= 3 by tier center
// proximity. Theme slots are excluded from the three counters and
// reported separately, per spec.md §6.
type DifficultyHistogram struct {
	Easy, Medium, Hard int
	ThemeSlots         int
}

// ValidationSummary enumerates the invariants checked during seal.
type ValidationSummary struct {
	Checked []string
	Passed  bool
}

// Metadata carries the puzzle's non-structural bookkeeping fields.
type Metadata struct {
	ID        string
	Title     string
	Author    string
	Tier      dictionary.Tier
	Theme     string
	Seed      int64
	CreatedAt time.Time
}

// Result is the orchestrator's sealed output: the structured result
// record described in spec.md §6.
type Result struct {
	Grid       *grid.Grid
	Slots      []SlotResult
	Theme      ThemeCoverage
	Histogram  DifficultyHistogram
	Validation ValidationSummary
	Metadata   Metadata
}
