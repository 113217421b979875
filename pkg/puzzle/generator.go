// Package puzzle implements the generation orchestrator (C6): it drives
// the retry loop described in spec.md §4.6, wiring the blocker/theme
// placer, the layout builder and the CP fill solver together against a
// fresh grid and a fresh per-attempt RNG, and seals the result of the
// first successful attempt.
package puzzle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/fill"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
	"github.com/crosswordsmith/rebusgen/pkg/layout"
	"github.com/crosswordsmith/rebusgen/pkg/theme"
)

// ErrorKind distinguishes the failure kinds of spec.md §7's table.
type ErrorKind string

const (
	KindInvalidConfig        ErrorKind = "INVALID_CONFIG"
	KindBlockerOutOfBounds   ErrorKind = "BLOCKER_OUT_OF_BOUNDS"
	KindThemePlacementFailed ErrorKind = "THEME_PLACEMENT_FAILED"
	KindLayoutInfeasible     ErrorKind = "LAYOUT_INFEASIBLE"
	KindFillUnsat            ErrorKind = "FILL_UNSAT"
	KindFillTimeout          ErrorKind = "FILL_TIMEOUT"
	KindInvariantViolation   ErrorKind = "INVARIANT_VIOLATION"
	KindGenerationFailed     ErrorKind = "GENERATION_FAILED"
)

// retryable reports whether a failure kind causes the orchestrator to
// continue to the next attempt, per the "Recovered?" column of spec.md §7.
func (k ErrorKind) retryable() bool {
	switch k {
	case KindThemePlacementFailed, KindLayoutInfeasible, KindFillUnsat, KindFillTimeout:
		return true
	default:
		return false
	}
}

// easyDifficultyFloor is the strict difficulty_score ceiling an EASY-tier
// phase-1 fill slot of length >= 3 must stay under (property P9).
const easyDifficultyFloor = 0.30

// _EASY_PHASE1_RETRIES is the number of leading attempts an EASY-tier run
// spends in strict phase 1 before escalating to relaxed phase 2, per
// spec.md §4.6.
const _EASY_PHASE1_RETRIES = 3

var errInvalidConfig = errors.New("puzzle: invalid generator config")

// AttemptRecord is one entry of the attempt trace returned alongside a
// terminal GenerationError.
type AttemptRecord struct {
	Attempt int
	Kind    ErrorKind
}

// GenerationError is the terminal error surfaced by GeneratePuzzle: the
// failure kind of the last attempt, plus the full per-attempt trace.
type GenerationError struct {
	Kind    ErrorKind
	Attempt int
	Err     error
	Trace   []AttemptRecord
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("puzzle: generation failed at attempt %d (%s): %v", e.Attempt, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator wires a dictionary index and an optional clue emitter into
// the retry loop. A nil ClueEmitter is valid: GeneratePuzzle then seals
// slots with empty clue text and the caller is expected to attach clues
// separately.
type Generator struct {
	idx     *dictionary.Index
	emitter ClueEmitter
}

// NewGenerator creates an orchestrator bound to idx. emitter may be nil.
func NewGenerator(idx *dictionary.Index, emitter ClueEmitter) *Generator {
	return &Generator{idx: idx, emitter: emitter}
}

func validateConfig(cfg Config) error {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return fmt.Errorf("%w: height and width must be positive", errInvalidConfig)
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive", errInvalidConfig)
	}
	if cfg.SolverWorkers <= 0 {
		return fmt.Errorf("%w: solver_workers must be positive", errInvalidConfig)
	}
	if cfg.CompletionTarget < 0 || cfg.CompletionTarget > 1 {
		return fmt.Errorf("%w: completion_target must be in [0,1]", errInvalidConfig)
	}
	return nil
}

// derive produces the per-attempt RNG from the run seed and the attempt
// index, so that equal (seed, attempt) always reproduces identical
// output regardless of how many attempts preceded it (property P8).
func derive(seed int64, attempt int) *rand.Rand {
	return rand.New(rand.NewSource(seed*1_000_003 + int64(attempt)))
}

// GeneratePuzzle runs the retry loop of spec.md §4.6 and returns the
// sealed result of the first successful attempt.
func (gen *Generator) GeneratePuzzle(ctx context.Context, cfg Config, themeSource ThemeSource) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, &GenerationError{Kind: KindInvalidConfig, Attempt: 0, Err: err}
	}

	var themeEntries []theme.Entry
	if themeSource != nil {
		themeEntries = themeSource()
	}

	var trace []AttemptRecord
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, &GenerationError{Kind: KindGenerationFailed, Attempt: attempt, Err: ctx.Err(), Trace: trace}
		default:
		}

		g := grid.New(cfg.Height, cfg.Width)
		rng := derive(cfg.Seed, attempt)

		if cfg.Blocker.Enabled {
			if _, err := theme.PlaceBlocker(g, cfg.Blocker, rng); err != nil {
				// A blocker that swallows both I2 anchor cells is a
				// request the config can never satisfy, regardless of
				// attempt or seed: it is the caller's config that is
				// invalid, not an in-bounds-but-unlucky placement.
				kind := KindBlockerOutOfBounds
				if errors.Is(err, grid.ErrBlockerCoversBothAnchors) {
					kind = KindInvalidConfig
				}
				return nil, &GenerationError{Kind: kind, Attempt: attempt, Err: err, Trace: trace}
			}
		}

		placed, err := theme.Place(g, themeEntries, cfg.WordsOnlyMode, rng, gen.idx)
		if err != nil {
			trace = append(trace, AttemptRecord{Attempt: attempt, Kind: KindThemePlacementFailed})
			continue
		}

		if err := layout.Build(g, gen.idx, cfg.Tier, layout.DefaultConfig()); err != nil {
			if errors.Is(err, layout.ErrLayoutInfeasible) {
				trace = append(trace, AttemptRecord{Attempt: attempt, Kind: KindLayoutInfeasible})
				continue
			}
			return nil, &GenerationError{Kind: KindInvariantViolation, Attempt: attempt, Err: err, Trace: trace}
		}

		phase := 2
		if cfg.Tier == dictionary.Easy && attempt <= _EASY_PHASE1_RETRIES {
			phase = 1
		}
		if phase == 2 && cfg.Tier == dictionary.Easy && !cfg.AllowPhase2 {
			// Exhausted the strict budget and the caller disallows
			// relaxation: this attempt cannot succeed, but a later
			// attempt is still worth trying against a fresh layout.
			trace = append(trace, AttemptRecord{Attempt: attempt, Kind: KindFillUnsat})
			continue
		}

		fillResult, err := fill.Solve(ctx, g, gen.idx, fill.Config{
			Tier:            cfg.Tier,
			Timeout:         cfg.SolverTimeout,
			Workers:         cfg.SolverWorkers,
			Phase:           phase,
			MaxDifficulty:   easyDifficultyFloor,
			MediumSlotLimit: mediumSlotLimit(len(g.Slots)),
		})
		if err != nil {
			if errors.Is(err, fill.ErrTimeout) {
				trace = append(trace, AttemptRecord{Attempt: attempt, Kind: KindFillTimeout})
			} else {
				trace = append(trace, AttemptRecord{Attempt: attempt, Kind: KindFillUnsat})
			}
			continue
		}

		if err := applyFill(g, fillResult); err != nil {
			return nil, &GenerationError{Kind: KindInvariantViolation, Attempt: attempt, Err: err, Trace: trace}
		}

		result, err := gen.seal(ctx, g, placed, fillResult, cfg)
		if err != nil {
			return nil, &GenerationError{Kind: KindInvariantViolation, Attempt: attempt, Err: err, Trace: trace}
		}
		// seal only sees the placed words; count every entry supplied.
		result.Theme.Requested = len(themeEntries)
		return result, nil
	}

	last := KindGenerationFailed
	if len(trace) > 0 {
		last = trace[len(trace)-1].Kind
	}
	return nil, &GenerationError{
		Kind:    KindGenerationFailed,
		Attempt: cfg.MaxAttempts,
		Err:     fmt.Errorf("exhausted %d attempts, last failure %s", cfg.MaxAttempts, last),
		Trace:   trace,
	}
}

// mediumSlotLimit bounds how many slots an EASY phase-2 attempt may
// relax past the difficulty floor before the attempt is rejected,
// max(2, floor(slots/10)) per spec.md property P10.
func mediumSlotLimit(slotCount int) int {
	limit := slotCount / 10
	if limit < 2 {
		limit = 2
	}
	return limit
}

func applyFill(g *grid.Grid, result *fill.Result) error {
	for _, s := range g.Slots {
		word, ok := result.Words[s.ID]
		if !ok {
			continue
		}
		for i, co := range s.Cells {
			if err := g.PlaceLetter(co.Row, co.Col, rune(word[i])); err != nil {
				return fmt.Errorf("applying fill result to slot %d: %w", s.ID, err)
			}
		}
	}
	return nil
}
