// Package fill implements the constraint-satisfaction fill solver: given a
// frozen grid and its registered slots, it assigns a dictionary word to
// every slot so that crossings agree, no string repeats, and a difficulty
// floor is respected. The search is AC-3 arc consistency plus a
// minimum-remaining-values backtracking search with forward checking,
// grounded in the same shape the teacher repo uses for its own grid
// filler, extended with a deterministic parallel worker split over the
// root variable's domain.
package fill

import (
	"errors"
	"time"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
)

var (
	// ErrUnsat is returned when the search space is exhausted with no
	// satisfying assignment.
	ErrUnsat = errors.New("fill: no satisfying assignment found")
	// ErrTimeout is returned when the wall-clock deadline elapses before
	// the search concludes.
	ErrTimeout = errors.New("fill: solver deadline exceeded")
)

// Config controls the solve.
type Config struct {
	Tier             dictionary.Tier
	Timeout          time.Duration
	Workers          int
	Phase            int     // 1 (strict) or 2 (relaxed); only meaningful for EASY
	MaxDifficulty    float64 // strict upper bound used by phase 1
	MediumSlotLimit  int     // how many slots may fall back to unfiltered candidates in phase 2
}

// Result is a satisfying assignment: slot id -> chosen word, plus which
// slots fell back to the unfiltered candidate list (phase 2 only).
type Result struct {
	Words      map[int]string
	Relaxed    map[int]bool
}
