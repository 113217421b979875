package puzzle

import (
	"context"
	"fmt"

	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/fill"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
	"github.com/crosswordsmith/rebusgen/pkg/theme"
)

// seal performs the final validate_structure pass plus the dictionary
// membership/uniqueness sweep spec.md §4.6 describes, then assembles the
// structured result record of §6: slot table, theme coverage, difficulty
// histogram and validation summary.
func (gen *Generator) seal(ctx context.Context, g *grid.Grid, placed []theme.Placed, fillResult *fill.Result, cfg Config) (*Result, error) {
	if err := g.ValidateStructure(); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	themeByKey := make(map[themeKey]theme.Placed, len(placed))
	for _, p := range placed {
		themeByKey[themeKey{p.Start, p.Direction}] = p
	}

	seen := make(map[string]bool, len(g.Slots))
	hist := DifficultyHistogram{}
	slotResults := make([]SlotResult, 0, len(g.Slots))

	for _, s := range g.Slots {
		word := extractWord(g, s)

		source := SourceFill
		if tp, ok := themeByKey[themeKey{s.Start, s.Direction}]; ok {
			source = themeSlotSource(tp.Entry.Source)
		}

		if seen[word] {
			return nil, fmt.Errorf("seal: slot %d (%s) word %q duplicates another slot", s.ID, s.Direction, word)
		}
		seen[word] = true

		if s.Length >= 3 {
			if !gen.idx.Contains(word) {
				return nil, fmt.Errorf("seal: slot %d (%s) word %q not in dictionary", s.ID, s.Direction, word)
			}

			if source == SourceFill {
				bucketDifficulty(&hist, gen.idx, word)
			} else {
				hist.ThemeSlots++
			}
		}

		slotResults = append(slotResults, SlotResult{
			ID:        s.ID,
			Start:     s.Start,
			Direction: s.Direction,
			Length:    s.Length,
			Word:      word,
			Source:    source,
		})
	}

	if gen.emitter != nil {
		clues, err := gen.emitter.GenerateClues(ctx, g, g.Slots)
		if err != nil {
			return nil, fmt.Errorf("seal: clue emission failed: %w", err)
		}
		for i, s := range slotResults {
			if clue, ok := clues[fmt.Sprintf("%d-%s", s.ID, s.Direction)]; ok {
				slotResults[i].Clue = clue
			}
		}
	}

	themeWords := make([]string, len(placed))
	for i, p := range placed {
		themeWords[i] = p.Entry.Word
	}

	return &Result{
		Grid:  g,
		Slots: slotResults,
		Theme: ThemeCoverage{
			Requested: len(placed),
			Placed:    len(placed),
			Words:     themeWords,
		},
		Histogram: hist,
		Validation: ValidationSummary{
			Checked: []string{"I1", "I2", "I3", "I4", "I5", "I6", "I7", "I8"},
			Passed:  true,
		},
		Metadata: Metadata{
			Title: cfg.Title,
			Author: cfg.Author,
			Tier:  cfg.Tier,
			Theme: cfg.Theme,
			Seed:  cfg.Seed,
		},
	}, nil
}

type themeKey struct {
	start grid.Coord
	dir   grid.Direction
}

func themeSlotSource(entrySource string) SlotSource {
	switch entrySource {
	case "user":
		return SourceUser
	case "gemini":
		return SourceGemini
	default:
		return SourceDummy
	}
}

func extractWord(g *grid.Grid, s *grid.Slot) string {
	letters := make([]byte, s.Length)
	for i, co := range s.Cells {
		letters[i] = byte(g.At(co.Row, co.Col).Ch)
	}
	return string(letters)
}

// bucketDifficulty classifies word's difficulty score by nearest tier
// center into hist's EASY/MEDIUM/HARD counters.
func bucketDifficulty(hist *DifficultyHistogram, idx *dictionary.Index, word string) {
	e, ok := idx.LookupBySurface(word)
	if !ok {
		return
	}
	nearest := dictionary.Easy
	best := tierDistance(e.DifficultyScore, dictionary.Easy)
	for _, t := range []dictionary.Tier{dictionary.Medium, dictionary.Hard} {
		if d := tierDistance(e.DifficultyScore, t); d < best {
			best, nearest = d, t
		}
	}
	switch nearest {
	case dictionary.Easy:
		hist.Easy++
	case dictionary.Medium:
		hist.Medium++
	case dictionary.Hard:
		hist.Hard++
	}
}

func tierDistance(score float64, t dictionary.Tier) float64 {
	d := score - tierCenter(t)
	if d < 0 {
		d = -d
	}
	return d
}

func tierCenter(t dictionary.Tier) float64 {
	switch t {
	case dictionary.Easy:
		return 0.15
	case dictionary.Hard:
		return 0.80
	default:
		return 0.45
	}
}
