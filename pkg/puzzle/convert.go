package puzzle

import (
	"github.com/crosswordsmith/rebusgen/internal/models"
	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// ToModelsPuzzle renders a sealed Result into models.Puzzle, the shape
// the API layer and pkg/output serialize. Missing clues render as
// "Missing clue" rather than an empty string, matching the teacher's own
// placeholder convention.
func ToModelsPuzzle(id string, r *Result) *models.Puzzle {
	gridCells := make([][]models.GridCell, r.Grid.H)
	for row := 0; row < r.Grid.H; row++ {
		gridCells[row] = make([]models.GridCell, r.Grid.W)
		for col := 0; col < r.Grid.W; col++ {
			cell := r.Grid.At(row, col)
			var letter *string
			if cell.Type == grid.Letter {
				s := string(cell.Ch)
				letter = &s
			}
			gridCells[row][col] = models.GridCell{Letter: letter}
		}
	}
	for _, s := range r.Slots {
		if num := startNumber(r.Grid, s.Start); num > 0 {
			gridCells[s.Start.Row][s.Start.Col].Number = &num
		}
	}

	var across, down []models.Clue
	for _, s := range r.Slots {
		clueText := s.Clue
		if clueText == "" {
			clueText = "Missing clue"
		}
		num := startNumber(r.Grid, s.Start)
		clue := models.Clue{
			Number:    num,
			Text:      clueText,
			Answer:    s.Word,
			PositionX: s.Start.Col,
			PositionY: s.Start.Row,
			Length:    s.Length,
			Direction: s.Direction.String(),
		}
		if s.Direction == grid.Across {
			across = append(across, clue)
		} else {
			down = append(down, clue)
		}
	}

	var theme *string
	if r.Metadata.Theme != "" {
		theme = &r.Metadata.Theme
	}

	return &models.Puzzle{
		ID:          id,
		Title:       r.Metadata.Title,
		Author:      r.Metadata.Author,
		Difficulty:  tierToDifficulty(r.Metadata.Tier),
		GridWidth:   r.Grid.W,
		GridHeight:  r.Grid.H,
		Grid:        gridCells,
		CluesAcross: across,
		CluesDown:   down,
		Theme:       theme,
		CreatedAt:   r.Metadata.CreatedAt,
		Status:      "draft",
	}
}

// startNumber assigns a crossword clue number to co: 1 plus the count of
// distinct slot-start coordinates scanned before it in row-major order.
// Both across and down slots starting at the same cell share a number.
func startNumber(g *grid.Grid, co grid.Coord) int {
	n := 0
	seen := make(map[grid.Coord]bool)
	for _, s := range g.Slots {
		if seen[s.Start] {
			continue
		}
		seen[s.Start] = true
		if s.Start.Row < co.Row || (s.Start.Row == co.Row && s.Start.Col < co.Col) {
			n++
		}
	}
	return n + 1
}

func tierToDifficulty(t dictionary.Tier) models.Difficulty {
	switch t {
	case dictionary.Easy:
		return models.DifficultyEasy
	case dictionary.Hard:
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}
