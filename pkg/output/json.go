package output

import (
	"encoding/json"
	"time"

	"github.com/crosswordsmith/rebusgen/internal/models"
)

// ClueJSON represents a clue in the JSON format
type ClueJSON struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Length int    `json:"length"`
}

// PuzzleJSON represents a puzzle in the JSON format for export
type PuzzleJSON struct {
	// Metadata
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	// Grid
	Grid [][]string `json:"grid"` // 2D array with letters or '.' for black cells

	// Clues
	Across []ClueJSON `json:"across"`
	Down   []ClueJSON `json:"down"`
}

// FormatJSON converts a models.Puzzle to PuzzleJSON struct
func FormatJSON(puzzle *models.Puzzle) *PuzzleJSON {
	// Convert grid to 2D array with letters or '.' for black cells
	grid := make([][]string, puzzle.GridHeight)
	for y := 0; y < puzzle.GridHeight; y++ {
		grid[y] = make([]string, puzzle.GridWidth)
		for x := 0; x < puzzle.GridWidth; x++ {
			cell := puzzle.Grid[y][x]
			if cell.Letter == nil {
				// Black cell
				grid[y][x] = "."
			} else {
				// Letter cell
				grid[y][x] = *cell.Letter
			}
		}
	}

	// Convert across clues
	across := make([]ClueJSON, len(puzzle.CluesAcross))
	for i, clue := range puzzle.CluesAcross {
		across[i] = ClueJSON{
			Number: clue.Number,
			Text:   clue.Text,
			Answer: clue.Answer,
			Length: clue.Length,
		}
	}

	// Convert down clues
	down := make([]ClueJSON, len(puzzle.CluesDown))
	for i, clue := range puzzle.CluesDown {
		down[i] = ClueJSON{
			Number: clue.Number,
			Text:   clue.Text,
			Answer: clue.Answer,
			Length: clue.Length,
		}
	}

	return &PuzzleJSON{
		ID:          puzzle.ID,
		Title:       puzzle.Title,
		Author:      puzzle.Author,
		Difficulty:  string(puzzle.Difficulty),
		CreatedAt:   puzzle.CreatedAt,
		PublishedAt: puzzle.PublishedAt,
		Grid:        grid,
		Across:      across,
		Down:        down,
	}
}

// MarshalJSON serializes a PuzzleJSON to JSON bytes
func (p *PuzzleJSON) MarshalJSON() ([]byte, error) {
	type Alias PuzzleJSON
	return json.Marshal((*Alias)(p))
}

// ToJSON converts a models.Puzzle to JSON bytes
func ToJSON(puzzle *models.Puzzle) ([]byte, error) {
	puzzleJSON := FormatJSON(puzzle)
	return json.MarshalIndent(puzzleJSON, "", "  ")
}

// FromJSON parses the JSON format produced by ToJSON back into a
// models.Puzzle. Clue lengths come from the JSON; the format carries no
// clue positions or cell numbers, so PositionX/PositionY stay zero and
// grid cells have no Number.
func FromJSON(data []byte) (*models.Puzzle, error) {
	var pj PuzzleJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, err
	}

	height := len(pj.Grid)
	width := 0
	if height > 0 {
		width = len(pj.Grid[0])
	}

	grid := make([][]models.GridCell, height)
	for y := 0; y < height; y++ {
		grid[y] = make([]models.GridCell, width)
		for x := 0; x < width && x < len(pj.Grid[y]); x++ {
			letter := pj.Grid[y][x]
			if letter == "." {
				grid[y][x] = models.GridCell{}
				continue
			}
			l := letter
			grid[y][x] = models.GridCell{Letter: &l}
		}
	}

	across := make([]models.Clue, len(pj.Across))
	for i, c := range pj.Across {
		across[i] = models.Clue{Number: c.Number, Text: c.Text, Answer: c.Answer, Length: c.Length, Direction: "across"}
	}
	down := make([]models.Clue, len(pj.Down))
	for i, c := range pj.Down {
		down[i] = models.Clue{Number: c.Number, Text: c.Text, Answer: c.Answer, Length: c.Length, Direction: "down"}
	}

	return &models.Puzzle{
		ID:          pj.ID,
		Title:       pj.Title,
		Author:      pj.Author,
		Difficulty:  models.Difficulty(pj.Difficulty),
		GridWidth:   width,
		GridHeight:  height,
		Grid:        grid,
		CluesAcross: across,
		CluesDown:   down,
		CreatedAt:   pj.CreatedAt,
		PublishedAt: pj.PublishedAt,
		Status:      "draft",
	}, nil
}
