package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crosswordsmith/rebusgen/internal/models"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
	"github.com/crosswordsmith/rebusgen/pkg/output"
	"github.com/spf13/cobra"
)

var (
	validateInput string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate crossword puzzle files",
	Long: `Validate one or more sealed puzzle files against the barred-grid
structural invariants (I1-I5, I8) and check clue completeness.

Examples:
  # Validate a single puzzle file
  rebusgen validate --input puzzle.json

  # Validate all puzzles in a directory
  rebusgen validate --input ./puzzles`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "input file or directory to validate (required)")
	validateCmd.MarkFlagRequired("input")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if verbosity > 0 {
		fmt.Printf("Validating: %s\n", validateInput)
	}

	info, err := os.Stat(validateInput)
	if err != nil {
		return fmt.Errorf("failed to access input path: %w", err)
	}

	var filesToValidate []string
	if info.IsDir() {
		files, err := filepath.Glob(filepath.Join(validateInput, "*.json"))
		if err != nil {
			return fmt.Errorf("failed to list directory: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no .json files found in directory: %s", validateInput)
		}
		filesToValidate = files
	} else {
		filesToValidate = []string{validateInput}
	}

	totalFiles := len(filesToValidate)
	invalidFiles := 0
	validFiles := 0

	for _, filePath := range filesToValidate {
		if verbosity > 0 {
			fmt.Printf("\nValidating: %s\n", filePath)
		}

		errs, err := validatePuzzleFile(filePath)
		if err != nil {
			fmt.Printf("X %s: ERROR - %v\n", filepath.Base(filePath), err)
			invalidFiles++
			continue
		}
		if len(errs) > 0 {
			fmt.Printf("X %s: INVALID\n", filepath.Base(filePath))
			for _, e := range errs {
				fmt.Printf("   - %s\n", e)
			}
			invalidFiles++
			continue
		}
		if verbosity > 0 {
			fmt.Printf("OK %s: VALID\n", filepath.Base(filePath))
		}
		validFiles++
	}

	fmt.Printf("\n")
	fmt.Printf("Validation Summary:\n")
	fmt.Printf("  Total files:   %d\n", totalFiles)
	fmt.Printf("  Valid:         %d\n", validFiles)
	fmt.Printf("  Invalid:       %d\n", invalidFiles)

	if invalidFiles > 0 {
		os.Exit(1)
	}

	return nil
}

// validatePuzzleFile validates one puzzle file, returning the list of
// problems found (empty means valid) or an error if the file could not
// be read or parsed at all.
func validatePuzzleFile(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var puzzle *models.Puzzle
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ipuz":
		puzzle, err = output.FromIPuz(data)
	default:
		puzzle, err = output.FromJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid puzzle format: %w", err)
	}

	if puzzle.GridHeight == 0 || puzzle.GridWidth == 0 {
		return []string{"empty grid"}, nil
	}

	g, err := puzzleToGrid(puzzle)
	if err != nil {
		return []string{err.Error()}, nil
	}

	var errs []string
	if err := g.ValidateStructure(); err != nil {
		errs = append(errs, err.Error())
	}

	errs = append(errs, validateClueCompleteness(g, puzzle.CluesAcross, puzzle.CluesDown)...)

	return errs, nil
}

// puzzleToGrid rebuilds a grid.Grid from a sealed puzzle's cells, using
// the real grid mutators so the I1/I2 adjacency and occupancy checks
// apply exactly as they do during generation.
func puzzleToGrid(puzzle *models.Puzzle) (*grid.Grid, error) {
	g := grid.New(puzzle.GridHeight, puzzle.GridWidth)

	for r := 0; r < puzzle.GridHeight; r++ {
		for c := 0; c < puzzle.GridWidth; c++ {
			cell := puzzle.Grid[r][c]
			if cell.Letter == nil {
				if err := g.PlaceClueBox(r, c); err != nil {
					return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
				}
				continue
			}
			letters := []rune(*cell.Letter)
			if len(letters) == 0 {
				if err := g.PlaceClueBox(r, c); err != nil {
					return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
				}
				continue
			}
			if err := g.PlaceLetter(r, c, letters[0]); err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
			}
		}
	}

	return g, nil
}

// validateClueCompleteness checks that every slot the grid licenses has
// a clue in its direction, and that every clue matches a slot's start and
// length. A slot with more than one clue is not reported.
func validateClueCompleteness(g *grid.Grid, across, down []models.Clue) []string {
	var errs []string

	slots := g.RegisterSlots()
	expected := map[string]int{} // "<row>,<col>,<direction>" -> length
	for _, s := range slots {
		key := fmt.Sprintf("%d,%d,%s", s.Start.Row, s.Start.Col, s.Direction)
		expected[key] = s.Length
	}

	seen := map[string]bool{}
	checkClues := func(clues []models.Clue, direction string) {
		for _, clue := range clues {
			key := fmt.Sprintf("%d,%d,%s", clue.PositionY, clue.PositionX, direction)
			seen[key] = true
			length, ok := expected[key]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s clue %d has no corresponding slot in the grid", direction, clue.Number))
				continue
			}
			if strings.TrimSpace(clue.Text) == "" {
				errs = append(errs, fmt.Sprintf("%s clue %d has empty text", direction, clue.Number))
			}
			if clue.Length != length {
				errs = append(errs, fmt.Sprintf("%s clue %d: length mismatch (grid has %d, clue has %d)", direction, clue.Number, length, clue.Length))
			}
		}
	}
	checkClues(across, "across")
	checkClues(down, "down")

	for _, s := range slots {
		key := fmt.Sprintf("%d,%d,%s", s.Start.Row, s.Start.Col, s.Direction)
		if !seen[key] {
			errs = append(errs, fmt.Sprintf("missing %s clue for slot at (%d,%d)", s.Direction, s.Start.Row, s.Start.Col))
		}
	}

	return errs
}
