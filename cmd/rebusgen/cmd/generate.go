package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crosswordsmith/rebusgen/internal/models"
	"github.com/crosswordsmith/rebusgen/pkg/clues"
	"github.com/crosswordsmith/rebusgen/pkg/clues/providers"
	"github.com/crosswordsmith/rebusgen/pkg/dictionary"
	"github.com/crosswordsmith/rebusgen/pkg/output"
	"github.com/crosswordsmith/rebusgen/pkg/puzzle"
	"github.com/crosswordsmith/rebusgen/pkg/theme"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var (
	genCount      int
	genHeight     int
	genWidth      int
	genDifficulty string
	genOutput     string
	genFormat     string
	genDictionary string
	genLLM        string
	genTheme      string
	genThemeWords []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate crossword puzzles",
	Long: `Generate one or more barred crossword puzzles using the two-phase
layout/fill engine and LLM-generated clues.

Examples:
  # Generate 10 easy puzzles in JSON format
  rebusgen generate --dictionary words.tsv --count 10 --difficulty easy --format json --output ./puzzles

  # Generate a single hard puzzle in all formats
  rebusgen generate --dictionary words.tsv --difficulty hard --format all --output ./puzzles

  # Generate using cache-only mode (no LLM API calls)
  rebusgen generate --dictionary words.tsv --llm cache-only --count 5`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&genCount, "count", "n", 1, "number of puzzles to generate")
	generateCmd.Flags().IntVar(&genHeight, "height", 15, "grid height")
	generateCmd.Flags().IntVar(&genWidth, "width", 15, "grid width")
	generateCmd.Flags().StringVarP(&genDifficulty, "difficulty", "d", "medium", "puzzle difficulty (easy, medium, hard)")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", ".", "output directory")
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "json", "output format (json, puz, ipuz, all)")
	generateCmd.Flags().StringVar(&genDictionary, "dictionary", "", "path to dictionary word list (required)")
	generateCmd.Flags().StringVarP(&genLLM, "llm", "l", "cache-only", "LLM provider (anthropic, ollama, cache-only)")
	generateCmd.Flags().StringVar(&genTheme, "theme", "", "optional puzzle theme label")
	generateCmd.Flags().StringSliceVar(&genThemeWords, "theme-word", nil, "theme word to force into the grid (repeatable)")

	generateCmd.MarkFlagRequired("dictionary")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	tier, err := parseTier(genDifficulty)
	if err != nil {
		return fmt.Errorf("invalid difficulty: %w", err)
	}

	formats, err := parseFormats(genFormat)
	if err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}

	if verbosity > 0 {
		fmt.Printf("Loading dictionary from: %s\n", genDictionary)
	}
	idx, err := dictionary.Load(genDictionary)
	if err != nil {
		return fmt.Errorf("failed to load dictionary: %w", err)
	}

	emitter, err := setupClueGenerator(genLLM, tier)
	if err != nil {
		return fmt.Errorf("failed to setup clue generator: %w", err)
	}

	gen := puzzle.NewGenerator(idx, emitter)

	if err := os.MkdirAll(genOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	themeWords := make([]theme.Entry, len(genThemeWords))
	for i, w := range genThemeWords {
		themeWords[i] = theme.Entry{Word: strings.ToUpper(w), Source: "user"}
	}
	themeSource := func() []theme.Entry { return themeWords }

	fmt.Printf("Generating %d puzzle(s) with difficulty: %s\n", genCount, genDifficulty)

	for i := 1; i <= genCount; i++ {
		startTime := time.Now()
		fmt.Printf("[%d/%d] Generating puzzle... ", i, genCount)

		cfg := puzzle.Config{
			Height:        genHeight,
			Width:         genWidth,
			Tier:          tier,
			MaxAttempts:   10,
			SolverTimeout: 5 * time.Second,
			SolverWorkers: 4,
			Title:         fmt.Sprintf("Crossword Puzzle %d - %s", i, time.Now().Format("2006-01-02")),
			Author:        "rebusgen",
			Theme:         genTheme,
		}

		result, err := gen.GeneratePuzzle(ctx, cfg, themeSource)
		if err != nil {
			fmt.Printf("FAILED\n")
			return fmt.Errorf("failed to generate puzzle %d: %w", i, err)
		}

		modelsPuzzle := puzzle.ToModelsPuzzle(uuid.New().String(), result)
		modelsPuzzle.CreatedAt = time.Now()

		if err := writeOutputFiles(modelsPuzzle, genOutput, i, formats); err != nil {
			fmt.Printf("FAILED\n")
			return fmt.Errorf("failed to write output files for puzzle %d: %w", i, err)
		}

		elapsed := time.Since(startTime)
		fmt.Printf("OK (%.1fs)\n", elapsed.Seconds())
	}

	fmt.Printf("\nSuccessfully generated %d puzzle(s) in %s\n", genCount, genOutput)
	return nil
}

func parseTier(s string) (dictionary.Tier, error) {
	switch strings.ToLower(s) {
	case "easy":
		return dictionary.Easy, nil
	case "medium":
		return dictionary.Medium, nil
	case "hard":
		return dictionary.Hard, nil
	default:
		return dictionary.Medium, fmt.Errorf("invalid difficulty: %s (must be easy, medium, or hard)", s)
	}
}

func parseFormats(format string) ([]string, error) {
	format = strings.ToLower(format)
	if format == "all" {
		return []string{"json", "puz", "ipuz"}, nil
	}

	validFormats := map[string]bool{"json": true, "puz": true, "ipuz": true}
	if !validFormats[format] {
		return nil, fmt.Errorf("invalid format: %s (must be json, puz, ipuz, or all)", format)
	}
	return []string{format}, nil
}

// setupClueGenerator creates a clue generator based on the LLM provider
func setupClueGenerator(llmProvider string, tier dictionary.Tier) (*clues.Generator, error) {
	cacheDB, err := sql.Open("sqlite3", "./clue_cache.db")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache, err := clues.NewClueCache(cacheDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create clue cache: %w", err)
	}

	var clueDifficulty clues.Difficulty
	switch tier {
	case dictionary.Easy:
		clueDifficulty = clues.DifficultyEasy
	case dictionary.Hard:
		clueDifficulty = clues.DifficultyHard
	default:
		clueDifficulty = clues.DifficultyMedium
	}

	var llmClient providers.LLMClient
	switch strings.ToLower(llmProvider) {
	case "cache-only":
		llmClient = nil
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		llmClient, err = providers.NewAnthropicClient(providers.AnthropicConfig{
			APIKey: apiKey,
			Model:  providers.ModelHaiku,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
	case "ollama":
		llmClient, err = providers.NewOllamaClient(providers.OllamaConfig{
			BaseURL: "http://localhost:11434/api/generate",
			Model:   providers.ModelLlama2,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid LLM provider: %s (must be anthropic, ollama, or cache-only)", llmProvider)
	}

	return clues.NewGenerator(cache, llmClient, clueDifficulty), nil
}

// writeOutputFiles writes puzzle to disk in the specified formats
func writeOutputFiles(puz *models.Puzzle, outputDir string, puzzleNum int, formats []string) error {
	baseName := fmt.Sprintf("puzzle_%03d", puzzleNum)

	for _, format := range formats {
		var filePath string
		var data []byte
		var err error

		switch format {
		case "json":
			filePath = filepath.Join(outputDir, baseName+".json")
			data, err = output.ToJSON(puz)
		case "puz":
			filePath = filepath.Join(outputDir, baseName+".puz")
			data, err = output.FormatPuz(puz)
		case "ipuz":
			filePath = filepath.Join(outputDir, baseName+".ipuz")
			data, err = output.ToIPuz(puz)
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return fmt.Errorf("failed to format puzzle as %s: %w", format, err)
		}

		if err := os.WriteFile(filePath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s file: %w", format, err)
		}
	}

	return nil
}
