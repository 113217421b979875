package clues

import (
	"context"
	"fmt"

	"github.com/crosswordsmith/rebusgen/pkg/clues/providers"
	"github.com/crosswordsmith/rebusgen/pkg/grid"
)

// Generator orchestrates clue generation with caching. It implements the
// ClueEmitter capability spec.md §6 treats as an opaque external
// collaborator: given the sealed grid's slots, it returns clue text the
// core blindly attaches without inspection.
type Generator struct {
	cache      *ClueCache
	llmClient  providers.LLMClient
	difficulty Difficulty
}

// NewGenerator creates a new clue generator
func NewGenerator(cache *ClueCache, llmClient providers.LLMClient, difficulty Difficulty) *Generator {
	return &Generator{
		cache:      cache,
		llmClient:  llmClient,
		difficulty: difficulty,
	}
}

// GenerateClues generates clues for every slot of length >= 2 in g. It
// checks the cache first, batches cache misses, calls the LLM, and saves
// new clues. Returns a map of slot key (e.g. "3-across") to clue text.
func (g *Generator) GenerateClues(ctx context.Context, gr *grid.Grid, slots []*grid.Slot) (map[string]string, error) {
	if len(slots) == 0 {
		return map[string]string{}, nil
	}

	result := make(map[string]string)
	var wordsNeedingClues []string
	wordToSlotKeys := make(map[string][]string) // maps word to list of slot keys

	// Step 1: Check cache for all slots
	for _, slot := range slots {
		word := extractWord(gr, slot)
		if word == "" {
			continue
		}

		slotKey := getSlotKey(slot)

		if g.cache != nil {
			clue, found := g.cache.GetClue(word, string(g.difficulty))
			if found {
				result[slotKey] = clue
				continue
			}
		}

		if _, exists := wordToSlotKeys[word]; !exists {
			wordsNeedingClues = append(wordsNeedingClues, word)
		}
		wordToSlotKeys[word] = append(wordToSlotKeys[word], slotKey)
	}

	// Step 2: If all clues were found in cache, return early
	if len(wordsNeedingClues) == 0 {
		return result, nil
	}

	// Step 3: If no LLM client, return error for cache misses
	if g.llmClient == nil {
		return nil, fmt.Errorf("no LLM client available and %d words not in cache", len(wordsNeedingClues))
	}

	// Step 4: Batch words and call LLM
	newClues, err := g.generateWithLLM(ctx, wordsNeedingClues)
	if err != nil {
		return nil, fmt.Errorf("failed to generate clues with LLM: %w", err)
	}

	// Step 5: Save new clues to cache and populate result
	for word, clue := range newClues {
		if g.cache != nil {
			if err := g.cache.SaveClue(word, clue, string(g.difficulty)); err != nil {
				_ = err // cache save failure shouldn't stop generation
			}
		}

		for _, slotKey := range wordToSlotKeys[word] {
			result[slotKey] = clue
		}
	}

	return result, nil
}

// generateWithLLM batches words and generates clues using the LLM client
func (g *Generator) generateWithLLM(ctx context.Context, words []string) (map[string]string, error) {
	allClues := make(map[string]string)

	for i := 0; i < len(words); i += MaxWordsPerBatch {
		end := i + MaxWordsPerBatch
		if end > len(words) {
			end = len(words)
		}
		batch := words[i:end]

		prompt, err := buildPrompt(batch, g.difficulty)
		if err != nil {
			return nil, fmt.Errorf("failed to build prompt: %w", err)
		}

		response, err := g.llmClient.Complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("LLM completion failed: %w", err)
		}

		batchClues, err := ParseClueResponse(response, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to parse LLM response: %w", err)
		}

		for word, clue := range batchClues {
			allClues[word] = clue
		}
	}

	return allClues, nil
}

// extractWord reads the letters a slot currently holds off the sealed
// grid. Returns "" if the slot is not fully filled yet.
func extractWord(gr *grid.Grid, slot *grid.Slot) string {
	letters := make([]byte, slot.Length)
	for i, co := range slot.Cells {
		cell := gr.At(co.Row, co.Col)
		if cell.Type != grid.Letter {
			return ""
		}
		letters[i] = byte(cell.Ch)
	}
	return string(letters)
}

// getSlotKey generates a unique key for a slot (e.g. "3-across").
func getSlotKey(slot *grid.Slot) string {
	return fmt.Sprintf("%d-%s", slot.ID, slot.Direction.String())
}
