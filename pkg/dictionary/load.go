package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load reads a tab-separated dictionary file with a header row. Required
// columns are surface, length, frequency, is_compound, is_stopword; extra
// provenance columns are ignored. difficulty_score is read when present
// and synthesized as 1-frequency otherwise, for backward compatibility
// with older exports. Rows with is_adult=1 are dropped defensively, even
// though filtering is expected to have already happened upstream.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(f *os.File) (*Index, error) {
	scanner := bufio.NewScanner(f)
	idx := newIndex()

	if !scanner.Scan() {
		return nil, fmt.Errorf("dictionary: empty file, expected a header row")
	}
	header := strings.Split(scanner.Text(), "\t")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"surface", "length", "frequency", "is_compound", "is_stopword"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("dictionary: missing required column %q", required)
		}
	}
	hasDifficulty := false
	if _, ok := col["difficulty_score"]; ok {
		hasDifficulty = true
	}
	adultCol, hasAdult := col["is_adult"]

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		if hasAdult && adultCol < len(fields) && parseBool(fields[adultCol]) {
			continue
		}

		surface, ok := normalize(get("surface"))
		if !ok {
			continue // non A-Z content after diacritic folding: reject entry
		}

		frequency, err := strconv.ParseFloat(get("frequency"), 64)
		if err != nil {
			return nil, fmt.Errorf("dictionary: line %d: invalid frequency: %w", lineNum, err)
		}

		difficulty := 1 - frequency
		if hasDifficulty {
			if d, err := strconv.ParseFloat(get("difficulty_score"), 64); err == nil {
				difficulty = d
			}
		}

		e := &Entry{
			Surface:         surface,
			Length:          len(surface),
			Frequency:       frequency,
			DifficultyScore: difficulty,
			IsCompound:      parseBool(get("is_compound")),
			IsStopword:      parseBool(get("is_stopword")),
			IsAdult:         hasAdult && parseBool(get("is_adult")),
		}
		idx.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: reading file: %w", err)
	}
	idx.finalize()
	return idx, nil
}

func parseBool(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}

var diacriticFold = map[rune]rune{
	'ă': 'A', 'â': 'A', 'î': 'I', 'ș': 'S', 'ş': 'S', 'ț': 'T', 'ţ': 'T',
	'Ă': 'A', 'Â': 'A', 'Î': 'I', 'Ș': 'S', 'Ş': 'S', 'Ț': 'T', 'Ţ': 'T',
}

// normalize uppercases s and folds known diacritics to plain A-Z. It
// rejects (returns ok=false) any surface that still contains a character
// outside A-Z after folding.
func normalize(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if folded, ok := diacriticFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r - 'a' + 'A')
			continue
		}
		if r < 'A' || r > 'Z' {
			return "", false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return "", false
	}
	return out, true
}
