package transcriber

import "strings"

// GuardConfig holds the repetition thresholds. The values are empirical
// tuning, not exact contracts; they trade occasional false positives on
// genuinely repetitive speech for catching looping model output.
type GuardConfig struct {
	// WordRepeats flags a single word repeated this many times in a row.
	WordRepeats int
	// PhraseRepeats flags a 2- or 3-word phrase repeated this many times.
	PhraseRepeats int
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		WordRepeats:   4,
		PhraseRepeats: 3,
	}
}

// CheckRepetition scans text for pathological repeated-token patterns and
// returns a HallucinationError when one is found. A hit discards the whole
// segment: looping models rarely produce partial good text around the loop.
func CheckRepetition(text string, cfg GuardConfig) error {
	if cfg.WordRepeats <= 0 {
		cfg.WordRepeats = DefaultGuardConfig().WordRepeats
	}
	if cfg.PhraseRepeats <= 0 {
		cfg.PhraseRepeats = DefaultGuardConfig().PhraseRepeats
	}

	words := normalizeWords(text)

	if pattern, n := longestRun(words, 1); n >= cfg.WordRepeats {
		return &HallucinationError{Pattern: pattern, Repeats: n}
	}
	for _, size := range []int{2, 3} {
		if pattern, n := longestRun(words, size); n >= cfg.PhraseRepeats {
			return &HallucinationError{Pattern: pattern, Repeats: n}
		}
	}
	return nil
}

// normalizeWords lowercases and strips surrounding punctuation so that
// "Oui, oui, OUI" counts as a run of the same token.
func normalizeWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, ".,;:!?()[]\"'«»"))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// longestRun finds the longest number of consecutive repetitions of any
// size-word phrase.
func longestRun(words []string, size int) (string, int) {
	if len(words) < size*2 {
		return "", 0
	}

	bestPattern := ""
	best := 0

	for start := 0; start+size <= len(words); start++ {
		run := 1
		for next := start + size; phraseEqual(words, start, next, size); next += size {
			run++
		}
		if run > best {
			best = run
			bestPattern = strings.Join(words[start:start+size], " ")
		}
	}
	return bestPattern, best
}

func phraseEqual(words []string, a, b, size int) bool {
	if b+size > len(words) {
		return false
	}
	for i := 0; i < size; i++ {
		if words[a+i] != words[b+i] {
			return false
		}
	}
	return true
}
