package cards

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// JaccardDedupeThreshold is the question-similarity level above which two
// cards are considered the same card reworded.
const JaccardDedupeThreshold = 0.85

// EnforceAnswerLimits truncates answers that blew past the word or character
// caps. Truncation happens at a word boundary and appends an ellipsis so the
// cut is visible to reviewers.
func EnforceAnswerLimits(cardsIn []Flashcard) []Flashcard {
	for i := range cardsIn {
		cardsIn[i].A = truncateAnswer(cardsIn[i].A)
	}
	return cardsIn
}

func truncateAnswer(answer string) string {
	words := strings.Fields(answer)
	if len(words) > MaxAnswerWords {
		answer = strings.Join(words[:MaxAnswerWords], " ") + "..."
	}
	if len(answer) > MaxAnswerChars {
		cut := answer[:MaxAnswerChars-3]
		// The byte cut may land inside a multi-byte rune; back off to a
		// rune boundary before looking for a word break.
		for len(cut) > 0 {
			if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
				break
			}
			cut = cut[:len(cut)-1]
		}
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		answer = cut + "..."
	}
	return answer
}

// Deduplicate drops cards whose question is a near-duplicate of an earlier
// card's question. First seen wins, preserving generation order. A threshold
// of zero or below falls back to JaccardDedupeThreshold.
func Deduplicate(cardsIn []Flashcard, threshold float64) []Flashcard {
	kept := make([]Flashcard, 0, len(cardsIn))
	for _, c := range cardsIn {
		if !IsDuplicate(c, kept, threshold) {
			kept = append(kept, c)
		}
	}
	return kept
}

// IsDuplicate reports whether the card's question is too similar to any card
// already in existing. The coverage repairer uses this to vet supplementary
// cards before appending them.
func IsDuplicate(card Flashcard, existing []Flashcard, threshold float64) bool {
	if threshold <= 0 {
		threshold = JaccardDedupeThreshold
	}
	set := tokenSet(normalizeForMatch(card.Q))
	for _, e := range existing {
		if jaccard(set, tokenSet(normalizeForMatch(e.Q))) >= threshold {
			return true
		}
	}
	return false
}

// CheckDistribution compares the deck's actual difficulty and Bloom mix
// against the requested distribution and returns advisory warnings. Nothing
// here mutates or drops cards; the deck ships as generated.
func CheckDistribution(cardsIn []Flashcard, want Distribution) []string {
	if len(cardsIn) == 0 {
		return nil
	}

	var warnings []string
	n := float64(len(cardsIn))

	counts := map[string]int{}
	higherOrder := 0
	for _, c := range cardsIn {
		counts[c.Difficulty]++
		switch c.BloomLevel {
		case BloomApply, BloomAnalyze, BloomEvaluate, BloomCreate:
			higherOrder++
		}
	}

	checks := []struct {
		name string
		want float64
	}{
		{DifficultyEasy, want.Easy},
		{DifficultyMedium, want.Medium},
		{DifficultyHard, want.Hard},
	}
	for _, ch := range checks {
		got := float64(counts[ch.name]) / n
		if diff := got - ch.want; diff > 0.2 || diff < -0.2 {
			warnings = append(warnings, fmt.Sprintf(
				"difficulty %q is %.0f%% of the deck, requested %.0f%%",
				ch.name, got*100, ch.want*100))
		}
	}

	if float64(higherOrder)/n < 0.2 {
		warnings = append(warnings, fmt.Sprintf(
			"only %d of %d cards exercise higher-order Bloom levels (Apply and above)",
			higherOrder, len(cardsIn)))
	}

	return warnings
}
