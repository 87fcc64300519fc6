package cards

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func card(q, a, difficulty, bloom string) Flashcard {
	return Flashcard{Q: q, A: a, Difficulty: difficulty, BloomLevel: bloom}
}

func TestEnforceAnswerLimits(t *testing.T) {
	short := "Photosynthesis converts light energy into chemical energy."
	long := strings.Repeat("word ", 60)

	got := EnforceAnswerLimits([]Flashcard{
		card("q1", short, DifficultyEasy, BloomRemember),
		card("q2", long, DifficultyMedium, BloomUnderstand),
	})

	if got[0].A != short {
		t.Errorf("short answer was modified: %q", got[0].A)
	}
	if words := len(strings.Fields(got[1].A)); words > MaxAnswerWords+1 {
		t.Errorf("truncated answer has %d words", words)
	}
	if !strings.HasSuffix(got[1].A, "...") {
		t.Errorf("truncation not marked: %q", got[1].A)
	}
}

func TestEnforceAnswerLimitsCharCap(t *testing.T) {
	// 39 long words stay under the word cap but blow the character cap.
	long := strings.TrimSpace(strings.Repeat("supercalifragilistic ", 39))

	got := EnforceAnswerLimits([]Flashcard{card("q", long, DifficultyHard, BloomAnalyze)})
	if len(got[0].A) > MaxAnswerChars {
		t.Errorf("answer is %d chars, cap is %d", len(got[0].A), MaxAnswerChars)
	}
	if !strings.HasSuffix(got[0].A, "...") {
		t.Errorf("truncation not marked: %q", got[0].A)
	}
}

func TestDeduplicate(t *testing.T) {
	cardsIn := []Flashcard{
		card("Where does photosynthesis occur in plant cells?", "a1", DifficultyEasy, BloomRemember),
		card("where does photosynthesis occur in plant cells", "a2", DifficultyEasy, BloomRemember),
		card("What does the Calvin cycle produce?", "a3", DifficultyMedium, BloomUnderstand),
	}

	got := Deduplicate(cardsIn, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 cards after dedup, got %d", len(got))
	}
	if got[0].A != "a1" {
		t.Errorf("first-seen card should win, kept %q", got[0].A)
	}
	if got[1].Q != "What does the Calvin cycle produce?" {
		t.Errorf("unrelated card dropped: %+v", got)
	}
}

func TestEnforceAnswerLimitsRuneBoundary(t *testing.T) {
	// A spaceless multi-byte answer forces the cut into the middle of a rune
	// unless truncation respects boundaries.
	long := strings.Repeat("é", 200)

	got := EnforceAnswerLimits([]Flashcard{card("q", long, DifficultyMedium, BloomUnderstand)})
	if !utf8.ValidString(got[0].A) {
		t.Errorf("truncated answer is not valid UTF-8: %q", got[0].A)
	}
	if len(got[0].A) > MaxAnswerChars {
		t.Errorf("answer is %d chars, cap is %d", len(got[0].A), MaxAnswerChars)
	}
	if !strings.HasSuffix(got[0].A, "...") {
		t.Errorf("truncation not marked: %q", got[0].A)
	}
}

func TestDeduplicateCustomThreshold(t *testing.T) {
	cardsIn := []Flashcard{
		card("What does photosynthesis convert?", "a1", DifficultyEasy, BloomRemember),
		card("What does photosynthesis produce overall?", "a2", DifficultyEasy, BloomRemember),
	}

	// Jaccard overlap is 3/6 = 0.5: kept at the default threshold, merged
	// once an operator lowers it.
	if got := Deduplicate(cardsIn, 0); len(got) != 2 {
		t.Errorf("default threshold should keep both cards, got %d", len(got))
	}
	if got := Deduplicate(cardsIn, 0.5); len(got) != 1 {
		t.Errorf("lowered threshold should merge the pair, got %d", len(got))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	cardsIn := []Flashcard{
		card("Where does photosynthesis occur?", "a1", DifficultyEasy, BloomRemember),
		card("Where does photosynthesis occur in cells?", "a2", DifficultyEasy, BloomRemember),
		card("What pigment absorbs red light?", "a3", DifficultyMedium, BloomUnderstand),
	}

	once := Deduplicate(cardsIn, 0)
	twice := Deduplicate(once, 0)
	if len(twice) != len(once) {
		t.Errorf("second pass removed cards: %d -> %d", len(once), len(twice))
	}
}

func TestCheckDistribution(t *testing.T) {
	balanced := []Flashcard{
		card("q1", "a", DifficultyEasy, BloomRemember),
		card("q2", "a", DifficultyMedium, BloomUnderstand),
		card("q3", "a", DifficultyMedium, BloomApply),
		card("q4", "a", DifficultyHard, BloomAnalyze),
	}
	if warnings := CheckDistribution(balanced, DefaultDistribution()); len(warnings) != 0 {
		t.Errorf("balanced deck produced warnings: %v", warnings)
	}

	skewed := []Flashcard{
		card("q1", "a", DifficultyEasy, BloomRemember),
		card("q2", "a", DifficultyEasy, BloomRemember),
		card("q3", "a", DifficultyEasy, BloomRemember),
		card("q4", "a", DifficultyEasy, BloomRemember),
	}
	warnings := CheckDistribution(skewed, DefaultDistribution())
	if len(warnings) == 0 {
		t.Fatal("all-easy all-Remember deck produced no warnings")
	}
	foundDifficulty, foundBloom := false, false
	for _, w := range warnings {
		if strings.Contains(w, `difficulty "easy"`) {
			foundDifficulty = true
		}
		if strings.Contains(w, "higher-order Bloom") {
			foundBloom = true
		}
	}
	if !foundDifficulty || !foundBloom {
		t.Errorf("missing expected warnings: %v", warnings)
	}
}

func TestCheckDistributionEmptyDeck(t *testing.T) {
	if warnings := CheckDistribution(nil, DefaultDistribution()); warnings != nil {
		t.Errorf("empty deck produced warnings: %v", warnings)
	}
}
