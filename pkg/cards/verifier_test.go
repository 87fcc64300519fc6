package cards

import (
	"context"
	"errors"
	"testing"

	"studyforge-be/pkg/transcript"
)

// cannedJudge is a model-assisted fallback with a fixed verdict.
type cannedJudge struct {
	supported  bool
	confidence float64
	err        error
	calls      int
}

func (j *cannedJudge) JudgeEvidence(ctx context.Context, question, answer, excerpt, chunkText string) (bool, float64, error) {
	j.calls++
	return j.supported, j.confidence, j.err
}

func verifierChunks() []transcript.Chunk {
	return []transcript.Chunk{
		{
			ChunkID:    "ch_aaaa",
			SourceFile: "lecture-03.vtt",
			Text:       "Photosynthesis converts light energy into chemical energy. It occurs in the chloroplasts of plant cells.",
		},
	}
}

func cardWithExcerpt(excerpt string) Flashcard {
	return Flashcard{
		CardID: "card-1",
		Q:      "Where does photosynthesis occur?",
		A:      "In the chloroplasts.",
		Evidence: []Evidence{
			{ChunkID: "ch_aaaa", Excerpt: excerpt},
		},
	}
}

func TestVerify_ExactMatch(t *testing.T) {
	judge := &cannedJudge{}
	v := NewVerifier(judge, nil)

	// Whitespace and case drift still counts as exact.
	got := v.VerifyCards(context.Background(),
		[]Flashcard{cardWithExcerpt("it occurs in  the chloroplasts of plant cells.")},
		verifierChunks())

	if got[0].ConfidenceScore != ConfidenceExact {
		t.Errorf("expected confidence %v, got %v", ConfidenceExact, got[0].ConfidenceScore)
	}
	if got[0].ReviewRequired {
		t.Error("exact match should not require review")
	}
	if judge.calls != 0 {
		t.Errorf("judge should not be consulted on exact match, got %d calls", judge.calls)
	}
}

func TestVerify_FuzzyCorrection(t *testing.T) {
	judge := &cannedJudge{}
	v := NewVerifier(judge, nil)

	// Drifted excerpt: one word swapped, still above the overlap threshold.
	got := v.VerifyCards(context.Background(),
		[]Flashcard{cardWithExcerpt("It occurs in the chloroplasts of all plant cells.")},
		verifierChunks())

	if got[0].ConfidenceScore != ConfidenceCorrected {
		t.Errorf("expected confidence %v, got %v", ConfidenceCorrected, got[0].ConfidenceScore)
	}
	if got[0].ReviewRequired {
		t.Error("corrected match should not require review")
	}
	if got[0].Evidence[0].Excerpt != "It occurs in the chloroplasts of plant cells." {
		t.Errorf("expected excerpt replaced with the real sentence, got %q", got[0].Evidence[0].Excerpt)
	}
	if judge.calls != 0 {
		t.Errorf("judge should not be consulted on fuzzy match, got %d calls", judge.calls)
	}
}

func TestVerify_ModelFallback(t *testing.T) {
	judge := &cannedJudge{supported: true, confidence: 0.8}
	v := NewVerifier(judge, nil)

	got := v.VerifyCards(context.Background(),
		[]Flashcard{cardWithExcerpt("Plants eat sunlight for breakfast every morning.")},
		verifierChunks())

	if judge.calls != 1 {
		t.Fatalf("expected 1 judge call, got %d", judge.calls)
	}
	if got[0].ConfidenceScore != 0.8 {
		t.Errorf("expected model confidence 0.8, got %v", got[0].ConfidenceScore)
	}
	if got[0].ReviewRequired {
		t.Error("model-supported card should not require review")
	}
}

func TestVerify_Unverified(t *testing.T) {
	judge := &cannedJudge{supported: false, confidence: 0.1}
	v := NewVerifier(judge, nil)

	got := v.VerifyCards(context.Background(),
		[]Flashcard{cardWithExcerpt("Plants eat sunlight for breakfast every morning.")},
		verifierChunks())

	if got[0].ConfidenceScore != ConfidenceUnverified {
		t.Errorf("expected confidence %v, got %v", ConfidenceUnverified, got[0].ConfidenceScore)
	}
	if !got[0].ReviewRequired {
		t.Error("unverified card must be flagged for review")
	}
}

func TestVerify_JudgeErrorMeansUnverified(t *testing.T) {
	judge := &cannedJudge{err: errors.New("provider down")}
	v := NewVerifier(judge, nil)

	got := v.VerifyCards(context.Background(),
		[]Flashcard{cardWithExcerpt("Plants eat sunlight for breakfast every morning.")},
		verifierChunks())

	if !got[0].ReviewRequired {
		t.Error("judge failure should leave the card flagged, not dropped")
	}
	if got[0].ConfidenceScore != ConfidenceUnverified {
		t.Errorf("expected confidence %v, got %v", ConfidenceUnverified, got[0].ConfidenceScore)
	}
}

func TestVerify_UnknownChunkID(t *testing.T) {
	judge := &cannedJudge{}
	v := NewVerifier(judge, nil)

	card := cardWithExcerpt("anything")
	card.Evidence[0].ChunkID = "ch_missing"

	got := v.VerifyCards(context.Background(), []Flashcard{card}, verifierChunks())
	if !got[0].ReviewRequired {
		t.Error("card citing an unknown chunk must require review")
	}
	if judge.calls != 0 {
		t.Error("judge should not be consulted for an unknown chunk")
	}
}

func TestVerify_BestEvidenceWins(t *testing.T) {
	judge := &cannedJudge{}
	v := NewVerifier(judge, nil)

	card := Flashcard{
		CardID: "card-2",
		Q:      "Q",
		A:      "A",
		Evidence: []Evidence{
			{ChunkID: "ch_missing", Excerpt: "nothing here"},
			{ChunkID: "ch_aaaa", Excerpt: "Photosynthesis converts light energy into chemical energy."},
		},
	}

	got := v.VerifyCards(context.Background(), []Flashcard{card}, verifierChunks())
	if got[0].ConfidenceScore != ConfidenceExact {
		t.Errorf("one verified excerpt should carry the card, got confidence %v", got[0].ConfidenceScore)
	}
	if got[0].ReviewRequired {
		t.Error("card with one verified excerpt should not require review")
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the quick brown fox", "the quick brown fox", 1.0},
		{"disjoint", "alpha beta", "gamma delta", 0.0},
		{"half overlap", "a b c d", "c d e f", 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccard(tokenSet(tt.a), tokenSet(tt.b))
			if got != tt.want {
				t.Errorf("jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
