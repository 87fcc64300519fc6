package cards

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"studyforge-be/pkg/llm"
	"studyforge-be/pkg/transcript"
)

// scriptedLLM returns its canned responses in order, recording prompts.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", errors.New("scripted LLM ran out of responses")
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return s.Generate(ctx, last, options...)
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func testChunks() []transcript.Chunk {
	loc1 := "00:00:00-00:01:30"
	loc2 := "00:01:30-00:03:00"
	return []transcript.Chunk{
		{
			ChunkID:     "ch_aaaa",
			SourceFile:  "lecture-03.vtt",
			Provider:    "whisper",
			SlideOrPage: &loc1,
			Text:        "Photosynthesis converts light energy into chemical energy. It occurs in the chloroplasts of plant cells.",
		},
		{
			ChunkID:     "ch_bbbb",
			SourceFile:  "lecture-03.vtt",
			Provider:    "whisper",
			SlideOrPage: &loc2,
			Text:        "The light-dependent reactions produce ATP and NADPH. The Calvin cycle then fixes carbon dioxide into glucose.",
		},
	}
}

const stageAResponse = `{
  "module_summary": [
    {"point": "Photosynthesis converts light into chemical energy", "supports": ["ch_aaaa"]},
    {"point": "The Calvin cycle fixes carbon into glucose", "supports": ["ch_bbbb"]},
    {"point": "Light reactions produce ATP and NADPH", "supports": ["ch_bbbb"]},
    {"point": "Chloroplasts host the whole process", "supports": ["ch_aaaa"]}
  ],
  "key_topics": [
    {"topic": "photosynthesis", "supports": ["ch_aaaa"]},
    {"topic": "Calvin cycle", "supports": ["ch_bbbb"]},
    {"topic": "chloroplasts", "supports": ["ch_aaaa"]}
  ],
  "coverage_map": {"photosynthesis": ["ch_aaaa"], "Calvin cycle": ["ch_bbbb"], "chloroplasts": ["ch_aaaa"]}
}`

func TestRunStageA(t *testing.T) {
	provider := &scriptedLLM{responses: []string{"Here is the analysis:\n" + stageAResponse}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	out, err := runner.RunStageA(context.Background(), "Biology 101", "Photosynthesis", testChunks())
	if err != nil {
		t.Fatalf("RunStageA returned error: %v", err)
	}
	if len(out.ModuleSummary) != 4 {
		t.Errorf("expected 4 summary points, got %d", len(out.ModuleSummary))
	}
	if len(out.KeyTopics) != 3 {
		t.Errorf("expected 3 key topics, got %d", len(out.KeyTopics))
	}
	if !strings.Contains(provider.prompts[0], "ch_aaaa") {
		t.Error("prompt should include chunk ids for citation")
	}
	if runner.Usage().Calls != 1 {
		t.Errorf("expected 1 recorded call, got %d", runner.Usage().Calls)
	}
}

func TestRunStageA_RetriesOnGarbage(t *testing.T) {
	provider := &scriptedLLM{responses: []string{
		"I am unable to analyze this content.",
		stageAResponse,
	}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	out, err := runner.RunStageA(context.Background(), "Biology 101", "Photosynthesis", testChunks())
	if err != nil {
		t.Fatalf("RunStageA returned error after retry: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.calls)
	}
	if len(out.KeyTopics) == 0 {
		t.Error("expected topics from the retried response")
	}
}

func TestRunStageA_FailsAfterBudget(t *testing.T) {
	provider := &scriptedLLM{responses: []string{"nope", "nope", "nope"}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	_, err := runner.RunStageA(context.Background(), "Biology 101", "Photosynthesis", testChunks())
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON after exhausting retries, got %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", provider.calls)
	}
}

func TestRunStageB(t *testing.T) {
	response := `{
  "cards": [
    {
      "q": "Where does photosynthesis occur?",
      "a": "In the chloroplasts of plant cells.",
      "difficulty": "easy",
      "bloom_level": "Remember",
      "evidence": [{"chunk_id": "ch_aaaa", "excerpt": "It occurs in the chloroplasts of plant cells."}],
      "rationale": "Tests the basic location fact."
    },
    {
      "q": "What do the light-dependent reactions produce?",
      "a": "ATP and NADPH.",
      "difficulty": "medium",
      "bloom_level": "understand",
      "evidence": [{"chunk_id": "ch_bbbb", "excerpt": "The light-dependent reactions produce ATP and NADPH."}],
      "rationale": "Connects reactions to their products."
    }
  ]
}`
	provider := &scriptedLLM{responses: []string{response}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	var stageA StageAOutput
	if err := ParseJSONInto(stageAResponse, &stageA); err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}

	got, err := runner.RunStageB(context.Background(), "Photosynthesis", &stageA, testChunks(), 2, DefaultDistribution())
	if err != nil {
		t.Fatalf("RunStageB returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(got))
	}

	first := got[0]
	if first.CardID == "" {
		t.Error("expected a generated card id")
	}
	if len(first.Evidence) != 1 || first.Evidence[0].SourceFile != "lecture-03.vtt" {
		t.Errorf("expected evidence source resolved from chunk, got %+v", first.Evidence)
	}
	if first.Evidence[0].Loc != "00:00:00-00:01:30" {
		t.Errorf("expected loc resolved from chunk, got %q", first.Evidence[0].Loc)
	}
	if len(first.Sources) != 1 || first.Sources[0] != "lecture-03.vtt" {
		t.Errorf("expected sources from evidence chunks, got %v", first.Sources)
	}

	// Casing on bloom_level is normalized to the canonical form.
	if got[1].BloomLevel != BloomUnderstand {
		t.Errorf("expected normalized bloom level, got %q", got[1].BloomLevel)
	}
}

func TestRunStageB_EmptyCardsIsSchemaError(t *testing.T) {
	provider := &scriptedLLM{responses: []string{`{"cards": []}`, `{"cards": []}`, `{"cards": []}`}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	var stageA StageAOutput
	if err := ParseJSONInto(stageAResponse, &stageA); err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}

	_, err := runner.RunStageB(context.Background(), "Photosynthesis", &stageA, testChunks(), 2, DefaultDistribution())
	if !errors.Is(err, ErrBadSchema) {
		t.Errorf("expected ErrBadSchema for empty cards, got %v", err)
	}
}

func TestGenerateRepairCard(t *testing.T) {
	response := `{
  "q": "What is the Calvin cycle's role?",
  "a": "It fixes carbon dioxide into glucose.",
  "difficulty": "medium",
  "bloom_level": "Understand",
  "evidence": [{"chunk_id": "ch_bbbb", "excerpt": "The Calvin cycle then fixes carbon dioxide into glucose."}],
  "rationale": "Covers the missing topic."
}`
	provider := &scriptedLLM{responses: []string{response}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	card, err := runner.GenerateRepairCard(context.Background(), "Calvin cycle", []string{"Where does photosynthesis occur?"}, testChunks())
	if err != nil {
		t.Fatalf("GenerateRepairCard returned error: %v", err)
	}
	if card.Q == "" || card.A == "" {
		t.Errorf("expected populated card, got %+v", card)
	}
	if !strings.Contains(provider.prompts[0], "Where does photosynthesis occur?") {
		t.Error("prompt should list existing questions to avoid duplicating")
	}
}

func TestJudgeEvidence_ClampsConfidence(t *testing.T) {
	provider := &scriptedLLM{responses: []string{`{"supported": true, "confidence": 1.7, "reason": "overconfident"}`}}
	runner := NewStageRunner(provider, WithRetry(fastRetry()))

	supported, conf, err := runner.JudgeEvidence(context.Background(), "Q", "A", "excerpt", "chunk text")
	if err != nil {
		t.Fatalf("JudgeEvidence returned error: %v", err)
	}
	if !supported {
		t.Error("expected supported verdict")
	}
	if conf != 1.0 {
		t.Errorf("expected confidence clamped to 1.0, got %v", conf)
	}
}
