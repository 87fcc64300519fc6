package cards

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyforge-be/pkg/llm"
	"studyforge-be/pkg/transcript"
)

// StageRunner drives the two-phase generation protocol against an injected
// text-generation collaborator. It is stateless between calls; every call is
// wrapped in a hard timeout plus bounded exponential-backoff retry so a hung
// or flaky collaborator is contained here.
type StageRunner struct {
	provider    llm.LLMProvider
	retry       RetryConfig
	callTimeout time.Duration
	usage       Usage
	logger      *log.Logger
}

type StageRunnerOption func(*StageRunner)

func WithRetry(cfg RetryConfig) StageRunnerOption {
	return func(r *StageRunner) { r.retry = cfg }
}

func WithCallTimeout(d time.Duration) StageRunnerOption {
	return func(r *StageRunner) { r.callTimeout = d }
}

func WithLogger(l *log.Logger) StageRunnerOption {
	return func(r *StageRunner) { r.logger = l }
}

func NewStageRunner(provider llm.LLMProvider, opts ...StageRunnerOption) *StageRunner {
	r := &StageRunner{
		provider:    provider,
		retry:       DefaultRetryConfig(),
		callTimeout: 90 * time.Second,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Usage returns the accumulated approximate token usage across all calls made
// through this runner.
func (r *StageRunner) Usage() Usage {
	return r.usage
}

// callParsed performs one retried, timeout-bounded generation request and
// parses the response, recording approximate token usage. A response with no extractable or
// schema-valid JSON counts as a failed attempt and is retried within the same
// budget as transport errors.
func (r *StageRunner) callParsed(ctx context.Context, system, prompt string, temperature float64, v interface{}) error {
	return Retry(ctx, r.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()

		out, err := r.provider.Generate(callCtx, prompt,
			llm.WithSystem(system),
			llm.WithTemperature(temperature),
		)
		if err != nil {
			return err
		}

		r.usage.Add(
			transcript.EstimateTokens(system)+transcript.EstimateTokens(prompt),
			transcript.EstimateTokens(out),
		)

		return ParseJSONInto(out, v)
	})
}

// RunStageA extracts the module summary and key topics from the retrieval
// chunks. Forcing this grounding pass before card synthesis measurably cuts
// fabricated evidence.
func (r *StageRunner) RunStageA(ctx context.Context, courseTitle, moduleTitle string, chunks []transcript.Chunk) (*StageAOutput, error) {
	prompt := buildStageAPrompt(courseTitle, moduleTitle, chunks)

	var out StageAOutput
	if err := r.callParsed(ctx, stageASystem, prompt, 0.2, &out); err != nil {
		return nil, fmt.Errorf("stage A: %w", err)
	}

	if len(out.KeyTopics) == 0 || len(out.ModuleSummary) == 0 {
		return nil, fmt.Errorf("stage A: %w: empty summary or topics", ErrBadSchema)
	}

	r.logger.Printf("[STAGE_A] module %q: %d summary points, %d key topics",
		moduleTitle, len(out.ModuleSummary), len(out.KeyTopics))
	return &out, nil
}

// rawCard is the Stage B wire shape: the Flashcard fields minus everything
// verification owns.
type rawCard struct {
	Q          string `json:"q"`
	A          string `json:"a"`
	Difficulty string `json:"difficulty"`
	BloomLevel string `json:"bloom_level"`
	Evidence   []struct {
		ChunkID string `json:"chunk_id"`
		Excerpt string `json:"excerpt"`
	} `json:"evidence"`
	Rationale string `json:"rationale"`
}

type stageBResponse struct {
	Cards []rawCard `json:"cards"`
}

// RunStageB synthesizes cards grounded in the Stage A output. Returned cards
// carry no verification verdict yet; the Verifier fills that in.
func (r *StageRunner) RunStageB(ctx context.Context, moduleTitle string, stageA *StageAOutput, chunks []transcript.Chunk, targetCards int, dist Distribution) ([]Flashcard, error) {
	prompt := buildStageBPrompt(moduleTitle, stageA, chunks, targetCards, dist)

	var out stageBResponse
	if err := r.callParsed(ctx, stageBSystem, prompt, 0.7, &out); err != nil {
		return nil, fmt.Errorf("stage B: %w", err)
	}
	if len(out.Cards) == 0 {
		return nil, fmt.Errorf("stage B: %w: empty cards array", ErrBadSchema)
	}

	byID := chunkIndex(chunks)
	result := make([]Flashcard, 0, len(out.Cards))
	for _, rc := range out.Cards {
		result = append(result, materializeCard(rc, byID))
	}

	r.logger.Printf("[STAGE_B] module %q: %d cards synthesized (target %d)",
		moduleTitle, len(result), targetCards)
	return result, nil
}

// GenerateRepairCard asks for one supplementary card about an uncovered topic,
// seeded with the existing question list to avoid re-duplication.
func (r *StageRunner) GenerateRepairCard(ctx context.Context, topic string, existingQuestions []string, chunks []transcript.Chunk) (*Flashcard, error) {
	prompt := buildRepairPrompt(topic, existingQuestions, chunks)

	var rc rawCard
	if err := r.callParsed(ctx, stageBSystem, prompt, 0.7, &rc); err != nil {
		return nil, fmt.Errorf("coverage repair for %q: %w", topic, err)
	}
	if strings.TrimSpace(rc.Q) == "" || strings.TrimSpace(rc.A) == "" {
		return nil, fmt.Errorf("coverage repair for %q: %w: empty card", topic, ErrBadSchema)
	}

	card := materializeCard(rc, chunkIndex(chunks))
	return &card, nil
}

type verifyVerdict struct {
	Supported  bool    `json:"supported"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// JudgeEvidence is the model-assisted verification fallback: an independent
// judgment of whether the excerpt supports the answer.
func (r *StageRunner) JudgeEvidence(ctx context.Context, question, answer, excerpt, chunkText string) (bool, float64, error) {
	prompt := buildVerifyPrompt(question, answer, excerpt, chunkText)

	var v verifyVerdict
	if err := r.callParsed(ctx, verifySystem, prompt, 0.0, &v); err != nil {
		return false, 0, err
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	return v.Supported, v.Confidence, nil
}

func chunkIndex(chunks []transcript.Chunk) map[string]transcript.Chunk {
	byID := make(map[string]transcript.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}
	return byID
}

func materializeCard(rc rawCard, byID map[string]transcript.Chunk) Flashcard {
	card := Flashcard{
		CardID:     uuid.NewString(),
		Q:          strings.TrimSpace(rc.Q),
		A:          strings.TrimSpace(rc.A),
		Difficulty: normalizeDifficulty(rc.Difficulty),
		BloomLevel: normalizeBloom(rc.BloomLevel),
		Rationale:  strings.TrimSpace(rc.Rationale),
	}

	seenSources := make(map[string]bool)
	for _, ev := range rc.Evidence {
		e := Evidence{ChunkID: ev.ChunkID, Excerpt: strings.TrimSpace(ev.Excerpt)}
		if c, ok := byID[ev.ChunkID]; ok {
			e.SourceFile = c.SourceFile
			if c.SlideOrPage != nil {
				e.Loc = *c.SlideOrPage
			}
			if !seenSources[c.SourceFile] {
				seenSources[c.SourceFile] = true
				card.Sources = append(card.Sources, c.SourceFile)
			}
		}
		card.Evidence = append(card.Evidence, e)
	}
	return card
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func normalizeBloom(b string) string {
	levels := []string{BloomRemember, BloomUnderstand, BloomApply, BloomAnalyze, BloomEvaluate, BloomCreate}
	for _, l := range levels {
		if strings.EqualFold(strings.TrimSpace(b), l) {
			return l
		}
	}
	return BloomUnderstand
}
