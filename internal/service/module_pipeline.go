package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"studyforge-be/internal/config"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/pkg/cards"
	"studyforge-be/pkg/embedding"
	"studyforge-be/pkg/transcript"

	"github.com/google/uuid"
)

// StageExecutor is the model-backed half of the pipeline. *cards.StageRunner
// satisfies it; tests inject scripted ones.
type StageExecutor interface {
	RunStageA(ctx context.Context, courseTitle, moduleTitle string, chunks []transcript.Chunk) (*cards.StageAOutput, error)
	RunStageB(ctx context.Context, moduleTitle string, stageA *cards.StageAOutput, chunks []transcript.Chunk, targetCards int, dist cards.Distribution) ([]cards.Flashcard, error)
	GenerateRepairCard(ctx context.Context, topic string, existingQuestions []string, chunks []transcript.Chunk) (*cards.Flashcard, error)
	JudgeEvidence(ctx context.Context, question, answer, excerpt, chunkText string) (bool, float64, error)
	Usage() cards.Usage
}

// ChunkSource retrieves the context a module run grounds itself on.
type ChunkSource interface {
	FindTopK(ctx context.Context, moduleId uuid.UUID, queryEmbedding []float32, topK int) ([]*entity.ContextChunk, error)
}

// TunableSource reads operator-adjustable settings from gen_configurations.
// contract.GenConfigRepository satisfies it; nil means environment values only.
type TunableSource interface {
	FindByKey(ctx context.Context, key string) (*entity.GenConfiguration, error)
}

// ModulePipeline turns one module's stored chunks into a verified flashcard
// deck. It is stateless across runs; each RunModule gets a fresh executor so
// token usage is attributed per module.
type ModulePipeline struct {
	chunkSource       ChunkSource
	embeddingProvider embedding.EmbeddingProvider // nil disables semantic retrieval
	newExecutor       func() StageExecutor
	costEstimator     cards.CostEstimator
	model             string
	cfg               config.GenerationConfig
	tunables          TunableSource // nil means env-configured values only
	logger            logger.ILogger
}

func NewModulePipeline(
	chunkSource ChunkSource,
	embeddingProvider embedding.EmbeddingProvider,
	newExecutor func() StageExecutor,
	costEstimator cards.CostEstimator,
	model string,
	cfg config.GenerationConfig,
	tunables TunableSource,
	sysLogger logger.ILogger,
) *ModulePipeline {
	return &ModulePipeline{
		chunkSource:       chunkSource,
		embeddingProvider: embeddingProvider,
		newExecutor:       newExecutor,
		costEstimator:     costEstimator,
		model:             model,
		cfg:               cfg,
		tunables:          tunables,
		logger:            sysLogger,
	}
}

// tunableInt resolves a stored runtime setting, falling back to the
// environment-configured value when unset or malformed.
func (p *ModulePipeline) tunableInt(ctx context.Context, key string, fallback int) int {
	if p.tunables == nil {
		return fallback
	}
	stored, err := p.tunables.FindByKey(ctx, key)
	if err != nil || stored == nil {
		return fallback
	}
	v, err := strconv.Atoi(stored.Value)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (p *ModulePipeline) tunableFloat(ctx context.Context, key string, fallback float64) float64 {
	if p.tunables == nil {
		return fallback
	}
	stored, err := p.tunables.FindByKey(ctx, key)
	if err != nil || stored == nil {
		return fallback
	}
	v, err := strconv.ParseFloat(stored.Value, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// RunModule executes the full per-module pipeline: retrieve context, run the
// grounding and authoring stages, verify evidence, post-process, and repair
// topic coverage. It never panics the caller's goroutine; any stage error
// becomes a FAILED result. A nil deck accompanies every non-generating status.
func (p *ModulePipeline) RunModule(ctx context.Context, courseId uuid.UUID, courseTitle string, target entity.ModuleTarget, targetCards int) (*entity.FlashcardDeck, entity.ModuleResult) {
	started := time.Now()
	result := entity.ModuleResult{
		ModuleId:    target.ModuleId,
		ModuleTitle: target.ModuleTitle,
	}

	minChunks := p.tunableInt(ctx, "min_chunks", p.cfg.MinChunks)

	chunks, err := p.retrieveChunks(ctx, courseTitle, target, minChunks)
	if err != nil {
		result.Status = entity.ModuleStatusFailed
		result.Error = fmt.Sprintf("chunk retrieval: %v", err)
		result.DurationMs = time.Since(started).Milliseconds()
		return nil, result
	}

	// Too little material produces hallucination-prone decks. Bail out before
	// spending a single model call.
	if len(chunks) < minChunks {
		result.Status = entity.ModuleStatusNeedMoreContent
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("module has %d context chunks, need at least %d", len(chunks), minChunks))
		result.DurationMs = time.Since(started).Milliseconds()
		return nil, result
	}

	exec := p.newExecutor()

	stageA, err := exec.RunStageA(ctx, courseTitle, target.ModuleTitle, chunks)
	if err != nil {
		result.Status = entity.ModuleStatusFailed
		result.Error = fmt.Sprintf("stage A: %v", err)
		result.DurationMs = time.Since(started).Milliseconds()
		return nil, result
	}

	generated, err := exec.RunStageB(ctx, target.ModuleTitle, stageA, chunks, targetCards, cards.DefaultDistribution())
	if err != nil {
		result.Status = entity.ModuleStatusFailed
		result.Error = fmt.Sprintf("stage B: %v", err)
		result.DurationMs = time.Since(started).Milliseconds()
		return nil, result
	}

	dedupeThreshold := p.tunableFloat(ctx, "dedupe_threshold", p.cfg.DedupeThreshold)

	verifier := cards.NewVerifier(exec, nil)
	deck := verifier.VerifyCards(ctx, generated, chunks)
	deck = cards.EnforceAnswerLimits(deck)
	deck = cards.Deduplicate(deck, dedupeThreshold)

	deck, stillUncovered := cards.RepairCoverage(ctx, exec, verifier, stageA, deck, chunks, dedupeThreshold, nil)

	var warnings []string
	for _, topic := range stillUncovered {
		warnings = append(warnings, fmt.Sprintf("topic not covered by any card: %s", topic))
	}
	warnings = append(warnings, cards.CheckDistribution(deck, cards.DefaultDistribution())...)

	if len(deck) == 0 {
		result.Status = entity.ModuleStatusFailed
		result.Error = "no cards survived verification"
		result.Warnings = warnings
		result.DurationMs = time.Since(started).Milliseconds()
		return nil, result
	}

	flagged := 0
	for _, c := range deck {
		if c.ReviewRequired {
			flagged++
		}
	}
	if flagged > 0 {
		warnings = append(warnings, fmt.Sprintf("%d cards flagged for human review", flagged))
	}

	if len(deck) >= targetCards && flagged == 0 {
		result.Status = entity.ModuleStatusSuccess
	} else {
		result.Status = entity.ModuleStatusPartial
	}
	result.GeneratedCount = len(deck)
	result.Warnings = warnings
	result.DurationMs = time.Since(started).Milliseconds()

	usage := exec.Usage()
	now := time.Now()
	deckEntity := &entity.FlashcardDeck{
		Id:          uuid.New(),
		CourseId:    courseId,
		ModuleId:    target.ModuleId,
		ModuleTitle: target.ModuleTitle,
		Cards:       deck,
		StageA:      stageA,
		Warnings:    warnings,
		Metadata: entity.GenerationMetadata{
			Model:            p.model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			LLMCalls:         usage.Calls,
			CostUSD:          p.costEstimator.EstimateUSD(p.model, usage),
			DurationMs:       result.DurationMs,
		},
		ReviewStatus: entity.ReviewStatusPending,
		CreatedAt:    now,
	}

	p.logger.Info("PIPELINE", "module generation finished", map[string]interface{}{
		"module_id": target.ModuleId,
		"status":    result.Status,
		"cards":     len(deck),
		"flagged":   flagged,
		"llm_calls": usage.Calls,
	})

	return deckEntity, result
}

// retrieveChunks ranks the module's chunks against an embedding of the course
// and module titles. Without an embedding provider, or when the embedding
// call fails, retrieval falls back to the store's time ordering.
func (p *ModulePipeline) retrieveChunks(ctx context.Context, courseTitle string, target entity.ModuleTarget, minChunks int) ([]transcript.Chunk, error) {
	topK := p.tunableInt(ctx, "top_k", p.cfg.TopK)

	var queryEmbedding []float32
	if p.embeddingProvider != nil {
		query := courseTitle + " " + target.ModuleTitle
		resp, err := p.embeddingProvider.Generate(query, embedding.TaskRetrievalQuery)
		if err != nil {
			p.logger.Warn("PIPELINE", "query embedding failed, using time-ordered chunks", map[string]interface{}{
				"module_id": target.ModuleId,
				"error":     err.Error(),
			})
		} else {
			queryEmbedding = resp.Embedding.Values
		}
	}

	stored, err := p.chunkSource.FindTopK(ctx, target.ModuleId, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}

	// Ranked retrieval only sees chunks the embedding consumer has already
	// processed. Right after ingestion that can be none of them, so retry in
	// time order before declaring the module short on content.
	if len(queryEmbedding) > 0 && len(stored) < minChunks {
		p.logger.Warn("PIPELINE", "ranked retrieval returned too few chunks, using time-ordered chunks", map[string]interface{}{
			"module_id": target.ModuleId,
			"ranked":    len(stored),
		})
		stored, err = p.chunkSource.FindTopK(ctx, target.ModuleId, nil, topK)
		if err != nil {
			return nil, err
		}
	}

	chunks := make([]transcript.Chunk, 0, len(stored))
	for _, c := range stored {
		chunks = append(chunks, transcript.Chunk{
			ChunkID:     c.ChunkID,
			SourceFile:  c.FileId,
			Provider:    c.Provider,
			SlideOrPage: c.SlideOrPage,
			StartSec:    c.StartSec,
			EndSec:      c.EndSec,
			Heading:     c.Heading,
			Text:        c.Text,
			TokensEst:   c.TokensEst,
		})
	}
	return chunks, nil
}
