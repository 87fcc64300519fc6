package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"studyforge-be/internal/config"
	"studyforge-be/internal/entity"
	"studyforge-be/pkg/cards"
	"studyforge-be/pkg/embedding"
	"studyforge-be/pkg/transcript"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

type fakeChunkSource struct {
	chunks  []*entity.ContextChunk
	err     error
	gotTopK int
}

func (f *fakeChunkSource) FindTopK(ctx context.Context, moduleId uuid.UUID, queryEmbedding []float32, topK int) ([]*entity.ContextChunk, error) {
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

// unembeddedChunkSource mimics a store the embedding consumer has not caught
// up with: ranked lookups find nothing, time-ordered lookups see everything.
type unembeddedChunkSource struct {
	chunks       []*entity.ContextChunk
	rankedCalls  int
	orderedCalls int
}

func (f *unembeddedChunkSource) FindTopK(ctx context.Context, moduleId uuid.UUID, queryEmbedding []float32, topK int) ([]*entity.ContextChunk, error) {
	if len(queryEmbedding) > 0 {
		f.rankedCalls++
		return nil, nil
	}
	f.orderedCalls++
	return f.chunks, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2}},
	}, nil
}

// fakeTunables serves stored runtime settings from a map.
type fakeTunables struct {
	values map[string]string
}

func (f *fakeTunables) FindByKey(ctx context.Context, key string) (*entity.GenConfiguration, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return &entity.GenConfiguration{Key: key, Value: v}, nil
}

// fakeExecutor scripts the model-backed stages and counts every call so tests
// can assert the pipeline's call budget.
type fakeExecutor struct {
	stageA    *cards.StageAOutput
	stageAErr error
	stageB    []cards.Flashcard
	stageBErr error
	calls     int
}

func (f *fakeExecutor) RunStageA(ctx context.Context, courseTitle, moduleTitle string, chunks []transcript.Chunk) (*cards.StageAOutput, error) {
	f.calls++
	if f.stageAErr != nil {
		return nil, f.stageAErr
	}
	return f.stageA, nil
}

func (f *fakeExecutor) RunStageB(ctx context.Context, moduleTitle string, stageA *cards.StageAOutput, chunks []transcript.Chunk, targetCards int, dist cards.Distribution) ([]cards.Flashcard, error) {
	f.calls++
	if f.stageBErr != nil {
		return nil, f.stageBErr
	}
	out := make([]cards.Flashcard, len(f.stageB))
	copy(out, f.stageB)
	return out, nil
}

func (f *fakeExecutor) GenerateRepairCard(ctx context.Context, topic string, existingQuestions []string, chunks []transcript.Chunk) (*cards.Flashcard, error) {
	f.calls++
	return nil, errors.New("no repair available")
}

func (f *fakeExecutor) JudgeEvidence(ctx context.Context, question, answer, excerpt, chunkText string) (bool, float64, error) {
	f.calls++
	return false, 0, nil
}

func (f *fakeExecutor) Usage() cards.Usage {
	return cards.Usage{PromptTokens: 100, CompletionTokens: 50, Calls: f.calls}
}

func storedChunk(id string, text string) *entity.ContextChunk {
	return &entity.ContextChunk{
		Id:        uuid.New(),
		ChunkID:   id,
		FileId:    "lecture-01.vtt",
		Provider:  "whisper",
		Text:      text,
		TokensEst: 20,
	}
}

func testCorpus() []*entity.ContextChunk {
	return []*entity.ContextChunk{
		storedChunk("ch_0001", "Photosynthesis converts light energy into chemical energy. It occurs in the chloroplasts of plant cells."),
		storedChunk("ch_0002", "The light-dependent reactions take place in the thylakoid membrane. They produce ATP and NADPH."),
		storedChunk("ch_0003", "The Calvin cycle fixes carbon dioxide into glucose. It runs in the stroma."),
		storedChunk("ch_0004", "Chlorophyll absorbs red and blue light most strongly. Green light is reflected, which is why leaves look green."),
	}
}

func groundedStageA() *cards.StageAOutput {
	return &cards.StageAOutput{
		ModuleSummary: []cards.SummaryPoint{
			{Point: "Photosynthesis converts light into chemical energy.", Supports: []string{"ch_0001"}},
		},
		KeyTopics: []cards.KeyTopic{
			{Topic: "photosynthesis", Supports: []string{"ch_0001"}},
			{Topic: "Calvin cycle", Supports: []string{"ch_0003"}},
		},
	}
}

func groundedCards() []cards.Flashcard {
	return []cards.Flashcard{
		{
			CardID:     uuid.NewString(),
			Q:          "What does photosynthesis convert?",
			A:          "Photosynthesis converts light energy into chemical energy.",
			Difficulty: cards.DifficultyEasy,
			BloomLevel: cards.BloomRemember,
			Evidence: []cards.Evidence{
				{ChunkID: "ch_0001", Excerpt: "Photosynthesis converts light energy into chemical energy."},
			},
			Sources: []string{"lecture-01.vtt"},
		},
		{
			CardID:     uuid.NewString(),
			Q:          "Where does the Calvin cycle run?",
			A:          "The Calvin cycle runs in the stroma, fixing carbon dioxide into glucose.",
			Difficulty: cards.DifficultyMedium,
			BloomLevel: cards.BloomUnderstand,
			Evidence: []cards.Evidence{
				{ChunkID: "ch_0003", Excerpt: "The Calvin cycle fixes carbon dioxide into glucose."},
			},
			Sources: []string{"lecture-01.vtt"},
		},
	}
}

func testPipeline(source ChunkSource, exec *fakeExecutor) *ModulePipeline {
	return testPipelineTuned(source, exec, nil)
}

func testPipelineTuned(source ChunkSource, exec *fakeExecutor, tunables TunableSource) *ModulePipeline {
	cfg := config.GenerationConfig{Concurrency: 4, TopK: 12, MinChunks: 4, TargetCards: 10, DedupeThreshold: 0.85}
	return NewModulePipeline(
		source,
		nil, // no embedding provider, time-ordered retrieval
		func() StageExecutor { return exec },
		cards.NewStaticCostEstimator(),
		"llama3.2",
		cfg,
		tunables,
		noopLogger{},
	)
}

func TestRunModuleNeedMoreContent(t *testing.T) {
	exec := &fakeExecutor{}
	source := &fakeChunkSource{chunks: testCorpus()[:2]}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 10)

	assert.Nil(t, deck)
	assert.Equal(t, entity.ModuleStatusNeedMoreContent, result.Status)
	assert.Zero(t, exec.calls, "insufficient content must not trigger model calls")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "need at least 4")
}

func TestRunModuleStageAFailure(t *testing.T) {
	exec := &fakeExecutor{stageAErr: errors.New("model unavailable")}
	source := &fakeChunkSource{chunks: testCorpus()}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 10)

	assert.Nil(t, deck)
	assert.Equal(t, entity.ModuleStatusFailed, result.Status)
	assert.Contains(t, result.Error, "stage A")
}

func TestRunModuleChunkSourceFailure(t *testing.T) {
	exec := &fakeExecutor{}
	source := &fakeChunkSource{err: errors.New("connection refused")}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 10)

	assert.Nil(t, deck)
	assert.Equal(t, entity.ModuleStatusFailed, result.Status)
	assert.Contains(t, result.Error, "chunk retrieval")
	assert.Zero(t, exec.calls)
}

func TestRunModulePartialDeck(t *testing.T) {
	// Two verified cards against a target of ten: the deck persists but the
	// module reports PARTIAL.
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: groundedCards()}
	source := &fakeChunkSource{chunks: testCorpus()}
	pipeline := testPipeline(source, exec)

	courseId := uuid.New()
	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), courseId, "Biology 101", target, 10)

	require.NotNil(t, deck)
	assert.Equal(t, entity.ModuleStatusPartial, result.Status)
	assert.Equal(t, 2, result.GeneratedCount)
	assert.Equal(t, courseId, deck.CourseId)
	assert.Equal(t, target.ModuleId, deck.ModuleId)
	assert.Equal(t, entity.ReviewStatusPending, deck.ReviewStatus)

	// Evidence matched verbatim, so both cards carry exact confidence.
	for _, c := range deck.Cards {
		assert.InDelta(t, cards.ConfidenceExact, c.ConfidenceScore, 1e-9)
		assert.False(t, c.ReviewRequired)
	}

	assert.Equal(t, "llama3.2", deck.Metadata.Model)
	assert.Equal(t, 100, deck.Metadata.PromptTokens)
	assert.Positive(t, deck.Metadata.LLMCalls)
}

func TestRunModuleSuccess(t *testing.T) {
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: groundedCards()}
	source := &fakeChunkSource{chunks: testCorpus()}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 2)

	require.NotNil(t, deck)
	assert.Equal(t, entity.ModuleStatusSuccess, result.Status)
	assert.Equal(t, 2, result.GeneratedCount)
}

func TestRunModuleDeduplicatesStageBOutput(t *testing.T) {
	base := groundedCards()
	dup := base[0]
	dup.CardID = uuid.NewString()
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: append(base, dup)}
	source := &fakeChunkSource{chunks: testCorpus()}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 2)

	require.NotNil(t, deck)
	assert.Equal(t, 2, result.GeneratedCount, "near-identical card should be dropped")
	assert.Len(t, deck.Cards, 2)
}

func TestRunModuleFallsBackWhenRankedRetrievalEmpty(t *testing.T) {
	// Chunks exist but none are embedded yet, so the ranked query sees
	// nothing. The run must retry in time order instead of reporting the
	// module short on content.
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: groundedCards()}
	source := &unembeddedChunkSource{chunks: testCorpus()}
	cfg := config.GenerationConfig{Concurrency: 4, TopK: 12, MinChunks: 4, TargetCards: 10, DedupeThreshold: 0.85}
	pipeline := NewModulePipeline(
		source,
		fakeEmbedder{},
		func() StageExecutor { return exec },
		cards.NewStaticCostEstimator(),
		"llama3.2",
		cfg,
		nil,
		noopLogger{},
	)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 2)

	require.NotNil(t, deck)
	assert.Equal(t, entity.ModuleStatusSuccess, result.Status)
	assert.Equal(t, 1, source.rankedCalls)
	assert.Equal(t, 1, source.orderedCalls)
}

func TestRunModuleMinChunksTunable(t *testing.T) {
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: groundedCards()[:1]}
	source := &fakeChunkSource{chunks: testCorpus()[:2]}
	tunables := &fakeTunables{values: map[string]string{"min_chunks": "2"}}
	pipeline := testPipelineTuned(source, exec, tunables)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 1)

	require.NotNil(t, deck, "two chunks satisfy the lowered minimum")
	assert.NotEqual(t, entity.ModuleStatusNeedMoreContent, result.Status)
	assert.Positive(t, exec.calls)
}

func TestRunModuleTopKTunable(t *testing.T) {
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: groundedCards()}
	source := &fakeChunkSource{chunks: testCorpus()}
	tunables := &fakeTunables{values: map[string]string{"top_k": "6"}}
	pipeline := testPipelineTuned(source, exec, tunables)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 2)

	assert.Equal(t, 6, source.gotTopK)
}

func TestRunModuleDedupeThresholdTunable(t *testing.T) {
	similar := groundedCards()[:1]
	reworded := similar[0]
	reworded.CardID = uuid.NewString()
	reworded.Q = "What does photosynthesis produce overall?"

	// Question overlap sits at 0.5: distinct under the default threshold,
	// merged once the operator lowers it.
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: append(similar, reworded)}
	source := &fakeChunkSource{chunks: testCorpus()}
	tunables := &fakeTunables{values: map[string]string{"dedupe_threshold": "0.5"}}
	pipeline := testPipelineTuned(source, exec, tunables)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 1)

	require.NotNil(t, deck)
	assert.Equal(t, 1, result.GeneratedCount)
	assert.Len(t, deck.Cards, 1)
}

func TestRunModuleFlaggedCardForcesPartial(t *testing.T) {
	bogus := groundedCards()
	bogus[0].Evidence = []cards.Evidence{{ChunkID: "ch_0001", Excerpt: "mitochondria synthesize sunlight directly"}}
	exec := &fakeExecutor{stageA: groundedStageA(), stageB: bogus}
	source := &fakeChunkSource{chunks: testCorpus()}
	pipeline := testPipeline(source, exec)

	target := entity.ModuleTarget{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}
	deck, result := pipeline.RunModule(context.Background(), uuid.New(), "Biology 101", target, 2)

	require.NotNil(t, deck)
	assert.Equal(t, entity.ModuleStatusPartial, result.Status)

	flagged := false
	for _, c := range deck.Cards {
		if c.ReviewRequired {
			flagged = true
			assert.InDelta(t, cards.ConfidenceUnverified, c.ConfidenceScore, 1e-9)
		}
	}
	assert.True(t, flagged)

	found := false
	for _, w := range result.Warnings {
		if w == fmt.Sprintf("%d cards flagged for human review", 1) {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", result.Warnings)
}
