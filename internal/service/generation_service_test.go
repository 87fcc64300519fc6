package service

import (
	"context"
	"testing"

	"studyforge-be/internal/config"
	"studyforge-be/internal/dto"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/repository/contract"
	"studyforge-be/internal/repository/memory"
	"studyforge-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenConfigRepo serves tunables from a map; nil map means nothing is
// configured.
type stubGenConfigRepo struct {
	byKey map[string]*entity.GenConfiguration
}

func (r *stubGenConfigRepo) FindByKey(ctx context.Context, key string) (*entity.GenConfiguration, error) {
	return r.byKey[key], nil
}

func (r *stubGenConfigRepo) FindAll(ctx context.Context) ([]*entity.GenConfiguration, error) {
	out := make([]*entity.GenConfiguration, 0, len(r.byKey))
	for _, c := range r.byKey {
		out = append(out, c)
	}
	return out, nil
}

func (r *stubGenConfigRepo) Upsert(ctx context.Context, cfg *entity.GenConfiguration) error {
	if r.byKey == nil {
		r.byKey = make(map[string]*entity.GenConfiguration)
	}
	r.byKey[cfg.Key] = cfg
	return nil
}

// fakeUow wires the in-memory job store into the unit-of-work surface. Only
// the repositories under test are populated.
type fakeUow struct {
	jobs    contract.JobRepository
	genCfgs contract.GenConfigRepository
}

func (f *fakeUow) Begin(ctx context.Context) error                   { return nil }
func (f *fakeUow) Commit() error                                     { return nil }
func (f *fakeUow) Rollback() error                                   { return nil }
func (f *fakeUow) ChunkRepository() contract.ChunkRepository         { return nil }
func (f *fakeUow) DeckRepository() contract.DeckRepository           { return nil }
func (f *fakeUow) JobRepository() contract.JobRepository             { return f.jobs }
func (f *fakeUow) GenConfigRepository() contract.GenConfigRepository { return f.genCfgs }

type fakeUowFactory struct {
	uow *fakeUow
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type capturingPublisher struct {
	payloads [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestGenerationService(pub IPublisherService) (IGenerationService, contract.JobRepository) {
	jobs := memory.NewJobRepository()
	factory := &fakeUowFactory{uow: &fakeUow{jobs: jobs, genCfgs: &stubGenConfigRepo{}}}
	cfg := config.GenerationConfig{Concurrency: 4, TopK: 12, MinChunks: 4, TargetCards: 10}
	svc := NewGenerationService(factory, pub, nil, "GENERATION_JOBS", nil, nil, nil, cfg, noopLogger{})
	return svc, jobs
}

func TestQueueJobTargetCardsFromStoredConfig(t *testing.T) {
	jobs := memory.NewJobRepository()
	genCfgs := &stubGenConfigRepo{byKey: map[string]*entity.GenConfiguration{
		"default_target_cards": {Key: "default_target_cards", Value: "7", ValueType: "int"},
	}}
	factory := &fakeUowFactory{uow: &fakeUow{jobs: jobs, genCfgs: genCfgs}}
	cfg := config.GenerationConfig{Concurrency: 4, TopK: 12, MinChunks: 4, TargetCards: 10}
	svc := NewGenerationService(factory, &capturingPublisher{}, nil, "GENERATION_JOBS", nil, nil, nil, cfg, noopLogger{})

	resp, err := svc.QueueJob(context.Background(), &dto.QueueGenerationRequest{
		CourseId:    uuid.New(),
		CourseTitle: "Biology 101",
		Modules:     []dto.ModuleInput{{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"}},
	})
	require.NoError(t, err)

	stored, err := jobs.FindById(context.Background(), resp.JobId)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.TargetCards, "stored tunable overrides the environment default")
}

func TestQueueJobDefaultsAndPosition(t *testing.T) {
	pub := &capturingPublisher{}
	svc, jobs := newTestGenerationService(pub)

	req := &dto.QueueGenerationRequest{
		CourseId:    uuid.New(),
		CourseTitle: "Biology 101",
		Modules: []dto.ModuleInput{
			{ModuleId: uuid.New(), ModuleTitle: "Photosynthesis"},
			{ModuleId: uuid.New(), ModuleTitle: "Respiration"},
		},
	}

	resp, err := svc.QueueJob(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusQueued, resp.Status)
	assert.Equal(t, 1, resp.QueuePosition)
	assert.Equal(t, 2, resp.ModulesToProcess)
	assert.Equal(t, 45, resp.EstimatedSeconds, "two modules fit one batch")
	assert.Len(t, pub.payloads, 1)

	stored, err := jobs.FindById(context.Background(), resp.JobId)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 10, stored.TargetCards, "zero target falls back to the configured default")
	assert.Len(t, stored.Modules, 2)

	// A second job queues behind the first.
	resp2, err := svc.QueueJob(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, resp2.QueuePosition)
}

func TestQueueJobConcurrencyFromStoredConfig(t *testing.T) {
	jobs := memory.NewJobRepository()
	genCfgs := &stubGenConfigRepo{byKey: map[string]*entity.GenConfiguration{
		"concurrency": {Key: "concurrency", Value: "2", ValueType: "int"},
	}}
	factory := &fakeUowFactory{uow: &fakeUow{jobs: jobs, genCfgs: genCfgs}}
	cfg := config.GenerationConfig{Concurrency: 4, TopK: 12, MinChunks: 4, TargetCards: 10}
	svc := NewGenerationService(factory, &capturingPublisher{}, nil, "GENERATION_JOBS", nil, nil, nil, cfg, noopLogger{})

	modules := make([]dto.ModuleInput, 4)
	for i := range modules {
		modules[i] = dto.ModuleInput{ModuleId: uuid.New(), ModuleTitle: "M"}
	}
	resp, err := svc.QueueJob(context.Background(), &dto.QueueGenerationRequest{
		CourseId:    uuid.New(),
		CourseTitle: "Biology 101",
		Modules:     modules,
		TargetCards: 5,
	})
	require.NoError(t, err)
	// Four modules at the stored width of two is two batches.
	assert.Equal(t, 90, resp.EstimatedSeconds)
}

func TestQueueJobEstimateScalesByBatch(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestGenerationService(pub)

	modules := make([]dto.ModuleInput, 9)
	for i := range modules {
		modules[i] = dto.ModuleInput{ModuleId: uuid.New(), ModuleTitle: "M"}
	}
	resp, err := svc.QueueJob(context.Background(), &dto.QueueGenerationRequest{
		CourseId:    uuid.New(),
		CourseTitle: "Biology 101",
		Modules:     modules,
		TargetCards: 5,
	})
	require.NoError(t, err)
	// Nine modules at concurrency four is three batches.
	assert.Equal(t, 135, resp.EstimatedSeconds)
}

func TestListJobs(t *testing.T) {
	svc, _ := newTestGenerationService(&capturingPublisher{})

	for i := 0; i < 3; i++ {
		_, err := svc.QueueJob(context.Background(), &dto.QueueGenerationRequest{
			CourseId:    uuid.New(),
			CourseTitle: "Biology 101",
			Modules:     []dto.ModuleInput{{ModuleId: uuid.New(), ModuleTitle: "M"}},
		})
		require.NoError(t, err)
	}

	jobs, err := svc.ListJobs(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestGetJobStatusNotFound(t *testing.T) {
	svc, _ := newTestGenerationService(&capturingPublisher{})
	_, err := svc.GetJobStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestFinalJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all success", []string{entity.ModuleStatusSuccess, entity.ModuleStatusSuccess}, entity.JobStatusCompleted},
		{"skipped is not an error", []string{entity.ModuleStatusSuccess, entity.ModuleStatusSkipped}, entity.JobStatusCompleted},
		{"one partial", []string{entity.ModuleStatusSuccess, entity.ModuleStatusPartial}, entity.JobStatusCompletedWithErrors},
		{"one failed among successes", []string{entity.ModuleStatusSuccess, entity.ModuleStatusFailed}, entity.JobStatusCompletedWithErrors},
		{"need more content", []string{entity.ModuleStatusSuccess, entity.ModuleStatusNeedMoreContent}, entity.JobStatusCompletedWithErrors},
		{"all failed", []string{entity.ModuleStatusFailed, entity.ModuleStatusFailed}, entity.JobStatusFailed},
		{"no results", nil, entity.JobStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]entity.ModuleResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i] = entity.ModuleResult{Status: s}
			}
			assert.Equal(t, tt.want, finalJobStatus(results))
		})
	}
}

func TestMetricsAccumulation(t *testing.T) {
	svc, _ := newTestGenerationService(&capturingPublisher{})
	gs := svc.(*generationService)

	deck := &entity.FlashcardDeck{
		Cards: groundedCards(),
		Metadata: entity.GenerationMetadata{
			PromptTokens:     200,
			CompletionTokens: 80,
			LLMCalls:         3,
			CostUSD:          0.001,
		},
	}
	gs.recordModuleMetrics(deck, entity.ModuleResult{Status: entity.ModuleStatusSuccess, DurationMs: 1200})
	gs.recordModuleMetrics(nil, entity.ModuleResult{Status: entity.ModuleStatusFailed, DurationMs: 300})
	gs.recordModuleMetrics(nil, entity.ModuleResult{Status: entity.ModuleStatusNeedMoreContent, DurationMs: 6})

	m := svc.GetMetrics()
	assert.Equal(t, 1, m.DecksGenerated)
	assert.Equal(t, 1, m.DecksFailed)
	assert.Equal(t, 1, m.ModulesSkipped)
	assert.Equal(t, 2, m.CardsGenerated)
	assert.Equal(t, 200, m.TotalPromptTokens)
	assert.Equal(t, 80, m.TotalOutputTokens)
	assert.Equal(t, 3, m.TotalLLMCalls)
	assert.InDelta(t, 0.001, m.EstimatedCostUSD, 1e-9)
	assert.Equal(t, int64(502), m.AvgModuleMs)
}
