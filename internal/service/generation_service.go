package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"studyforge-be/internal/config"
	"studyforge-be/internal/dto"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/specification"
	"studyforge-be/internal/repository/unitofwork"
	"studyforge-be/pkg/events"
	"studyforge-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrJobNotFound = errors.New("generation job not found")

// estimatedSecondsPerModule feeds the queue-time ETA. It is a coarse figure
// covering retrieval, two generation stages and verification.
const estimatedSecondsPerModule = 45

type IGenerationService interface {
	QueueJob(ctx context.Context, req *dto.QueueGenerationRequest) (*dto.QueueGenerationResponse, error)
	GetJobStatus(ctx context.Context, jobId uuid.UUID) (*dto.JobStatusResponse, error)
	ListJobs(ctx context.Context, courseId *uuid.UUID) ([]dto.JobStatusResponse, error)
	GetMetrics() *dto.MetricsResponse

	// StartWorker subscribes to the job topic and processes jobs in the
	// background until ctx is cancelled.
	StartWorker(ctx context.Context) error
}

type generationService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	pubSub           *gochannel.GoChannel
	topicName        string
	pipeline         *ModulePipeline
	natsPublisher    *nats.Publisher // nil when NATS is unavailable
	redisClient      *redis.Client   // nil when redis is unavailable
	cfg              config.GenerationConfig
	logger           logger.ILogger

	mu            sync.Mutex
	metrics       dto.MetricsResponse
	moduleRuns    int64
	totalModuleMs int64
}

func NewGenerationService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	pubSub *gochannel.GoChannel,
	topicName string,
	pipeline *ModulePipeline,
	natsPublisher *nats.Publisher,
	redisClient *redis.Client,
	cfg config.GenerationConfig,
	sysLogger logger.ILogger,
) IGenerationService {
	return &generationService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		pubSub:           pubSub,
		topicName:        topicName,
		pipeline:         pipeline,
		natsPublisher:    natsPublisher,
		redisClient:      redisClient,
		cfg:              cfg,
		logger:           sysLogger,
	}
}

// QueueJob validates and persists a job, then hands it to the background
// worker. The request is accepted even when some modules later turn out to
// have no content; those surface as per-module results, not enqueue errors.
func (s *generationService) QueueJob(ctx context.Context, req *dto.QueueGenerationRequest) (*dto.QueueGenerationResponse, error) {
	modules := make([]entity.ModuleTarget, 0, len(req.Modules))
	for _, m := range req.Modules {
		modules = append(modules, entity.ModuleTarget{
			ModuleId:    m.ModuleId,
			ModuleTitle: m.ModuleTitle,
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	targetCards := req.TargetCards
	if targetCards <= 0 {
		targetCards = s.defaultTargetCards(ctx, uow)
	}

	queued, err := uow.JobRepository().CountQueued(ctx)
	if err != nil {
		return nil, err
	}

	concurrency := s.runtimeConcurrency(ctx, uow)
	batches := (len(modules) + concurrency - 1) / concurrency
	job := &entity.GenerationJob{
		Id:               uuid.New(),
		CourseId:         req.CourseId,
		CourseTitle:      req.CourseTitle,
		Status:           entity.JobStatusQueued,
		Modules:          modules,
		TargetCards:      targetCards,
		ModulesToProcess: len(modules),
		EstimatedSeconds: batches * estimatedSecondsPerModule,
		QueuePosition:    int(queued) + 1,
		CreatedAt:        time.Now(),
	}

	if err := uow.JobRepository().Create(ctx, job); err != nil {
		return nil, err
	}

	msgJson, err := json.Marshal(dto.PublishGenerationJobMessage{JobId: job.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("GENERATION", "job queued", map[string]interface{}{
		"job_id":  job.Id,
		"course":  req.CourseId,
		"modules": len(modules),
	})

	return &dto.QueueGenerationResponse{
		JobId:            job.Id,
		Status:           job.Status,
		EstimatedSeconds: job.EstimatedSeconds,
		QueuePosition:    job.QueuePosition,
		ModulesToProcess: job.ModulesToProcess,
	}, nil
}

// defaultTargetCards reads the tunable default from gen_configurations,
// falling back to the environment-configured value when unset or malformed.
func (s *generationService) defaultTargetCards(ctx context.Context, uow unitofwork.UnitOfWork) int {
	stored, err := uow.GenConfigRepository().FindByKey(ctx, "default_target_cards")
	if err != nil || stored == nil {
		return s.cfg.TargetCards
	}
	v, err := strconv.Atoi(stored.Value)
	if err != nil || v <= 0 {
		return s.cfg.TargetCards
	}
	return v
}

// runtimeConcurrency reads the tunable batch width, falling back to the
// environment-configured value when unset or malformed.
func (s *generationService) runtimeConcurrency(ctx context.Context, uow unitofwork.UnitOfWork) int {
	stored, err := uow.GenConfigRepository().FindByKey(ctx, "concurrency")
	if err != nil || stored == nil {
		return s.cfg.Concurrency
	}
	v, err := strconv.Atoi(stored.Value)
	if err != nil || v <= 0 {
		return s.cfg.Concurrency
	}
	return v
}

func (s *generationService) GetJobStatus(ctx context.Context, jobId uuid.UUID) (*dto.JobStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindById(ctx, jobId)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return jobToStatusResponse(job), nil
}

func (s *generationService) ListJobs(ctx context.Context, courseId *uuid.UUID) ([]dto.JobStatusResponse, error) {
	specs := []specification.Specification{specification.OrderByCreatedDesc{}}
	if courseId != nil {
		specs = append(specs, specification.ByCourseID{CourseID: *courseId})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	jobs, err := uow.JobRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	out := make([]dto.JobStatusResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, *jobToStatusResponse(j))
	}
	return out, nil
}

func (s *generationService) GetMetrics() *dto.MetricsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.metrics
	if s.moduleRuns > 0 {
		snapshot.AvgModuleMs = s.totalModuleMs / s.moduleRuns
	}
	return &snapshot
}

func (s *generationService) StartWorker(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.handleJobMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *generationService) handleJobMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishGenerationJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("GENERATION", "failed to unmarshal job message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	s.processJob(ctx, payload.JobId)

	// The job's outcome, success or failure, is persisted on the job record.
	// Redelivering the message would re-run completed modules.
	msg.Ack()
}

// processJob runs the job's modules in bounded-concurrency batches. State is
// persisted after every batch so a crash loses at most one batch of work.
func (s *generationService) processJob(ctx context.Context, jobId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindById(ctx, jobId)
	if err != nil || job == nil {
		s.logger.Error("GENERATION", "job lookup failed", map[string]interface{}{
			"job_id": jobId,
			"error":  fmt.Sprintf("%v", err),
		})
		return
	}
	if job.Terminal() {
		s.logger.Warn("GENERATION", "job already terminal, skipping", map[string]interface{}{
			"job_id": jobId,
			"status": job.Status,
		})
		return
	}

	now := time.Now()
	job.Status = entity.JobStatusProcessing
	job.StartedAt = &now
	job.QueuePosition = 0
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		s.logger.Error("GENERATION", "failed to mark job processing", map[string]interface{}{
			"job_id": jobId,
			"error":  err.Error(),
		})
		return
	}
	s.cacheJobStatus(ctx, job)

	seen := make(map[uuid.UUID]bool)
	pending := make([]entity.ModuleTarget, 0, len(job.Modules))
	for _, target := range job.Modules {
		if seen[target.ModuleId] {
			job.ModuleResults = append(job.ModuleResults, entity.ModuleResult{
				ModuleId:    target.ModuleId,
				ModuleTitle: target.ModuleTitle,
				Status:      entity.ModuleStatusSkipped,
				Warnings:    []string{"duplicate module in request"},
			})
			continue
		}
		seen[target.ModuleId] = true
		pending = append(pending, target)
	}

	concurrency := s.runtimeConcurrency(ctx, uow)
	for start := 0; start < len(pending); start += concurrency {
		end := start + concurrency
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		decks, results := s.runBatch(ctx, job, batch)

		for i, result := range results {
			job.ModuleResults = append(job.ModuleResults, result)
			if decks[i] != nil {
				if err := uow.DeckRepository().Upsert(ctx, decks[i]); err != nil {
					s.logger.Error("GENERATION", "failed to persist deck", map[string]interface{}{
						"job_id":    job.Id,
						"module_id": result.ModuleId,
						"error":     err.Error(),
					})
					job.ModuleResults[len(job.ModuleResults)-1].Status = entity.ModuleStatusFailed
					job.ModuleResults[len(job.ModuleResults)-1].Error = fmt.Sprintf("persist deck: %v", err)
				}
			}
			s.recordModuleMetrics(decks[i], job.ModuleResults[len(job.ModuleResults)-1])
		}

		if err := uow.JobRepository().Update(ctx, job); err != nil {
			s.logger.Error("GENERATION", "failed to checkpoint job", map[string]interface{}{
				"job_id": job.Id,
				"error":  err.Error(),
			})
		}
	}

	completed := time.Now()
	job.Status = finalJobStatus(job.ModuleResults)
	job.CompletedAt = &completed
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		s.logger.Error("GENERATION", "failed to finalize job", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}

	s.mu.Lock()
	s.metrics.JobsProcessed++
	s.mu.Unlock()

	s.cacheJobStatus(ctx, job)
	s.publishJobCompleted(ctx, job)

	s.logger.Info("GENERATION", "job finished", map[string]interface{}{
		"job_id":  job.Id,
		"status":  job.Status,
		"modules": len(job.ModuleResults),
	})
}

// runBatch fans the batch out to goroutines and collects results in batch
// order. A panicking module is converted to a FAILED result instead of
// killing the worker.
func (s *generationService) runBatch(ctx context.Context, job *entity.GenerationJob, batch []entity.ModuleTarget) ([]*entity.FlashcardDeck, []entity.ModuleResult) {
	decks := make([]*entity.FlashcardDeck, len(batch))
	results := make([]entity.ModuleResult, len(batch))

	var wg sync.WaitGroup
	for i, target := range batch {
		wg.Add(1)
		go func(i int, target entity.ModuleTarget) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("GENERATION", "module run panicked", map[string]interface{}{
						"job_id":    job.Id,
						"module_id": target.ModuleId,
						"panic":     fmt.Sprintf("%v", r),
					})
					decks[i] = nil
					results[i] = entity.ModuleResult{
						ModuleId:    target.ModuleId,
						ModuleTitle: target.ModuleTitle,
						Status:      entity.ModuleStatusFailed,
						Error:       fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			decks[i], results[i] = s.pipeline.RunModule(ctx, job.CourseId, job.CourseTitle, target, job.TargetCards)
		}(i, target)
	}
	wg.Wait()

	return decks, results
}

func (s *generationService) recordModuleMetrics(deck *entity.FlashcardDeck, result entity.ModuleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moduleRuns++
	s.totalModuleMs += result.DurationMs

	switch result.Status {
	case entity.ModuleStatusSuccess:
		s.metrics.DecksGenerated++
	case entity.ModuleStatusPartial:
		s.metrics.DecksPartial++
	case entity.ModuleStatusFailed:
		s.metrics.DecksFailed++
	case entity.ModuleStatusSkipped, entity.ModuleStatusNeedMoreContent:
		s.metrics.ModulesSkipped++
	}

	if deck != nil {
		s.metrics.CardsGenerated += len(deck.Cards)
		for _, c := range deck.Cards {
			if c.ReviewRequired {
				s.metrics.CardsFlagged++
			}
		}
		s.metrics.EstimatedCostUSD += deck.Metadata.CostUSD
		s.metrics.TotalPromptTokens += deck.Metadata.PromptTokens
		s.metrics.TotalOutputTokens += deck.Metadata.CompletionTokens
		s.metrics.TotalLLMCalls += deck.Metadata.LLMCalls
	}
}

// cacheJobStatus mirrors the job status into redis for cheap polling. Cache
// failures are logged and ignored.
func (s *generationService) cacheJobStatus(ctx context.Context, job *entity.GenerationJob) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(jobToStatusResponse(job))
	if err != nil {
		return
	}
	key := fmt.Sprintf("job_status:%s", job.Id)
	if err := s.redisClient.Set(ctx, key, payload, 24*time.Hour).Err(); err != nil {
		s.logger.Warn("GENERATION", "failed to cache job status", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}
}

func (s *generationService) publishJobCompleted(ctx context.Context, job *entity.GenerationJob) {
	if s.natsPublisher == nil {
		return
	}
	event := events.BaseEvent{
		Type: "JOB_COMPLETED",
		Data: map[string]interface{}{
			"job_id":    job.Id.String(),
			"course_id": job.CourseId.String(),
			"status":    job.Status,
			"modules":   len(job.ModuleResults),
		},
		OccurredAt: time.Now(),
	}
	if err := s.natsPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("GENERATION", "failed to publish completion event", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}
}

// finalJobStatus derives the terminal job state from its module outcomes.
// Every module failing means the job failed; any blemish short of that is
// completed_with_errors.
func finalJobStatus(results []entity.ModuleResult) string {
	if len(results) == 0 {
		return entity.JobStatusFailed
	}

	allFailed := true
	anyProblem := false
	for _, r := range results {
		if r.Status != entity.ModuleStatusFailed {
			allFailed = false
		}
		switch r.Status {
		case entity.ModuleStatusFailed, entity.ModuleStatusPartial, entity.ModuleStatusNeedMoreContent:
			anyProblem = true
		}
	}

	if allFailed {
		return entity.JobStatusFailed
	}
	if anyProblem {
		return entity.JobStatusCompletedWithErrors
	}
	return entity.JobStatusCompleted
}

func jobToStatusResponse(job *entity.GenerationJob) *dto.JobStatusResponse {
	return &dto.JobStatusResponse{
		JobId:            job.Id,
		CourseId:         job.CourseId,
		Status:           job.Status,
		ModulesToProcess: job.ModulesToProcess,
		ModuleResults:    job.ModuleResults,
		CreatedAt:        job.CreatedAt,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
	}
}
