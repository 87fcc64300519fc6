package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/specification"
	"studyforge-be/internal/repository/unitofwork"
	"studyforge-be/pkg/transcript"

	"github.com/google/uuid"
)

type IContentService interface {
	IngestTranscript(ctx context.Context, moduleId uuid.UUID, req *dto.IngestTranscriptRequest) (*dto.IngestTranscriptResponse, error)
	GetChunkCount(ctx context.Context, moduleId uuid.UUID) (int64, error)
}

type contentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	chunkOpts        transcript.Options
	logger           logger.ILogger
}

func NewContentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	chunkOpts transcript.Options,
	sysLogger logger.ILogger,
) IContentService {
	return &contentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		chunkOpts:        chunkOpts,
		logger:           sysLogger,
	}
}

// IngestTranscript normalizes and chunks raw transcript segments, then
// replaces the module's stored chunks for that file in one transaction.
// Chunk embedding happens asynchronously via the embedding consumer.
func (s *contentService) IngestTranscript(ctx context.Context, moduleId uuid.UUID, req *dto.IngestTranscriptRequest) (*dto.IngestTranscriptResponse, error) {
	segments := make([]transcript.Segment, 0, len(req.Segments))
	for _, sr := range req.Segments {
		segments = append(segments, sr.ToSegment())
	}

	normalized := transcript.Normalize(segments)

	opts := s.chunkOpts
	if req.Provider != "" {
		opts.Provider = req.Provider
	}
	chunks := transcript.ChunkSegments(moduleId.String(), req.FileId, normalized.Segments, opts)

	entities := make([]*entity.ContextChunk, 0, len(chunks))
	now := time.Now()
	for _, c := range chunks {
		entities = append(entities, &entity.ContextChunk{
			Id:          uuid.New(),
			ChunkID:     c.ChunkID,
			ModuleId:    moduleId,
			CourseId:    req.CourseId,
			FileId:      c.SourceFile,
			Provider:    c.Provider,
			SlideOrPage: c.SlideOrPage,
			StartSec:    c.StartSec,
			EndSec:      c.EndSec,
			Heading:     c.Heading,
			Text:        c.Text,
			TokensEst:   c.TokensEst,
			CreatedAt:   now,
		})
	}

	// Replace-then-insert inside one transaction so a re-upload never leaves
	// the module with a mix of old and new chunks.
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.ChunkRepository().DeleteByModuleAndFile(ctx, moduleId, req.FileId); err != nil {
		_ = uow.Rollback()
		return nil, fmt.Errorf("replace chunks: %w", err)
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, entities); err != nil {
		_ = uow.Rollback()
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("CONTENT", "transcript ingested", map[string]interface{}{
		"module_id": moduleId,
		"file_id":   req.FileId,
		"segments":  len(req.Segments),
		"chunks":    len(entities),
		"redacted":  normalized.Redacted,
		"warnings":  len(normalized.Warnings),
	})

	msgPayload := dto.PublishEmbedChunksMessage{ModuleId: moduleId}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		// Embedding is an enrichment; ingestion already succeeded.
		s.logger.Warn("CONTENT", "failed to enqueue embedding", map[string]interface{}{
			"module_id": moduleId,
			"error":     err.Error(),
		})
	}

	return &dto.IngestTranscriptResponse{
		ModuleId:     moduleId,
		ChunksStored: len(entities),
		Warnings:     normalized.Warnings,
		Redacted:     normalized.Redacted,
	}, nil
}

func (s *contentService) GetChunkCount(ctx context.Context, moduleId uuid.UUID) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ChunkRepository().Count(ctx, specification.ByModuleID{ModuleID: moduleId})
}
