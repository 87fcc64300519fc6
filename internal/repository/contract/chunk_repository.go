package contract

import (
	"context"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.ContextChunk) error
	DeleteByModuleAndFile(ctx context.Context, moduleId uuid.UUID, fileId string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error

	// FindTopK ranks a module's chunks by cosine similarity to the query
	// embedding. A nil embedding falls back to time-ordered listing.
	FindTopK(ctx context.Context, moduleId uuid.UUID, queryEmbedding []float32, topK int) ([]*entity.ContextChunk, error)
}
