package contract

import (
	"context"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.GenerationJob) error
	Update(ctx context.Context, job *entity.GenerationJob) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.GenerationJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error)
	CountQueued(ctx context.Context) (int64, error)
}
