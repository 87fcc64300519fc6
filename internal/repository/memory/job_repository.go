package memory

import (
	"context"
	"sort"
	"time"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/repository/contract"
	"studyforge-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// JobRepository is the in-memory JobRepository used in tests and when no
// database is configured. Jobs expire 24h after their last write.
type JobRepository struct {
	cache *cache.Cache
}

func NewJobRepository() contract.JobRepository {
	return &JobRepository{
		cache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	copied := *job
	r.cache.Set(job.Id.String(), &copied, cache.DefaultExpiration)
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	return r.Create(ctx, job)
}

func (r *JobRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.GenerationJob, error) {
	if x, found := r.cache.Get(id.String()); found {
		copied := *x.(*entity.GenerationJob)
		return &copied, nil
	}
	return nil, nil
}

// FindAll returns every stored job newest first. Query specifications are a
// database concern; the dev store does not filter.
func (r *JobRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	items := r.cache.Items()
	jobs := make([]*entity.GenerationJob, 0, len(items))
	for _, item := range items {
		copied := *item.Object.(*entity.GenerationJob)
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (r *JobRepository) CountQueued(ctx context.Context) (int64, error) {
	var count int64
	for _, item := range r.cache.Items() {
		if item.Object.(*entity.GenerationJob).Status == entity.JobStatusQueued {
			count++
		}
	}
	return count, nil
}
