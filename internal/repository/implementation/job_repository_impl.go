package implementation

import (
	"context"
	"errors"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/mapper"
	"studyforge-be/internal/model"
	"studyforge-be/internal/repository/contract"
	"studyforge-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JobMapper
}

func NewJobRepository(db *gorm.DB) contract.JobRepository {
	return &JobRepositoryImpl{
		db:     db,
		mapper: mapper.NewJobMapper(),
	}
}

func (r *JobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JobRepositoryImpl) Create(ctx context.Context, job *entity.GenerationJob) error {
	m, err := r.mapper.ToModel(job)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *JobRepositoryImpl) Update(ctx context.Context, job *entity.GenerationJob) error {
	m, err := r.mapper.ToModel(job)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *JobRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.GenerationJob, error) {
	var m model.GenerationJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *JobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationJob, error) {
	var models []*model.GenerationJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.GenerationJob, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (r *JobRepositoryImpl) CountQueued(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GenerationJob{}).
		Where("status = ?", entity.JobStatusQueued).
		Count(&count).Error
	return count, err
}
