package implementation

import (
	"context"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/mapper"
	"studyforge-be/internal/model"
	"studyforge-be/internal/repository/contract"
	"studyforge-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.ContextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]*model.ContextChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkRepositoryImpl) DeleteByModuleAndFile(ctx context.Context, moduleId uuid.UUID, fileId string) error {
	return r.db.WithContext(ctx).
		Where("module_id = ? AND file_id = ?", moduleId, fileId).
		Delete(&model.ContextChunk{}).Error
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextChunk, error) {
	var models []*model.ContextChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ContextChunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ContextChunk{}).Count(&count).Error
	return count, err
}

func (r *ChunkRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.ContextChunk{}).
		Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

func (r *ChunkRepositoryImpl) FindTopK(ctx context.Context, moduleId uuid.UUID, queryEmbedding []float32, topK int) ([]*entity.ContextChunk, error) {
	if topK <= 0 {
		topK = 12
	}

	var models []*model.ContextChunk

	if len(queryEmbedding) == 0 {
		// No query vector: return the module's chunks in source order.
		err := r.db.WithContext(ctx).
			Where("module_id = ?", moduleId).
			Order("start_sec ASC NULLS LAST, created_at ASC").
			Limit(topK).
			Find(&models).Error
		if err != nil {
			return nil, err
		}
	} else {
		// pgvector cosine distance: embedding <=> vector. Chunks that were
		// never embedded cannot be ranked and are excluded here.
		err := r.db.WithContext(ctx).
			Where("module_id = ?", moduleId).
			Where("embedding IS NOT NULL").
			Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(queryEmbedding))).
			Limit(topK).
			Find(&models).Error
		if err != nil {
			return nil, err
		}
	}

	entities := make([]*entity.ContextChunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
