package implementation

import (
	"context"
	"errors"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/mapper"
	"studyforge-be/internal/model"
	"studyforge-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GenConfigRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenConfigMapper
}

func NewGenConfigRepository(db *gorm.DB) contract.GenConfigRepository {
	return &GenConfigRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenConfigMapper(),
	}
}

func (r *GenConfigRepositoryImpl) FindByKey(ctx context.Context, key string) (*entity.GenConfiguration, error) {
	var m model.GenConfiguration
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *GenConfigRepositoryImpl) FindAll(ctx context.Context) ([]*entity.GenConfiguration, error) {
	var models []*model.GenConfiguration
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GenConfiguration, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *GenConfigRepositoryImpl) Upsert(ctx context.Context, cfg *entity.GenConfiguration) error {
	m := r.mapper.ToModel(cfg)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "value_type", "description", "category", "updated_at"}),
	}).Create(m).Error
}
