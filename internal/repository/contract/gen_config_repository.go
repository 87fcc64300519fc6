package contract

import (
	"context"

	"studyforge-be/internal/entity"
)

type GenConfigRepository interface {
	FindByKey(ctx context.Context, key string) (*entity.GenConfiguration, error)
	FindAll(ctx context.Context) ([]*entity.GenConfiguration, error)
	Upsert(ctx context.Context, cfg *entity.GenConfiguration) error
}
