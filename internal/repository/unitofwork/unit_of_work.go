package unitofwork

import (
	"context"

	"studyforge-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChunkRepository() contract.ChunkRepository
	DeckRepository() contract.DeckRepository
	JobRepository() contract.JobRepository
	GenConfigRepository() contract.GenConfigRepository
}
