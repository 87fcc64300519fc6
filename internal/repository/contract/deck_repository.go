package contract

import (
	"context"

	"studyforge-be/internal/entity"

	"github.com/google/uuid"
)

type DeckRepository interface {
	// Upsert replaces the whole deck for (course, module), creating it on
	// first generation.
	Upsert(ctx context.Context, deck *entity.FlashcardDeck) error
	Update(ctx context.Context, deck *entity.FlashcardDeck) error
	FindByCourseAndModule(ctx context.Context, courseId, moduleId uuid.UUID) (*entity.FlashcardDeck, error)
	FindAllByCourse(ctx context.Context, courseId uuid.UUID) ([]*entity.FlashcardDeck, error)
}
