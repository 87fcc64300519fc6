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

type DeckRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DeckMapper
}

func NewDeckRepository(db *gorm.DB) contract.DeckRepository {
	return &DeckRepositoryImpl{
		db:     db,
		mapper: mapper.NewDeckMapper(),
	}
}

func (r *DeckRepositoryImpl) Upsert(ctx context.Context, deck *entity.FlashcardDeck) error {
	m, err := r.mapper.ToModel(deck)
	if err != nil {
		return err
	}
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}

	// Regeneration overwrites the whole deck and resets review state.
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "course_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"module_title", "cards", "stage_a_output", "warnings", "metadata",
			"review_status", "reviewed_by", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	e, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*deck = *e
	return nil
}

func (r *DeckRepositoryImpl) Update(ctx context.Context, deck *entity.FlashcardDeck) error {
	m, err := r.mapper.ToModel(deck)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *DeckRepositoryImpl) FindByCourseAndModule(ctx context.Context, courseId, moduleId uuid.UUID) (*entity.FlashcardDeck, error) {
	var m model.FlashcardDeck
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND module_id = ?", courseId, moduleId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *DeckRepositoryImpl) FindAllByCourse(ctx context.Context, courseId uuid.UUID) ([]*entity.FlashcardDeck, error) {
	var models []*model.FlashcardDeck
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseId).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.FlashcardDeck, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
