package mapper

import (
	"encoding/json"
	"time"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/model"
	"studyforge-be/pkg/cards"

	"gorm.io/datatypes"
)

type DeckMapper struct{}

func NewDeckMapper() *DeckMapper {
	return &DeckMapper{}
}

func (m *DeckMapper) ToEntity(d *model.FlashcardDeck) (*entity.FlashcardDeck, error) {
	if d == nil {
		return nil, nil
	}

	var deckCards []cards.Flashcard
	if len(d.Cards) > 0 {
		if err := json.Unmarshal(d.Cards, &deckCards); err != nil {
			return nil, err
		}
	}

	var stageA *cards.StageAOutput
	if len(d.StageAOutput) > 0 {
		stageA = &cards.StageAOutput{}
		if err := json.Unmarshal(d.StageAOutput, stageA); err != nil {
			return nil, err
		}
	}

	var warnings []string
	if len(d.Warnings) > 0 {
		if err := json.Unmarshal(d.Warnings, &warnings); err != nil {
			return nil, err
		}
	}

	var metadata entity.GenerationMetadata
	if len(d.Metadata) > 0 {
		if err := json.Unmarshal(d.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.FlashcardDeck{
		Id:           d.Id,
		CourseId:     d.CourseId,
		ModuleId:     d.ModuleId,
		ModuleTitle:  d.ModuleTitle,
		Cards:        deckCards,
		StageA:       stageA,
		Warnings:     warnings,
		Metadata:     metadata,
		ReviewedBy:   d.ReviewedBy,
		ReviewStatus: d.ReviewStatus,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func (m *DeckMapper) ToModel(d *entity.FlashcardDeck) (*model.FlashcardDeck, error) {
	if d == nil {
		return nil, nil
	}

	cardsJSON, err := json.Marshal(d.Cards)
	if err != nil {
		return nil, err
	}

	var stageAJSON datatypes.JSON
	if d.StageA != nil {
		raw, err := json.Marshal(d.StageA)
		if err != nil {
			return nil, err
		}
		stageAJSON = raw
	}

	warningsJSON, err := json.Marshal(d.Warnings)
	if err != nil {
		return nil, err
	}

	metadataJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, err
	}

	reviewStatus := d.ReviewStatus
	if reviewStatus == "" {
		reviewStatus = entity.ReviewStatusPending
	}

	return &model.FlashcardDeck{
		Id:           d.Id,
		CourseId:     d.CourseId,
		ModuleId:     d.ModuleId,
		ModuleTitle:  d.ModuleTitle,
		Cards:        cardsJSON,
		StageAOutput: stageAJSON,
		Warnings:     warningsJSON,
		Metadata:     metadataJSON,
		ReviewedBy:   d.ReviewedBy,
		ReviewStatus: reviewStatus,
		CreatedAt:    d.CreatedAt,
	}, nil
}
