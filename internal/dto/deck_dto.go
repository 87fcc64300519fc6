package dto

import (
	"time"

	"github.com/google/uuid"

	"studyforge-be/internal/entity"
	"studyforge-be/pkg/cards"
)

type DeckResponse struct {
	Id           uuid.UUID                 `json:"id"`
	CourseId     uuid.UUID                 `json:"course_id"`
	ModuleId     uuid.UUID                 `json:"module_id"`
	ModuleTitle  string                    `json:"module_title"`
	Cards        []cards.Flashcard         `json:"cards"`
	Warnings     []string                  `json:"warnings,omitempty"`
	Metadata     entity.GenerationMetadata `json:"generation_metadata"`
	ReviewStatus string                    `json:"review_status"`
	ReviewedBy   *string                   `json:"reviewed_by"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    *time.Time                `json:"updated_at,omitempty"`
}

type ApproveDeckRequest struct {
	ReviewedBy string `json:"reviewed_by" validate:"required"`
}

type EditCardRequest struct {
	Q          string `json:"q" validate:"required"`
	A          string `json:"a" validate:"required"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	ReviewedBy string `json:"reviewed_by" validate:"required"`
}
