package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FlashcardDeck struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseId     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_deck_course_module"`
	ModuleId     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_deck_course_module"`
	ModuleTitle  string         `gorm:"type:varchar(255);not null"`
	Cards        datatypes.JSON `gorm:"type:jsonb;not null"`
	StageAOutput datatypes.JSON `gorm:"type:jsonb"`
	Warnings     datatypes.JSON `gorm:"type:jsonb"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	ReviewedBy   *string        `gorm:"type:varchar(255)"`
	ReviewStatus string         `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (FlashcardDeck) TableName() string {
	return "flashcard_decks"
}
