package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ContextChunk struct {
	Id          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChunkId     string           `gorm:"type:varchar(32);uniqueIndex;not null"`
	ModuleId    uuid.UUID        `gorm:"type:uuid;not null;index"`
	CourseId    uuid.UUID        `gorm:"type:uuid;not null;index"`
	FileId      string           `gorm:"type:varchar(255);not null"`
	Provider    string           `gorm:"type:varchar(50)"`
	SlideOrPage *string          `gorm:"type:varchar(100)"`
	StartSec    *float64         `gorm:"type:double precision"`
	EndSec      *float64         `gorm:"type:double precision"`
	Heading     *string          `gorm:"type:text"`
	Text        string           `gorm:"type:text;not null"`
	TokensEst   int              `gorm:"not null;default:0"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

func (ContextChunk) TableName() string {
	return "context_chunks"
}
