package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GenerationJob struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CourseId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	CourseTitle      string         `gorm:"type:varchar(255)"`
	Status           string         `gorm:"type:varchar(30);not null;index"`
	Modules          datatypes.JSON `gorm:"type:jsonb"`
	TargetCards      int            `gorm:"not null;default:0"`
	ModulesToProcess int            `gorm:"not null;default:0"`
	EstimatedSeconds int            `gorm:"not null;default:0"`
	QueuePosition    int            `gorm:"not null;default:0"`
	ModuleResults    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
