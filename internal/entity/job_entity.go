package entity

import (
	"time"

	"github.com/google/uuid"
)

// Job states. Terminal states never transition again.
const (
	JobStatusQueued              = "queued"
	JobStatusProcessing          = "processing"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// Per-module outcomes.
const (
	ModuleStatusSuccess         = "SUCCESS"
	ModuleStatusPartial         = "PARTIAL"
	ModuleStatusFailed          = "FAILED"
	ModuleStatusSkipped         = "SKIPPED"
	ModuleStatusNeedMoreContent = "NEED_MORE_CONTENT"
)

// ModuleResult is the outcome of one module's pipeline run.
type ModuleResult struct {
	ModuleId       uuid.UUID `json:"module_id"`
	ModuleTitle    string    `json:"module_title"`
	Status         string    `json:"status"`
	GeneratedCount int       `json:"generated_count"`
	Warnings       []string  `json:"warnings,omitempty"`
	Error          string    `json:"error,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
}

// ModuleTarget is one unit of the job's worklist, resolved at enqueue time.
type ModuleTarget struct {
	ModuleId    uuid.UUID `json:"module_id"`
	ModuleTitle string    `json:"module_title"`
}

// GenerationJob owns many module results. It is created at enqueue time,
// mutated only by its own background task, and immutable once CompletedAt
// is set.
type GenerationJob struct {
	Id               uuid.UUID
	CourseId         uuid.UUID
	CourseTitle      string
	Status           string
	Modules          []ModuleTarget
	TargetCards      int
	ModulesToProcess int
	EstimatedSeconds int
	QueuePosition    int
	ModuleResults    []ModuleResult
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// Terminal reports whether the job can no longer change.
func (j *GenerationJob) Terminal() bool {
	return j.CompletedAt != nil
}
