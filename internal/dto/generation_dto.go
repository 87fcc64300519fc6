package dto

import (
	"time"

	"github.com/google/uuid"

	"studyforge-be/internal/entity"
)

type ModuleInput struct {
	ModuleId    uuid.UUID `json:"module_id" validate:"required"`
	ModuleTitle string    `json:"module_title" validate:"required"`
}

type QueueGenerationRequest struct {
	CourseId    uuid.UUID     `json:"course_id" validate:"required"`
	CourseTitle string        `json:"course_title" validate:"required"`
	Modules     []ModuleInput `json:"modules" validate:"required,min=1,dive"`
	TargetCards int           `json:"target_cards"`
}

type QueueGenerationResponse struct {
	JobId            uuid.UUID `json:"job_id"`
	Status           string    `json:"status"`
	EstimatedSeconds int       `json:"estimated_seconds"`
	QueuePosition    int       `json:"queue_position"`
	ModulesToProcess int       `json:"modules_to_process"`
}

type PublishGenerationJobMessage struct {
	JobId uuid.UUID `json:"job_id"`
}

type JobStatusResponse struct {
	JobId            uuid.UUID             `json:"job_id"`
	CourseId         uuid.UUID             `json:"course_id"`
	Status           string                `json:"status"`
	ModulesToProcess int                   `json:"modules_to_process"`
	ModuleResults    []entity.ModuleResult `json:"module_results"`
	CreatedAt        time.Time             `json:"created_at"`
	StartedAt        *time.Time            `json:"started_at,omitempty"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
}

type GenConfigurationResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

type UpdateGenConfigurationRequest struct {
	Value string `json:"value" validate:"required"`
}

// MetricsResponse is the running orchestrator counters, updated incrementally
// as modules finish.
type MetricsResponse struct {
	JobsProcessed     int     `json:"jobs_processed"`
	DecksGenerated    int     `json:"decks_generated"`
	DecksPartial      int     `json:"decks_partial"`
	DecksFailed       int     `json:"decks_failed"`
	ModulesSkipped    int     `json:"modules_skipped"`
	CardsGenerated    int     `json:"cards_generated"`
	CardsFlagged      int     `json:"cards_flagged_for_review"`
	AvgModuleMs       int64   `json:"avg_module_ms"`
	EstimatedCostUSD  float64 `json:"estimated_cost_usd"`
	TotalPromptTokens int     `json:"total_prompt_tokens"`
	TotalOutputTokens int     `json:"total_completion_tokens"`
	TotalLLMCalls     int     `json:"total_llm_calls"`
}
