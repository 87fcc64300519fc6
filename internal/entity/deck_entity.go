package entity

import (
	"time"

	"github.com/google/uuid"

	"studyforge-be/pkg/cards"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
)

// GenerationMetadata records what one generation run cost.
type GenerationMetadata struct {
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	LLMCalls         int     `json:"llm_calls"`
	CostUSD          float64 `json:"cost_usd"`
	DurationMs       int64   `json:"duration_ms"`
}

// FlashcardDeck is the durable unit of generation output, keyed by
// (CourseId, ModuleId). Regeneration overwrites it wholesale; only the
// reviewer operations (approve, edit card) mutate it in place.
type FlashcardDeck struct {
	Id           uuid.UUID
	CourseId     uuid.UUID
	ModuleId     uuid.UUID
	ModuleTitle  string
	Cards        []cards.Flashcard
	StageA       *cards.StageAOutput
	Warnings     []string
	Metadata     GenerationMetadata
	ReviewedBy   *string
	ReviewStatus string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
