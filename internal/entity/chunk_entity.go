package entity

import (
	"time"

	"github.com/google/uuid"
)

// ContextChunk is a stored retrieval chunk. ChunkID is the deterministic
// citation identifier; Id is the row key. Embedding stays nil until the
// embedding consumer has processed the chunk.
type ContextChunk struct {
	Id          uuid.UUID
	ChunkID     string
	ModuleId    uuid.UUID
	CourseId    uuid.UUID
	FileId      string
	Provider    string
	SlideOrPage *string
	StartSec    *float64
	EndSec      *float64
	Heading     *string
	Text        string
	TokensEst   int
	Embedding   []float32
	CreatedAt   time.Time
}
