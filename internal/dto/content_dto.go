package dto

import (
	"github.com/google/uuid"

	"studyforge-be/pkg/transcript"
)

type SegmentRequest struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type IngestTranscriptRequest struct {
	CourseId uuid.UUID        `json:"course_id" validate:"required"`
	FileId   string           `json:"file_id" validate:"required"`
	Provider string           `json:"provider"`
	Segments []SegmentRequest `json:"segments" validate:"required,min=1"`
}

type IngestTranscriptResponse struct {
	ModuleId     uuid.UUID `json:"module_id"`
	ChunksStored int       `json:"chunks_stored"`
	Warnings     []string  `json:"warnings,omitempty"`
	Redacted     bool      `json:"redacted"`
}

// PublishEmbedChunksMessage is the payload handed to the embedding consumer
// after a module's chunks are replaced.
type PublishEmbedChunksMessage struct {
	ModuleId uuid.UUID `json:"module_id"`
}

func (r SegmentRequest) ToSegment() transcript.Segment {
	return transcript.Segment{
		Start:      r.Start,
		End:        r.End,
		Text:       r.Text,
		Confidence: r.Confidence,
	}
}
