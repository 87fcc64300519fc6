package transcript

// Word is one recognized word with its own time span, as emitted by the
// transcription collaborator.
type Word struct {
	Word       string   `json:"word"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Segment is a raw timestamped transcript span. Invariant: Start < End;
// segments violating it are dropped with a warning during normalization.
type Segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Words      []Word   `json:"words,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Chunk is a bounded span of source text with time and location metadata,
// the unit of retrieval and citation. Chunks are immutable once produced.
type Chunk struct {
	ChunkID     string   `json:"chunk_id"`
	SourceFile  string   `json:"source_file"`
	Provider    string   `json:"provider"`
	SlideOrPage *string  `json:"slide_or_page"`
	StartSec    *float64 `json:"start_sec"`
	EndSec      *float64 `json:"end_sec"`
	Heading     *string  `json:"heading"`
	Text        string   `json:"text"`
	TokensEst   int      `json:"tokens_est"`
}
