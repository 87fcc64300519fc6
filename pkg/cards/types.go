package cards

// Difficulty levels a card can carry.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Bloom taxonomy levels, lowest to highest order.
const (
	BloomRemember   = "Remember"
	BloomUnderstand = "Understand"
	BloomApply      = "Apply"
	BloomAnalyze    = "Analyze"
	BloomEvaluate   = "Evaluate"
	BloomCreate     = "Create"
)

// Answer limits enforced by the post-processor.
const (
	MaxAnswerWords = 40
	MaxAnswerChars = 300
)

// Evidence is a literal excerpt from a chunk cited by a card as justification
// for its answer.
type Evidence struct {
	ChunkID    string `json:"chunk_id"`
	Excerpt    string `json:"excerpt"`
	SourceFile string `json:"source_file"`
	Loc        string `json:"loc"`
}

// Flashcard is one verified question/answer study card.
type Flashcard struct {
	CardID          string     `json:"card_id"`
	Q               string     `json:"q"`
	A               string     `json:"a"`
	Difficulty      string     `json:"difficulty"`
	BloomLevel      string     `json:"bloom_level"`
	Evidence        []Evidence `json:"evidence"`
	Sources         []string   `json:"sources"`
	ConfidenceScore float64    `json:"confidence_score"`
	Rationale       string     `json:"rationale"`
	ReviewRequired  bool       `json:"review_required"`
}

// SummaryPoint is one grounded statement of the module summary.
type SummaryPoint struct {
	Point    string   `json:"point"`
	Supports []string `json:"supports"`
}

// KeyTopic is a topic the module must cover, with supporting chunk ids.
type KeyTopic struct {
	Topic    string   `json:"topic"`
	Supports []string `json:"supports"`
}

// StageAOutput is the grounding pass: topic and summary extraction produced
// once per module per generation run, consumed by Stage B and the coverage
// repairer.
type StageAOutput struct {
	ModuleSummary []SummaryPoint      `json:"module_summary"`
	KeyTopics     []KeyTopic          `json:"key_topics"`
	CoverageMap   map[string][]string `json:"coverage_map,omitempty"`
}

// Distribution is the requested difficulty split for a deck.
type Distribution struct {
	Easy   float64 `json:"easy"`
	Medium float64 `json:"medium"`
	Hard   float64 `json:"hard"`
}

// DefaultDistribution is the balanced production target.
func DefaultDistribution() Distribution {
	return Distribution{Easy: 0.3, Medium: 0.5, Hard: 0.2}
}

// Usage accumulates approximate token counts across collaborator calls, the
// input to cost estimation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	Calls            int `json:"calls"`
}

func (u *Usage) Add(prompt, completion int) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.Calls++
}
