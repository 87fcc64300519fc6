// Command simulate runs the full generation pipeline offline against a
// scripted model, so the chunking, verification and post-processing behavior
// can be inspected without a database or a live LLM.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"studyforge-be/pkg/cards"
	"studyforge-be/pkg/llm"
	"studyforge-be/pkg/transcript"

	"github.com/fatih/color"
)

var (
	header = color.New(color.FgCyan, color.Bold)
	ok     = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
)

// scriptedProvider answers each pipeline prompt with canned JSON built from
// the actual chunk ids, so evidence verification runs for real.
type scriptedProvider struct {
	stageA string
	stageB string
	repair string
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "Extract the module structure"):
		return p.stageA, nil
	case strings.Contains(prompt, "Write exactly ONE flashcard"):
		return p.repair, nil
	case strings.Contains(prompt, "flashcards covering the key topics"):
		return p.stageB, nil
	case strings.Contains(prompt, "Claimed supporting excerpt"):
		return `{"supported": false, "confidence": 0.1, "reason": "the excerpt does not appear in the passage"}`, nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("empty history")
	}
	return p.Generate(ctx, history[len(history)-1].Content, options...)
}

func sampleSegments() []transcript.Segment {
	lines := []struct {
		start, end float64
		text       string
	}{
		{0, 14, "[MUSIC] Welcome back. Today we cover photosynthesis, the process plants use to convert light energy into chemical energy."},
		{14, 30, "Photosynthesis occurs in the chloroplasts of plant cells. The green pigment chlorophyll absorbs red and blue light most strongly."},
		{30, 47, "The light-dependent reactions take place in the thylakoid membrane. They split water and produce ATP and NADPH."},
		{47, 65, "The Calvin cycle runs in the stroma. It uses ATP and NADPH to fix carbon dioxide into glucose."},
		{65, 80, "If you have questions, email me at prof.green@university.edu or call 555-123-4567 during office hours."},
		{80, 95, "Next week we will look at cellular respiration, which is essentially photosynthesis in reverse."},
	}
	segments := make([]transcript.Segment, 0, len(lines))
	for _, l := range lines {
		segments = append(segments, transcript.Segment{Start: l.start, End: l.end, Text: l.text})
	}
	return segments
}

func buildScript(chunks []transcript.Chunk) *scriptedProvider {
	// Cite the first chunk for everything; the sample transcript is small
	// enough to land in one or two chunks.
	id := chunks[0].ChunkID

	stageA := fmt.Sprintf(`{
  "module_summary": [
    {"point": "Photosynthesis converts light energy into chemical energy.", "supports": ["%s"]},
    {"point": "The Calvin cycle fixes carbon dioxide into glucose.", "supports": ["%s"]}
  ],
  "key_topics": [
    {"topic": "photosynthesis", "supports": ["%s"]},
    {"topic": "Calvin cycle", "supports": ["%s"]},
    {"topic": "chlorophyll", "supports": ["%s"]}
  ]
}`, id, id, id, id, id)

	// Card one cites verbatim text, card two drifts slightly so the fuzzy
	// tier corrects it, card three fabricates evidence and should be flagged.
	stageB := fmt.Sprintf(`Here are the cards you asked for:
{
  "cards": [
    {
      "q": "Where does photosynthesis occur?",
      "a": "It occurs in the chloroplasts of plant cells.",
      "difficulty": "easy",
      "bloom_level": "Remember",
      "evidence": [{"chunk_id": "%s", "excerpt": "Photosynthesis occurs in the chloroplasts of plant cells."}],
      "rationale": "Location is foundational."
    },
    {
      "q": "What does the Calvin cycle produce?",
      "a": "It fixes carbon dioxide into glucose using ATP and NADPH.",
      "difficulty": "medium",
      "bloom_level": "Understand",
      "evidence": [{"chunk_id": "%s", "excerpt": "The Calvin cycle uses ATP and NADPH to fix carbon into glucose."}],
      "rationale": "Connects the two reaction phases."
    },
    {
      "q": "What temperature is optimal for photosynthesis?",
      "a": "Around 25 degrees Celsius.",
      "difficulty": "hard",
      "bloom_level": "Analyze",
      "evidence": [{"chunk_id": "%s", "excerpt": "photosynthesis peaks at twenty five degrees"}],
      "rationale": "Tests rate factors."
    }
  ]
}`, id, id, id)

	repair := fmt.Sprintf(`{
  "q": "Which light does chlorophyll absorb most strongly?",
  "a": "Chlorophyll absorbs red and blue light most strongly.",
  "difficulty": "easy",
  "bloom_level": "Remember",
  "evidence": [{"chunk_id": "%s", "excerpt": "The green pigment chlorophyll absorbs red and blue light most strongly."}],
  "rationale": "Pigment behavior explains leaf color."
}`, id)

	return &scriptedProvider{stageA: stageA, stageB: stageB, repair: repair}
}

func main() {
	ctx := context.Background()

	header.Println("== 1. Normalize transcript ==")
	normalized := transcript.Normalize(sampleSegments())
	fmt.Printf("segments kept: %d, redacted: %v\n", len(normalized.Segments), normalized.Redacted)
	for _, w := range normalized.Warnings {
		warn.Printf("warning: %s\n", w)
	}

	header.Println("\n== 2. Chunk ==")
	chunks := transcript.ChunkSegments("module-demo", "lecture-01.vtt", normalized.Segments, transcript.DefaultOptions())
	for _, c := range chunks {
		loc := ""
		if c.SlideOrPage != nil {
			loc = *c.SlideOrPage
		}
		fmt.Printf("%s  %s  ~%d tokens\n", c.ChunkID, loc, c.TokensEst)
	}
	if len(chunks) == 0 {
		log.Fatal("no chunks produced")
	}

	provider := buildScript(chunks)
	runner := cards.NewStageRunner(provider)

	header.Println("\n== 3. Stage A: structure extraction ==")
	stageA, err := runner.RunStageA(ctx, "Biology 101", "Photosynthesis", chunks)
	if err != nil {
		log.Fatalf("stage A: %v", err)
	}
	for _, p := range stageA.ModuleSummary {
		fmt.Printf("summary: %s\n", p.Point)
	}
	for _, t := range stageA.KeyTopics {
		fmt.Printf("topic:   %s\n", t.Topic)
	}

	header.Println("\n== 4. Stage B: card authoring ==")
	deck, err := runner.RunStageB(ctx, "Photosynthesis", stageA, chunks, 3, cards.DefaultDistribution())
	if err != nil {
		log.Fatalf("stage B: %v", err)
	}
	fmt.Printf("cards authored: %d\n", len(deck))

	header.Println("\n== 5. Verify evidence ==")
	verifier := cards.NewVerifier(runner, nil)
	deck = verifier.VerifyCards(ctx, deck, chunks)
	for _, c := range deck {
		switch {
		case c.ReviewRequired:
			bad.Printf("FLAGGED  %.2f  %s\n", c.ConfidenceScore, c.Q)
		case c.ConfidenceScore < cards.ConfidenceExact:
			warn.Printf("corrected %.2f  %s\n", c.ConfidenceScore, c.Q)
		default:
			ok.Printf("verified  %.2f  %s\n", c.ConfidenceScore, c.Q)
		}
	}

	header.Println("\n== 6. Post-process ==")
	deck = cards.EnforceAnswerLimits(deck)
	deck = cards.Deduplicate(deck, 0)
	fmt.Printf("cards after dedup: %d\n", len(deck))
	for _, w := range cards.CheckDistribution(deck, cards.DefaultDistribution()) {
		warn.Printf("distribution: %s\n", w)
	}

	header.Println("\n== 7. Coverage repair ==")
	deck, uncovered := cards.RepairCoverage(ctx, runner, verifier, stageA, deck, chunks, 0, nil)
	fmt.Printf("cards after repair: %d\n", len(deck))
	for _, t := range uncovered {
		warn.Printf("still uncovered: %s\n", t)
	}

	usage := runner.Usage()
	header.Println("\n== Done ==")
	fmt.Printf("llm calls: %d, ~%d prompt tokens, ~%d completion tokens\n",
		usage.Calls, usage.PromptTokens, usage.CompletionTokens)
}
