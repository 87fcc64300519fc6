package cards

import (
	"fmt"
	"strings"

	"studyforge-be/pkg/transcript"
)

const stageASystem = `You are an instructional content analyst. You read raw course material and extract grounded structure from it. You never invent facts that are not in the provided chunks. You respond with a single JSON object and nothing else.`

const stageBSystem = `You are a study-card author. You write question/answer flashcards strictly grounded in the provided source chunks. Every card must cite verbatim excerpts as evidence. You respond with a single JSON object and nothing else.`

const verifySystem = `You are an evidence checker. Given a source passage and a claimed excerpt supporting an answer, you judge whether the excerpt genuinely supports the answer. You respond with a single JSON object and nothing else.`

// renderChunks formats retrieval chunks as a citation-ready context block.
func renderChunks(chunks []transcript.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		loc := ""
		if c.SlideOrPage != nil {
			loc = *c.SlideOrPage
		}
		fmt.Fprintf(&b, "[%s] (%s @ %s)\n%s\n\n", c.ChunkID, c.SourceFile, loc, c.Text)
	}
	return b.String()
}

func buildStageAPrompt(courseTitle, moduleTitle string, chunks []transcript.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\nModule: %s\n\n", courseTitle, moduleTitle)
	b.WriteString("Source chunks (cite by chunk id):\n\n")
	b.WriteString(renderChunks(chunks))
	b.WriteString(`Extract the module structure. Return JSON exactly in this shape:
{
  "module_summary": [{"point": "...", "supports": ["chunk_id", ...]}],
  "key_topics": [{"topic": "...", "supports": ["chunk_id", ...]}],
  "coverage_map": {"topic": ["chunk_id", ...]}
}
Rules:
- 4 to 8 summary points, each supported by at least one chunk id from above.
- 3 to 10 key topics, short noun phrases.
- Only use chunk ids that appear in the source chunks.`)
	return b.String()
}

func buildStageBPrompt(moduleTitle string, stageA *StageAOutput, chunks []transcript.Chunk, targetCards int, dist Distribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n\n", moduleTitle)

	b.WriteString("Module summary:\n")
	for _, p := range stageA.ModuleSummary {
		fmt.Fprintf(&b, "- %s (supports: %s)\n", p.Point, strings.Join(p.Supports, ", "))
	}
	b.WriteString("\nKey topics:\n")
	for _, t := range stageA.KeyTopics {
		fmt.Fprintf(&b, "- %s\n", t.Topic)
	}

	b.WriteString("\nSource chunks (cite by chunk id):\n\n")
	b.WriteString(renderChunks(chunks))

	fmt.Fprintf(&b, `Write %d flashcards covering the key topics. Target difficulty mix: %.0f%% easy, %.0f%% medium, %.0f%% hard. Return JSON exactly in this shape:
{
  "cards": [
    {
      "q": "...",
      "a": "...",
      "difficulty": "easy|medium|hard",
      "bloom_level": "Remember|Understand|Apply|Analyze|Evaluate|Create",
      "evidence": [{"chunk_id": "...", "excerpt": "verbatim sentence from that chunk"}],
      "rationale": "one sentence on why this card matters"
    }
  ]
}
Rules:
- Answers must be at most %d words.
- Every excerpt must be copied verbatim from the cited chunk.
- At least one evidence item per card.`,
		targetCards, dist.Easy*100, dist.Medium*100, dist.Hard*100, MaxAnswerWords)
	return b.String()
}

func buildRepairPrompt(topic string, existingQuestions []string, chunks []transcript.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The topic %q is not yet covered by any existing flashcard.\n\n", topic)

	if len(existingQuestions) > 0 {
		b.WriteString("Existing questions (do NOT duplicate any of these):\n")
		for _, q := range existingQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}

	b.WriteString("Source chunks (cite by chunk id):\n\n")
	b.WriteString(renderChunks(chunks))

	fmt.Fprintf(&b, `Write exactly ONE flashcard about %q. Return JSON exactly in this shape:
{
  "q": "...",
  "a": "...",
  "difficulty": "easy|medium|hard",
  "bloom_level": "Remember|Understand|Apply|Analyze|Evaluate|Create",
  "evidence": [{"chunk_id": "...", "excerpt": "verbatim sentence from that chunk"}],
  "rationale": "one sentence"
}
The answer must be at most %d words and the excerpt verbatim from the cited chunk.`, topic, MaxAnswerWords)
	return b.String()
}

func buildVerifyPrompt(question, answer, excerpt, chunkText string) string {
	var b strings.Builder
	b.WriteString("Source passage:\n")
	b.WriteString(chunkText)
	b.WriteString("\n\nFlashcard question: ")
	b.WriteString(question)
	b.WriteString("\nFlashcard answer: ")
	b.WriteString(answer)
	b.WriteString("\nClaimed supporting excerpt: ")
	b.WriteString(excerpt)
	b.WriteString(`

Does the source passage genuinely support the answer via the claimed excerpt (allowing paraphrase)? Return JSON exactly in this shape:
{"supported": true|false, "confidence": 0.0-1.0, "reason": "one sentence"}`)
	return b.String()
}
