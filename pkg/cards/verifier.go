package cards

import (
	"context"
	"log"
	"regexp"
	"strings"

	"studyforge-be/pkg/transcript"
)

// Confidence scores assigned by the verification tiers.
const (
	ConfidenceExact      = 1.0
	ConfidenceCorrected  = 0.95
	ConfidenceUnverified = 0.2

	// JaccardVerifyThreshold is the minimum token overlap for a sentence in
	// the chunk to count as the corrected form of a drifted excerpt.
	JaccardVerifyThreshold = 0.6
)

// EvidenceJudge is the model-assisted verification fallback. StageRunner
// satisfies it; tests inject a canned one.
type EvidenceJudge interface {
	JudgeEvidence(ctx context.Context, question, answer, excerpt, chunkText string) (bool, float64, error)
}

// Verifier checks every evidence excerpt against its cited chunk and scores
// card confidence. Tiers, cheapest first: exact normalized substring match,
// then best-sentence fuzzy match with excerpt correction, then an independent
// model judgment. A card whose every excerpt fails all three is kept but
// flagged for human review rather than dropped.
type Verifier struct {
	judge  EvidenceJudge
	logger *log.Logger
}

func NewVerifier(judge EvidenceJudge, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{judge: judge, logger: logger}
}

// VerifyCards scores all cards in place against the chunk set they were
// generated from. Cards citing unknown chunk ids are treated as unverified.
func (v *Verifier) VerifyCards(ctx context.Context, cardsIn []Flashcard, chunks []transcript.Chunk) []Flashcard {
	byID := chunkIndex(chunks)

	for i := range cardsIn {
		v.verifyCard(ctx, &cardsIn[i], byID)
	}
	return cardsIn
}

func (v *Verifier) verifyCard(ctx context.Context, card *Flashcard, byID map[string]transcript.Chunk) {
	best := 0.0
	anySupported := false

	for j := range card.Evidence {
		ev := &card.Evidence[j]
		chunk, ok := byID[ev.ChunkID]
		if !ok {
			v.logger.Printf("[VERIFY] card %s cites unknown chunk %s", card.CardID, ev.ChunkID)
			continue
		}

		conf, supported := v.verifyExcerpt(ctx, card, ev, chunk)
		if supported {
			anySupported = true
			if conf > best {
				best = conf
			}
		}
	}

	if !anySupported {
		card.ConfidenceScore = ConfidenceUnverified
		card.ReviewRequired = true
		return
	}
	card.ConfidenceScore = best
	card.ReviewRequired = false
}

func (v *Verifier) verifyExcerpt(ctx context.Context, card *Flashcard, ev *Evidence, chunk transcript.Chunk) (float64, bool) {
	normExcerpt := normalizeForMatch(ev.Excerpt)
	normChunk := normalizeForMatch(chunk.Text)

	if normExcerpt == "" {
		return 0, false
	}

	// Tier 1: the excerpt really is verbatim (modulo whitespace and case).
	if strings.Contains(normChunk, normExcerpt) {
		return ConfidenceExact, true
	}

	// Tier 2: find the chunk sentence the model was paraphrasing and swap the
	// drifted excerpt for the real one.
	if sentence, score := bestSentenceMatch(normExcerpt, chunk.Text); score >= JaccardVerifyThreshold {
		ev.Excerpt = sentence
		return ConfidenceCorrected, true
	}

	// Tier 3: model-assisted judgment.
	supported, conf, err := v.judge.JudgeEvidence(ctx, card.Q, card.A, ev.Excerpt, chunk.Text)
	if err != nil {
		v.logger.Printf("[VERIFY] judge failed for card %s chunk %s: %v", card.CardID, ev.ChunkID, err)
		return 0, false
	}
	if !supported {
		return 0, false
	}
	return conf, true
}

var matchSpaceRe = regexp.MustCompile(`\s+`)

// normalizeForMatch lowercases and collapses whitespace so cosmetic drift in
// a model-copied excerpt does not defeat the substring tier.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.TrimSpace(matchSpaceRe.ReplaceAllString(s, " ")))
}

// bestSentenceMatch returns the chunk sentence with the highest token Jaccard
// similarity to the (already normalized) excerpt, with the sentence in its
// original form.
func bestSentenceMatch(normExcerpt, chunkText string) (string, float64) {
	excerptTokens := tokenSet(normExcerpt)
	if len(excerptTokens) == 0 {
		return "", 0
	}

	bestSentence := ""
	bestScore := 0.0
	for _, sentence := range transcript.SplitSentences(chunkText) {
		score := jaccard(excerptTokens, tokenSet(normalizeForMatch(sentence)))
		if score > bestScore {
			bestScore = score
			bestSentence = strings.TrimSpace(sentence)
		}
	}
	return bestSentence, bestScore
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, `.,;:!?"'()[]`)
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
