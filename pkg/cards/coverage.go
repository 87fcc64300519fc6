package cards

import (
	"context"
	"log"
	"strings"

	"studyforge-be/pkg/transcript"
)

// MaxRepairCards caps supplementary generation per module so a pathological
// topic list cannot balloon the call count.
const MaxRepairCards = 3

// UncoveredTopics returns the Stage A key topics no card mentions, in their
// original order. A topic counts as covered when it appears, case
// insensitively, in any card's question or answer.
func UncoveredTopics(stageA *StageAOutput, cardsIn []Flashcard) []string {
	var uncovered []string
	for _, kt := range stageA.KeyTopics {
		if !topicCovered(kt.Topic, cardsIn) {
			uncovered = append(uncovered, kt.Topic)
		}
	}
	return uncovered
}

func topicCovered(topic string, cardsIn []Flashcard) bool {
	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return true
	}
	for _, c := range cardsIn {
		if strings.Contains(strings.ToLower(c.Q), needle) ||
			strings.Contains(strings.ToLower(c.A), needle) {
			return true
		}
	}
	return false
}

// RepairGenerator produces one supplementary card for a topic. StageRunner
// satisfies it.
type RepairGenerator interface {
	GenerateRepairCard(ctx context.Context, topic string, existingQuestions []string, chunks []transcript.Chunk) (*Flashcard, error)
}

// RepairCoverage generates up to MaxRepairCards supplementary cards for
// uncovered topics and appends the ones that survive verification and the
// duplicate filter. Repair failures are logged and skipped; coverage repair
// never fails the module.
func RepairCoverage(ctx context.Context, gen RepairGenerator, verifier *Verifier, stageA *StageAOutput, cardsIn []Flashcard, chunks []transcript.Chunk, dedupeThreshold float64, logger *log.Logger) ([]Flashcard, []string) {
	if logger == nil {
		logger = log.Default()
	}

	uncovered := UncoveredTopics(stageA, cardsIn)
	var stillUncovered []string

	repaired := 0
	for _, topic := range uncovered {
		if repaired >= MaxRepairCards {
			stillUncovered = append(stillUncovered, topic)
			continue
		}

		questions := make([]string, 0, len(cardsIn))
		for _, c := range cardsIn {
			questions = append(questions, c.Q)
		}

		card, err := gen.GenerateRepairCard(ctx, topic, questions, chunks)
		if err != nil {
			logger.Printf("[COVERAGE] repair for %q failed: %v", topic, err)
			stillUncovered = append(stillUncovered, topic)
			continue
		}
		repaired++

		verified := verifier.VerifyCards(ctx, []Flashcard{*card}, chunks)
		candidate := EnforceAnswerLimits(verified)[0]

		if IsDuplicate(candidate, cardsIn, dedupeThreshold) {
			logger.Printf("[COVERAGE] repair card for %q duplicates an existing card, dropped", topic)
			stillUncovered = append(stillUncovered, topic)
			continue
		}

		cardsIn = append(cardsIn, candidate)
		if !topicCovered(topic, []Flashcard{candidate}) {
			// The card was kept but does not literally name the topic.
			stillUncovered = append(stillUncovered, topic)
		}
	}

	return cardsIn, stillUncovered
}
