package service

import (
	"context"
	"errors"
	"time"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/unitofwork"
	"studyforge-be/pkg/cards"

	"github.com/google/uuid"
)

var (
	ErrDeckNotFound = errors.New("flashcard deck not found")
	ErrCardNotFound = errors.New("card not found in deck")
)

type IDeckService interface {
	GetDeck(ctx context.Context, courseId, moduleId uuid.UUID) (*dto.DeckResponse, error)
	ListDecks(ctx context.Context, courseId uuid.UUID) ([]dto.DeckResponse, error)
	ApproveDeck(ctx context.Context, courseId, moduleId uuid.UUID, req *dto.ApproveDeckRequest) (*dto.DeckResponse, error)
	EditCard(ctx context.Context, courseId, moduleId uuid.UUID, cardId string, req *dto.EditCardRequest) (*dto.DeckResponse, error)
}

type deckService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewDeckService(uowFactory unitofwork.RepositoryFactory, sysLogger logger.ILogger) IDeckService {
	return &deckService{
		uowFactory: uowFactory,
		logger:     sysLogger,
	}
}

func (s *deckService) GetDeck(ctx context.Context, courseId, moduleId uuid.UUID) (*dto.DeckResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deck, err := uow.DeckRepository().FindByCourseAndModule(ctx, courseId, moduleId)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrDeckNotFound
	}
	return deckToResponse(deck), nil
}

func (s *deckService) ListDecks(ctx context.Context, courseId uuid.UUID) ([]dto.DeckResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	decks, err := uow.DeckRepository().FindAllByCourse(ctx, courseId)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DeckResponse, 0, len(decks))
	for _, d := range decks {
		out = append(out, *deckToResponse(d))
	}
	return out, nil
}

func (s *deckService) ApproveDeck(ctx context.Context, courseId, moduleId uuid.UUID, req *dto.ApproveDeckRequest) (*dto.DeckResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deck, err := uow.DeckRepository().FindByCourseAndModule(ctx, courseId, moduleId)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrDeckNotFound
	}

	now := time.Now()
	deck.ReviewStatus = entity.ReviewStatusApproved
	deck.ReviewedBy = &req.ReviewedBy
	deck.UpdatedAt = &now

	// Approval clears review flags; the reviewer has seen the flagged cards.
	for i := range deck.Cards {
		deck.Cards[i].ReviewRequired = false
	}

	if err := uow.DeckRepository().Update(ctx, deck); err != nil {
		return nil, err
	}

	s.logger.Info("DECK", "deck approved", map[string]interface{}{
		"course_id":   courseId,
		"module_id":   moduleId,
		"reviewed_by": req.ReviewedBy,
	})

	return deckToResponse(deck), nil
}

// EditCard replaces a card's question, answer and optionally difficulty. An
// edited card is human-vetted, so it gets full confidence and loses its
// review flag. The answer still goes through the standard length limits.
func (s *deckService) EditCard(ctx context.Context, courseId, moduleId uuid.UUID, cardId string, req *dto.EditCardRequest) (*dto.DeckResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	deck, err := uow.DeckRepository().FindByCourseAndModule(ctx, courseId, moduleId)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrDeckNotFound
	}

	idx := -1
	for i := range deck.Cards {
		if deck.Cards[i].CardID == cardId {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrCardNotFound
	}

	card := &deck.Cards[idx]
	card.Q = req.Q
	card.A = req.A
	if req.Difficulty != "" {
		card.Difficulty = req.Difficulty
	}
	card.ConfidenceScore = cards.ConfidenceExact
	card.ReviewRequired = false

	deck.Cards[idx] = cards.EnforceAnswerLimits([]cards.Flashcard{*card})[0]

	now := time.Now()
	deck.ReviewedBy = &req.ReviewedBy
	deck.UpdatedAt = &now

	if err := uow.DeckRepository().Update(ctx, deck); err != nil {
		return nil, err
	}

	s.logger.Info("DECK", "card edited", map[string]interface{}{
		"course_id": courseId,
		"module_id": moduleId,
		"card_id":   cardId,
	})

	return deckToResponse(deck), nil
}

func deckToResponse(deck *entity.FlashcardDeck) *dto.DeckResponse {
	return &dto.DeckResponse{
		Id:           deck.Id,
		CourseId:     deck.CourseId,
		ModuleId:     deck.ModuleId,
		ModuleTitle:  deck.ModuleTitle,
		Cards:        deck.Cards,
		Warnings:     deck.Warnings,
		Metadata:     deck.Metadata,
		ReviewStatus: deck.ReviewStatus,
		ReviewedBy:   deck.ReviewedBy,
		CreatedAt:    deck.CreatedAt,
		UpdatedAt:    deck.UpdatedAt,
	}
}
