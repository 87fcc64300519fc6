package controller

import (
	"errors"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/pkg/serverutils"
	"studyforge-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDeckController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	GetAllByCourse(ctx *fiber.Ctx) error
	Approve(ctx *fiber.Ctx) error
	EditCard(ctx *fiber.Ctx) error
}

type deckController struct {
	service service.IDeckService
}

func NewDeckController(service service.IDeckService) IDeckController {
	return &deckController{service: service}
}

func (c *deckController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/decks/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/:courseId", c.GetAllByCourse)
	h.Get("/:courseId/:moduleId", c.Show)
	h.Post("/:courseId/:moduleId/approve", c.Approve)
	h.Put("/:courseId/:moduleId/cards/:cardId", c.EditCard)
}

func (c *deckController) parseIds(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	courseId, err := uuid.Parse(ctx.Params("courseId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, serverutils.NewApiError(fiber.StatusBadRequest, "invalid course id")
	}
	moduleId, err := uuid.Parse(ctx.Params("moduleId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, serverutils.NewApiError(fiber.StatusBadRequest, "invalid module id")
	}
	return courseId, moduleId, nil
}

func (c *deckController) GetAllByCourse(ctx *fiber.Ctx) error {
	courseId, err := uuid.Parse(ctx.Params("courseId"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid course id")
	}

	res, err := c.service.ListDecks(ctx.Context(), courseId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all decks", res))
}

func (c *deckController) Show(ctx *fiber.Ctx) error {
	courseId, moduleId, err := c.parseIds(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetDeck(ctx.Context(), courseId, moduleId)
	if err != nil {
		if errors.Is(err, service.ErrDeckNotFound) {
			return serverutils.NewApiError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show deck", res))
}

func (c *deckController) Approve(ctx *fiber.Ctx) error {
	courseId, moduleId, err := c.parseIds(ctx)
	if err != nil {
		return err
	}

	var req dto.ApproveDeckRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ApproveDeck(ctx.Context(), courseId, moduleId, &req)
	if err != nil {
		if errors.Is(err, service.ErrDeckNotFound) {
			return serverutils.NewApiError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success approve deck", res))
}

func (c *deckController) EditCard(ctx *fiber.Ctx) error {
	courseId, moduleId, err := c.parseIds(ctx)
	if err != nil {
		return err
	}
	cardId := ctx.Params("cardId")

	var req dto.EditCardRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.EditCard(ctx.Context(), courseId, moduleId, cardId, &req)
	if err != nil {
		if errors.Is(err, service.ErrDeckNotFound) || errors.Is(err, service.ErrCardNotFound) {
			return serverutils.NewApiError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success edit card", res))
}
