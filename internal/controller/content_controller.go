package controller

import (
	"studyforge-be/internal/dto"
	"studyforge-be/internal/pkg/serverutils"
	"studyforge-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IContentController interface {
	RegisterRoutes(r fiber.Router)
	IngestTranscript(ctx *fiber.Ctx) error
	GetChunkCount(ctx *fiber.Ctx) error
}

type contentController struct {
	service service.IContentService
}

func NewContentController(service service.IContentService) IContentController {
	return &contentController{service: service}
}

func (c *contentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/content/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/modules/:id/transcript", c.IngestTranscript)
	h.Get("/modules/:id/chunks/count", c.GetChunkCount)
}

func (c *contentController) IngestTranscript(ctx *fiber.Ctx) error {
	moduleId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid module id")
	}

	var req dto.IngestTranscriptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.IngestTranscript(ctx.Context(), moduleId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest transcript", res))
}

func (c *contentController) GetChunkCount(ctx *fiber.Ctx) error {
	moduleId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid module id")
	}

	count, err := c.service.GetChunkCount(ctx.Context(), moduleId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chunk count", fiber.Map{"count": count}))
}
