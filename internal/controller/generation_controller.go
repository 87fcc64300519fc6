package controller

import (
	"errors"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/pkg/serverutils"
	"studyforge-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	QueueJob(ctx *fiber.Ctx) error
	GetJobStatus(ctx *fiber.Ctx) error
	ListJobs(ctx *fiber.Ctx) error
	GetMetrics(ctx *fiber.Ctx) error
	GetAllConfigurations(ctx *fiber.Ctx) error
	UpdateConfiguration(ctx *fiber.Ctx) error
}

type generationController struct {
	service       service.IGenerationService
	configService service.IGenConfigService
}

func NewGenerationController(service service.IGenerationService, configService service.IGenConfigService) IGenerationController {
	return &generationController{service: service, configService: configService}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/generation/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/jobs", c.QueueJob)
	h.Get("/jobs", c.ListJobs)
	h.Get("/jobs/:id", c.GetJobStatus)
	h.Get("/metrics", c.GetMetrics)
	h.Get("/config", c.GetAllConfigurations)
	h.Put("/config/:key", c.UpdateConfiguration)
}

func (c *generationController) QueueJob(ctx *fiber.Ctx) error {
	var req dto.QueueGenerationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.QueueJob(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success queue generation job", res))
}

func (c *generationController) GetJobStatus(ctx *fiber.Ctx) error {
	jobId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "invalid job id")
	}

	res, err := c.service.GetJobStatus(ctx.Context(), jobId)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return serverutils.NewApiError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get job status", res))
}

func (c *generationController) ListJobs(ctx *fiber.Ctx) error {
	var courseId *uuid.UUID
	if q := ctx.Query("course_id"); q != "" {
		parsed, err := uuid.Parse(q)
		if err != nil {
			return serverutils.NewApiError(fiber.StatusBadRequest, "invalid course_id filter")
		}
		courseId = &parsed
	}

	res, err := c.service.ListJobs(ctx.Context(), courseId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list jobs", res))
}

func (c *generationController) GetMetrics(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get metrics", c.service.GetMetrics()))
}

func (c *generationController) GetAllConfigurations(ctx *fiber.Ctx) error {
	res, err := c.configService.GetAllConfigurations(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get configurations", res))
}

func (c *generationController) UpdateConfiguration(ctx *fiber.Ctx) error {
	key := ctx.Params("key")

	var req dto.UpdateGenConfigurationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.configService.UpdateConfiguration(ctx.Context(), key, &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownConfigKey) {
			return serverutils.NewApiError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update configuration", res))
}
