package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/types"
)

// JobHandler handles HTTP requests for job registration and lifecycle
// operations
type JobHandler struct {
	service *marketplace.Service
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(service *marketplace.Service) *JobHandler {
	return &JobHandler{service: service}
}

// RegisterJob handles the request to register a job for the caller
func (h *JobHandler) RegisterJob(c *fiber.Ctx) error {
	consumer, err := caller(c)
	if err != nil {
		return err
	}

	var req types.RegisterJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	jobID, err := h.service.RegisterJob(c.Context(), consumer, req.Job)
	if err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}

	return c.Status(fiber.StatusCreated).
		JSON(types.Success(types.RegisterJobResponse{JobID: jobID}))
}

// ListJobs returns job registrations, optionally filtered by consumer
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	jobs, err := h.service.ListJobs(c.Context(), c.Query("consumer"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}

	return c.JSON(types.ListResponse[models.JobRegistration]{
		Rows:  jobs,
		Total: len(jobs),
	})
}

// GetJob returns a job's registration
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrNotFound(err.Error()))
	}
	return c.JSON(job)
}

// GetJobStatus returns a job's lifecycle status
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	status, err := h.service.GetJobStatus(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).
			JSON(types.ErrNotFound(err.Error()))
	}
	return c.JSON(status)
}

// DeregisterJob handles the request to remove the caller's job
func (h *JobHandler) DeregisterJob(c *fiber.Ctx) error {
	consumer, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.service.DeregisterJob(c.Context(), consumer, c.Params("id")); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(nil))
}

// UpdateAllowedSources replaces a job's allowed-source whitelist
func (h *JobHandler) UpdateAllowedSources(c *fiber.Ctx) error {
	consumer, err := caller(c)
	if err != nil {
		return err
	}

	var req types.UpdateAllowedSourcesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}

	if err := h.service.UpdateAllowedSources(c.Context(), consumer, c.Params("id"), req.AllowedSources); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(nil))
}
