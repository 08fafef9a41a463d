package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/types"
)

// MatchHandler handles HTTP requests for matching and assignment
// lifecycle operations
type MatchHandler struct {
	service *marketplace.Service
}

// NewMatchHandler creates a new match handler instance
func NewMatchHandler(service *marketplace.Service) *MatchHandler {
	return &MatchHandler{service: service}
}

// ProposeMatching handles the request to propose provider-job pairings
// on behalf of the caller
func (h *MatchHandler) ProposeMatching(c *fiber.Ctx) error {
	matcher, err := caller(c)
	if err != nil {
		return err
	}

	var req types.ProposeMatchingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	remainder, err := h.service.ProposeMatching(c.Context(), matcher, req.Matches)
	if err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(types.Success(types.MatchResponse{
		RemainderAsset:  remainder.Asset,
		RemainderAmount: remainder.Amount,
	}))
}

// AcknowledgeMatch handles the caller's confirmation of its assignment
func (h *MatchHandler) AcknowledgeMatch(c *fiber.Ctx) error {
	provider, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.service.AcknowledgeMatch(c.Context(), provider, c.Params("id")); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(nil))
}

// Report handles the caller's report of one executed run
func (h *MatchHandler) Report(c *fiber.Ctx) error {
	provider, err := caller(c)
	if err != nil {
		return err
	}

	var req types.ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}

	if err := h.service.Report(c.Context(), provider, c.Params("id"), req.Last, req.Result); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(nil))
}

// ListAssignments returns all assignments of a job
func (h *MatchHandler) ListAssignments(c *fiber.Ctx) error {
	assignments, err := h.service.ListAssignments(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.ListResponse[models.Assignment]{
		Rows:  assignments,
		Total: len(assignments),
	})
}

// GetAssignment returns the assignment for a (provider, job) pair
func (h *MatchHandler) GetAssignment(c *fiber.Ctx) error {
	assignment, err := h.service.GetAssignment(c.Context(), c.Params("provider"), c.Params("id"))
	if err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrNotFound(err.Error()))
	}
	return c.JSON(assignment)
}
