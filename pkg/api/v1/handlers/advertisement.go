// Package handlers provides HTTP request handlers for the API
package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/types"
)

// AdvertisementHandler handles HTTP requests for advertisement operations
type AdvertisementHandler struct {
	service *marketplace.Service
}

// NewAdvertisementHandler creates a new advertisement handler instance
func NewAdvertisementHandler(service *marketplace.Service) *AdvertisementHandler {
	return &AdvertisementHandler{service: service}
}

// caller extracts the acting account from the request headers.
func caller(c *fiber.Ctx) (string, error) {
	who := c.Get(types.CallerHeader)
	if who == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, ErrMsgCallerRequired)
	}
	return who, nil
}

// Advertise handles the request to store or update the caller's advertisement
func (h *AdvertisementHandler) Advertise(c *fiber.Ctx) error {
	provider, err := caller(c)
	if err != nil {
		return err
	}

	var req types.AdvertiseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.service.Advertise(c.Context(), provider, req.Advertisement); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(types.Success(nil))
}

// GetAdvertisement returns a provider's advertisement
func (h *AdvertisementHandler) GetAdvertisement(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if provider == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput("provider is required"))
	}

	ad, err := h.service.GetAdvertisement(c.Context(), provider)
	if err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrNotFound(err.Error()))
	}

	return c.JSON(ad)
}

// DeleteAdvertisement handles the request to remove the caller's advertisement
func (h *AdvertisementHandler) DeleteAdvertisement(c *fiber.Ctx) error {
	provider, err := caller(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteAdvertisement(c.Context(), provider); err != nil {
		return c.Status(statusForError(err)).
			JSON(types.ErrServer(err.Error()))
	}

	return c.JSON(types.Success(nil))
}
