package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/marketplace/rewards"
	"github.com/taskmesh/marketplace/internal/types"
)

// AccountHandler handles HTTP requests for ledger and attestation
// operations
type AccountHandler struct {
	rewards      *rewards.Manager
	attestations *marketplace.StoredAttestations
}

// NewAccountHandler creates a new account handler instance
func NewAccountHandler(rewards *rewards.Manager, attestations *marketplace.StoredAttestations) *AccountHandler {
	return &AccountHandler{rewards: rewards, attestations: attestations}
}

// Deposit credits an account on the ledger
func (h *AccountHandler) Deposit(c *fiber.Ctx) error {
	account := c.Params("account")

	var req types.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput(err.Error()))
	}

	if err := h.rewards.Deposit(c.Context(), account, marketplace.Reward{
		Asset:  req.Asset,
		Amount: req.Amount,
	}); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(types.Success(nil))
}

// GetBalance reports an account's balance for one asset
func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	account := c.Params("account")
	asset := c.Query("asset")
	if asset == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.ErrInvalidInput("asset query parameter is required"))
	}

	balance, err := h.rewards.Balance(c.Context(), account, asset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.BalanceResponse{
		Account: account,
		Asset:   asset,
		Balance: balance,
	})
}

// VerifySource marks a provider's attestation as accepted
func (h *AccountHandler) VerifySource(c *fiber.Ctx) error {
	if err := h.attestations.Verify(c.Context(), c.Params("provider")); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(types.Success(nil))
}

// RevokeSource withdraws a provider's accepted attestation
func (h *AccountHandler) RevokeSource(c *fiber.Ctx) error {
	if err := h.attestations.Revoke(c.Context(), c.Params("provider")); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(nil))
}
