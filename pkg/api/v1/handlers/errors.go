package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/marketplace/rewards"
)

// Common error messages
const (
	ErrMsgInvalidReqBody = "Invalid request body"
	ErrMsgCallerRequired = "X-Caller header is required"
)

// statusForError maps a service error to an HTTP status code. Unknown
// errors are treated as server faults.
func statusForError(err error) int {
	switch {
	case isBadRequest(err):
		return fiber.StatusBadRequest
	case isNotFound(err):
		return fiber.StatusNotFound
	case isConflict(err):
		return fiber.StatusConflict
	case isUnprocessable(err):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, marketplace.ErrFailedToPay),
		errors.Is(err, rewards.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	default:
		return fiber.StatusInternalServerError
	}
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		marketplace.ErrEmptyPricing,
		marketplace.ErrLengthExceeded,
		marketplace.ErrEmptyMatching,
		marketplace.ErrInvalidAssetID,
		marketplace.ErrIncorrectSourceCount,
		marketplace.ErrDuplicateSourceInMatch,
		marketplace.ErrJobRegistrationZeroDuration,
		marketplace.ErrJobRegistrationExceedsMaxExecutions,
		marketplace.ErrJobRegistrationZeroExecutions,
		marketplace.ErrJobRegistrationDurationExceedsInterval,
		marketplace.ErrJobRegistrationStartInPast,
		marketplace.ErrJobRegistrationEndBeforeStart,
		marketplace.ErrJobRegistrationZeroSlots,
		marketplace.ErrJobRegistrationZeroReward,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	for _, target := range []error{
		marketplace.ErrAdvertisementNotFound,
		marketplace.ErrAdvertisementPricingNotFound,
		marketplace.ErrJobRegistrationNotFound,
		marketplace.ErrReportFromUnassignedSource,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	for _, target := range []error{
		marketplace.ErrCannotDeleteAdvertisementWhileMatched,
		marketplace.ErrJobRegistrationUnmodifiable,
		marketplace.ErrOverdueMatch,
		marketplace.ErrScheduleOverlap,
		marketplace.ErrCannotAcknowledgeWhenNotMatched,
		marketplace.ErrCannotReportWhenNotAcknowledged,
		marketplace.ErrMoreReportsThanExpected,
		marketplace.ErrReportOutsideSchedule,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUnprocessable(err error) bool {
	for _, target := range []error{
		marketplace.ErrUnverifiedSourceInMatch,
		marketplace.ErrSchedulingWindowExceeded,
		marketplace.ErrMaxMemoryExceeded,
		marketplace.ErrNetworkRequestQuotaExceeded,
		marketplace.ErrInsufficientStorageCapacity,
		marketplace.ErrSourceNotAllowed,
		marketplace.ErrConsumerNotAllowed,
		marketplace.ErrInsufficientReward,
		marketplace.ErrMultipleRewardAssetsInMatch,
		marketplace.ErrCalculationOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
