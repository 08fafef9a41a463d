package marketplace

import (
	"errors"

	"github.com/taskmesh/marketplace/internal/logger"
)

// Admission errors. None of them leaves any mutation behind.
var (
	// ErrEmptyPricing rejects advertisements without a pricing variant.
	ErrEmptyPricing = errors.New("advertisement contains no pricing variant")
	// ErrLengthExceeded rejects inputs exceeding a bounded collection's
	// capacity (pricing variants, whitelists, slots).
	ErrLengthExceeded = errors.New("bounded collection length exceeded")
	// ErrAdvertisementNotFound is returned when a proposed provider has
	// no stored advertisement.
	ErrAdvertisementNotFound = errors.New("advertisement not found")
	// ErrAdvertisementPricingNotFound is returned when a provider has no
	// pricing for the job's reward asset.
	ErrAdvertisementPricingNotFound = errors.New("advertisement pricing not found")
	// ErrCannotDeleteAdvertisementWhileMatched blocks advertisement
	// deletion while any assignment references the provider. Capacity can
	// be advertised as 0 instead to stop receiving new matches.
	ErrCannotDeleteAdvertisementWhileMatched = errors.New("cannot delete advertisement while matched")
	// ErrEmptyMatching rejects a proposal without any match.
	ErrEmptyMatching = errors.New("matching is empty")
	// ErrOverdueMatch rejects a match whose start time already passed.
	ErrOverdueMatch = errors.New("match is overdue")
	// ErrIncorrectSourceCount rejects a match whose planned executions do
	// not cover exactly the job's slots.
	ErrIncorrectSourceCount = errors.New("incorrect source count in match")
	// ErrDuplicateSourceInMatch rejects the same provider proposed for
	// distinct slots of one job.
	ErrDuplicateSourceInMatch = errors.New("duplicate source in match")
	// ErrUnverifiedSourceInMatch rejects unattested providers for jobs
	// that demand verified sources.
	ErrUnverifiedSourceInMatch = errors.New("unverified source in match")
	// ErrSchedulingWindowExceeded rejects jobs ending beyond the
	// provider's scheduling window.
	ErrSchedulingWindowExceeded = errors.New("scheduling window exceeded")
	// ErrMaxMemoryExceeded rejects jobs needing more memory than advertised.
	ErrMaxMemoryExceeded = errors.New("max memory exceeded")
	// ErrNetworkRequestQuotaExceeded rejects jobs whose request rate
	// exceeds the advertised quota.
	ErrNetworkRequestQuotaExceeded = errors.New("network request quota exceeded")
	// ErrInsufficientStorageCapacity rejects providers without positive
	// remaining storage capacity.
	ErrInsufficientStorageCapacity = errors.New("insufficient storage capacity")
	// ErrSourceNotAllowed rejects providers absent from the job's
	// allowed-source whitelist.
	ErrSourceNotAllowed = errors.New("source not allowed")
	// ErrConsumerNotAllowed rejects jobs whose consumer is absent from
	// the provider's allowed-consumer whitelist.
	ErrConsumerNotAllowed = errors.New("consumer not allowed")
	// ErrInsufficientReward rejects matches whose fee exceeds the reward.
	ErrInsufficientReward = errors.New("insufficient reward in match")
	// ErrScheduleOverlap rejects matches conflicting with a schedule
	// already committed to the provider.
	ErrScheduleOverlap = errors.New("schedule overlap in match")
	// ErrMultipleRewardAssetsInMatch rejects proposals mixing reward
	// assets across jobs of a single call.
	ErrMultipleRewardAssetsInMatch = errors.New("multiple reward assets in match")
	// ErrInvalidAssetID rejects reward assets the asset policy refuses.
	ErrInvalidAssetID = errors.New("invalid asset id")
)

// Registration errors.
var (
	ErrJobRegistrationNotFound           = errors.New("job registration not found")
	ErrJobRegistrationZeroDuration       = errors.New("job registration specifies zero duration")
	ErrJobRegistrationExceedsMaxExecutions = errors.New("job registration schedule exceeds maximum executions")
	ErrJobRegistrationZeroExecutions     = errors.New("job registration schedule contains zero executions")
	ErrJobRegistrationDurationExceedsInterval = errors.New("job registration duration exceeds interval")
	ErrJobRegistrationStartInPast        = errors.New("job registration start is in the past")
	ErrJobRegistrationEndBeforeStart     = errors.New("job registration end is before start")
	ErrJobRegistrationZeroSlots          = errors.New("job registration specifies zero slots")
	ErrJobRegistrationZeroReward         = errors.New("job registration specifies zero reward")
	ErrJobRegistrationUnmodifiable       = errors.New("job registration can no longer be modified")
)

// Lifecycle errors.
var (
	// ErrCannotAcknowledgeWhenNotMatched is returned when acknowledge is
	// called without a matched assignment.
	ErrCannotAcknowledgeWhenNotMatched = errors.New("cannot acknowledge when not matched")
	// ErrCannotReportWhenNotAcknowledged is returned when report is
	// called before acknowledge.
	ErrCannotReportWhenNotAcknowledged = errors.New("cannot report when not acknowledged")
	// ErrReportFromUnassignedSource is returned when a provider without
	// an assignment reports.
	ErrReportFromUnassignedSource = errors.New("report from unassigned source")
	// ErrMoreReportsThanExpected is returned once all expected reports
	// arrived.
	ErrMoreReportsThanExpected = errors.New("more reports than expected")
	// ErrReportOutsideSchedule is returned when a report arrives outside
	// the tolerance window of any agreed execution.
	ErrReportOutsideSchedule = errors.New("report outside schedule")
)

// Arithmetic and severe errors.
var (
	// ErrCalculationOverflow aborts a call whose checked arithmetic would
	// overflow.
	ErrCalculationOverflow = errors.New("calculation overflow")
	// ErrJobStatusNotFound indicates the status store is inconsistent
	// with prior successful operations. Severe: reported as a bug.
	ErrJobStatusNotFound = errors.New("job status not found")
	// ErrCapacityNotFound indicates the capacity store is inconsistent
	// with prior successful operations. Severe: reported as a bug.
	ErrCapacityNotFound = errors.New("capacity not found")
	// ErrFailedToPay is returned when a payout fails. Payouts run after
	// all fallible validation; when one fails after prior mutations
	// committed, those mutations remain in place.
	ErrFailedToPay = errors.New("failed to pay reward")
	// ErrFailedTimestamp is returned when the clock cannot produce a
	// millisecond timestamp.
	ErrFailedTimestamp = errors.New("failed timestamp conversion")
)

// severe logs an invariant violation before returning it. These errors
// mean the store disagrees with prior successful operations and are bugs,
// not user errors.
func severe(err error, fields map[string]interface{}) error {
	logger.ErrorWithFields("store inconsistency: "+err.Error(), fields)
	return err
}
