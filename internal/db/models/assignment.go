package models

import "gorm.io/gorm"

// Assignment is the committed pairing of one provider to one slot of one
// job. At most one assignment exists per (provider, job) pair; the unique
// index turns a duplicate proposal into a constraint violation.
type Assignment struct {
	gorm.Model
	Provider string `json:"provider" gorm:"uniqueIndex:idx_assignment_provider_job;not null"`
	JobID    string `json:"job_id" gorm:"uniqueIndex:idx_assignment_provider_job;index;not null"`

	Slot       uint8  `json:"slot"`
	StartDelay uint64 `json:"start_delay"`

	FeeAsset        string `json:"fee_asset"`
	FeePerExecution uint64 `json:"fee_per_execution"`

	Acknowledged bool `json:"acknowledged"`

	// SLA counters: SLAMet never exceeds SLATotal.
	SLATotal uint64 `json:"sla_total"`
	SLAMet   uint64 `json:"sla_met"`
}

// VerifiedSource marks a provider whose attestation has been accepted by
// the (external) attestation pipeline. Jobs with
// allow_only_verified_sources only match providers present here.
type VerifiedSource struct {
	gorm.Model
	Provider string `json:"provider" gorm:"uniqueIndex;not null"`
}
