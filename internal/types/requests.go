// Package types defines the request and response envelopes of the HTTP API.
package types

import (
	"fmt"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/marketplace"
)

// CallerHeader carries the account performing a request. There is no
// authentication layer; callers are trusted to state who they are.
const CallerHeader = "X-Caller"

// AdvertiseRequest stores or updates the caller's advertisement.
type AdvertiseRequest struct {
	Advertisement marketplace.Advertisement `json:"advertisement"`
}

// Validate checks the request for obvious mistakes before it reaches
// the service layer.
func (r *AdvertiseRequest) Validate() error {
	if len(r.Advertisement.Pricing) == 0 {
		return fmt.Errorf("at least one pricing variant is required")
	}
	return nil
}

// RegisterJobRequest registers a job for the caller.
type RegisterJobRequest struct {
	Job marketplace.JobRegistration `json:"job"`
}

// Validate checks the request for obvious mistakes.
func (r *RegisterJobRequest) Validate() error {
	if r.Job.Script == "" {
		return fmt.Errorf("script is required")
	}
	return nil
}

// ProposeMatchingRequest proposes matches on behalf of the caller.
type ProposeMatchingRequest struct {
	Matches []marketplace.Match `json:"matches"`
}

// Validate checks the request for obvious mistakes.
func (r *ProposeMatchingRequest) Validate() error {
	if len(r.Matches) == 0 {
		return fmt.Errorf("at least one match is required")
	}
	for i, m := range r.Matches {
		if m.JobID == "" {
			return fmt.Errorf("match %d: job_id is required", i)
		}
		if len(m.Sources) == 0 {
			return fmt.Errorf("match %d: at least one source is required", i)
		}
	}
	return nil
}

// UpdateAllowedSourcesRequest replaces a job's allowed-source whitelist.
type UpdateAllowedSourcesRequest struct {
	AllowedSources models.AccountList `json:"allowed_sources"`
}

// ReportRequest reports one execution of the caller's assignment.
type ReportRequest struct {
	Last   bool                        `json:"last"`
	Result marketplace.ExecutionResult `json:"result"`
}

// DepositRequest credits an account on the ledger.
type DepositRequest struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// Validate checks the request for obvious mistakes.
func (r *DepositRequest) Validate() error {
	if r.Asset == "" {
		return fmt.Errorf("asset is required")
	}
	if r.Amount == 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}
