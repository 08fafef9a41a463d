package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// Advertisement holds a provider's capability envelope. Only one
// advertisement per provider is allowed; re-advertising updates it.
type Advertisement struct {
	gorm.Model
	Provider            string      `json:"provider" gorm:"uniqueIndex;not null"`
	MaxMemory           uint32      `json:"max_memory"`
	NetworkRequestQuota uint32      `json:"network_request_quota"`
	StorageCapacity     uint32      `json:"storage_capacity"`
	AllowedConsumers    AccountList `json:"allowed_consumers,omitempty" gorm:"serializer:json"`
}

// SchedulingWindowKind selects how a pricing variant's scheduling window
// is interpreted.
type SchedulingWindowKind int

const (
	// SchedulingWindowUnknown is the zero value and never valid.
	SchedulingWindowUnknown SchedulingWindowKind = iota
	// SchedulingWindowEnd is an absolute deadline in milliseconds.
	SchedulingWindowEnd
	// SchedulingWindowDelta is a window relative to the current time.
	SchedulingWindowDelta
)

func (k SchedulingWindowKind) String() string {
	return []string{
		"unknown",
		"end",
		"delta",
	}[k]
}

// ParseSchedulingWindowKind parses the string form of a scheduling window kind.
func ParseSchedulingWindowKind(str string) (SchedulingWindowKind, error) {
	for i, kind := range []string{
		"unknown",
		"end",
		"delta",
	} {
		if kind == str && i != 0 {
			return SchedulingWindowKind(i), nil
		}
	}
	return SchedulingWindowUnknown, fmt.Errorf("invalid scheduling window kind: %s", str)
}

func (k SchedulingWindowKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SchedulingWindowKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	kind, err := ParseSchedulingWindowKind(str)
	if err != nil {
		return err
	}

	*k = kind
	return nil
}

// PricingVariant is a provider's price for jobs rewarded in one asset,
// keyed by (provider, reward asset).
type PricingVariant struct {
	gorm.Model
	Provider            string               `json:"provider" gorm:"uniqueIndex:idx_pricing_provider_asset;not null"`
	RewardAsset         string               `json:"reward_asset" gorm:"uniqueIndex:idx_pricing_provider_asset;not null"`
	FeePerMillisecond   uint64               `json:"fee_per_millisecond"`
	FeePerStorageByte   uint64               `json:"fee_per_storage_byte"`
	BaseFeePerExecution uint64               `json:"base_fee_per_execution"`
	WindowKind          SchedulingWindowKind `json:"window_kind"`
	// Window is an absolute deadline for WindowKind "end" and a relative
	// span for "delta", both in milliseconds.
	Window uint64 `json:"window"`
}

// Capacity tracks a provider's remaining storage budget in bytes. It may
// go negative when a provider lowers its advertised capacity below what
// is already committed; a provider at or below zero receives no new
// matches.
type Capacity struct {
	gorm.Model
	Provider  string `json:"provider" gorm:"uniqueIndex;not null"`
	Remaining int64  `json:"remaining"`
}
