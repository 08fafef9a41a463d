package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/taskmesh/marketplace/internal/schedule"
)

// JobRegistration is a job's resource and reward contract. It is created
// at registration, read-only afterwards, and deleted on completion or
// deregistration.
type JobRegistration struct {
	gorm.Model
	JobID    string `json:"job_id" gorm:"uniqueIndex;not null"`
	Consumer string `json:"consumer" gorm:"index;not null"`
	Script   string `json:"script"`

	// Schedule, flattened for the store.
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
	Duration  uint64 `json:"duration"`
	Interval  uint64 `json:"interval"`

	Slots           uint8  `json:"slots"`
	Memory          uint32 `json:"memory"`
	NetworkRequests uint32 `json:"network_requests"`
	Storage         uint32 `json:"storage"`

	RewardAsset string `json:"reward_asset"`
	// RewardAmount is understood per slot and per execution.
	RewardAmount uint64 `json:"reward_amount"`

	AllowOnlyVerifiedSources bool        `json:"allow_only_verified_sources"`
	AllowedSources           AccountList `json:"allowed_sources,omitempty" gorm:"serializer:json"`
}

// Schedule returns the registration's recurring execution plan.
func (r *JobRegistration) Schedule() schedule.Schedule {
	return schedule.Schedule{
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Duration:  r.Duration,
		Interval:  r.Interval,
	}
}

// JobState is the lifecycle marker of a registered job.
type JobState int

const (
	// JobStateUnknown is the zero value and never stored.
	JobStateUnknown JobState = iota
	// JobStateOpen means the job is registered but not yet matched.
	JobStateOpen
	// JobStateMatched means providers were committed for every slot.
	JobStateMatched
	// JobStateAssigned means at least one provider acknowledged.
	JobStateAssigned
)

func (s JobState) String() string {
	return []string{
		"unknown",
		"open",
		"matched",
		"assigned",
	}[s]
}

// ParseJobState parses the string form of a job state.
func ParseJobState(str string) (JobState, error) {
	for i, state := range []string{
		"unknown",
		"open",
		"matched",
		"assigned",
	} {
		if state == str && i != 0 {
			return JobState(i), nil
		}
	}
	return JobStateUnknown, fmt.Errorf("invalid job state: %s", str)
}

func (s JobState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *JobState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state, err := ParseJobState(str)
	if err != nil {
		return err
	}

	*s = state
	return nil
}

// JobStatus tracks the lifecycle of one job. Acknowledged counts how many
// providers acknowledged their assignment while the state is "assigned".
type JobStatus struct {
	gorm.Model
	JobID        string   `json:"job_id" gorm:"uniqueIndex;not null"`
	State        JobState `json:"state" gorm:"index"`
	Acknowledged uint8    `json:"acknowledged"`
}
