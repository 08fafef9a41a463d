package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountListContains(t *testing.T) {
	// nil permits every account
	var unrestricted AccountList
	assert.True(t, unrestricted.Contains("anyone"))

	list := AccountList{"alice", "bob"}
	assert.True(t, list.Contains("alice"))
	assert.False(t, list.Contains("carol"))

	// an empty, non-nil list permits nobody
	empty := AccountList{}
	assert.False(t, empty.Contains("alice"))
}

func TestSchedulingWindowKindJSON(t *testing.T) {
	for _, kind := range []SchedulingWindowKind{SchedulingWindowEnd, SchedulingWindowDelta} {
		data, err := json.Marshal(kind)
		require.NoError(t, err)

		var parsed SchedulingWindowKind
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, kind, parsed)
	}

	var kind SchedulingWindowKind
	err := json.Unmarshal([]byte(`"sometime"`), &kind)
	assert.Error(t, err)
}

func TestParseSchedulingWindowKind(t *testing.T) {
	kind, err := ParseSchedulingWindowKind("end")
	require.NoError(t, err)
	assert.Equal(t, SchedulingWindowEnd, kind)

	kind, err = ParseSchedulingWindowKind("delta")
	require.NoError(t, err)
	assert.Equal(t, SchedulingWindowDelta, kind)

	_, err = ParseSchedulingWindowKind("unknown")
	assert.Error(t, err)
}

func TestJobStateJSON(t *testing.T) {
	data, err := json.Marshal(JobStateMatched)
	require.NoError(t, err)
	assert.Equal(t, `"matched"`, string(data))

	var state JobState
	require.NoError(t, json.Unmarshal([]byte(`"assigned"`), &state))
	assert.Equal(t, JobStateAssigned, state)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &state))
}

func TestJobRegistrationSchedule(t *testing.T) {
	reg := JobRegistration{
		StartTime: 1_000,
		EndTime:   5_000,
		Duration:  500,
		Interval:  1_000,
	}
	sched := reg.Schedule()
	assert.Equal(t, uint64(1_000), sched.StartTime)
	assert.Equal(t, uint64(4), sched.ExecutionCount())
}
