package routes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "/health", HealthCheckURL())
	assert.Equal(t, "/api/v1/advertisements", AdvertiseURL())
	assert.Equal(t, "/api/v1/advertisements/provider-1", GetAdvertisementURL("provider-1"))
	assert.Equal(t, "/api/v1/jobs", RegisterJobURL())
	assert.Equal(t, "/api/v1/jobs/abc", GetJobURL("abc"))
	assert.Equal(t, "/api/v1/jobs/abc/status", GetJobStatusURL("abc"))
	assert.Equal(t, "/api/v1/jobs/abc/assignments", GetJobAssignmentsURL("abc"))
	assert.Equal(t, "/api/v1/jobs/abc/assignments/provider-1", GetAssignmentURL("abc", "provider-1"))
	assert.Equal(t, "/api/v1/jobs/abc/acknowledge", AcknowledgeMatchURL("abc"))
	assert.Equal(t, "/api/v1/jobs/abc/report", ReportURL("abc"))
	assert.Equal(t, "/api/v1/matches", ProposeMatchingURL())
	assert.Equal(t, "/api/v1/accounts/alice/deposit", DepositURL("alice"))
	assert.Equal(t, "/api/v1/attestations/provider-1", VerifySourceURL("provider-1"))
}

func TestBuildURLWithQuery(t *testing.T) {
	query := url.Values{}
	query.Set("consumer", "alice")
	assert.Equal(t, "/api/v1/jobs?consumer=alice", GetJobsURL(query))

	query = url.Values{}
	query.Set("asset", "native")
	assert.Equal(t, "/api/v1/accounts/alice/balance?asset=native", GetBalanceURL("alice", query))
}

func TestBuildURLUnknownRoute(t *testing.T) {
	assert.Empty(t, BuildURL("NoSuchRoute", nil, nil))
}
