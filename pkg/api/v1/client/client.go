// Package client provides the API client for interacting with the marketplace API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/types"
	"github.com/taskmesh/marketplace/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for the API client. Every operation acting on
// behalf of an account takes the acting account as `as`.
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Account Endpoints
	Deposit(ctx context.Context, account string, req types.DepositRequest) error
	GetBalance(ctx context.Context, account, asset string) (types.BalanceResponse, error)
	VerifySource(ctx context.Context, provider string) error
	RevokeSource(ctx context.Context, provider string) error

	// Advertisement Endpoints
	Advertise(ctx context.Context, as string, ad marketplace.Advertisement) error
	GetAdvertisement(ctx context.Context, provider string) (models.Advertisement, error)
	DeleteAdvertisement(ctx context.Context, as string) error

	// Job Endpoints
	RegisterJob(ctx context.Context, as string, job marketplace.JobRegistration) (string, error)
	GetJobs(ctx context.Context, consumer string) ([]models.JobRegistration, error)
	GetJob(ctx context.Context, id string) (models.JobRegistration, error)
	GetJobStatus(ctx context.Context, id string) (models.JobStatus, error)
	GetJobAssignments(ctx context.Context, id string) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, id, provider string) (models.Assignment, error)
	AcknowledgeMatch(ctx context.Context, as, id string) error
	Report(ctx context.Context, as, id string, req types.ReportRequest) error
	UpdateAllowedSources(ctx context.Context, as, id string, sources models.AccountList) error
	DeregisterJob(ctx context.Context, as, id string) error

	// Match Endpoints
	ProposeMatching(ctx context.Context, as string, matches []marketplace.Match) (types.MatchResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	_, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint.
// A non-empty `as` identifies the acting account.
func (c *APIClient) createAgent(ctx context.Context, method, endpoint, as string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if as != "" {
		agent.Set(types.CallerHeader, as)
	}

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes the response into v.
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		var errResp types.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return &fiber.Error{Code: statusCode, Message: errResp.Error}
		}
		return &fiber.Error{Code: statusCode, Message: string(body)}
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// doRequestData decodes a SuccessResponse envelope and unmarshals its
// Data field into v.
func (c *APIClient) doRequestData(agent *fiber.Agent, v interface{}) error {
	var envelope types.SuccessResponse
	if err := c.doRequest(agent, &envelope); err != nil {
		return err
	}
	if v == nil || envelope.Data == nil {
		return nil
	}
	dataJSON, err := json.Marshal(envelope.Data)
	if err != nil {
		return fmt.Errorf("error re-encoding data: %w", err)
	}
	return json.Unmarshal(dataJSON, v)
}

// HealthCheck checks the health of the API server
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.HealthCheckURL(), "", nil)
	if err != nil {
		return nil, err
	}
	var result map[string]string
	if err := c.doRequest(agent, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Deposit credits an account on the ledger
func (c *APIClient) Deposit(ctx context.Context, account string, req types.DepositRequest) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.DepositURL(account), "", req)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// GetBalance reads an account's balance for one asset
func (c *APIClient) GetBalance(ctx context.Context, account, asset string) (types.BalanceResponse, error) {
	query := url.Values{}
	query.Set("asset", asset)
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetBalanceURL(account, query), "", nil)
	if err != nil {
		return types.BalanceResponse{}, err
	}
	var result types.BalanceResponse
	if err := c.doRequest(agent, &result); err != nil {
		return types.BalanceResponse{}, err
	}
	return result, nil
}

// VerifySource accepts a provider's attestation
func (c *APIClient) VerifySource(ctx context.Context, provider string) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.VerifySourceURL(provider), "", nil)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// RevokeSource revokes a provider's attestation
func (c *APIClient) RevokeSource(ctx context.Context, provider string) error {
	agent, err := c.createAgent(ctx, http.MethodDelete, routes.RevokeSourceURL(provider), "", nil)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// Advertise stores or updates the acting provider's advertisement
func (c *APIClient) Advertise(ctx context.Context, as string, ad marketplace.Advertisement) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.AdvertiseURL(), as,
		types.AdvertiseRequest{Advertisement: ad})
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// GetAdvertisement returns a provider's advertisement
func (c *APIClient) GetAdvertisement(ctx context.Context, provider string) (models.Advertisement, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetAdvertisementURL(provider), "", nil)
	if err != nil {
		return models.Advertisement{}, err
	}
	var result models.Advertisement
	if err := c.doRequest(agent, &result); err != nil {
		return models.Advertisement{}, err
	}
	return result, nil
}

// DeleteAdvertisement removes the acting provider's advertisement
func (c *APIClient) DeleteAdvertisement(ctx context.Context, as string) error {
	agent, err := c.createAgent(ctx, http.MethodDelete, routes.DeleteAdvertisementURL(), as, nil)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// RegisterJob registers a job for the acting consumer and returns its ID
func (c *APIClient) RegisterJob(ctx context.Context, as string, job marketplace.JobRegistration) (string, error) {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.RegisterJobURL(), as,
		types.RegisterJobRequest{Job: job})
	if err != nil {
		return "", err
	}
	var result types.RegisterJobResponse
	if err := c.doRequestData(agent, &result); err != nil {
		return "", err
	}
	return result.JobID, nil
}

// GetJobs lists job registrations, optionally filtered by consumer
func (c *APIClient) GetJobs(ctx context.Context, consumer string) ([]models.JobRegistration, error) {
	query := url.Values{}
	if consumer != "" {
		query.Set("consumer", consumer)
	}
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetJobsURL(query), "", nil)
	if err != nil {
		return nil, err
	}
	var result types.ListResponse[models.JobRegistration]
	if err := c.doRequest(agent, &result); err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// GetJob returns a job's registration
func (c *APIClient) GetJob(ctx context.Context, id string) (models.JobRegistration, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetJobURL(id), "", nil)
	if err != nil {
		return models.JobRegistration{}, err
	}
	var result models.JobRegistration
	if err := c.doRequest(agent, &result); err != nil {
		return models.JobRegistration{}, err
	}
	return result, nil
}

// GetJobStatus returns a job's lifecycle status
func (c *APIClient) GetJobStatus(ctx context.Context, id string) (models.JobStatus, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetJobStatusURL(id), "", nil)
	if err != nil {
		return models.JobStatus{}, err
	}
	var result models.JobStatus
	if err := c.doRequest(agent, &result); err != nil {
		return models.JobStatus{}, err
	}
	return result, nil
}

// GetJobAssignments lists all assignments of a job
func (c *APIClient) GetJobAssignments(ctx context.Context, id string) ([]models.Assignment, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetJobAssignmentsURL(id), "", nil)
	if err != nil {
		return nil, err
	}
	var result types.ListResponse[models.Assignment]
	if err := c.doRequest(agent, &result); err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// GetAssignment returns one assignment of a job
func (c *APIClient) GetAssignment(ctx context.Context, id, provider string) (models.Assignment, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.GetAssignmentURL(id, provider), "", nil)
	if err != nil {
		return models.Assignment{}, err
	}
	var result models.Assignment
	if err := c.doRequest(agent, &result); err != nil {
		return models.Assignment{}, err
	}
	return result, nil
}

// AcknowledgeMatch confirms the acting provider's assignment
func (c *APIClient) AcknowledgeMatch(ctx context.Context, as, id string) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.AcknowledgeMatchURL(id), as, nil)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// Report reports one execution of the acting provider's assignment
func (c *APIClient) Report(ctx context.Context, as, id string, req types.ReportRequest) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.ReportURL(id), as, req)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// UpdateAllowedSources replaces a job's allowed-source whitelist
func (c *APIClient) UpdateAllowedSources(ctx context.Context, as, id string, sources models.AccountList) error {
	agent, err := c.createAgent(ctx, http.MethodPut, routes.UpdateAllowedSourcesURL(id), as,
		types.UpdateAllowedSourcesRequest{AllowedSources: sources})
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// DeregisterJob removes the acting consumer's job
func (c *APIClient) DeregisterJob(ctx context.Context, as, id string) error {
	agent, err := c.createAgent(ctx, http.MethodDelete, routes.DeregisterJobURL(id), as, nil)
	if err != nil {
		return err
	}
	return c.doRequest(agent, nil)
}

// ProposeMatching proposes matches on behalf of the acting matcher
func (c *APIClient) ProposeMatching(ctx context.Context, as string, matches []marketplace.Match) (types.MatchResponse, error) {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.ProposeMatchingURL(), as,
		types.ProposeMatchingRequest{Matches: matches})
	if err != nil {
		return types.MatchResponse{}, err
	}
	var result types.MatchResponse
	if err := c.doRequestData(agent, &result); err != nil {
		return types.MatchResponse{}, err
	}
	return result, nil
}
