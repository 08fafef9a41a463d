// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/taskmesh/marketplace/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Smallest scope first (i.e. advertisement routes before job routes)
2. For similar scopes, put the endpoints in alphabetical order
3. Order routes in GET, POST, PUT, DELETE order.
	a. Within this ordering, param urls (ie /:id) should go last, otherwise fiber will interpret the route slug as that param.
	b. After param considerations, order alphabetically.
4. For clarity, naming should match the action (i.e. GetJob, DeleteJob)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Account routes
	GetBalance   = "GetBalance"
	Deposit      = "Deposit"
	VerifySource = "VerifySource"
	RevokeSource = "RevokeSource"

	// Advertisement routes
	GetAdvertisement    = "GetAdvertisement"
	Advertise           = "Advertise"
	DeleteAdvertisement = "DeleteAdvertisement"

	// Job routes
	GetJobs              = "GetJobs"
	GetJob               = "GetJob"
	GetJobStatus         = "GetJobStatus"
	GetJobAssignments    = "GetJobAssignments"
	GetAssignment        = "GetAssignment"
	RegisterJob          = "RegisterJob"
	AcknowledgeMatch     = "AcknowledgeMatch"
	Report               = "Report"
	UpdateAllowedSources = "UpdateAllowedSources"
	DeregisterJob        = "DeregisterJob"

	// Match routes
	ProposeMatching = "ProposeMatching"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering is important because routes will try and match in the order they are registered.
func RegisterRoutes(
	app *fiber.App,
	advertisementHandler *handlers.AdvertisementHandler,
	jobHandler *handlers.JobHandler,
	matchHandler *handlers.MatchHandler,
	accountHandler *handlers.AccountHandler,
) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	// API v1 routes
	v1 := app.Group(APIv1Prefix)

	// Account endpoints
	accounts := v1.Group("/accounts")
	accounts.Get("/:account/balance", accountHandler.GetBalance).Name(GetBalance)
	accounts.Post("/:account/deposit", accountHandler.Deposit).Name(Deposit)

	// Advertisement endpoints
	advertisements := v1.Group("/advertisements")
	advertisements.Get("/:provider", advertisementHandler.GetAdvertisement).Name(GetAdvertisement)
	advertisements.Post("/", advertisementHandler.Advertise).Name(Advertise)
	advertisements.Delete("/", advertisementHandler.DeleteAdvertisement).Name(DeleteAdvertisement)

	// Attestation endpoints
	attestations := v1.Group("/attestations")
	attestations.Post("/:provider", accountHandler.VerifySource).Name(VerifySource)
	attestations.Delete("/:provider", accountHandler.RevokeSource).Name(RevokeSource)

	// Job endpoints
	jobs := v1.Group("/jobs")
	jobs.Get("/", jobHandler.ListJobs).Name(GetJobs)
	jobs.Get("/:id/assignments/:provider", matchHandler.GetAssignment).Name(GetAssignment)
	jobs.Get("/:id/assignments", matchHandler.ListAssignments).Name(GetJobAssignments)
	jobs.Get("/:id/status", jobHandler.GetJobStatus).Name(GetJobStatus)
	jobs.Get("/:id", jobHandler.GetJob).Name(GetJob)
	jobs.Post("/", jobHandler.RegisterJob).Name(RegisterJob)
	jobs.Post("/:id/acknowledge", matchHandler.AcknowledgeMatch).Name(AcknowledgeMatch)
	jobs.Post("/:id/report", matchHandler.Report).Name(Report)
	jobs.Put("/:id/allowed-sources", jobHandler.UpdateAllowedSources).Name(UpdateAllowedSources)
	jobs.Delete("/:id", jobHandler.DeregisterJob).Name(DeregisterJob)

	// Match endpoints
	matches := v1.Group("/matches")
	matches.Post("/", matchHandler.ProposeMatching).Name(ProposeMatching)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Register routes with empty handlers
		RegisterRoutes(app,
			&handlers.AdvertisementHandler{},
			&handlers.JobHandler{},
			&handlers.MatchHandler{},
			&handlers.AccountHandler{},
		)

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()

	// Initialize cache if needed
	if routeCache == nil {
		routeCacheMu.RUnlock()
		initRouteCache()
		routeCacheMu.RLock()
	}

	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, value)
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// Health check route helper

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Account route helpers

// GetBalanceURL returns the URL for reading an account balance
func GetBalanceURL(account string, queryParams url.Values) string {
	return BuildURL(GetBalance, map[string]string{"account": account}, queryParams)
}

// DepositURL returns the URL for crediting an account
func DepositURL(account string) string {
	return BuildURL(Deposit, map[string]string{"account": account}, nil)
}

// VerifySourceURL returns the URL for accepting a provider's attestation
func VerifySourceURL(provider string) string {
	return BuildURL(VerifySource, map[string]string{"provider": provider}, nil)
}

// RevokeSourceURL returns the URL for revoking a provider's attestation
func RevokeSourceURL(provider string) string {
	return BuildURL(RevokeSource, map[string]string{"provider": provider}, nil)
}

// Advertisement route helpers

// GetAdvertisementURL returns the URL for getting a provider's advertisement
func GetAdvertisementURL(provider string) string {
	return BuildURL(GetAdvertisement, map[string]string{"provider": provider}, nil)
}

// AdvertiseURL returns the URL for storing an advertisement
func AdvertiseURL() string {
	return BuildURL(Advertise, nil, nil)
}

// DeleteAdvertisementURL returns the URL for removing an advertisement
func DeleteAdvertisementURL() string {
	return BuildURL(DeleteAdvertisement, nil, nil)
}

// Job route helpers

// GetJobsURL returns the URL for listing jobs
func GetJobsURL(queryParams url.Values) string {
	return BuildURL(GetJobs, nil, queryParams)
}

// GetJobURL returns the URL for getting a job by ID
func GetJobURL(id string) string {
	return BuildURL(GetJob, map[string]string{"id": id}, nil)
}

// GetJobStatusURL returns the URL for getting a job's status
func GetJobStatusURL(id string) string {
	return BuildURL(GetJobStatus, map[string]string{"id": id}, nil)
}

// GetJobAssignmentsURL returns the URL for listing a job's assignments
func GetJobAssignmentsURL(id string) string {
	return BuildURL(GetJobAssignments, map[string]string{"id": id}, nil)
}

// GetAssignmentURL returns the URL for getting one assignment of a job
func GetAssignmentURL(id, provider string) string {
	return BuildURL(GetAssignment, map[string]string{"id": id, "provider": provider}, nil)
}

// RegisterJobURL returns the URL for registering a job
func RegisterJobURL() string {
	return BuildURL(RegisterJob, nil, nil)
}

// AcknowledgeMatchURL returns the URL for acknowledging an assignment
func AcknowledgeMatchURL(id string) string {
	return BuildURL(AcknowledgeMatch, map[string]string{"id": id}, nil)
}

// ReportURL returns the URL for reporting an execution
func ReportURL(id string) string {
	return BuildURL(Report, map[string]string{"id": id}, nil)
}

// UpdateAllowedSourcesURL returns the URL for replacing a job's allowed sources
func UpdateAllowedSourcesURL(id string) string {
	return BuildURL(UpdateAllowedSources, map[string]string{"id": id}, nil)
}

// DeregisterJobURL returns the URL for removing a job
func DeregisterJobURL(id string) string {
	return BuildURL(DeregisterJob, map[string]string{"id": id}, nil)
}

// Match route helpers

// ProposeMatchingURL returns the URL for proposing matches
func ProposeMatchingURL() string {
	return BuildURL(ProposeMatching, nil, nil)
}
