package types

// ErrorResponse represents an error response
// Example: {"error":"invalid asset id","details":{"field":"reward_asset"}}
type ErrorResponse struct {
	// Error message describing what went wrong
	Error string `json:"error"`

	// Optional additional details about the error
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
// Example: {"data":{"job_id":"6f1b..."}}
type SuccessResponse struct {
	// Optional data returned by the operation
	Data interface{} `json:"data,omitempty"`
}

// ListResponse defines a generic response structure for listing resources
// Example: {"rows":[...],"total":2}
type ListResponse[T any] struct {
	// Array of resource items
	Rows []T `json:"rows"`

	// Total number of items returned
	Total int `json:"total"`
}

// RegisterJobResponse is returned after a successful job registration.
type RegisterJobResponse struct {
	JobID string `json:"job_id"`
}

// MatchResponse is returned after a successful matching proposal. The
// remainder is the unspent reward paid to the matcher.
type MatchResponse struct {
	RemainderAsset  string `json:"remainder_asset"`
	RemainderAmount uint64 `json:"remainder_amount"`
}

// BalanceResponse reports one account's balance for one asset.
type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

// ErrInvalidInput creates an error response for invalid input
func ErrInvalidInput(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// ErrNotFound creates an error response for a missing resource
func ErrNotFound(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// ErrServer creates an error response for server-side failures
func ErrServer(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// Success creates a success response wrapping the given data
func Success(data interface{}) SuccessResponse {
	return SuccessResponse{Data: data}
}
