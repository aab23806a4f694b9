package dto

import "time"

// ErrorResponse is the standard error body returned by every endpoint.
//
// Fields:
//   - Message: human readable summary of what went wrong.
//   - ErrorDetails: underlying error text, omitted when the cause must not be exposed.
//   - Timestamp: when the error response was produced (UTC).
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid start_date format, expected YYYY-MM-DD"`
	ErrorDetails string    `json:"error,omitempty" example:"parsing time \"2024/01/05\""`
	Timestamp    time.Time `json:"timestamp"`
}

// Error implements the error interface so the response can travel through gin's error chain.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse. err may be nil.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
