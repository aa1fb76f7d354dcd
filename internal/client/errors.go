package client

import (
	"fmt"
)

// maxErrorBody caps how much of a rejected response is kept in an HTTPError
const maxErrorBody = 2048

// ValidationError reports a request descriptor that cannot be sent
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request field %s: %s", e.Field, e.Reason)
}

// TransportError wraps a failure to obtain any HTTP response
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a response with a non-success status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// BusinessError is a well-formed response carrying an error message from the API
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("API error: %s", e.Message)
}

// MalformedResponseError is a response body that is not a JSON object
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed API response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func truncate(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	return string(body[:maxErrorBody]) + "..."
}
