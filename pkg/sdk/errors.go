package nlsearch

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the server.
// Use errors.As() to inspect the code and status.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable error code, e.g. "validation_failed"
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nlsearch: %s (status %d, code %s)", e.Message, e.Status, e.Code)
}

// IsNotFound reports whether the error is a 404 API response.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsValidation reports whether the server rejected the request as
// invalid (bad attribute, unknown category, unparseable reply).
func IsValidation(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && (apiErr.Status == http.StatusBadRequest ||
		apiErr.Status == http.StatusUnprocessableEntity)
}

func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		// Search failures nest the error body; other endpoints return it flat.
		if body.Error != nil {
			apiErr.Code = body.Error.Code
			apiErr.Message = body.Error.Message
		} else if body.Code != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
		}
	}
	return apiErr
}
