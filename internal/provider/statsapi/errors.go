package statsapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/johanforsgren/orgpulse/internal/provider/common"
)

const maxErrorBody = 64 << 10

var (
	// ErrNotConnected is returned before any I/O when no credential is stored.
	ErrNotConnected = &common.Notice{
		Text:    "no credential stored",
		Message: "Not connected to GitHub. Use :connect to link your account.",
	}

	ErrUnauthorized = &common.Notice{
		Text:    "credential rejected by the statistics service",
		Message: "Your GitHub link is no longer valid. Use :connect to link it again.",
	}

	ErrServiceUnavailable = &common.Notice{
		Text:    "statistics service circuit open",
		Message: "The statistics service is failing. Try again in a moment.",
	}
)

// APIError is a non-2xx response from the statistics service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the body's "error" field, if there was one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Unauthorized() {
		return ErrUnauthorized.Message
	}
	return ""
}

func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Unauthorized()
}

func newAPIError(req *http.Request, resp *http.Response) *APIError {
	apiErr := &APIError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	apiErr.Message = errorField(data)
	return apiErr
}

// errorField pulls "error" out of the payload. It may be a string or an
// object with a message.
func errorField(data []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Error) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Error, &text); err == nil {
		return text
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return nested.Message
	}

	return ""
}
