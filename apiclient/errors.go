package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrSessionEnded is matched by every error returned after the session was
// torn down: a 401 with no refresh token, or a failed refresh exchange.
var ErrSessionEnded = errors.New("session ended")

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	// Detail is the "detail" field of the error body, when present.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// SessionEndedError wraps the failure that ended the session.
type SessionEndedError struct {
	Cause error
}

func (e *SessionEndedError) Error() string {
	if e.Cause == nil {
		return ErrSessionEnded.Error()
	}
	return ErrSessionEnded.Error() + ": " + e.Cause.Error()
}

func (e *SessionEndedError) Is(target error) bool {
	return target == ErrSessionEnded
}

func (e *SessionEndedError) Unwrap() error {
	return e.Cause
}

// DetailOr returns the backend's error detail carried by err, or fallback
// when err carries none.
func DetailOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// readError consumes and closes the body of a failed response.
func readError(req *request, resp *http.Response) error {
	defer resp.Body.Close()
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Method:     req.method,
		Path:       req.path,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
	} else {
		// structured validation details are kept as raw JSON
		apiErr.Detail = strings.TrimSpace(string(payload.Detail))
	}
	return apiErr
}
