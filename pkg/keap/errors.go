package keap

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired marks a refresh failure that ended the session.
	ErrSessionExpired = errors.New("keap: session expired")
	// ErrNoRefreshToken is returned when a refresh is needed but the store has no refresh token.
	ErrNoRefreshToken = errors.New("keap: no refresh token")
	// ErrInvalidTokenResponse is returned when a refresh answers 2xx without an access token.
	ErrInvalidTokenResponse = errors.New("keap: token response has no access token")
)

// HTTPError is a non-2xx response from the Keap API.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("keap: %s %s: status=%d", e.Method, e.URL, e.StatusCode)
}

// BackendError is a failed call to the token broker. StatusCode is 0 when
// no response was received.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("keap: %s failed: %v", e.Op, e.Err)
	}
	msg := fmt.Sprintf("keap: %s failed: status=%d", e.Op, e.StatusCode)
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// Rejected reports whether the broker answered with a client error, i.e. the
// refresh token or code was refused rather than the call failing in transit.
func (e *BackendError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// APIError is the single failure type returned by Client methods.
// Status is 0 when no HTTP response was received.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "keap: " + e.Message
	}
	return fmt.Sprintf("keap: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// toAPIError normalises any transport failure into *APIError.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.StatusCode,
			Message: errorMessage(httpErr.StatusCode, httpErr.Body),
			Err:     err,
		}
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return &APIError{Status: backendErr.StatusCode, Message: err.Error(), Err: err}
	}
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &APIError{Message: msg, Err: err}
}

// errorMessage pulls a human message out of a Keap error body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Fault            struct {
			FaultString string `json:"faultstring"`
		} `json:"fault"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Fault.FaultString, payload.ErrorDescription, payload.Error} {
			if strings.TrimSpace(m) != "" {
				return m
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}
