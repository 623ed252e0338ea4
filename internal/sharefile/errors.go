// Package sharefile provides an HTTP client for the ShareFile v3 REST API:
// OAuth2 password/refresh-token lifecycle, item and folder operations,
// shares, access controls and the chunked streaming upload protocol.
package sharefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for classified API failures.
// Use errors.Is(err, sharefile.ErrNotFound) to check.
var (
	ErrBadRequest = errors.New("sharefile: bad request")
	ErrForbidden  = errors.New("sharefile: forbidden")
	ErrNotFound   = errors.New("sharefile: not found")
	ErrConflict   = errors.New("sharefile: conflict")
)

// Authentication and upload sentinels.
var (
	ErrAuthentication   = errors.New("sharefile: authentication failed")
	ErrMissingClaims    = errors.New("sharefile: token response missing access_token or subdomain")
	ErrTokenNotFound    = errors.New("sharefile: token not found")
	ErrFilenameRequired = errors.New("sharefile: filename required: pass one explicitly or upload from a named file")
	ErrStreamRead       = errors.New("sharefile: reading upload stream")
)

// APIError is a failed request the service explained: HTTP 400, 403, 404
// or 409 with a JSON error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sharefile: HTTP %d [%s]: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("sharefile: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPError is any other non-2xx response. It is passed through
// unclassified.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sharefile: unexpected HTTP status %s", e.Status)
	}

	return fmt.Sprintf("sharefile: unexpected HTTP status %s: %s", e.Status, e.Body)
}

// AuthError reports a failed credential exchange.
type AuthError struct {
	GrantType  string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sharefile: %s grant failed (HTTP %d): %v", e.GrantType, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("sharefile: %s grant failed: %v", e.GrantType, e.Err)
}

// Unwrap exposes both ErrAuthentication and the underlying cause.
func (e *AuthError) Unwrap() []error {
	return []error{ErrAuthentication, e.Err}
}

// StreamReadError is a failed read of the upload stream. The upload attempt
// is abandoned.
type StreamReadError struct {
	Index int
	Err   error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("sharefile: reading chunk %d: %v", e.Index, e.Err)
}

func (e *StreamReadError) Unwrap() []error {
	return []error{ErrStreamRead, e.Err}
}

// classifyStatus maps the statuses the service explains to a sentinel.
// Returns nil for everything else.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

// errorBody is the union of the error shapes the API and the OAuth
// endpoint return.
type errorBody struct {
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Code             string          `json:"code"`
	Message          json.RawMessage `json:"message"`
}

// messageValue extracts message.value, or message itself when the service
// sent a plain string.
func (b *errorBody) messageValue() string {
	if len(b.Message) == 0 {
		return ""
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b.Message, &obj); err == nil {
		return obj.Value
	}

	var s string
	if err := json.Unmarshal(b.Message, &s); err == nil {
		return s
	}

	return ""
}

// classifyResponse turns a non-2xx status and its body into an error.
// 400/403/404/409 become *APIError; everything else is an *HTTPError.
func classifyResponse(statusCode int, status string, body []byte) error {
	sentinel := classifyStatus(statusCode)
	if sentinel == nil {
		return &HTTPError{StatusCode: statusCode, Status: status, Body: string(body)}
	}

	apiErr := &APIError{StatusCode: statusCode, Err: sentinel}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = string(body)

		return apiErr
	}

	switch {
	case eb.Error != "":
		apiErr.Message = eb.Error
	case eb.ErrorDescription != "":
		apiErr.Message = eb.ErrorDescription
	default:
		apiErr.Message = eb.messageValue()
	}

	apiErr.Code = eb.Code

	return apiErr
}
