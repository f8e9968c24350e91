package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HTTPError is a non-2xx response from the remote store.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph %d %s: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("graph %d: %s", e.StatusCode, e.Message)
}

func newHTTPError(status int, requestID string, body []byte) *HTTPError {
	e := &HTTPError{
		StatusCode: status,
		RequestID:  requestID,
		Message:    strings.TrimSpace(string(body)),
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
		e.Code = envelope.Error.Code
		e.Message = envelope.Error.Message
	}

	return e
}
