package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Code is the closed set of search failure classes.
type Code string

const (
	CodeAuth      Code = "auth"
	CodeRateLimit Code = "rate_limit"
	CodeTimeout   Code = "timeout"
	CodeRequest   Code = "request"
	CodeHTTP      Code = "http"
	CodeDecode    Code = "decode"
)

// Error is a classified provider failure.
type Error struct {
	Code       Code
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

const maxErrorBody = 512

// statusError classifies a non-2xx response.
func statusError(resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(b))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Code: CodeAuth, StatusCode: resp.StatusCode, Message: "Authentication failed: " + body}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Code: CodeRateLimit, StatusCode: resp.StatusCode, Message: "Rate limit exceeded: " + body}
	}
	return &Error{Code: CodeHTTP, StatusCode: resp.StatusCode, Message: fmt.Sprintf("Search failed (%d): %s", resp.StatusCode, body)}
}

// transportError classifies a failure to get any response.
func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Code: CodeTimeout, Message: "Request timed out", Err: err}
	}
	return &Error{Code: CodeRequest, Message: "Request failed: " + err.Error(), Err: err}
}

func decodeError(err error) *Error {
	return &Error{Code: CodeDecode, Message: "Invalid response: " + err.Error(), Err: err}
}
