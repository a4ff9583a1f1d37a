package gemini

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx answer from the Generative Language API.
type APIError struct {
	StatusCode int
	Status     string // google.rpc code name, e.g. RESOURCE_EXHAUSTED
	Message    string
	RetryAfter time.Duration // zero when the server sent no hint
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("gemini: HTTP %d", e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// RateLimited reports whether the call was throttled.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}

// RetryHint returns the server-suggested delay, if any.
func (e *APIError) RetryHint() (time.Duration, bool) {
	return e.RetryAfter, e.RetryAfter > 0
}

// parseAPIError builds an APIError from a Google RPC error body such as
//
//	{"error":{"code":429,"message":"...","status":"RESOURCE_EXHAUSTED",
//	  "details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"27s"}]}}
//
// A Retry-After header is used when the body carries no RetryInfo.
func parseAPIError(statusCode int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	root := gjson.ParseBytes(body)
	if errObj := root.Get("error"); errObj.Exists() {
		apiErr.Message = errObj.Get("message").String()
		apiErr.Status = errObj.Get("status").String()
		errObj.Get("details").ForEach(func(_, detail gjson.Result) bool {
			// only RetryInfo carries retryDelay
			delay := detail.Get("retryDelay")
			if !delay.Exists() {
				return true
			}
			if d, err := time.ParseDuration(delay.String()); err == nil {
				apiErr.RetryAfter = d
			}
			return false
		})
	} else if len(body) > 0 {
		apiErr.Message = truncate(strings.TrimSpace(string(body)), 512)
	}

	if apiErr.RetryAfter == 0 && header != nil {
		if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
