package storefront

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/example/pharmacy-checkout/internal/shape"
)

// ErrTransport marks failures where no usable response came back.
var ErrTransport = errors.New("storefront unreachable")

// APIError is a non-2xx or success:false reply from the storefront API.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront responded %d: %s", e.Status, e.Message)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Message: errorMessage(status, body),
		Body:    body,
	}
}

// errorMessage builds a readable message from a failure payload.
// Priority: validation errors, then details, message, error, then the status text.
func errorMessage(status int, body []byte) string {
	payload, _ := shape.Decode(body)
	obj, _ := payload.(map[string]any)

	if obj != nil {
		if msg := joinErrors(obj["errors"]); msg != "" {
			return msg
		}
		for _, key := range []string{"details", "message", "error"} {
			if msg := textOf(obj[key]); msg != "" {
				return msg
			}
		}
	}

	if text := http.StatusText(status); text != "" && status >= 400 {
		return text
	}
	return "request failed"
}

func joinErrors(v any) string {
	var parts []string

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if msg := textOf(item); msg != "" {
				parts = append(parts, msg)
			}
		}
	case map[string]any:
		for _, field := range slices.Sorted(maps.Keys(t)) {
			if msg := textOf(t[field]); msg != "" {
				parts = append(parts, field+": "+msg)
			}
		}
	}

	return strings.Join(parts, "; ")
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, key := range []string{"msg", "message", "error"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	case []any:
		return joinErrors(t)
	}
	return ""
}
