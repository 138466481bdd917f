package storefront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
)

type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	return msg
}

// Detail renders the error with its status and code for logs.
func (e *HTTPError) Detail() string {
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Error())
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, e.Error())
}

func parseHTTPError(status int, raw []byte) *HTTPError {
	out := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code,omitempty"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		out.Message = strings.TrimSpace(env.Error.Message)
		out.Code = strings.TrimSpace(env.Error.Code)
	}
	return out
}

// errorFor classifies a non-2xx response into the shared error taxonomy. The
// *HTTPError stays reachable through errors.As.
func errorFor(status int, raw []byte) error {
	herr := parseHTTPError(status, raw)
	return apierr.New(status, herr.Code, herr)
}
