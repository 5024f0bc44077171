package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFound matches *Error values carrying a 404 status.
var ErrNotFound = errors.New("backend: not found")

// Error is the decoded error envelope returned by the API.
type Error struct {
	Status  int
	Code    string
	Message string
	// Fields holds validation messages keyed by input field name.
	Fields map[string][]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	label := strings.TrimSpace(e.Code)
	if label == "" {
		label = fmt.Sprintf("%d", e.Status)
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend: error (%s): %s", label, msg)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// IsValidation reports whether err carries field-keyed validation messages.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (len(apiErr.Fields) > 0 || apiErr.Status == http.StatusUnprocessableEntity)
}

// FieldErrors extracts the field-keyed validation messages from err, if any.
func FieldErrors(err error) map[string][]string {
	var apiErr *Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(apiErr.Fields))
	for field, messages := range apiErr.Fields {
		out[field] = append([]string(nil), messages...)
	}
	return out
}

// SortedFields returns the field names of a validation map in stable order.
func SortedFields(fields map[string][]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()

	apiErr := &Error{Status: resp.StatusCode}

	var payload struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil {
			apiErr.Code = strings.TrimSpace(payload.Code)
			apiErr.Message = strings.TrimSpace(payload.Message)
			if len(payload.Errors) > 0 {
				apiErr.Fields = payload.Errors
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}
