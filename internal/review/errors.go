package review

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrForbidden is returned when the caller may not perform the action
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyReviewed is returned when a report is no longer pending
	ErrAlreadyReviewed = errors.New("report already reviewed")
)

// ValidationError lists invalid input fields and why
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
