package parse

import (
	"fmt"
	"strings"
)

// Kind classifies a parse failure
type Kind int

const (
	// KindEmpty means the model returned no choices or empty content
	KindEmpty Kind = iota + 1
	// KindMalformed means no JSON object could be extracted or decoded
	KindMalformed
	// KindIncomplete means required fields are absent; see Error.Missing
	KindIncomplete
	// KindInvalidConfidence means confianza is not a number in [0,1]
	KindInvalidConfidence
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty response"
	case KindMalformed:
		return "malformed response"
	case KindIncomplete:
		return "incomplete result"
	case KindInvalidConfidence:
		return "invalid confidence"
	default:
		return "unknown"
	}
}

// Error is returned by every parse operation
type Error struct {
	Kind    Kind
	Missing []string // required fields absent from the object, in schema order
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindIncomplete:
		return fmt.Sprintf("%s: missing fields [%s]", e.Kind, strings.Join(e.Missing, ", "))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
