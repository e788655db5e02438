package analysis

import (
	"errors"
	"fmt"
)

// ErrLowConfidence marks results rejected by the confidence threshold
var ErrLowConfidence = errors.New("insufficient confidence")

// AnalysisError is returned by every failed analysis. Err keeps the component
// error (llm.ClientError, parse.Error, imagedata.ErrInvalid, ErrLowConfidence).
type AnalysisError struct {
	Message string
	Err     error

	// Set only for low-confidence rejections
	Reason     string  // candidate description shown to the user
	Confidence float64 // reconciled confidence that failed the threshold
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsLowConfidence reports whether err is a threshold rejection
func IsLowConfidence(err error) bool {
	return errors.Is(err, ErrLowConfidence)
}

// LowConfidence extracts the rejection details from err
func LowConfidence(err error) (*AnalysisError, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) && errors.Is(ae.Err, ErrLowConfidence) {
		return ae, true
	}
	return nil, false
}
