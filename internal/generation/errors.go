package generation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks missing or malformed caller input. Jobs never
	// progress past Created when validation fails.
	ErrValidation = errors.New("validation error")
	// ErrGeneration marks an external generation failure, timeout, or
	// malformed payload. The current stage aborts without retry.
	ErrGeneration = errors.New("generation error")
	// ErrPersistence marks a durable-store failure.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound marks a missing record where one was required.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message extracts a human-readable failure summary, dropping the sentinel
// prefix so logs and job records read cleanly.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{ErrValidation, ErrGeneration, ErrPersistence, ErrNotFound} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "generation failure"
	}
	return strings.Join(parts, ": ")
}
