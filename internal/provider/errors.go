package provider

import (
	"errors"
	"fmt"
)

// SourceUnavailableError reports that a source could not be fetched after
// the retry budget was spent: network failure, non-200 response, rate
// limiting, or a payload that could not be parsed.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// IsSourceUnavailable reports whether err wraps a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}

func unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceUnavailableError
	if errors.As(err, &se) {
		return err
	}
	return &SourceUnavailableError{Source: source, Err: err}
}
