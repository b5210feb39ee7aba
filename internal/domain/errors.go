package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPlatformUnsupported = errors.New("unsupported platform/architecture combination")
	ErrNoVersionAvailable  = errors.New("no version available locally or remotely")
	ErrNetwork             = errors.New("network failure")
	ErrExtraction          = errors.New("extraction failed")
	ErrBinaryNotFound      = errors.New("binary not found after extraction")
	ErrBinaryIntegrity     = errors.New("binary failed integrity check")
)

// ExtractionError names the archive entry and the operation that failed.
type ExtractionError struct {
	Entry string
	Op    string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Entry, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
