package route

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/lotra/internal/lang"
)

var (
	// ErrInvalidDirection matches every *InvalidDirectionError via errors.Is.
	ErrInvalidDirection = errors.New("invalid translation direction")
	// ErrModel matches every *ModelError via errors.Is.
	ErrModel = errors.New("translation engine error")
)

// Reason identifies which direction check failed.
type Reason string

const (
	ReasonEmptyText      Reason = "empty_text"
	ReasonUndetectable   Reason = "undetectable"
	ReasonSameLanguage   Reason = "same_language"
	ReasonSourceRequired Reason = "source_required"
	ReasonUnsupported    Reason = "unsupported"
)

// InvalidDirectionError is returned when no valid (source, target) pair can
// be determined for a request. It is never retryable.
type InvalidDirectionError struct {
	Reason Reason
	Source lang.Code
	Target lang.Code
}

func (e *InvalidDirectionError) Error() string {
	switch e.Reason {
	case ReasonEmptyText:
		return "text must not be empty"
	case ReasonUndetectable:
		return "could not detect language"
	case ReasonSameLanguage:
		return fmt.Sprintf("source and target must differ (both %s)", e.Source)
	case ReasonSourceRequired:
		return "source language required when auto-detect is disabled"
	case ReasonUnsupported:
		return fmt.Sprintf("unsupported language pair: %s -> %s", e.Source, e.Target)
	default:
		return ErrInvalidDirection.Error()
	}
}

// Is reports whether target is ErrInvalidDirection.
func (e *InvalidDirectionError) Is(target error) bool {
	return target == ErrInvalidDirection
}

// ModelError wraps a failure reported by the translation backend.
type ModelError struct {
	Source lang.Code
	Target lang.Code
	Err    error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("translation %s -> %s failed: %v", e.Source, e.Target, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModel.
func (e *ModelError) Is(target error) bool {
	return target == ErrModel
}

// IsInvalidDirection reports whether err is an InvalidDirectionError and
// returns it.
func IsInvalidDirection(err error) (*InvalidDirectionError, bool) {
	var de *InvalidDirectionError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsModelError reports whether err is a ModelError and returns it.
func IsModelError(err error) (*ModelError, bool) {
	var me *ModelError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
