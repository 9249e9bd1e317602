package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/terraincognita07/dairyforms/internal/models"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in current workflow state")
	ErrPhotoIndex        = errors.New("photo index out of range")
	ErrUnknownForm       = errors.New("unknown form")
	ErrFormMismatch      = errors.New("session belongs to another form")
)

// ValidationError is returned when the review gate finds required fields
// empty, or when host-supplied values do not parse. MissingLabels holds the
// display labels of Missing in the same order.
type ValidationError struct {
	Missing       []string
	MissingLabels []string
	Invalid       map[string]string
}

func (err *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	missing := err.MissingLabels
	if len(missing) == 0 {
		missing = err.Missing
	}
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(err.Invalid) > 0 {
		names := make([]string, 0, len(err.Invalid))
		for name := range err.Invalid {
			names = append(names, name)
		}
		sort.Strings(names)
		parts = append(parts, "invalid fields: "+strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// PersistenceError wraps an I/O failure on the draft, the submission log or
// the photo directories. The workflow state is left unchanged.
type PersistenceError struct {
	Op  string
	Err error
}

func (err *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *PersistenceError) Unwrap() error {
	return err.Err
}

// PartialPromotionWarning records a staged photo that was gone when the
// submission was confirmed. It is never returned as an error.
type PartialPromotionWarning struct {
	Path string
}

func (warning PartialPromotionWarning) Error() string {
	return fmt.Sprintf("staged photo %s was missing and was not attached", warning.Path)
}

// ParseError describes a stored document that could not be decoded and was
// replaced by an empty value.
type ParseError struct {
	Source string
	Err    error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", err.Source, err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

func transitionError(action string, state models.WorkflowState) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, state)
}
