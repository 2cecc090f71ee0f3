package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/career-agent/internal/ingestion"
	"github.com/jonathan/career-agent/internal/pipeline"
	"github.com/jonathan/career-agent/internal/profile"
)

// ErrArchiveDisabled is returned by archive endpoints when no database is configured.
var ErrArchiveDisabled = errors.New("run archive is not configured")

// ErrRunNotFound indicates the run was not found
type ErrRunNotFound struct {
	RunID uuid.UUID
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var notFound *ErrRunNotFound
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingestion.ErrEmptyResume), errors.Is(err, profile.ErrNoSkills), errors.Is(err, pipeline.ErrNoProfile):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
