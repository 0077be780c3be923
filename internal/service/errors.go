package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/player"
)

var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrForbidden       = errors.New("action not permitted")
	ErrNotEnrolled     = errors.New("student is not enrolled in this course")
	ErrConflict        = errors.New("resource already exists")
	ErrQuizUnavailable = player.ErrQuizUnavailable
	ErrInvalidStatus   = errors.New("course status does not allow this action")
)

var errValidation = errors.New("service: validation error")

type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func (e *validationError) Unwrap() error {
	return errValidation
}

func newValidationError(format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &validationError{message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == "23505"
	}

	return false
}
