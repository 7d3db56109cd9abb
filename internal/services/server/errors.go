package server

import (
	"errors"
	"net/http"

	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/locate"
	"github.com/tyemirov/excerpt/internal/output"
	"github.com/tyemirov/excerpt/internal/source"
)

// CommandExecutionError attaches an HTTP status code to a command failure.
type CommandExecutionError struct {
	statusCode int
	err        error
}

// NewCommandExecutionError wraps err with statusCode. A nil err stays nil.
func NewCommandExecutionError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return CommandExecutionError{statusCode: statusCode, err: err}
}

func (executionError CommandExecutionError) Error() string {
	return executionError.err.Error()
}

func (executionError CommandExecutionError) Unwrap() error {
	return executionError.err
}

// StatusCode reports the associated HTTP status code.
func (executionError CommandExecutionError) StatusCode() int {
	return executionError.statusCode
}

// describeError maps a command failure onto a status code and the message sent
// to the client. An out-of-bounds selection answers with the failover text.
func describeError(err error) (int, string) {
	var executionError CommandExecutionError
	if errors.As(err, &executionError) {
		return executionError.statusCode, err.Error()
	}
	var boundsError *excerpt.OutOfBoundsError
	switch {
	case errors.As(err, &boundsError):
		return http.StatusUnprocessableEntity, output.FailoverMessage(boundsError.Start, boundsError.TotalLines)
	case errors.Is(err, source.ErrDocumentNotFound), errors.Is(err, locate.ErrEntityNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, locate.ErrUnsupportedFile), errors.Is(err, excerpt.ErrBudgetTooSmall):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
