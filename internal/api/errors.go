package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and operator messaging.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
	KindConflict           Kind = "conflict"
	KindNoTrainingData     Kind = "no_training_data"
	KindEmptyTrainingSplit Kind = "empty_training_split"
	KindModelNotReady      Kind = "model_not_ready"
	KindIOError            Kind = "io_error"
	KindSubprocessFailed   Kind = "subprocess_failed"
	KindCameraUnavailable  Kind = "camera_unavailable"
	KindInternal           Kind = "internal"
)

// Error carries a stable kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs a kinded error from a format string.
func E(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to an HTTP response code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindNoTrainingData, KindEmptyTrainingSplit:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindModelNotReady, KindCameraUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
