// Package errors provides errno-style error values for the mediasearch
// services. Business code returns wrapped errors; HTTP handlers translate an
// errno into a response status at the boundary and nowhere else.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Errno represents a stable, coded error kind.
type Errno struct {
	// Code is the stable business error code.
	Code int `json:"code"`

	// HTTP is the HTTP status this kind maps to at the API boundary.
	HTTP int `json:"-"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// WithMessage returns a copy of the errno with a more specific message.
// The code and HTTP status are preserved so errors.Is still matches.
func (e *Errno) WithMessage(format string, args ...any) *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is matches errnos by code, so a WithMessage copy still compares equal to
// its template via errors.Is.
func (e *Errno) Is(target error) bool {
	var t *Errno
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// FromError extracts an *Errno from err's chain. Unknown errors map to
// ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithMessage("%s", err.Error())
}

// Predefined error kinds. Validation failures are client errors, transient
// I/O and backend failures are retriable server-side errors, malformed
// content is terminal.
var (
	// ErrBadRequest indicates invalid caller input.
	ErrBadRequest = &Errno{Code: 400001, HTTP: http.StatusBadRequest, Message: "invalid request"}

	// ErrInvalidSearchType indicates an unsupported search modality.
	ErrInvalidSearchType = &Errno{Code: 400002, HTTP: http.StatusBadRequest, Message: "invalid search type"}

	// ErrMalformedContent indicates a corrupt or undecodable asset or upload.
	ErrMalformedContent = &Errno{Code: 400003, HTTP: http.StatusBadRequest, Message: "invalid or corrupted file"}

	// ErrDimensionMismatch indicates an embedding of unexpected length.
	ErrDimensionMismatch = &Errno{Code: 400004, HTTP: http.StatusBadRequest, Message: "embedding dimension mismatch"}

	// ErrTransient indicates a transient I/O failure (network fetch, download).
	ErrTransient = &Errno{Code: 500001, HTTP: http.StatusInternalServerError, Message: "transient i/o failure"}

	// ErrExtractor indicates a feature-extraction backend failure.
	ErrExtractor = &Errno{Code: 500002, HTTP: http.StatusInternalServerError, Message: "feature extraction failed"}

	// ErrStore indicates a storage backend failure.
	ErrStore = &Errno{Code: 500003, HTTP: http.StatusInternalServerError, Message: "storage backend failure"}

	// ErrInternal is the fallback for unclassified errors.
	ErrInternal = &Errno{Code: 500000, HTTP: http.StatusInternalServerError, Message: "internal error"}
)
