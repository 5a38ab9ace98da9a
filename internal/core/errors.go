package core

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by backends and the parser. Callers should test
// with errors.Is; the service wraps them in *ImportError with a Kind.
var (
	ErrJobNotFound       = errors.New("import job not found")
	ErrStatusConflict    = errors.New("import job status does not allow this operation")
	ErrSourceNotFound    = errors.New("no source file stored for import job")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("empty file")
)

// ErrorKind classifies failures so the transport layer can choose a response.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// ImportError is the error type returned by Service operations.
type ImportError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ImportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *ImportError in err's chain.
// Errors that carry no kind are classified by their sentinel, else internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	switch {
	case errors.Is(err, ErrJobNotFound):
		return KindNotFound
	case errors.Is(err, ErrStatusConflict):
		return KindConflict
	case errors.Is(err, ErrTooManyImports):
		return KindUnavailable
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrSourceNotFound):
		return KindInvalidInput
	}
	return KindInternal
}

func newError(kind ErrorKind, op string, err error) *ImportError {
	return &ImportError{Kind: kind, Op: op, Err: err}
}

func invalidInput(op string, err error) *ImportError {
	return newError(KindInvalidInput, op, err)
}

// classify wraps a backend error, picking the kind from its sentinel.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return err
	}
	return newError(KindOf(err), op, err)
}
