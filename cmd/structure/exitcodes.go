package main

import (
	"github.com/go-faster/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// serviceError picks the exit code of a failed service call.
func serviceError(err error, write bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, structure.ErrNotFound), errors.Is(err, structure.ErrUnsupportedFormat):
		return withCode(exitUsage, err)
	case errors.Is(err, structure.ErrStrictImport), errors.Is(err, structure.ErrNoDrafts):
		return withCode(exitValidation, err)
	case write:
		return withCode(exitDBWrite, err)
	default:
		return withCode(exitDB, err)
	}
}
