package cmd

import (
	"errors"

	"github.com/MufengNiu/Paradisec/internal/ingest"
	"github.com/MufengNiu/Paradisec/internal/mapping"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
	"github.com/MufengNiu/Paradisec/internal/store"
)

const (
	exitOK      = 0
	exitError   = 1
	exitUsage   = 2
	exitFetch   = 3
	exitStore   = 4
	exitMapping = 5
)

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	var fetchErr *paradisec.FetchError
	var writeErr *store.WriteError
	switch {
	case errors.As(err, &fetchErr):
		return exitFetch
	case errors.As(err, &writeErr):
		return exitStore
	case errors.Is(err, mapping.ErrNotFound), errors.Is(err, ingest.ErrLedgerExists):
		return exitMapping
	default:
		return exitError
	}
}
