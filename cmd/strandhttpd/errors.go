package main

import (
	"errors"
	"strings"
)

// domainError marks a failure in the domain the CLI operates on
// (manifest parsing, server startup) as opposed to a CLI usage mistake
// or an unexpected internal error.
type domainError struct {
	err error
}

func (e *domainError) Error() string { return e.err.Error() }
func (e *domainError) Unwrap() error { return e.err }

func newDomainError(err error) error {
	if err == nil {
		return nil
	}
	return &domainError{err: err}
}

func asDomainError(err error, target **domainError) bool {
	return errors.As(err, target)
}

// isUsageError reports whether err is a command-line argument error, which
// exit code 1 is reserved for: one from cobra/pflag's own argument parsing,
// or a flag value runRoot rejects in pflag's "invalid argument" wording.
// cobra does not export a typed error for this, so the check looks for
// pflag's well-known message phrases anywhere in the error text.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"accepts at most",
		"accepts between",
		"requires at least",
		"unknown command",
	} {
		if strings.HasPrefix(msg, prefix) || strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
