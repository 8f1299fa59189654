package saft

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile        = errors.New("no SAF-T file supplied")
	ErrMalformedFile      = errors.New("malformed SAF-T file")
	ErrUnsupportedCountry = errors.New("SAF-T profile has no account type table")
	ErrUnmapped           = errors.New("unmapped SAF-T reference")
	ErrUnbalancedMove     = errors.New("unbalanced move")
)

type MalformedFileError struct {
	Reason string
	Err    error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedFile, e.Reason)
}

func (e *MalformedFileError) Is(target error) bool {
	return target == ErrMalformedFile
}

func (e *MalformedFileError) Unwrap() error {
	return e.Err
}

func malformed(err error, format string, args ...any) error {
	return &MalformedFileError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// UnmappedError - ссылка из файла, которой нет в картах импорта
type UnmappedError struct {
	Kind string
	Key  string
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnmapped, e.Kind, e.Key)
}

func (e *UnmappedError) Is(target error) bool {
	return target == ErrUnmapped
}
