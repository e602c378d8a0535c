package parser

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a decoder wraps exactly one of these.
var (
	ErrMalformedLine        = errors.New("malformed line")
	ErrEarlyEOF             = errors.New("early EOF")
	ErrInvalidField         = errors.New("invalid field")
	ErrTrailingData         = errors.New("trailing data")
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidPathReference = errors.New("invalid path reference")
)

// Source file labels used in DecodeError.File.
const (
	fileConfig = "cfg"
	fileData   = "dat"
	fileInfo   = "inf"
)

// DecodeError describes the first violation a decoder found.
// Line is 1-based; for binary data it is the 1-based record number.
type DecodeError struct {
	Kind   error
	File   string
	Line   int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s line %d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// KindName returns a stable short name for the error kind, used in API responses.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrMalformedLine):
		return "malformed_line"
	case errors.Is(err, ErrEarlyEOF):
		return "early_eof"
	case errors.Is(err, ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, ErrTrailingData):
		return "trailing_data"
	case errors.Is(err, ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, ErrInvalidPathReference):
		return "invalid_path_reference"
	}
	return "unknown"
}

func malformed(file string, line int, reason string) error {
	return &DecodeError{Kind: ErrMalformedLine, File: file, Line: line, Reason: reason}
}

func earlyEOF(file string, line int, reason string) error {
	return &DecodeError{Kind: ErrEarlyEOF, File: file, Line: line, Reason: reason}
}

func invalidField(file string, line int, reason string) error {
	return &DecodeError{Kind: ErrInvalidField, File: file, Line: line, Reason: reason}
}
