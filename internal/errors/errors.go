// Package errors defines the failure kinds of the thumbnail pipeline.
//
// Every failure surfaced to the event adapter is an *Error carrying a Kind.
// Storage and process errors are kept as the wrapped cause, so errors.Is on
// the original error keeps working through the wrapper.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorises a pipeline failure.
type Kind int

// The first three values match the error codes exposed by earlier releases
// of the Lambda (0, 1, 2) and must not be reordered.
const (
	KindSameBucket Kind = iota
	KindUnknownFileType
	KindWrongFileType
	KindDestinationResolution
	KindDownload
	KindUpload
	KindConversion
	KindConfig
)

var kindNames = map[Kind]string{
	KindSameBucket:            "SameBucket",
	KindUnknownFileType:       "UnknownFileType",
	KindWrongFileType:         "WrongFileType",
	KindDestinationResolution: "DestinationResolutionFailed",
	KindDownload:              "DownloadFailed",
	KindUpload:                "UploadFailed",
	KindConversion:            "ConversionFailed",
	KindConfig:                "ConfigError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrSameBucket            = &Error{Kind: KindSameBucket}
	ErrUnknownFileType       = &Error{Kind: KindUnknownFileType}
	ErrWrongFileType         = &Error{Kind: KindWrongFileType}
	ErrDestinationResolution = &Error{Kind: KindDestinationResolution}
	ErrDownload              = &Error{Kind: KindDownload}
	ErrUpload                = &Error{Kind: KindUpload}
	ErrConversion            = &Error{Kind: KindConversion}
	ErrConfig                = &Error{Kind: KindConfig}
)

// Error is a categorised pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("[")
	b.WriteString(e.Kind.String())
	b.WriteString("]")

	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsInvalidType reports whether err rejects the source object by its key
// (no extension, or not a PDF).
func IsInvalidType(err error) bool {
	return IsKind(err, KindUnknownFileType) || IsKind(err, KindWrongFileType)
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join is a convenience wrapper for errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
