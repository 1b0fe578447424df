package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind is the closed set of failure categories a command can end in.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "InvalidInput"
	KindOutOfEnvelope    ErrorKind = "OutOfEnvelope"
	KindHTTP             ErrorKind = "HttpError"
	KindTimeoutExhausted ErrorKind = "TimeoutExhausted"
	KindResponseDecode   ErrorKind = "ResponseDecodeError"
	KindConfiguration    ErrorKind = "ConfigurationError"
	KindCancelled        ErrorKind = "Cancelled"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrInvalidInput     = errors.New("INVALID_INPUT")
	ErrOutOfEnvelope    = errors.New("OUT_OF_ENVELOPE")
	ErrHTTP             = errors.New("HTTP_ERROR")
	ErrTimeoutExhausted = errors.New("TIMEOUT_EXHAUSTED")
	ErrResponseDecode   = errors.New("RESPONSE_DECODE_ERROR")
	ErrConfiguration    = errors.New("CONFIGURATION_ERROR")
	ErrCancelled        = errors.New("CANCELLED")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidInput:     ErrInvalidInput,
	KindOutOfEnvelope:    ErrOutOfEnvelope,
	KindHTTP:             ErrHTTP,
	KindTimeoutExhausted: ErrTimeoutExhausted,
	KindResponseDecode:   ErrResponseDecode,
	KindConfiguration:    ErrConfiguration,
	KindCancelled:        ErrCancelled,
}

// StatusNoResponse is the StatusCode of an HttpError raised before any
// response was received.
const StatusNoResponse = 0

// BodyExcerptLimit bounds how much of a response body is kept on an error.
const BodyExcerptLimit = 200

// Error is the single failure type surfaced by the client. Only the fields
// relevant to Kind are populated.
type Error struct {
	Kind    ErrorKind
	Message string

	// InvalidInput / OutOfEnvelope
	Field Axis
	Value float64
	Bound string // "min" or "max"
	Limit float64

	// HttpError / ResponseDecodeError
	StatusCode int
	Body       string

	// TimeoutExhausted
	Attempts int

	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel, so errors.Is(err, ErrOutOfEnvelope) works
// through any amount of wrapping.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Excerpt trims a body to at most BodyExcerptLimit bytes for diagnostics,
// never splitting a UTF-8 sequence.
func Excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= BodyExcerptLimit {
		return s
	}
	cut := BodyExcerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// NewConfigError is a shorthand for configuration failures.
func NewConfigError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}
