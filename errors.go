package gotiffcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error the way callers are expected to branch on:
// malformed input, an unimplemented-but-valid construct, caller misuse,
// a propagated I/O failure, or a configured limit being exceeded.
type Kind int

const (
	KindFormat Kind = iota
	KindUnsupported
	KindUsage
	KindIoError
	KindLimitsExceeded
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindUnsupported:
		return "unsupported"
	case KindUsage:
		return "usage"
	case KindIoError:
		return "io"
	case KindLimitsExceeded:
		return "limits_exceeded"
	default:
		return "unknown"
	}
}

// Reason codes used for the specific conditions spec.md calls out by name.
// Tests and callers that need to distinguish a particular malformation
// branch on these rather than parsing Error().
const (
	ReasonBadMagic              = "bad_magic"
	ReasonBadByteOrder           = "bad_byte_order"
	ReasonBadBigTiffReserved     = "bad_bigtiff_reserved"
	ReasonCycleInOffsets         = "cycle_in_offsets"
	ReasonTagsNotSorted          = "tags_not_sorted"
	ReasonUnexpectedEOF          = "unexpected_eof"
	ReasonInvalidChunkCount      = "invalid_chunk_count"
	ReasonInconsistentChunkSizes = "inconsistent_chunk_sizes"
	ReasonNonASCIIString         = "non_ascii_string"
	ReasonMissingNulTerminator   = "missing_nul_terminator"
	ReasonInvalidTypeCode        = "invalid_type_code"
	ReasonTruncatedValue         = "truncated_value"
	ReasonUnsupportedInterpretation = "unsupported_interpretation"
	ReasonUnexpectedTagType      = "unexpected_tag_type"
	ReasonUnexpectedTagArity     = "unexpected_tag_arity"
)

// Error is the single error type this package returns. Kind tells the
// caller which of the five taxonomy buckets from the error-handling design
// applies; Reason, when non-empty, names the specific condition.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	cause   error

	// intSize marks an integer-conversion overflow. It surfaces as
	// KindLimitsExceeded but is tracked separately so callers that care
	// can tell a truncating conversion apart from an oversized buffer.
	intSize bool
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.cause != nil {
		return fmt.Sprintf("tiff: %s: %s: %v", e.Kind, msg, e.cause)
	}
	return fmt.Sprintf("tiff: %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause supports github.com/pkg/errors-style inspection of wrapped I/O
// failures, matching the convention the teacher's dependency provides.
func (e *Error) Cause() error { return e.cause }

// IsIntSizeError reports whether a LimitsExceeded error originated from an
// integer conversion that would have truncated, as opposed to a buffer
// that legitimately exceeds a configured limit.
func IsIntSizeError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.intSize
	}
	return false
}

// KindOf extracts the Kind of err, or -1 if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return -1
}

// ReasonOf extracts the Reason of err, or "" if unavailable.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func formatErrorf(reason, format string, args ...interface{}) error {
	return &Error{Kind: KindFormat, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func unsupportedErrorf(reason, format string, args ...interface{}) error {
	return &Error{Kind: KindUnsupported, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func usageErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindUsage, Message: fmt.Sprintf(format, args...)}
}

func limitsErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindLimitsExceeded, Message: fmt.Sprintf(format, args...)}
}

func intSizeErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindLimitsExceeded, Message: fmt.Sprintf(format, args...), intSize: true}
}

func ioErrorf(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindIoError, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(err)}
}
