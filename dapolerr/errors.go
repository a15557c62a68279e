// Package dapolerr defines an error representation that associates a
// user-visible message with both a transport-neutral status code and a
// DAPOL-specific error kind.
//
// The Code enum mirrors google.golang.org/grpc/codes.Code value-for-value so
// that a future RPC front-end could translate these errors losslessly, the
// way github.com/google/trillian/errors does for Trillian's own gRPC surface
// — without this module taking on a gRPC dependency itself, since no RPC
// server is in scope here.
package dapolerr

import "fmt"

// Code is a transport-neutral status code. Values match
// google.golang.org/grpc/codes.Code numerically.
type Code uint32

// Status codes, numerically aligned with google.golang.org/grpc/codes.
const (
	OK Code = iota
	Canceled
	Unknown
	InvalidArgument
	DeadlineExceeded
	NotFound
	AlreadyExists
	PermissionDenied
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
	Unauthenticated
)

// Kind identifies the specific DAPOL+ failure behind an Error, for internal
// logging and test assertions. It is distinct from Code: several Kinds can
// share a Code (e.g. HashMismatch and VerificationFailed, as proof.Verify
// returns them, both carry Code Unknown), while Code picks the right bucket
// for a hypothetical RPC translation layer.
type Kind string

// Configuration errors.
const (
	HeightTooSmall    Kind = "HeightTooSmall"
	HeightOutOfRange  Kind = "HeightOutOfRange"
	InvalidStoreDepth Kind = "InvalidStoreDepth"
)

// Input data errors.
const (
	DuplicateEntity Kind = "DuplicateEntity"
	RangeExceeded   Kind = "RangeExceeded"
	EmptyEntitySet  Kind = "EmptyEntitySet"
)

// Placement errors.
const (
	PlacementExhausted Kind = "PlacementExhausted"
)

// Build errors.
const (
	BuildAborted Kind = "BuildAborted"
	Cancelled    Kind = "Cancelled"
)

// Proof errors.
const (
	UnknownEntity     Kind = "UnknownEntity"
	InternalStoreMiss Kind = "InternalStoreMiss"
)

// Verify errors. HashMismatch is user-visible and distinguishable.
// RangeProofInvalid and CommitmentSumMismatch are folded into the single
// user-visible VerificationFailed kind by the proof package before being
// returned to callers; they remain distinct here for internal logging.
const (
	HashMismatch          Kind = "HashMismatch"
	CommitmentSumMismatch Kind = "CommitmentSumMismatch"
	RangeProofInvalid     Kind = "RangeProofInvalid"
	VerificationFailed    Kind = "VerificationFailed"
	MalformedProof        Kind = "MalformedProof"
	MasterSecretMismatch  Kind = "MasterSecretMismatch"
)

// Serialization errors.
const (
	UnsupportedVersion         Kind = "UnsupportedVersion"
	TruncatedInput             Kind = "TruncatedInput"
	CanonicalEncodingViolation Kind = "CanonicalEncodingViolation"
)

// Error is the concrete error type returned by this module's exported
// functions. Use errors.As to recover the Kind for programmatic handling.
type Error struct {
	Code Code
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// New creates an Error with the given code, kind and message.
func New(code Code, kind Kind, msg string) *Error {
	return &Error{Code: code, Kind: kind, msg: msg}
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, kind Kind, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Is reports whether target is an *Error with the same Kind, supporting
// errors.Is(err, dapolerr.New(..., dapolerr.HeightTooSmall, "")) style checks
// when only the Kind matters to the caller.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}
