// Package gramerr names the error kinds that can surface from building or
// querying a vBWT index, per the failure modes a PRG-graph pipeline can hit:
// a malformed linearised PRG, a missing or corrupt on-disk artifact, a
// reference FASTA that doesn't match the PRG's first path, a bad kmer size,
// or (fatally) a broken invariant in the search engine itself.
//
// unmappable_read is deliberately not part of this package: per spec it is
// not an error, just a zero-coverage outcome, and is represented as a plain
// bool/nil return from the quasimapper rather than an error value.
package gramerr

import "github.com/pkg/errors"

// Kind identifies which of the named failure modes an error represents.
type Kind int

const (
	// InvalidPRGInput covers a malformed linearised PRG: dangling open site,
	// duplicate site number, or a non-nucleotide byte.
	InvalidPRGInput Kind = iota
	// IOError covers a missing or corrupt on-disk artifact.
	IOError
	// ReferenceMismatch means the provided reference FASTA disagrees with
	// the PRG's first (reference-like) path.
	ReferenceMismatch
	// KmerSizeInvalid means the requested kmer size is zero or exceeds
	// max-read-size.
	KmerSizeInvalid
	// InternalInvariant means a programmer invariant was violated: a
	// duplicate site across a SearchState's paths, a negative SA interval
	// produced other than by an intentional drop, or ALLELE_UNKNOWN leaking
	// past allele resolution. Callers should treat this as fatal.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case InvalidPRGInput:
		return "invalid_prg_input"
	case IOError:
		return "io_error"
	case ReferenceMismatch:
		return "reference_mismatch"
	case KmerSizeInvalid:
		return "kmer_size_invalid"
	case InternalInvariant:
		return "internal_invariant"
	default:
		return "unknown_error_kind"
	}
}

// Error is a gramtools-core error tagged with a Kind and, where relevant,
// the offending artifact or item.
type Error struct {
	Kind     Kind
	Artifact string
	cause    error
}

func (e *Error) Error() string {
	if e.Artifact == "" {
		return e.Kind.String() + ": " + e.cause.Error()
	}
	return e.Kind.String() + " [" + e.Artifact + "]: " + e.cause.Error()
}

// Unwrap lets errors.Is/errors.As reach the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind-tagged error wrapping msg, naming the offending artifact
// (pass "" if there isn't a single one, e.g. a read ID).
func New(kind Kind, artifact string, msg string) error {
	return &Error{Kind: kind, Artifact: artifact, cause: errors.New(msg)}
}

// Wrap attaches a Kind and artifact name to an existing error. Returns nil
// if err is nil.
func Wrap(err error, kind Kind, artifact string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Artifact: artifact, cause: err}
}

// Is reports whether err (or something it wraps) is a gramerr.Error of the
// given Kind.
func Is(err error, kind Kind) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind == kind
}
