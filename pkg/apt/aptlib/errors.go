// Package aptlib collects the error types shared across the acquisition and
// decoding packages. apttransport.HTTPStatusError lives alongside the transport it
// reports on rather than here, since nothing outside that package constructs one.
package aptlib

import "fmt"

// ParseError reports a decode failure at a specific field or location within a
// deb822 document.
type ParseError struct {
	Locality string // e.g. "Release", "package libfoo", "dependency field Depends"
	Value    string // the offending raw text
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %q: %v", e.Locality, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ChecksumMismatchError reports an expected-vs-actual checksum failure. It mirrors
// checksum.Mismatch's fields so either can be used interchangeably by callers that
// only care about the aptlib error taxonomy.
type ChecksumMismatchError struct {
	Algorithm string
	Expected  string
	Actual    string
	Path      string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch (%s) for %s: expected %s, got %s", e.Algorithm, e.Path, e.Expected, e.Actual)
}

// InvariantViolationError reports a document that violates an invariant this
// project relies on to simplify downstream logic (e.g. depgraph's single-alternate
// Provides rule), rather than a plain parse failure.
type InvariantViolationError struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}
