package pagination

import (
	"fmt"

	"github.com/jatushlashkari/finance-v1/pkg/withdrawal"
)

// ErrorKind classifies why a page was skipped.
type ErrorKind string

const (
	// KindTransport is a connection error or timeout.
	KindTransport ErrorKind = "transport"

	// KindStatus is an HTTP status other than 200.
	KindStatus ErrorKind = "status"

	// KindMalformed is a body that is not the expected records envelope.
	KindMalformed ErrorKind = "malformed"
)

// PageError reports a skipped page.
type PageError struct {
	Page int
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.Page, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// PageOutcome is the result of one attempted page.
type PageOutcome struct {
	Page     int
	Records  []withdrawal.RawRecord
	Notified bool
	Err      *PageError
}

// Result is everything a run gathered.
type Result struct {
	// Records in page order, record order within a page preserved.
	Records []withdrawal.RawRecord
	// Pages holds one outcome per attempted page.
	Pages []PageOutcome
	// Skipped counts pages that failed.
	Skipped int
	// StoppedEarly is true when an empty page ended the run.
	StoppedEarly bool
}

// NotifyFailures counts pages whose tracking call failed.
func (r Result) NotifyFailures() int {
	n := 0
	for _, p := range r.Pages {
		if !p.Notified {
			n++
		}
	}
	return n
}

// Errors returns the page errors in page order.
func (r Result) Errors() []*PageError {
	var errs []*PageError
	for _, p := range r.Pages {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errs
}
