package pagination

import (
	"fmt"
	"time"
)

// RawItem is a single point record as returned by the upstream API.
type RawItem map[string]any

// Outcome classifies how a single page fetch ended.
type Outcome string

const (
	// OutcomeSuccess means HTTP 200 with an "items" array (possibly empty).
	OutcomeSuccess Outcome = "success"

	// OutcomeEmptyOrMalformed means the body was not JSON or had no "items" key.
	OutcomeEmptyOrMalformed Outcome = "empty_or_malformed"

	// OutcomeHTTPError means the API answered with a non-200 status.
	OutcomeHTTPError Outcome = "http_error"

	// OutcomeTransportError means the request never produced a response.
	OutcomeTransportError Outcome = "transport_error"
)

// Failed reports whether the outcome counts against pages_failed.
func (o Outcome) Failed() bool {
	return o != OutcomeSuccess
}

// PageResult represents the result of fetching a single page.
type PageResult struct {
	Page       int
	Items      []RawItem
	Outcome    Outcome
	StatusCode int
	Err        error
}

// String renders the result for logs.
func (r PageResult) String() string {
	switch r.Outcome {
	case OutcomeHTTPError:
		return fmt.Sprintf("page %d: %s (status %d)", r.Page, r.Outcome, r.StatusCode)
	case OutcomeTransportError, OutcomeEmptyOrMalformed:
		if r.Err != nil {
			return fmt.Sprintf("page %d: %s: %v", r.Page, r.Outcome, r.Err)
		}
	}
	return fmt.Sprintf("page %d: %s (%d items)", r.Page, r.Outcome, len(r.Items))
}

// Report is the aggregate of one collection run.
// It is owned by the invocation that created it and never shared.
type Report struct {
	TotalPages     int
	Workers        int
	PagesCompleted int
	PagesFailed    int
	Items          []RawItem
	Elapsed        time.Duration
}

// Accounted returns the number of pages that reached a terminal outcome.
func (r *Report) Accounted() int {
	return r.PagesCompleted + r.PagesFailed
}

// record folds one page result into the report. Failed pages contribute no items.
func (r *Report) record(result PageResult) {
	if result.Outcome.Failed() {
		r.PagesFailed++
		return
	}
	r.PagesCompleted++
	r.Items = append(r.Items, result.Items...)
}
