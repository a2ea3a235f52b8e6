package domain

import (
	"fmt"
	"strings"
)

// Response is the per-parcel outcome parsed from a batch submit call.
type Response struct {
	// ShipmentID is the server-assigned shipment number.
	ShipmentID string

	// Outcome is the server outcome flag, "OK" or "KO".
	Outcome string

	// Error is the server-supplied error text, when the outcome is not OK.
	Error string

	// Label is the base64 PDF label payload, when labels were requested.
	Label string

	// Reference is the echoed client reference (BDA). When the server omits
	// it, the transport backfills it positionally from the request order.
	Reference string
}

// Success reports whether the parcel was accepted. The outcome flag alone is
// not trusted: a non-empty shipment id must also have been assigned.
func (r Response) Success() bool {
	return strings.EqualFold(r.Outcome, "OK") && r.ShipmentID != ""
}

// UploadResult aggregates the outcome of one upload run. It is mutated
// incrementally as batch groups complete and read-only to callers afterwards.
type UploadResult struct {
	Total    int
	Uploaded int
	Skipped  int
	Failed   int

	// Cancelled marks a run that was cancelled between groups rather than
	// run to completion.
	Cancelled bool

	// Errors holds human-readable error strings in the order they occurred.
	Errors []string

	// Responses holds the per-parcel responses of successful submissions.
	Responses []Response
}

// AddSuccess records an accepted parcel.
func (r *UploadResult) AddSuccess(resp Response) {
	r.Uploaded++
	r.Responses = append(r.Responses, resp)
}

// AddSkip records a parcel that was not sent.
func (r *UploadResult) AddSkip(reason string) {
	r.Skipped++
	if reason != "" {
		r.Errors = append(r.Errors, "skip: "+reason)
	}
}

// AddFailure records a rejected or unsendable parcel.
func (r *UploadResult) AddFailure(reason, reference string) {
	r.Failed++
	if reference != "" {
		r.Errors = append(r.Errors, fmt.Sprintf("error %s: %s", reference, reason))
	} else {
		r.Errors = append(r.Errors, "error: "+reason)
	}
}

// AddRunError records a run-level error that is not tied to a parcel,
// such as a failed working-day closure.
func (r *UploadResult) AddRunError(reason string) {
	r.Errors = append(r.Errors, reason)
}

// SuccessRate returns the percentage of processed parcels that were accepted.
func (r *UploadResult) SuccessRate() float64 {
	processed := r.Uploaded + r.Failed
	if processed == 0 {
		return 0
	}
	return float64(r.Uploaded) / float64(processed) * 100
}

// Summary renders a short human-readable run report.
func (r *UploadResult) Summary() string {
	lines := []string{
		fmt.Sprintf("total rows: %d", r.Total),
		fmt.Sprintf("uploaded:   %d", r.Uploaded),
		fmt.Sprintf("skipped:    %d", r.Skipped),
		fmt.Sprintf("failed:     %d", r.Failed),
	}
	if r.Uploaded+r.Failed > 0 {
		lines = append(lines, fmt.Sprintf("success:    %.1f%%", r.SuccessRate()))
	}
	if r.Cancelled {
		lines = append(lines, "run cancelled")
	}
	return strings.Join(lines, "\n")
}
