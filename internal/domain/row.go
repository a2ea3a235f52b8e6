package domain

import "strings"

// Logical field names produced by a row source. Whatever spreadsheet layout
// is in use, the source resolves its columns to these names before the
// orchestrator sees the row.
const (
	FieldName       = "name"
	FieldAddress    = "address"
	FieldLocality   = "locality"
	FieldPostalCode = "postal_code"
	FieldProvince   = "province"
	FieldSequence   = "sequence"
	FieldPhone      = "phone"
	FieldMobile     = "mobile"
	FieldEmail      = "email"
	FieldNotes      = "notes"
)

// Row is one already-validated input row, resolved to logical field names.
type Row struct {
	// File is the source file the row came from.
	File string

	// Index is the zero-based data row index within the source.
	Index int

	// Fields maps logical field names to raw string values.
	Fields map[string]string
}

// Get returns the trimmed value of a logical field, or "" when absent.
func (r Row) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// Phone returns the preferred contact phone: mobile when present,
// otherwise the fixed line.
func (r Row) Phone() string {
	if m := r.Get(FieldMobile); m != "" {
		return m
	}
	return r.Get(FieldPhone)
}
