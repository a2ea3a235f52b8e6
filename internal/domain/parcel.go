package domain

import (
	"strings"
)

// Field length limits imposed by the GLS Label Service.
const (
	MaxNameLen    = 35
	MaxAddressLen = 35
	MaxNoteLen    = 40
	PostalCodeLen = 5
	ProvinceLen   = 2
)

// noteSeparator joins the parts of the free-text note field.
const noteSeparator = " - "

// Profile selects default package count and weight for a source file.
// It replaces guessing the defaults from substrings of the file name:
// callers state the profile explicitly.
type Profile string

const (
	// ProfileSingle ships one package per row.
	ProfileSingle Profile = "single"

	// ProfileDouble ships two packages per row.
	ProfileDouble Profile = "double"

	// ProfileCustom carries no defaults; the caller must supply
	// ParcelDefaults explicitly.
	ProfileCustom Profile = "custom"
)

// Defaults returns the package count and weight for the profile.
// ProfileCustom (and unknown profiles) return ok=false.
func (p Profile) Defaults() (ParcelDefaults, bool) {
	switch p {
	case ProfileSingle:
		return ParcelDefaults{Packages: 1, Weight: 3.0}, true
	case ProfileDouble:
		return ParcelDefaults{Packages: 2, Weight: 3.0}, true
	default:
		return ParcelDefaults{}, false
	}
}

// ParcelDefaults supplies the per-source package count and weight applied to
// every parcel built from that source.
type ParcelDefaults struct {
	Packages int
	Weight   float64
}

// Parcel is one normalized shipment ready for transmission. Every string
// field is truncated or padded at construction time so a Parcel is always
// wire-safe; construction fails only on missing recipient name or address.
type Parcel struct {
	Name       string
	Address    string
	Locality   string
	PostalCode string
	Province   string
	Packages   int
	Weight     float64
	Note       string
	Email      string
	Phone      string

	// Reference is the client reference token (BDA) echoed by the server.
	Reference string

	CashOnDelivery float64
	InsuredValue   float64
}

// NewParcel builds a Parcel from a row, applying the source defaults.
// Returns ErrInsufficientData when the recipient name or address is empty;
// all other constraints degrade by truncation or padding.
func NewParcel(row Row, defaults ParcelDefaults) (Parcel, error) {
	name := row.Get(FieldName)
	address := row.Get(FieldAddress)
	if name == "" || address == "" {
		return Parcel{}, ErrInsufficientData
	}

	packages := defaults.Packages
	if packages < 1 {
		packages = 1
	}
	weight := defaults.Weight
	if weight <= 0 {
		weight = 3.0
	}

	p := Parcel{
		Name:       Truncate(name, MaxNameLen),
		Address:    Truncate(address, MaxAddressLen),
		Locality:   row.Get(FieldLocality),
		PostalCode: NormalizePostalCode(row.Get(FieldPostalCode)),
		Province:   NormalizeProvince(row.Get(FieldProvince)),
		Packages:   packages,
		Weight:     weight,
		Note:       buildNote(row),
		Email:      row.Get(FieldEmail),
		Phone:      row.Phone(),
		Reference:  row.Get(FieldSequence),
	}
	return p, nil
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// NormalizePostalCode strips whitespace, drops a trailing decimal fragment
// (numeric-typed spreadsheet cells export "00100" as "00100.0"), and
// left-pads with zeros to 5 digits.
func NormalizePostalCode(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexByte(code, '.'); i >= 0 {
		code = code[:i]
	}
	for len(code) < PostalCodeLen {
		code = "0" + code
	}
	if len(code) > PostalCodeLen {
		code = code[:PostalCodeLen]
	}
	return code
}

// NormalizeProvince upper-cases the province and keeps the first two letters.
func NormalizeProvince(prov string) string {
	prov = strings.ToUpper(strings.TrimSpace(prov))
	return Truncate(prov, ProvinceLen)
}

// buildNote joins the non-empty note parts (row sequence, phone with the
// international prefix and spaces stripped, free-text indications) and
// truncates the result to the wire limit.
func buildNote(row Row) string {
	var parts []string

	if seq := row.Get(FieldSequence); seq != "" {
		parts = append(parts, seq)
	}

	phone := row.Phone()
	phone = strings.ReplaceAll(phone, "+39", "")
	phone = strings.ReplaceAll(phone, " ", "")
	if phone != "" {
		parts = append(parts, phone)
	}

	if notes := row.Get(FieldNotes); notes != "" {
		parts = append(parts, notes)
	}

	return Truncate(strings.Join(parts, noteSeparator), MaxNoteLen)
}
