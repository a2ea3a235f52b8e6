package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// NewUploadKey derives the deterministic idempotency key for a row:
// "<sourceFileStem>:<rowIndex>:<8-hex content hash>". The hash covers the
// recipient name, address and postal code, lower-cased, so two rows with the
// same key are the same logical shipment regardless of which run produced
// them.
func NewUploadKey(file string, row int, name, address, postalCode string) string {
	stem := SourceStem(file)
	data := strings.ToLower(name + "|" + address + "|" + postalCode)
	sum := md5.Sum([]byte(data))
	return fmt.Sprintf("%s:%d:%s", stem, row, hex.EncodeToString(sum[:4]))
}

// KeyForRow derives the upload key from a row's raw fields, before any
// parcel normalization, so the key is stable even when truncation rules
// change.
func KeyForRow(row Row) string {
	return NewUploadKey(row.File, row.Index,
		row.Get(FieldName), row.Get(FieldAddress), row.Get(FieldPostalCode))
}

// SourceStem returns the base name of a source file without its extension.
// Ledger keys and clear scopes are expressed in terms of the stem.
func SourceStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
