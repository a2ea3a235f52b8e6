package ports

import (
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
)

// UploadRecord is the persisted outcome of one successful submission.
// Records are created on first success of a key, never mutated, and removed
// only by an explicit operator Clear.
type UploadRecord struct {
	File       string            `json:"file"`
	Row        int               `json:"row"`
	ShipmentID string            `json:"shipment_id"`
	Name       string            `json:"ragione_sociale"`
	UploadedAt time.Time         `json:"uploaded_at"`
	Response   map[string]string `json:"response,omitempty"`
}

// LedgerStats summarizes the ledger contents.
type LedgerStats struct {
	TotalUploads   int
	PerFile        map[string]int
	HistoryEntries int
}

// Ledger is the durable idempotency store mapping upload keys to recorded
// outcomes. The mapping is the source of truth for the at-most-once
// guarantee; the history log is diagnostic only. A Ledger is owned by one
// orchestrator per destination directory; concurrent runs against the same
// directory are unsafe without external locking.
type Ledger interface {
	// Lookup returns the record for a key, if present. Local, non-blocking.
	Lookup(key string) (UploadRecord, bool)

	// Record appends an UploadRecord and an audit-log entry, then persists
	// the full ledger atomically.
	Record(key string, rec UploadRecord) error

	// Clear removes records whose key falls under a source-file stem scope;
	// an empty scope removes everything. Returns the number removed.
	Clear(scope string) (int, error)

	// Stats summarizes the ledger contents.
	Stats() LedgerStats
}

// RowSource yields already-validated input rows with logical field names
// resolved from whatever spreadsheet layout is in use. The orchestrator
// never parses files itself.
type RowSource interface {
	// Rows returns all rows of the source in file order.
	Rows() ([]domain.Row, error)
}
