// Package ledger implements the durable idempotency store backed by a single
// JSON file per destination directory.
//
// The file holds a mapping from upload keys to recorded outcomes plus an
// ordered history log of actions. Persistence is crash-safe: the document is
// written to a temp file and renamed into place, so a process killed
// mid-write leaves either the previous complete ledger or the new complete
// ledger on disk, never a truncated one.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bdalabs/parcelship/internal/ports"
)

const ledgerFileName = ".parcelship_ledger.json"

// HistoryEntry is one diagnostic audit-log line. Upload entries carry a key
// and shipment id; clear entries carry the scope and the count removed.
type HistoryEntry struct {
	Key        string    `json:"key,omitempty"`
	Action     string    `json:"action"`
	File       string    `json:"file,omitempty"`
	ShipmentID string    `json:"shipment_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// document is the on-disk ledger schema.
type document struct {
	Uploads map[string]ports.UploadRecord `json:"uploads"`
	History []HistoryEntry                `json:"history"`
}

// FileLedger implements ports.Ledger using a JSON file in a directory.
// It is owned by exactly one orchestrator at a time and is not safe for
// concurrent use across processes without external locking.
type FileLedger struct {
	dir string
	doc document
}

// Open loads the ledger for a destination directory, creating an empty one
// in memory when no file exists yet. A present but unreadable file is an
// error: silently starting fresh would break the idempotency guarantee.
func Open(dir string) (*FileLedger, error) {
	l := &FileLedger{
		dir: dir,
		doc: document{Uploads: map[string]ports.UploadRecord{}},
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &l.doc); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", l.Path(), err)
	}
	if l.doc.Uploads == nil {
		l.doc.Uploads = map[string]ports.UploadRecord{}
	}
	return l, nil
}

// Path returns the full path to the ledger file.
func (l *FileLedger) Path() string {
	return filepath.Join(l.dir, ledgerFileName)
}

// Lookup returns the record for a key, if present.
func (l *FileLedger) Lookup(key string) (ports.UploadRecord, bool) {
	rec, ok := l.doc.Uploads[key]
	return rec, ok
}

// Record appends an UploadRecord and an audit-log entry, then persists the
// full ledger atomically. Existing records are never overwritten: recording
// a key twice keeps the first outcome.
func (l *FileLedger) Record(key string, rec ports.UploadRecord) error {
	if _, exists := l.doc.Uploads[key]; exists {
		return nil
	}

	l.doc.Uploads[key] = rec
	l.doc.History = append(l.doc.History, HistoryEntry{
		Key:        key,
		Action:     "upload",
		ShipmentID: rec.ShipmentID,
		Timestamp:  time.Now(),
	})
	return l.save()
}

// Clear removes records whose key falls under the given source-file stem;
// an empty scope removes everything. The removal is logged with its count.
// The in-memory document changes only once the file save succeeds, so a
// failed clear leaves the ledger intact.
func (l *FileLedger) Clear(scope string) (int, error) {
	kept := make(map[string]ports.UploadRecord, len(l.doc.Uploads))
	removed := 0
	for key, rec := range l.doc.Uploads {
		if scope == "" || strings.HasPrefix(key, scope+":") {
			removed++
			continue
		}
		kept[key] = rec
	}
	if removed == 0 {
		return 0, nil
	}

	action := "clear_file"
	if scope == "" {
		action = "clear_all"
	}

	prevUploads, prevHistory := l.doc.Uploads, l.doc.History
	l.doc.Uploads = kept
	l.doc.History = append(l.doc.History, HistoryEntry{
		Action:    action,
		File:      scope,
		Count:     removed,
		Timestamp: time.Now(),
	})
	if err := l.save(); err != nil {
		l.doc.Uploads, l.doc.History = prevUploads, prevHistory
		return 0, err
	}
	return removed, nil
}

// History returns the most recent audit-log entries, newest first.
func (l *FileLedger) History(limit int) []HistoryEntry {
	h := l.doc.History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]HistoryEntry, len(h))
	for i, e := range h {
		out[len(h)-1-i] = e
	}
	return out
}

// Stats summarizes the ledger contents.
func (l *FileLedger) Stats() ports.LedgerStats {
	stats := ports.LedgerStats{
		TotalUploads:   len(l.doc.Uploads),
		PerFile:        map[string]int{},
		HistoryEntries: len(l.doc.History),
	}
	for _, rec := range l.doc.Uploads {
		stats.PerFile[rec.File]++
	}
	return stats
}

// save persists the document atomically: write to a temp file in the same
// directory, then rename over the live file.
func (l *FileLedger) save() error {
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(l.doc, "", "  ")
	if err != nil {
		return err
	}

	path := l.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
