package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdalabs/parcelship/internal/ports"
)

func record(file string, row int, id string) ports.UploadRecord {
	return ports.UploadRecord{
		File:       file,
		Row:        row,
		ShipmentID: id,
		Name:       "Negozio Rossi",
		UploadedAt: time.Now(),
	}
}

func TestOpen_MissingFileYieldsEmptyLedger(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := l.Lookup("consegne:0:deadbeef"); ok {
		t.Fatal("empty ledger reported a record")
	}
}

func TestOpen_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ledgerFileName), []byte("{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); err == nil {
		t.Fatal("expected error for corrupt ledger file")
	}
}

func TestRecordAndLookupAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := "consegne:3:1a2b3c4d"
	if err := l.Record(key, record("consegne.xlsx", 3, "SP123")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Reopen simulates a second run after process restart.
	l2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, ok := l2.Lookup(key)
	if !ok {
		t.Fatal("record lost across reopen")
	}
	if rec.ShipmentID != "SP123" || rec.Row != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRecord_NeverOverwritesFirstOutcome(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := "consegne:3:1a2b3c4d"
	if err := l.Record(key, record("consegne.xlsx", 3, "SP123")); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(key, record("consegne.xlsx", 3, "SP999")); err != nil {
		t.Fatal(err)
	}
	rec, _ := l.Lookup(key)
	if rec.ShipmentID != "SP123" {
		t.Fatalf("first outcome overwritten: %q", rec.ShipmentID)
	}
	if stats := l.Stats(); stats.TotalUploads != 1 {
		t.Fatalf("expected 1 upload, got %d", stats.TotalUploads)
	}
}

func TestClear_ScopedToFileStem(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustRecord := func(key, file string) {
		t.Helper()
		if err := l.Record(key, record(file, 0, "SP1")); err != nil {
			t.Fatal(err)
		}
	}
	mustRecord("consegne:0:aaaaaaaa", "consegne.xlsx")
	mustRecord("consegne:1:bbbbbbbb", "consegne.xlsx")
	mustRecord("agenzie:0:cccccccc", "agenzie.xlsx")

	n, err := l.Clear("consegne")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := l.Lookup("agenzie:0:cccccccc"); !ok {
		t.Fatal("clear removed records outside its scope")
	}
	if _, ok := l.Lookup("consegne:0:aaaaaaaa"); ok {
		t.Fatal("cleared record still present")
	}
}

func TestClear_LogsCountInHistory(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Record("consegne:0:aaaaaaaa", record("consegne.xlsx", 0, "SP1")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Clear(""); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	hist := l.History(0)
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	// Newest first.
	if hist[0].Action != "clear_all" || hist[0].Count != 1 {
		t.Fatalf("unexpected clear entry %+v", hist[0])
	}
	if hist[1].Action != "upload" {
		t.Fatalf("unexpected upload entry %+v", hist[1])
	}
}

func TestClear_FailedSaveKeepsRecords(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "consegne")
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Record("consegne:0:aaaaaaaa", record("consegne.xlsx", 0, "SP1")); err != nil {
		t.Fatal(err)
	}

	// Replace the ledger directory with a regular file so the save fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("in the way"), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := l.Clear("")
	if err == nil {
		t.Fatal("Clear succeeded with an unwritable ledger")
	}
	if n != 0 {
		t.Fatalf("failed Clear reported %d removed", n)
	}
	if _, ok := l.Lookup("consegne:0:aaaaaaaa"); !ok {
		t.Fatal("failed Clear dropped the in-memory record")
	}
	if got := l.Stats().TotalUploads; got != 1 {
		t.Fatalf("expected 1 upload after failed clear, got %d", got)
	}
	for _, e := range l.History(0) {
		if e.Action != "upload" {
			t.Fatalf("failed Clear left history entry %+v", e)
		}
	}
}

func TestSave_LeavesNoPartialFileVisible(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Record("consegne:0:aaaaaaaa", record("consegne.xlsx", 0, "SP1")); err != nil {
		t.Fatal(err)
	}

	// The visible file must always be a complete JSON document.
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("ledger file not valid JSON: %v", err)
	}
	if _, err := os.Stat(l.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}
}

func TestStats_CountsPerFile(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Record("consegne:0:aaaaaaaa", record("consegne.xlsx", 0, "SP1")); err != nil {
		t.Fatal(err)
	}
	if err := l.Record("consegne:1:bbbbbbbb", record("consegne.xlsx", 1, "SP2")); err != nil {
		t.Fatal(err)
	}

	stats := l.Stats()
	if stats.TotalUploads != 2 || stats.PerFile["consegne.xlsx"] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
