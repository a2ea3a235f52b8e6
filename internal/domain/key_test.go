package domain

import (
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^consegne:3:[0-9a-f]{8}$`)

func TestNewUploadKey_Format(t *testing.T) {
	key := NewUploadKey("/data/consegne.xlsx", 3, "Negozio Rossi", "Via Roma 1", "00100")
	if !keyPattern.MatchString(key) {
		t.Fatalf("key %q does not match <stem>:<row>:<8-hex>", key)
	}
}

func TestNewUploadKey_DeterministicAndCaseInsensitive(t *testing.T) {
	a := NewUploadKey("consegne.xlsx", 3, "Negozio Rossi", "Via Roma 1", "00100")
	b := NewUploadKey("other/consegne.xlsx", 3, "NEGOZIO ROSSI", "VIA ROMA 1", "00100")
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
}

func TestNewUploadKey_DistinguishesContent(t *testing.T) {
	a := NewUploadKey("consegne.xlsx", 3, "Negozio Rossi", "Via Roma 1", "00100")
	b := NewUploadKey("consegne.xlsx", 3, "Negozio Bianchi", "Via Roma 1", "00100")
	if a == b {
		t.Fatal("different recipients produced the same key")
	}
	c := NewUploadKey("consegne.xlsx", 4, "Negozio Rossi", "Via Roma 1", "00100")
	if a == c {
		t.Fatal("different rows produced the same key")
	}
}

func TestResponseSuccess(t *testing.T) {
	cases := []struct {
		resp Response
		want bool
	}{
		{Response{Outcome: "OK", ShipmentID: "123"}, true},
		{Response{Outcome: "ok", ShipmentID: "123"}, true},
		{Response{Outcome: "OK", ShipmentID: ""}, false},
		{Response{Outcome: "KO", ShipmentID: "123"}, false},
		{Response{}, false},
	}
	for _, tc := range cases {
		if got := tc.resp.Success(); got != tc.want {
			t.Errorf("Success(%+v) = %v, want %v", tc.resp, got, tc.want)
		}
	}
}

func TestUploadResultCounters(t *testing.T) {
	var r UploadResult
	r.Total = 4
	r.AddSuccess(Response{Outcome: "OK", ShipmentID: "1"})
	r.AddSkip("row 1 already uploaded")
	r.AddFailure("address rejected", "42")
	r.AddFailure("timeout", "")

	if r.Uploaded != 1 || r.Skipped != 1 || r.Failed != 2 {
		t.Fatalf("counters = %d/%d/%d, want 1/1/2", r.Uploaded, r.Skipped, r.Failed)
	}
	if len(r.Errors) != 3 {
		t.Fatalf("expected 3 error strings, got %d", len(r.Errors))
	}
	if rate := r.SuccessRate(); rate < 33.2 || rate > 33.4 {
		t.Fatalf("success rate = %v, want ~33.3", rate)
	}
}
