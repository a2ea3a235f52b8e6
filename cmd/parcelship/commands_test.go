package main

import (
	"testing"

	"github.com/bdalabs/parcelship/internal/cliconfig"
	"github.com/bdalabs/parcelship/internal/domain"
)

func TestUploadRunConfig_CloseDay(t *testing.T) {
	defaults := domain.ParcelDefaults{Packages: 1, Weight: 5}

	tests := []struct {
		name     string
		closeDay bool
		watching bool
		want     bool
	}{
		{"file args close once after all files", true, false, false},
		{"watch run closes per file", true, true, true},
		{"watch run without close-day", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cliconfig.DefaultConfig()
			cfg.CloseDay = tt.closeDay
			got := uploadRunConfig(&cfg, defaults, tt.watching, false, "")
			if got.CloseDay != tt.want {
				t.Fatalf("CloseDay = %v, want %v", got.CloseDay, tt.want)
			}
		})
	}
}

func TestUploadRunConfig_SkipAndLabels(t *testing.T) {
	defaults := domain.ParcelDefaults{Packages: 1, Weight: 5}

	cfg := cliconfig.DefaultConfig()
	got := uploadRunConfig(&cfg, defaults, false, true, "")
	if got.SkipUploaded {
		t.Fatal("--no-skip did not disable ledger skipping")
	}

	cfg = cliconfig.DefaultConfig()
	got = uploadRunConfig(&cfg, defaults, false, false, "etichette")
	if !got.WantLabels {
		t.Fatal("--labels-dir did not request labels")
	}
}
