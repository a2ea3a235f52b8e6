package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bdalabs/parcelship/internal/app"
	"github.com/bdalabs/parcelship/internal/cliconfig"
	"github.com/bdalabs/parcelship/internal/domain"
	"github.com/bdalabs/parcelship/internal/gls"
	"github.com/bdalabs/parcelship/internal/ledger"
	"github.com/bdalabs/parcelship/internal/normalize"
	"github.com/bdalabs/parcelship/internal/rowsource"
	"github.com/bdalabs/parcelship/pkg/log"
)

const listDateLayout = "2006-01-02"

func newTransport(cfg *cliconfig.Config, logger zerolog.Logger) (*gls.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return gls.NewClient(cfg.Credentials(),
		gls.WithEndpoint(cfg.Endpoint),
		gls.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		gls.WithRetryAttempts(cfg.RetryAttempts),
		gls.WithRetryDelay(cfg.RetryDelay, cfg.RetryMaxDelay),
		gls.WithMaxParcelsPerBatch(cfg.MaxBatch),
		gls.WithLogger(log.NewZerologAdapterWithLogger(logger)),
	)
}

// ledgerDirFor picks the ledger directory for a source file: an explicit
// --ledger-dir wins, otherwise the file's own directory so the ledger
// travels with the data.
func ledgerDirFor(cfg *cliconfig.Config, sourcePath string) string {
	if cfg.LedgerDir != "" {
		return cfg.LedgerDir
	}
	return filepath.Dir(sourcePath)
}

// uploadRunConfig builds the orchestrator config for one file's run. With
// explicit file arguments the working day is closed once after all files, so
// per-run closing stays off; a watch run has no "after all files", so each
// watched file's run closes the day itself when asked to.
func uploadRunConfig(cfg *cliconfig.Config, defaults domain.ParcelDefaults, watching, noSkip bool, labelsDir string) app.Config {
	return app.Config{
		SkipUploaded: cfg.SkipUploaded && !noSkip,
		WantLabels:   cfg.Labels || labelsDir != "",
		CloseDay:     watching && cfg.CloseDay,
		MaxBatch:     cfg.MaxBatch,
		Defaults:     defaults,
	}
}

func newUploadCmd(cfg *cliconfig.Config, logger zerolog.Logger) *cobra.Command {
	var (
		watchDir  string
		labelsDir string
		noSkip    bool
	)

	cmd := &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload shipment rows from CSV files, skipping already uploaded rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchDir == "" && len(args) == 0 {
				return fmt.Errorf("need at least one file, or --watch")
			}

			defaults, err := cfg.Defaults()
			if err != nil {
				return err
			}

			transport, err := newTransport(cfg, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := transport.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer transport.Close()

			runCfg := uploadRunConfig(cfg, defaults, watchDir != "", noSkip, labelsDir)

			uploadOne := func(path string) error {
				runID := uuid.NewString()
				runLog := logger.With().Str("run_id", runID).Str("file", path).Logger()
				runLog.Info().Int("packages", defaults.Packages).Float64("weight", defaults.Weight).Msg("starting upload run")

				led, err := ledger.Open(ledgerDirFor(cfg, path))
				if err != nil {
					return fmt.Errorf("open ledger: %w", err)
				}

				progress := func(done, total int, stage string) {
					runLog.Info().Int("done", done).Int("total", total).Str("stage", stage).Msg("progress")
				}

				orch := app.New(runCfg, transport, led, log.NewZerologAdapterWithLogger(runLog), progress)
				result, err := orch.Run(ctx, rowsource.NewCSVSource(path))
				if result != nil {
					for _, line := range result.Errors {
						runLog.Warn().Msg(line)
					}
					fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
					if labelsDir != "" {
						saveLabels(runLog, labelsDir, result.Responses)
					}
				}
				return err
			}

			if watchDir != "" {
				return rowsource.Watch(ctx, watchDir, uploadOne, log.NewZerologAdapterWithLogger(logger))
			}

			var uploaded int
			for _, path := range args {
				if err := uploadOne(path); err != nil {
					return err
				}
				uploaded++
			}
			if cfg.CloseDay && uploaded > 0 {
				if err := transport.CloseWorkingDay(ctx); err != nil {
					return fmt.Errorf("close working day: %w", err)
				}
				logger.Info().Msg("working day closed")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Profile, "profile", cfg.Profile, "parcel profile: single, double or custom")
	f.IntVar(&cfg.Packages, "packages", cfg.Packages, "override package count per shipment")
	f.Float64Var(&cfg.Weight, "weight", cfg.Weight, "override weight in kg per shipment")
	f.BoolVar(&cfg.Labels, "labels", cfg.Labels, "request PDF labels with each upload")
	f.StringVar(&labelsDir, "labels-dir", "", "save returned PDF labels into this directory (implies --labels)")
	f.BoolVar(&cfg.CloseDay, "close-day", cfg.CloseDay, "close the working day after a run with uploads")
	f.StringVar(&watchDir, "watch", "", "watch a directory and upload CSV files as they appear")
	f.BoolVar(&noSkip, "no-skip", false, "resubmit rows already recorded in the ledger")
	return cmd
}

// saveLabels writes base64 PDF labels to dir, one file per shipment.
// Failures are logged and do not fail the run; the upload already happened.
func saveLabels(logger zerolog.Logger, dir string, responses []domain.Response) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("cannot create labels directory")
		return
	}
	for _, resp := range responses {
		if resp.Label == "" || resp.ShipmentID == "" {
			continue
		}
		pdf, err := base64.StdEncoding.DecodeString(resp.Label)
		if err != nil {
			logger.Warn().Err(err).Str("shipment_id", resp.ShipmentID).Msg("label is not valid base64")
			continue
		}
		path := filepath.Join(dir, resp.ShipmentID+".pdf")
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("cannot write label")
			continue
		}
		logger.Info().Str("path", path).Msg("label saved")
	}
}

func newCloseDayCmd(cfg *cliconfig.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "close-day",
		Short: "Close the current GLS working day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := newTransport(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := transport.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer transport.Close()
			if err := transport.CloseWorkingDay(ctx); err != nil {
				return err
			}
			logger.Info().Msg("working day closed")
			return nil
		},
	}
}

func newListCmd(cfg *cliconfig.Config, logger zerolog.Logger) *cobra.Command {
	var (
		fromStr  string
		toStr    string
		locality string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shipments registered in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseListRange(fromStr, toStr)
			if err != nil {
				return err
			}

			transport, err := newTransport(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := transport.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer transport.Close()

			shipments, err := transport.ListShipments(ctx, from, to)
			if err != nil {
				return err
			}

			if locality != "" {
				cities := normalize.NewItalianCities()
				filtered := shipments[:0]
				for _, s := range shipments {
					if normalize.Same(cities, s["localita"], locality) {
						filtered = append(filtered, s)
					}
				}
				shipments = filtered
			}

			out := cmd.OutOrStdout()
			for _, s := range shipments {
				fmt.Fprintln(out, formatShipment(s))
			}
			fmt.Fprintf(out, "%d shipment(s)\n", len(shipments))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&fromStr, "from", "", "range start, YYYY-MM-DD (default today)")
	f.StringVar(&toStr, "to", "", "range end, YYYY-MM-DD (default from)")
	f.StringVar(&locality, "locality", "", "only shipments for this locality")
	return cmd
}

func parseListRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now()
	if fromStr != "" {
		var err error
		from, err = time.Parse(listDateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	to := from
	if toStr != "" {
		var err error
		to, err = time.Parse(listDateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}

// formatShipment renders the interesting fields of a shipment entry in a
// stable order, falling back to all fields sorted by name.
func formatShipment(s map[string]string) string {
	preferred := []string{"numerospedizione", "ragionesociale", "localita", "zipcode", "datasped"}
	var parts []string
	seen := map[string]bool{}
	for _, k := range preferred {
		if v := s[k]; v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
			seen[k] = true
		}
	}
	var rest []string
	for k, v := range s {
		if !seen[k] && v != "" {
			rest = append(rest, fmt.Sprintf("%s=%s", k, v))
		}
	}
	sort.Strings(rest)
	return strings.Join(append(parts, rest...), "  ")
}

func newDeleteCmd(cfg *cliconfig.Config, logger zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <shipment-id>",
		Short: "Delete a not-yet-finalized shipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := newTransport(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := transport.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer transport.Close()
			if err := transport.DeleteShipment(ctx, args[0]); err != nil {
				return err
			}
			logger.Info().Str("shipment_id", args[0]).Msg("shipment deleted")
			return nil
		},
	}
}

func newLedgerCmd(cfg *cliconfig.Config) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or clear the local upload ledger",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", ".", "directory holding the ledger file")

	openLedger := func() (*ledger.FileLedger, error) {
		if cfg.LedgerDir != "" {
			dir = cfg.LedgerDir
		}
		return ledger.Open(dir)
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show upload counts per source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := openLedger()
			if err != nil {
				return err
			}
			stats := led.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledger: %s\n", led.Path())
			fmt.Fprintf(out, "recorded uploads: %d\n", stats.TotalUploads)
			files := make([]string, 0, len(stats.PerFile))
			for f := range stats.PerFile {
				files = append(files, f)
			}
			sort.Strings(files)
			for _, f := range files {
				fmt.Fprintf(out, "  %s: %d\n", f, stats.PerFile[f])
			}
			return nil
		},
	}

	pending := &cobra.Command{
		Use:   "pending <file>",
		Short: "Count rows of a CSV file not yet uploaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			led, err := ledger.Open(ledgerDirFor(cfg, path))
			if err != nil {
				return err
			}
			orch := app.New(app.Config{}, nil, led, nil, nil)
			todo, done, err := orch.CountPending(rowsource.NewCSVSource(path))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pending, %d uploaded\n", path, todo, done)
			return nil
		},
	}

	var historyLimit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent ledger activity, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := openLedger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range led.History(historyLimit) {
				line := fmt.Sprintf("%s  %-8s", e.Timestamp.Format(time.RFC3339), e.Action)
				if e.File != "" {
					line += "  " + e.File
				}
				if e.ShipmentID != "" {
					line += "  shipment=" + e.ShipmentID
				}
				if e.Count > 0 {
					line += fmt.Sprintf("  count=%d", e.Count)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	history.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")

	var clearScope string
	var clearYes bool
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Forget recorded uploads so rows can be submitted again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearYes {
				return fmt.Errorf("clearing the ledger allows duplicate uploads; pass --yes to confirm")
			}
			led, err := openLedger()
			if err != nil {
				return err
			}
			n, err := led.Clear(clearScope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d record(s)\n", n)
			return nil
		},
	}
	clear.Flags().StringVar(&clearScope, "file", "", "only clear records for this source file stem")
	clear.Flags().BoolVar(&clearYes, "yes", false, "confirm the clear")

	cmd.AddCommand(status, pending, history, clear)
	return cmd
}
