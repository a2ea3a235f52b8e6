// Package app contains the batch upload orchestrator: it turns validated
// rows into parcels, consults the ledger, drives the transport in
// size-bounded groups, and reconciles per-parcel responses back into the
// ledger and the aggregate result.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
	"github.com/bdalabs/parcelship/internal/ports"
	"github.com/bdalabs/parcelship/pkg/log"
)

// Config controls one orchestrator instance.
type Config struct {
	// SkipUploaded consults the ledger and skips rows whose key is already
	// recorded. Disabling it is only for explicit operator re-submission.
	SkipUploaded bool

	// WantLabels requests base64 PDF labels on submission.
	WantLabels bool

	// CloseDay finalizes the working day after a run with at least one
	// successful upload.
	CloseDay bool

	// MaxBatch is the server batch limit used for chunking.
	MaxBatch int

	// Defaults supplies the per-source package count and weight.
	Defaults domain.ParcelDefaults
}

// Orchestrator drives one upload run at a time. It owns its transport,
// ledger and credentials exclusively; runs against the same ledger directory
// must be serialized by the caller.
type Orchestrator struct {
	cfg       Config
	transport ports.Transport
	ledger    ports.Ledger
	logger    log.Logger
	progress  ports.Progress
}

// New creates an orchestrator. Logger and progress may be nil.
func New(cfg Config, transport ports.Transport, ledger ports.Ledger, logger log.Logger, progress ports.Progress) *Orchestrator {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 400
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if progress == nil {
		progress = func(done, total int, stage string) {}
	}
	return &Orchestrator{
		cfg:       cfg,
		transport: transport,
		ledger:    ledger,
		logger:    logger,
		progress:  progress,
	}
}

// pending ties a buildable parcel back to its source row and ledger key.
type pending struct {
	row    domain.Row
	parcel domain.Parcel
	key    string
}

// Run executes one upload run: intake, dedup filter, parcel build, chunking,
// sequential group submission, and optional working-day closure. Per-row and
// per-batch failures are recovered locally; the run aborts only on
// cancellation between groups, in which case the partial result is returned
// alongside domain.ErrRunCancelled and all ledger entries recorded so far
// are kept.
func (o *Orchestrator) Run(ctx context.Context, source ports.RowSource) (*domain.UploadResult, error) {
	result := &domain.UploadResult{}

	rows, err := source.Rows()
	if err != nil {
		return result, fmt.Errorf("read rows: %w", err)
	}
	result.Total = len(rows)

	o.progress(0, result.Total, "preparing parcels")

	queue := o.prepare(rows, result)
	groups := domain.Chunk(parcelsOf(queue), o.cfg.MaxBatch)

	o.logger.Info("run prepared",
		log.Int("rows", result.Total),
		log.Int("to_upload", len(queue)),
		log.Int("skipped", result.Skipped),
		log.Int("groups", len(groups)),
	)

	offset := 0
	for i, group := range groups {
		// An in-flight submission cannot be aborted safely once sent, so
		// cancellation is honored only between groups.
		select {
		case <-ctx.Done():
			result.Cancelled = true
			result.AddRunError("run cancelled before group " + fmt.Sprint(i+1))
			return result, domain.ErrRunCancelled
		default:
		}

		o.progress(result.Uploaded+result.Failed+result.Skipped, result.Total,
			fmt.Sprintf("uploading group %d/%d", i+1, len(groups)))

		o.submitGroup(ctx, group, queue[offset:offset+len(group)], result)
		offset += len(group)
	}

	o.finalize(ctx, result)
	o.progress(result.Total, result.Total, "completed")
	return result, nil
}

// prepare runs the dedup filter and parcel build stages, recording skips and
// build failures on the result and returning the submission queue in row
// order.
func (o *Orchestrator) prepare(rows []domain.Row, result *domain.UploadResult) []pending {
	var queue []pending
	for _, row := range rows {
		key := domain.KeyForRow(row)

		if o.cfg.SkipUploaded {
			if _, ok := o.ledger.Lookup(key); ok {
				result.AddSkip(fmt.Sprintf("row %d already uploaded", row.Index))
				continue
			}
		}

		parcel, err := domain.NewParcel(row, o.cfg.Defaults)
		if err != nil {
			result.AddFailure("insufficient data", fmt.Sprint(row.Index))
			continue
		}
		queue = append(queue, pending{row: row, parcel: parcel, key: key})
	}
	return queue
}

// submitGroup submits one chunk and reconciles its responses. A client-level
// failure marks every parcel in the group failed and the run moves on.
func (o *Orchestrator) submitGroup(ctx context.Context, group []domain.Parcel, entries []pending, result *domain.UploadResult) {
	responses, err := o.transport.SubmitBatch(ctx, group, o.cfg.WantLabels)
	if err != nil {
		o.logger.Error("group submission failed", log.Int("parcels", len(group)), log.Err(err))
		for _, e := range entries {
			result.AddFailure(err.Error(), fmt.Sprint(e.row.Index))
		}
		return
	}

	for i, e := range entries {
		if i >= len(responses) {
			// The transport must never drop entries silently; treat a short
			// response as a failure for the unmatched tail.
			result.AddFailure("no response entry for parcel", e.parcel.Reference)
			continue
		}
		resp := responses[i]
		if !resp.Success() {
			reason := resp.Error
			if reason == "" {
				reason = "unknown error"
			}
			result.AddFailure(reason, resp.Reference)
			continue
		}

		rec := ports.UploadRecord{
			File:       e.row.File,
			Row:        e.row.Index,
			ShipmentID: resp.ShipmentID,
			Name:       e.parcel.Name,
			UploadedAt: time.Now(),
			Response:   map[string]string{"esito": resp.Outcome},
		}
		if err := o.ledger.Record(e.key, rec); err != nil {
			// The parcel is on its way regardless; surface the bookkeeping
			// failure without undoing the upload.
			o.logger.Error("ledger write failed", log.String("key", e.key), log.Err(err))
			result.AddRunError(fmt.Sprintf("ledger write for %s: %v", e.key, err))
		}
		result.AddSuccess(resp)
	}
}

// finalize closes the working day when requested and at least one upload
// succeeded. A failure here is a run-level error only: it never invalidates
// already-recorded uploads.
func (o *Orchestrator) finalize(ctx context.Context, result *domain.UploadResult) {
	if !o.cfg.CloseDay || result.Uploaded == 0 {
		return
	}
	o.progress(result.Total, result.Total, "closing working day")
	if err := o.transport.CloseWorkingDay(ctx); err != nil {
		o.logger.Error("close working day failed", log.Err(err))
		result.AddRunError(fmt.Sprintf("close working day: %v", err))
	}
}

// CountPending reports how many rows of a source are still to upload versus
// already recorded in the ledger.
func (o *Orchestrator) CountPending(source ports.RowSource) (pendingRows, uploaded int, err error) {
	rows, err := source.Rows()
	if err != nil {
		return 0, 0, fmt.Errorf("read rows: %w", err)
	}
	for _, row := range rows {
		if _, ok := o.ledger.Lookup(domain.KeyForRow(row)); ok {
			uploaded++
		} else {
			pendingRows++
		}
	}
	return pendingRows, uploaded, nil
}

func parcelsOf(queue []pending) []domain.Parcel {
	parcels := make([]domain.Parcel, len(queue))
	for i, e := range queue {
		parcels[i] = e.parcel
	}
	return parcels
}
