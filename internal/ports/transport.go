package ports

import (
	"context"
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
)

// Transport executes remote GLS operations over a stateful session.
// Implementations handle wire serialization, retry with backoff, and
// authentication. A Transport is owned by exactly one orchestrator and is
// not safe for concurrent use: shipment numbering and working-day closure
// are stateful server-side and must observe request order.
type Transport interface {
	// Connect establishes the session. Calling any remote operation before
	// Connect returns domain.ErrNotConnected; calling Connect twice returns
	// domain.ErrAlreadyConnected.
	Connect(ctx context.Context) error

	// Close releases the session. Safe to call on a never-connected client.
	Close() error

	// SubmitBatch submits one batch of parcels and returns one Response per
	// parcel, in request order. The caller must never pass more parcels than
	// the server batch limit; doing so fails fast with
	// domain.ErrBatchTooLarge before anything is sent.
	SubmitBatch(ctx context.Context, parcels []domain.Parcel, wantLabels bool) ([]domain.Response, error)

	// CloseWorkingDay finalizes all submissions made since the last close.
	CloseWorkingDay(ctx context.Context) error

	// ListShipments returns the shipments registered in the date range.
	ListShipments(ctx context.Context, from, to time.Time) ([]Shipment, error)

	// DeleteShipment removes a not-yet-finalized shipment by id.
	DeleteShipment(ctx context.Context, id string) error
}

// Shipment is one entry returned by ListShipments. Field names vary across
// server versions, so entries are exposed as raw tag/value pairs.
type Shipment map[string]string

// Progress reports orchestrator progress after each batch group as
// (rows processed so far, total rows, human-readable stage message).
// Implementations must not block for long; the orchestrator calls them
// inline between groups.
type Progress func(done, total int, stage string)
