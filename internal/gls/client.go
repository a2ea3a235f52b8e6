// Package gls implements the transport client for the GLS Label Service:
// wire payload construction, SOAP transport, retry with backoff, and
// response parsing back into domain results.
package gls

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
	"github.com/bdalabs/parcelship/internal/ports"
	"github.com/bdalabs/parcelship/pkg/log"
)

// DefaultMaxParcelsPerBatch is the server-declared submission limit.
const DefaultMaxParcelsPerBatch = 400

const listDateFormat = "20060102"

// Client talks to the GLS Label Service over a stateful session.
// It implements ports.Transport. One Client is owned by one orchestrator;
// it is not safe for concurrent use.
type Client struct {
	creds     domain.Credentials
	caller    *soapCaller
	logger    log.Logger
	maxBatch  int
	attempts  int
	delay     time.Duration
	maxDelay  time.Duration
	connected bool
}

// Option configures optional behavior of a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.caller.client = hc }
}

// WithEndpoint overrides the service endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.caller.endpoint = endpoint }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryAttempts sets the per-operation retry budget.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryDelay sets the initial and maximum backoff delays.
func WithRetryDelay(initial, max time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.delay = initial
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// WithMaxParcelsPerBatch overrides the server batch limit.
func WithMaxParcelsPerBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// NewClient creates a client for the given credentials.
// Returns domain.ErrInvalidCredentials when any credential field is empty.
func NewClient(creds domain.Credentials, opts ...Option) (*Client, error) {
	if !creds.Valid() {
		return nil, domain.ErrInvalidCredentials
	}

	c := &Client{
		creds: creds,
		caller: &soapCaller{
			client:   &http.Client{Timeout: 60 * time.Second},
			endpoint: DefaultEndpoint,
		},
		logger:   log.NewNoopLogger(),
		maxBatch: DefaultMaxParcelsPerBatch,
		attempts: DefaultRetryAttempts,
		delay:    DefaultRetryDelay,
		maxDelay: DefaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect establishes the session by pinging the service with an empty
// shipment listing, making failure to connect an explicit, testable state.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return domain.ErrAlreadyConnected
	}

	_, err := c.execute(ctx, "ListSped", []soapParam{
		{Name: "SedeGls", Value: c.creds.SiteID},
		{Name: "CodiceClienteGls", Value: c.creds.ClientCode},
		{Name: "PasswordClienteGls", Value: c.creds.Secret},
		{Name: "DataInizio", Value: ""},
		{Name: "DataFine", Value: ""},
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.connected = true
	c.logger.Info("session established", log.String("site", c.creds.SiteID))
	return nil
}

// Close releases the session. Safe on a never-connected client.
func (c *Client) Close() error {
	c.connected = false
	return nil
}

// MaxParcelsPerBatch returns the configured server batch limit.
func (c *Client) MaxParcelsPerBatch() int {
	return c.maxBatch
}

// SubmitBatch submits one batch of parcels and returns one Response per
// parcel, in request order. Oversized batches fail fast client-side with
// domain.ErrBatchTooLarge before anything is sent.
func (c *Client) SubmitBatch(ctx context.Context, parcels []domain.Parcel, wantLabels bool) ([]domain.Response, error) {
	if !c.connected {
		return nil, domain.ErrNotConnected
	}
	if len(parcels) > c.maxBatch {
		return nil, fmt.Errorf("%w: %d parcels, limit %d", domain.ErrBatchTooLarge, len(parcels), c.maxBatch)
	}
	if len(parcels) == 0 {
		return nil, nil
	}

	payload, err := BuildParcelsPayload(parcels)
	if err != nil {
		return nil, err
	}

	labelFlag := "0"
	if wantLabels {
		labelFlag = "1"
	}

	raw, err := c.execute(ctx, "AddParcel", []soapParam{
		{Name: "SedeGls", Value: c.creds.SiteID},
		{Name: "CodiceClienteGls", Value: c.creds.ClientCode},
		{Name: "PasswordClienteGls", Value: c.creds.Secret},
		{Name: "CodiceContrattoGls", Value: c.creds.ContractCode},
		{Name: "XMLInfoParcel", Value: payload},
		{Name: "GeneraPdf", Value: labelFlag},
	})
	if err != nil {
		return nil, err
	}

	return ParseSubmitResponse(raw, parcels), nil
}

// CloseWorkingDay finalizes all submissions made since the last close.
func (c *Client) CloseWorkingDay(ctx context.Context) error {
	if !c.connected {
		return domain.ErrNotConnected
	}

	raw, err := c.execute(ctx, "CloseWorkDay", []soapParam{
		{Name: "SedeGls", Value: c.creds.SiteID},
		{Name: "CodiceClienteGls", Value: c.creds.ClientCode},
		{Name: "PasswordClienteGls", Value: c.creds.Secret},
	})
	if err != nil {
		return err
	}

	ack, err := parseAckResponse(raw)
	if err != nil {
		return fmt.Errorf("close working day: parse response: %w", err)
	}
	if !ack.ok() {
		return fmt.Errorf("close working day rejected: %s", ack.Error)
	}
	return nil
}

// ListShipments returns the shipments registered in the date range.
// Zero times leave the corresponding bound open.
func (c *Client) ListShipments(ctx context.Context, from, to time.Time) ([]ports.Shipment, error) {
	if !c.connected {
		return nil, domain.ErrNotConnected
	}

	raw, err := c.execute(ctx, "ListSped", []soapParam{
		{Name: "SedeGls", Value: c.creds.SiteID},
		{Name: "CodiceClienteGls", Value: c.creds.ClientCode},
		{Name: "PasswordClienteGls", Value: c.creds.Secret},
		{Name: "DataInizio", Value: formatListDate(from)},
		{Name: "DataFine", Value: formatListDate(to)},
	})
	if err != nil {
		return nil, err
	}
	return parseShipmentList(raw), nil
}

// DeleteShipment removes a not-yet-finalized shipment by id.
func (c *Client) DeleteShipment(ctx context.Context, id string) error {
	if !c.connected {
		return domain.ErrNotConnected
	}

	raw, err := c.execute(ctx, "DeleteSped", []soapParam{
		{Name: "SedeGls", Value: c.creds.SiteID},
		{Name: "CodiceClienteGls", Value: c.creds.ClientCode},
		{Name: "PasswordClienteGls", Value: c.creds.Secret},
		{Name: "NumeroSpedizione", Value: id},
	})
	if err != nil {
		return err
	}

	ack, err := parseAckResponse(raw)
	if err != nil {
		return fmt.Errorf("delete shipment %s: parse response: %w", id, err)
	}
	if !ack.ok() {
		return fmt.Errorf("delete shipment %s rejected: %s", id, ack.Error)
	}
	return nil
}

// execute runs one operation under the retry policy: transient faults are
// retried with exponential backoff up to the attempt budget, terminal faults
// surface immediately. Either way the caller receives a ClientError wrapping
// the last fault.
func (c *Client) execute(ctx context.Context, operation string, params []soapParam) (string, error) {
	bo := newBackoff(c.delay, c.maxDelay)
	var lastErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		raw, err := c.caller.call(ctx, operation, params)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !retriable(err) {
			c.logger.Error("terminal fault", log.String("op", operation), log.Err(err))
			return "", &ClientError{Operation: operation, Attempts: attempt + 1, Err: err}
		}

		c.logger.Warn("attempt failed",
			log.String("op", operation),
			log.Int("attempt", attempt+1),
			log.Err(err),
		)

		if attempt < c.attempts-1 {
			if err := bo.Sleep(ctx); err != nil {
				return "", &ClientError{Operation: operation, Attempts: attempt + 1, Err: err}
			}
		}
	}

	return "", &ClientError{Operation: operation, Attempts: c.attempts, Err: lastErr}
}

func formatListDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(listDateFormat)
}
