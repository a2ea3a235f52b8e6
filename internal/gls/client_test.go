package gls

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bdalabs/parcelship/internal/domain"
)

var testCreds = domain.Credentials{
	SiteID:       "MI",
	ClientCode:   "C001",
	Secret:       "secret",
	ContractCode: "K123",
}

// soapResponse wraps an inner service document in a SOAP 1.1 response
// envelope for the given operation.
func soapResponse(t *testing.T, operation, inner string) string {
	t.Helper()
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(inner)); err != nil {
		t.Fatalf("escape inner document: %v", err)
	}
	return fmt.Sprintf(
		`<?xml version="1.0"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
			`<%sResponse xmlns="https://labelservice.gls-italy.com/"><%sResult>%s</%sResult></%sResponse>`+
			`</soap:Body></soap:Envelope>`,
		operation, operation, escaped.String(), operation, operation)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithEndpoint(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRetryDelay(time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewClient(testCreds, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// connect marks the client connected without a network round trip.
func connect(t *testing.T, c *Client) {
	t.Helper()
	c.connected = true
}

func TestNewClient_RejectsIncompleteCredentials(t *testing.T) {
	_, err := NewClient(domain.Credentials{SiteID: "MI"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestOperationsRequireConnect(t *testing.T) {
	c, err := NewClient(testCreds)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.SubmitBatch(context.Background(), []domain.Parcel{sampleParcel("1")}, false); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("SubmitBatch before Connect: %v", err)
	}
	if err := c.CloseWorkingDay(context.Background()); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("CloseWorkingDay before Connect: %v", err)
	}
}

func TestConnect_PingsServiceAndRejectsSecondCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(t, "ListSped", `<Info></Info>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, domain.ErrAlreadyConnected) {
		t.Fatalf("second Connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// After Close, Connect is allowed again.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
}

func TestSubmitBatch_FailsFastOnOversizedBatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxParcelsPerBatch(2))
	connect(t, c)

	parcels := []domain.Parcel{sampleParcel("1"), sampleParcel("2"), sampleParcel("3")}
	if _, err := c.SubmitBatch(context.Background(), parcels, false); !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("oversized batch reached the server: %d calls", calls)
	}
}

func TestSubmitBatch_ParsesPerParcelResponses(t *testing.T) {
	inner := `<Info>
		<Parcel><NumeroSpedizione>SP1</NumeroSpedizione><Esito>OK</Esito></Parcel>
		<Parcel><Esito>KO</Esito><Errore>indirizzo errato</Errore></Parcel>
	</Info>`
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.String()
		fmt.Fprint(w, soapResponse(t, "AddParcel", inner))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	connect(t, c)

	parcels := []domain.Parcel{sampleParcel("A"), sampleParcel("B")}
	responses, err := c.SubmitBatch(context.Background(), parcels, false)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if !responses[0].Success() || responses[0].Reference != "A" {
		t.Fatalf("response 0: %+v", responses[0])
	}
	if responses[1].Success() || responses[1].Error != "indirizzo errato" {
		t.Fatalf("response 1: %+v", responses[1])
	}

	if !strings.Contains(gotBody, "AddParcel") || !strings.Contains(gotBody, "RagioneSociale") {
		t.Fatalf("request body missing payload: %s", gotBody)
	}
	if !strings.Contains(gotBody, "<PasswordClienteGls>secret</PasswordClienteGls>") {
		t.Fatal("credentials not passed on the call")
	}
}

func TestExecute_RetriesTransientFaults(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, soapResponse(t, "AddParcel",
			`<Info><Parcel><NumeroSpedizione>SP1</NumeroSpedizione><Esito>OK</Esito></Parcel></Info>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	connect(t, c)

	responses, err := c.SubmitBatch(context.Background(), []domain.Parcel{sampleParcel("1")}, false)
	if err != nil {
		t.Fatalf("SubmitBatch after transient faults: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !responses[0].Success() {
		t.Fatalf("unexpected response %+v", responses[0])
	}
}

func TestExecute_ExhaustedBudgetSurfacesClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithRetryAttempts(3))
	connect(t, c)

	_, err := c.SubmitBatch(context.Background(), []domain.Parcel{sampleParcel("1")}, false)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if clientErr.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", clientErr.Attempts)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusInternalServerError {
		t.Fatalf("ClientError does not wrap the last fault: %v", err)
	}
}

func TestExecute_TerminalFaultNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithRetryAttempts(3))
	connect(t, c)

	_, err := c.SubmitBatch(context.Background(), []domain.Parcel{sampleParcel("1")}, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("terminal fault was retried: %d calls", calls)
	}
}

func TestExecute_ClientFaultCodeIsTerminal(t *testing.T) {
	calls := 0
	fault := `<?xml version="1.0"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>invalid credentials</faultstring></soap:Fault>` +
		`</soap:Body></soap:Envelope>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, fault)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithRetryAttempts(3))
	connect(t, c)

	_, err := c.SubmitBatch(context.Background(), []domain.Parcel{sampleParcel("1")}, false)
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected Fault, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("client fault was retried: %d calls", calls)
	}
}

func TestCloseWorkingDay(t *testing.T) {
	cases := []struct {
		name    string
		inner   string
		wantErr bool
	}{
		{"accepted", `<Info><Esito>OK</Esito></Info>`, false},
		{"rejected", `<Info><Esito>KO</Esito><Errore>giornata vuota</Errore></Info>`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, soapResponse(t, "CloseWorkDay", tc.inner))
			}))
			defer srv.Close()

			c := newTestClient(t, srv)
			connect(t, c)

			err := c.CloseWorkingDay(context.Background())
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("CloseWorkingDay: %v", err)
			}
		})
	}
}

func TestListShipments_FormatsDateRange(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.String()
		fmt.Fprint(w, soapResponse(t, "ListSped",
			`<Info><Spedizione><NumeroSpedizione>SP1</NumeroSpedizione></Spedizione></Info>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	connect(t, c)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	shipments, err := c.ListShipments(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListShipments: %v", err)
	}
	if len(shipments) != 1 || shipments[0]["numerospedizione"] != "SP1" {
		t.Fatalf("unexpected shipments %v", shipments)
	}
	if !strings.Contains(gotBody, "<DataInizio>20250301</DataInizio>") ||
		!strings.Contains(gotBody, "<DataFine>20250331</DataFine>") {
		t.Fatalf("date range not formatted: %s", gotBody)
	}
}

func TestDeleteShipment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(t, "DeleteSped",
			`<Info><Esito>KO</Esito><Errore>spedizione confermata</Errore></Info>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	connect(t, c)

	err := c.DeleteShipment(context.Background(), "SP1")
	if err == nil || !strings.Contains(err.Error(), "spedizione confermata") {
		t.Fatalf("expected rejection with server reason, got %v", err)
	}
}
