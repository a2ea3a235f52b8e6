package gls

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEndpoint is the production GLS Label Service endpoint.
const DefaultEndpoint = "https://labelservice.gls-italy.com/ilswebservice.asmx"

// soapNamespace is the service namespace; operation SOAPAction values are
// derived from it.
const soapNamespace = "https://labelservice.gls-italy.com/"

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// soapParam is one named operation parameter. Order matters on the wire.
type soapParam struct {
	Name  string
	Value string
}

// soapCaller performs document-style SOAP 1.1 calls against one endpoint.
type soapCaller struct {
	client   HTTPClient
	endpoint string
}

// call invokes one operation and returns the operation result payload: the
// text content of the <OperationResult> element, which carries the service's
// own XML response document as an escaped string.
func (c *soapCaller) call(ctx context.Context, operation string, params []soapParam) (string, error) {
	body, err := buildEnvelope(operation, params)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapNamespace+operation)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", operation, err)
	}

	// Faults arrive as 500 with a Fault element in the body; decode those
	// before reporting a bare status error.
	if fault := parseFault(respBody); fault != nil {
		return "", fault
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Operation: operation, Status: resp.StatusCode, Body: truncateRaw(string(respBody))}
	}

	return extractResult(respBody, operation)
}

// buildEnvelope renders the SOAP 1.1 request envelope for one operation.
// Parameter values are entity-escaped, so the parcels XML document travels
// as string content.
func buildEnvelope(operation string, params []soapParam) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`)
	fmt.Fprintf(&b, `<%s xmlns="%s">`, operation, soapNamespace)
	for _, p := range params {
		fmt.Fprintf(&b, "<%s>", p.Name)
		if err := xml.EscapeText(&b, []byte(p.Value)); err != nil {
			return nil, fmt.Errorf("escape %s: %w", p.Name, err)
		}
		fmt.Fprintf(&b, "</%s>", p.Name)
	}
	fmt.Fprintf(&b, "</%s>", operation)
	b.WriteString(`</soap:Body></soap:Envelope>`)
	return b.Bytes(), nil
}

// extractResult pulls the text of the <operationResult> element out of the
// response envelope.
func extractResult(body []byte, operation string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	want := strings.ToLower(operation + "Result")

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%s: no result element in response", operation)
			}
			return "", fmt.Errorf("%s: decode response: %w", operation, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || strings.ToLower(start.Name.Local) != want {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", fmt.Errorf("%s: decode result: %w", operation, err)
		}
		return text, nil
	}
}

// soapFaultEnvelope matches the fault shape of a SOAP 1.1 response.
type soapFaultEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// parseFault returns the decoded Fault when the body carries one.
func parseFault(body []byte) *Fault {
	var env soapFaultEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.Body.Fault == nil {
		return nil
	}
	return &Fault{Code: env.Body.Fault.Code, Message: env.Body.Fault.String}
}
