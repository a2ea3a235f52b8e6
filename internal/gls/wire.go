package gls

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bdalabs/parcelship/internal/domain"
	"github.com/bdalabs/parcelship/internal/ports"
)

// maxRawErrorLen bounds the raw response body echoed into error messages.
const maxRawErrorLen = 100

// parcelElem is the wire shape of one parcel in the submit payload.
// Empty fields are omitted: the server distinguishes "not provided" from
// "empty string".
type parcelElem struct {
	XMLName        xml.Name `xml:"Parcel"`
	Name           string   `xml:"RagioneSociale,omitempty"`
	Address        string   `xml:"Indirizzo,omitempty"`
	Locality       string   `xml:"Localita,omitempty"`
	PostalCode     string   `xml:"Zipcode,omitempty"`
	Province       string   `xml:"Provincia,omitempty"`
	Packages       string   `xml:"Colli,omitempty"`
	Weight         string   `xml:"PesoReale,omitempty"`
	Note           string   `xml:"Note,omitempty"`
	Email          string   `xml:"Email,omitempty"`
	Phone          string   `xml:"Cellulare,omitempty"`
	Reference      string   `xml:"BDA,omitempty"`
	CashOnDelivery string   `xml:"Contrassegno,omitempty"`
	InsuredValue   string   `xml:"ImportoAssicurato,omitempty"`
}

type infoElem struct {
	XMLName xml.Name     `xml:"Info"`
	Parcels []parcelElem `xml:"Parcel"`
}

// BuildParcelsPayload renders the submit payload: a root element with one
// child per parcel, in request order.
func BuildParcelsPayload(parcels []domain.Parcel) (string, error) {
	info := infoElem{Parcels: make([]parcelElem, len(parcels))}
	for i, p := range parcels {
		info.Parcels[i] = parcelElem{
			Name:           p.Name,
			Address:        p.Address,
			Locality:       p.Locality,
			PostalCode:     p.PostalCode,
			Province:       p.Province,
			Packages:       strconv.Itoa(p.Packages),
			Weight:         fmt.Sprintf("%.2f", p.Weight),
			Note:           p.Note,
			Email:          p.Email,
			Phone:          p.Phone,
			Reference:      p.Reference,
			CashOnDelivery: optionalAmount(p.CashOnDelivery),
			InsuredValue:   optionalAmount(p.InsuredValue),
		}
	}

	out, err := xml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal parcels payload: %w", err)
	}
	return string(out), nil
}

func optionalAmount(v float64) string {
	if v <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

// ParseSubmitResponse parses the submit response document into one Response
// per submitted parcel, in request order. Tag names are matched
// case-insensitively and several historical synonyms are accepted. When the
// server omits the echoed reference, it is backfilled positionally from the
// request. A well-formed document with zero parseable entries fails every
// parcel with the truncated raw body; a malformed document fails every
// parcel with a parse-error message.
func ParseSubmitResponse(raw string, parcels []domain.Parcel) []domain.Response {
	entries, err := parseParcelEntries(raw)
	if err != nil {
		return failAll(parcels, "invalid response XML: "+err.Error())
	}
	if len(entries) == 0 && len(parcels) > 0 {
		return failAll(parcels, "unparseable response: "+truncateRaw(raw))
	}

	responses := make([]domain.Response, 0, len(entries))
	for i, entry := range entries {
		resp := domain.Response{}
		if i < len(parcels) {
			resp.Reference = parcels[i].Reference
		}
		for tag, text := range entry {
			switch tag {
			case "numerospedizione", "parcelid", "sped":
				resp.ShipmentID = text
			case "esito", "result":
				resp.Outcome = text
			case "errore", "error", "errormessage":
				resp.Error = text
			case "pdf", "pdfbase64", "label":
				resp.Label = text
			case "bda":
				if text != "" {
					resp.Reference = text
				}
			}
		}
		responses = append(responses, resp)
	}
	return responses
}

// parseParcelEntries walks the document and collects, for every element
// whose local name is "parcel", a map of lower-cased child tag to text.
func parseParcelEntries(raw string) ([]map[string]string, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var entries []map[string]string

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "parcel") {
			continue
		}

		entry, err := parseEntryChildren(dec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseEntryChildren reads the children of one parcel element until its end
// tag, keeping each child's text content keyed by lower-cased tag name.
func parseEntryChildren(dec *xml.Decoder) (map[string]string, error) {
	entry := map[string]string{}
	var current string
	var text strings.Builder
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			current = strings.ToLower(t.Name.Local)
			text.Reset()
		case xml.CharData:
			if depth > 0 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				// End of the parcel element itself.
				return entry, nil
			}
			depth--
			if current != "" {
				entry[current] = strings.TrimSpace(text.String())
				current = ""
			}
		}
	}
}

// ackResult is the parsed outcome of a non-submit operation.
type ackResult struct {
	Outcome string
	Error   string
}

func (a ackResult) ok() bool {
	return strings.EqualFold(a.Outcome, "OK")
}

// parseAckResponse scans any response document for the first outcome flag
// and error text, wherever they sit in the tree.
func parseAckResponse(raw string) (ackResult, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var res ackResult
	var current string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return res, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			value := strings.TrimSpace(text.String())
			switch current {
			case "esito", "result":
				if res.Outcome == "" {
					res.Outcome = value
				}
			case "errore", "error", "errormessage":
				if res.Error == "" {
					res.Error = value
				}
			}
			current = ""
		}
	}
}

// parseShipmentList collects every "spedizione" element as raw tag/value
// pairs. Parse problems yield an empty list rather than an error: the list
// operation is diagnostic.
func parseShipmentList(raw string) []ports.Shipment {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var shipments []ports.Shipment

	for {
		tok, err := dec.Token()
		if err != nil {
			return shipments
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "spedizione") {
			continue
		}
		entry, err := parseEntryChildren(dec)
		if err != nil {
			return shipments
		}
		shipments = append(shipments, ports.Shipment(entry))
	}
}

func failAll(parcels []domain.Parcel, msg string) []domain.Response {
	responses := make([]domain.Response, len(parcels))
	for i, p := range parcels {
		responses[i] = domain.Response{
			Outcome:   "KO",
			Error:     msg,
			Reference: p.Reference,
		}
	}
	return responses
}

func truncateRaw(raw string) string {
	raw = strings.TrimSpace(raw)
	r := []rune(raw)
	if len(r) <= maxRawErrorLen {
		return raw
	}
	return string(r[:maxRawErrorLen])
}
