// Package rowsource provides collaborator implementations of the RowSource
// port: a CSV file adapter and a directory watcher for unattended uploads.
//
// The orchestrator only ever sees logical field names; this package owns the
// mapping from concrete column headers to those names.
package rowsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bdalabs/parcelship/internal/domain"
)

// headerAliases maps known column headers, lower-cased and trimmed, to
// logical field names. The aliases cover the historical export layouts.
var headerAliases = map[string]string{
	"ragione sociale":         domain.FieldName,
	"ragione sociale negozio": domain.FieldName,
	"indirizzo":               domain.FieldAddress,
	"indirizzo validato":      domain.FieldAddress,
	"localita":                domain.FieldLocality,
	"località":                domain.FieldLocality,
	"comune":                  domain.FieldLocality,
	"citta":                   domain.FieldLocality,
	"città":                   domain.FieldLocality,
	"città validata":          domain.FieldLocality,
	"cap":                     domain.FieldPostalCode,
	"cap validato":            domain.FieldPostalCode,
	"zipcode":                 domain.FieldPostalCode,
	"provincia":               domain.FieldProvince,
	"progressivo":             domain.FieldSequence,
	"telefono":                domain.FieldPhone,
	"cellulare":               domain.FieldMobile,
	"e-mail":                  domain.FieldEmail,
	"email":                   domain.FieldEmail,
	"mail pec":                domain.FieldEmail,
	"note":                    domain.FieldNotes,
	"indicazioni":             domain.FieldNotes,
	"presso cc":               domain.FieldNotes,
	"note x consegne":         domain.FieldNotes,
	"centro comm.le / indicazioni": domain.FieldNotes,
}

// CSVSource reads rows from a CSV file whose first line is a header row.
// It implements ports.RowSource.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the given file path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Rows reads the whole file and returns one Row per data line, in file
// order. Unknown columns are ignored. When the layout has no sequence
// column, the 1-based data row position is used as the sequence.
func (s *CSVSource) Rows() ([]domain.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns := mapHeader(records[0])
	rows := make([]domain.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		fields := map[string]string{}
		for col, logical := range columns {
			if col < len(record) {
				fields[logical] = strings.TrimSpace(record[col])
			}
		}
		if fields[domain.FieldSequence] == "" {
			fields[domain.FieldSequence] = strconv.Itoa(i + 1)
		}
		rows = append(rows, domain.Row{File: s.path, Index: i, Fields: fields})
	}
	return rows, nil
}

// mapHeader resolves header cells to logical field names by column position.
// The first column doubles as the sequence when it has no recognized header,
// matching exports where the row number column is unnamed.
func mapHeader(header []string) map[int]string {
	columns := map[int]string{}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if logical, ok := headerAliases[name]; ok {
			if _, taken := valueSet(columns)[logical]; !taken {
				columns[i] = logical
			}
			continue
		}
		if i == 0 && name == "" {
			columns[i] = domain.FieldSequence
		}
	}
	return columns
}

func valueSet(m map[int]string) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, v := range m {
		set[v] = struct{}{}
	}
	return set
}
