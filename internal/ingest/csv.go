package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"storyboard/internal/services"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a UTF-8 spreadsheet export. A leading BOM is dropped, ragged
// rows are kept as-is and invalid bytes become U+FFFD.
func ReadCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, services.Wrap(services.ErrImport, "ingest", "read csv", "", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("\uFFFD"))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrImport, "ingest", "parse csv", "", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv has no records", ErrEmptyTable)
	}
	return records, nil
}
