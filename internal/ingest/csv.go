package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/palletline/cyclecount/internal/core"
)

// ReadCSV reads an uploaded CSV file into raw rows.
func ReadCSV(r io.Reader) ([]core.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, core.Wrap(core.KindImportFailed, err, "reading csv upload")
	}

	data = sanitizeUTF8(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, core.Wrap(core.KindImportFailed, err, "parsing csv")
	}
	if len(records) == 0 {
		return nil, core.Errf(core.KindImportFailed, "empty file")
	}

	return rowsToMaps(records)
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// character so the csv reader never chokes on stray legacy encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
