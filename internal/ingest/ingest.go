// Package ingest reads uploaded spreadsheets into raw rows for the
// reconciliation pipeline. Readers load the full content, release the
// handle, and return one column-header-to-cell mapping per data row; all
// failures surface as ImportFailed errors.
package ingest

import (
	"strings"

	"github.com/palletline/cyclecount/internal/core"
)

// rowsToMaps converts tabular records into header-keyed raw rows. The first
// non-empty record is the header; rows with no content are skipped, and
// cells beyond the header width are ignored.
func rowsToMaps(records [][]string) ([]core.RawRow, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, core.Errf(core.KindImportFailed, "spreadsheet has no header row")
	}

	header := make([]string, len(records[headerAt]))
	for i, h := range records[headerAt] {
		header[i] = cleanCell(h)
	}

	var rows []core.RawRow
	for _, rec := range records[headerAt+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(core.RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(rec) {
				row[name] = cleanCell(rec[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// cleanCell trims whitespace and a UTF-8 BOM, which spreadsheet exports like
// to prepend to the first header cell.
func cleanCell(v string) string {
	return strings.TrimSpace(strings.TrimPrefix(v, "\uFEFF"))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
