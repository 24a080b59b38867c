package ingest

import (
	"io"

	"github.com/palletline/cyclecount/internal/core"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first sheet of an uploaded .xlsx workbook into raw
// rows. Cell values arrive stringified, numeric cells included, which is
// what the schema validator expects.
func ReadXLSX(r io.Reader) ([]core.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.Wrap(core.KindImportFailed, err, "opening xlsx upload")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.Errf(core.KindImportFailed, "workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.Wrap(core.KindImportFailed, err, "reading sheet %q", sheets[0])
	}
	if len(records) == 0 {
		return nil, core.Errf(core.KindImportFailed, "empty sheet")
	}

	return rowsToMaps(records)
}
