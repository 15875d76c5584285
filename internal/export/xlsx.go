package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ooh-map/internal/model"
)

// SheetName is the worksheet holding exported records.
const SheetName = "mapa"

// WriteXLSX writes a workbook with one sheet: a header row then one row per
// record. Every cell is text so coordinates keep their decimal comma.
func WriteXLSX(w io.Writer, headers []string, recs []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range headers {
		header.AddCell().SetString(h)
	}

	for _, rec := range recs {
		row := sheet.AddRow()
		for _, h := range headers {
			row.AddCell().SetString(rec.Get(h))
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
