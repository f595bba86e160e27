package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SheetName is the worksheet holding exported leads.
const SheetName = "Leads"

// WriteXLSX writes leads to a single-sheet workbook at path.
func WriteXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.ExportColumns {
		header.AddCell().SetString(col)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for _, col := range model.ExportColumns {
			cell := row.AddCell()
			switch v := l[col].(type) {
			case int:
				cell.SetInt(v)
			case bool:
				cell.SetBool(v)
			default:
				cell.SetString(Cell(v))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "xlsx: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		if info, serr := os.Stat(path); serr == nil && info.Mode().IsRegular() {
			_ = os.Remove(path)
		}
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadXLSX returns every row of the leads sheet as strings, header first.
func ReadXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, ok := f.Sheet[SheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", SheetName)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
