// Package export writes the final lead set as CSV (and optionally XLSX).
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// WriteCSV writes leads to w as UTF-8 with a byte order mark, one row per
// lead in model.ExportColumns order. Missing and null fields are empty
// cells.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	bom := unicode.UTF8BOM.NewEncoder().Writer(w)
	cw := csv.NewWriter(bom)

	if err := cw.Write(model.ExportColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for i, l := range leads {
		if err := cw.Write(Row(l)); err != nil {
			return eris.Wrapf(err, "export: write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteCSVFile writes leads to path, creating parent directories. A failed
// write removes the partial file.
func WriteCSVFile(path string, leads []model.Lead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteCSV(f, leads); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return eris.Wrapf(err, "export: close %s", path)
	}
	return nil
}

// Row renders one lead in column order.
func Row(l model.Lead) []string {
	row := make([]string, len(model.ExportColumns))
	for i, col := range model.ExportColumns {
		row[i] = Cell(l[col])
	}
	return row
}

// Cell renders a single field value.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return norm.NFC.String(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return norm.NFC.String(fmt.Sprint(t))
	}
}
