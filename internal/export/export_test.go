package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

func sampleLeads() []model.Lead {
	hit := model.NewLead("Hélène", "Dupré", "Société Générale", "DAF", "Paris")
	hit[model.FieldEmail] = "helene@sg.fr"
	hit[model.FieldLinkedInURL] = "https://linkedin.com/in/helene"
	hit[model.FieldPhone] = nil
	hit[model.FieldHitScore] = 70
	hit[model.FieldIsHit] = true
	hit[model.FieldActivitySummary] = nil
	hit[model.FieldConversionAngle] = "Mention the Q3 report, \"growth\""

	miss := model.NewLead("Bob", "Martin", "Globex", "CTO", "Lyon")
	miss[model.FieldHitScore] = 0
	miss[model.FieldIsHit] = false
	return []model.Lead{hit, miss}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleLeads()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "missing UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, model.ExportColumns, records[0])
	for _, rec := range records {
		assert.Len(t, rec, len(model.ExportColumns))
	}

	hit := records[1]
	assert.Equal(t, "Hélène", hit[0])
	assert.Equal(t, "Société Générale", hit[2])
	assert.Equal(t, "helene@sg.fr", hit[5])
	assert.Equal(t, "", hit[6], "null phone is an empty cell")
	assert.Equal(t, "70", hit[9])
	assert.Equal(t, "True", hit[10])
	assert.Equal(t, "", hit[11])
	assert.Equal(t, `Mention the Q3 report, "growth"`, hit[12])

	miss := records[2]
	assert.Equal(t, "", miss[8], "missing website is an empty cell")
	assert.Equal(t, "False", miss[10])
}

func TestCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Cell(nil))
	assert.Equal(t, "3.5", Cell(3.5))
	assert.Equal(t, "42", Cell(int64(42)))
	// Decomposed e + combining acute is recomposed.
	assert.Equal(t, "\u00e9", Cell("e\u0301"))
}

func TestExporter_WritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "output")
	e := NewExporter(dir, true)
	e.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	run := pipeline.Run{JobID: "0123456789abcdef", Log: zap.NewNop()}
	art, err := e.Export(context.Background(), run, sampleLeads())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "leads_final_20260304_050607_01234567.csv"), art.CSVPath)
	assert.Equal(t, filepath.Join(dir, "leads_final_20260304_050607_01234567.xlsx"), art.XLSXPath)

	data, err := os.ReadFile(art.CSVPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "Hélène"))

	rows, err := ReadXLSX(art.XLSXPath)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.ExportColumns, rows[0])
	assert.Equal(t, "Hélène", rows[1][0])
	assert.Equal(t, "70", rows[1][9])
}

func TestExporter_CSVOnly(t *testing.T) {
	t.Parallel()

	e := NewExporter(t.TempDir(), false)
	art, err := e.Export(context.Background(), pipeline.Run{JobID: "abc", Log: zap.NewNop()}, sampleLeads())
	require.NoError(t, err)
	assert.Empty(t, art.XLSXPath)
	assert.FileExists(t, art.CSVPath)
	assert.Contains(t, filepath.Base(art.CSVPath), "_abc.csv")
}

func TestExporter_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExporter(t.TempDir(), false).Export(ctx, pipeline.Run{JobID: "abc", Log: zap.NewNop()}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExporter_XLSXFailureRemovesCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewExporter(dir, true)
	e.now = func() time.Time { return at }

	base := filepath.Join(dir, FileName("abcdef1234", at))
	// A directory where the workbook should go makes the save fail.
	require.NoError(t, os.Mkdir(base+".xlsx", 0o755))

	_, err := e.Export(context.Background(), pipeline.Run{JobID: "abcdef1234", Log: zap.NewNop()}, sampleLeads())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: save")

	assert.NoFileExists(t, base+".csv")
	assert.DirExists(t, base+".xlsx")
}
