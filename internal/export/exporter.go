package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

// Exporter writes each job's final artifact into Dir.
type Exporter struct {
	Dir  string
	XLSX bool

	now func() time.Time
}

// NewExporter creates an Exporter writing to dir.
func NewExporter(dir string, withXLSX bool) *Exporter {
	return &Exporter{Dir: dir, XLSX: withXLSX, now: time.Now}
}

// FileName returns the artifact base name for a job, without extension.
func FileName(jobID string, at time.Time) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("leads_final_%s_%s", at.Format("20060102_150405"), short)
}

// Export writes the CSV artifact and, when enabled, its XLSX twin. On
// failure no artifact file is left behind.
func (e *Exporter) Export(ctx context.Context, run pipeline.Run, leads []model.Lead) (pipeline.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Artifact{}, err
	}

	base := filepath.Join(e.Dir, FileName(run.JobID, e.now()))
	art := pipeline.Artifact{CSVPath: base + ".csv"}

	if err := WriteCSVFile(art.CSVPath, leads); err != nil {
		return pipeline.Artifact{}, err
	}
	run.Log.Info("export: csv written", zap.String("path", art.CSVPath), zap.Int("rows", len(leads)))

	if e.XLSX {
		art.XLSXPath = base + ".xlsx"
		if err := WriteXLSX(art.XLSXPath, leads); err != nil {
			if rerr := os.Remove(art.CSVPath); rerr != nil {
				run.Log.Warn("export: remove csv after xlsx failure", zap.String("path", art.CSVPath), zap.Error(rerr))
			}
			return pipeline.Artifact{}, err
		}
		run.Log.Info("export: xlsx written", zap.String("path", art.XLSXPath))
	}
	return art, nil
}
