package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/stream"
)

var (
	runURL        string
	runMaxLeads   int
	runSkipDeepen bool
	runOutput     string
	runHeadless   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once for an Apollo search URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runHeadless {
			cfg.Apollo.Headless = true
		}
		maxLeads := runMaxLeads
		if maxLeads == 0 {
			maxLeads = cfg.Pipeline.MaxLeads
		}

		if missing := append(cfg.MissingKeys(), cfg.MissingOptionalKeys()...); len(missing) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "[WARNING] Missing API keys: %s\nSome enrichment steps will be skipped.\n\n",
				strings.Join(missing, ", "))
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		jobID, err := env.Orchestrator.Start(ctx, pipeline.RunRequest{
			URL:        runURL,
			MaxLeads:   maxLeads,
			SkipDeepen: runSkipDeepen,
		})
		if err != nil {
			return err
		}

		// The job may already be running; replay keeps its first lines.
		sub, err := stream.NewGateway(env.Registry, cfg.Server.Keepalive()).SubscribeReplay(jobID)
		if err != nil {
			return err
		}
		printProgress(ctx, cmd.OutOrStdout(), sub)
		sub.Close()
		env.Orchestrator.Wait()

		job, err := env.Registry.Get(jobID)
		if err != nil {
			return err
		}
		if job.Status != model.JobStatusDone {
			return eris.Errorf("pipeline failed: %s", job.Error)
		}

		finalPath := job.CSVPath
		if runOutput != "" {
			finalPath = filepath.Join(cfg.Pipeline.OutputDir, runOutput)
			if err := export.WriteCSVFile(finalPath, job.Leads); err != nil {
				return err
			}
		}
		if err := writeNoHits(job.Leads, cfg.Pipeline.OutputDir, time.Now()); err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), job, cfg.Pipeline.HitThreshold, finalPath)
		return nil
	},
}

// printProgress writes one line per progress event until the stream ends.
func printProgress(ctx context.Context, w io.Writer, sub *stream.Subscription) {
	for msg := range sub.Messages(ctx) {
		switch data := msg.Data.(type) {
		case model.ProgressEvent:
			fmt.Fprintf(w, "[%3.0f%%] %d. %s: %s\n", data.TotalProgress*100, data.Step, data.StepName, data.Message)
		case stream.ErrorPayload:
			fmt.Fprintf(w, "[error] %s\n", data.Message)
		case stream.DonePayload:
			fmt.Fprintf(w, "[100%%] done\n")
		}
	}
}

// writeNoHits saves the leads below the hit threshold to their own CSV.
func writeNoHits(leads []model.Lead, dir string, at time.Time) error {
	var noHits []model.Lead
	for _, l := range leads {
		if !l.Bool(model.FieldIsHit) {
			noHits = append(noHits, l)
		}
	}
	if len(noHits) == 0 {
		return nil
	}
	path := filepath.Join(dir, fmt.Sprintf("leads_nohit_%s.csv", at.Format("20060102_150405")))
	if err := export.WriteCSVFile(path, noHits); err != nil {
		return err
	}
	zap.L().Info("no-hit CSV saved", zap.String("path", path))
	return nil
}

// printSummary writes the end-of-run coverage table.
func printSummary(w io.Writer, job model.Job, threshold int, path string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n  PIPELINE SUMMARY\n%s\n", line, line)
	fmt.Fprintf(w, "  Total leads scraped    : %d\n", job.TotalLeads)
	fmt.Fprintf(w, "  Hit leads (score >= %d) : %d\n", threshold, job.HitLeads)
	fmt.Fprintf(w, "  No-hit leads           : %d\n", job.NoHitLeads)
	if job.TotalLeads > 0 {
		count := func(field string) int {
			n := 0
			for _, l := range job.Leads {
				if l.Has(field) {
					n++
				}
			}
			return n
		}
		for _, row := range []struct {
			label string
			field string
		}{
			{"Emails found           ", model.FieldEmail},
			{"LinkedIn URLs found    ", model.FieldLinkedInURL},
			{"Phones found           ", model.FieldPhone},
			{"Websites found         ", model.FieldWebsite},
		} {
			n := count(row.field)
			fmt.Fprintf(w, "  %s: %d (%d%%)\n", row.label, n, 100*n/job.TotalLeads)
		}
	}
	fmt.Fprintf(w, "\n  Output file: %s\n%s\n\n", path, line)
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "Apollo search results URL (required)")
	runCmd.Flags().IntVar(&runMaxLeads, "max-leads", 0, "maximum number of leads to scrape (default from config)")
	runCmd.Flags().BoolVar(&runSkipDeepen, "skip-deepen", false, "skip LinkedIn/website scraping and Claude enrichment")
	runCmd.Flags().StringVar(&runOutput, "output", "", "also write the final CSV under this file name in the output dir")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "run the Apollo browser headless")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
