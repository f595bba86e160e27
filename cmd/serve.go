package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/server"
	"github.com/sells-group/leadgen-cli/internal/stream"
)

var servePort int

// healthReport is the /api/health payload: the config report plus the
// state of every circuit breaker that has seen traffic.
type healthReport struct {
	config.Health
	Circuits map[string]string `json:"circuits,omitempty"`
}

func newHealthFunc(c *config.Config, breakers *resilience.ServiceBreakers) server.HealthFunc {
	return func() any {
		report := healthReport{Health: c.Health()}
		if breakers != nil {
			states := breakers.States()
			if len(states) > 0 {
				report.Circuits = make(map[string]string, len(states))
				for name, s := range states {
					report.Circuits[name] = s.String()
				}
			}
		}
		return report
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for pipeline runs and progress streaming",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		gateway := stream.NewGateway(env.Registry, cfg.Server.Keepalive())
		api := server.New(ctx, env.Orchestrator, env.Registry, gateway, server.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			MaxLeads:    cfg.Pipeline.MaxLeads,
			Health:      newHealthFunc(cfg, env.Breakers),
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown. Streams end when their job does, so running jobs
		// are cancelled before the server drains.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.Int("workers", cfg.Pipeline.Workers))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		env.Orchestrator.Wait()
		zap.L().Info("all jobs finished")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
