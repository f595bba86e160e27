package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/scorer"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/waterfall"
	"github.com/sells-group/leadgen-cli/internal/waterfall/provider"
	anthropicpkg "github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/clearbit"
	"github.com/sells-group/leadgen-cli/pkg/dropcontact"
	"github.com/sells-group/leadgen-cli/pkg/duckduckgo"
	"github.com/sells-group/leadgen-cli/pkg/google"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// pipelineEnv holds the job registry, the orchestrator and the resources
// shared by the run and serve commands.
type pipelineEnv struct {
	Store        store.Store
	Registry     *jobs.Registry
	Orchestrator *pipeline.Orchestrator
	Breakers     *resilience.ServiceBreakers
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the cache store and
// builds the orchestrator with every stage. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	stages, err := loadStages(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.CacheTTL())
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if n, err := st.DeleteExpired(ctx); err != nil {
		zap.L().Warn("store: prune failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("store: pruned expired entries", zap.Int("deleted", n))
	}

	retryCfg, breakerCfg := resilience.FromConfig(cfg.Resilience)
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("circuit breaker state change", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	breakers := resilience.NewServiceBreakers(breakerCfg)
	guard := enrich.NewGuard(retryCfg, breakers, zap.L())

	search, err := buildSearchEnricher(st, guard)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	registry := jobs.NewRegistry()
	orch := pipeline.New(registry, buildStages(st, guard, search),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithStages(stages),
		pipeline.WithLogger(zap.L()),
	)

	return &pipelineEnv{
		Store:        st,
		Registry:     registry,
		Orchestrator: orch,
		Breakers:     breakers,
	}, nil
}

// loadStages returns the progress stage layout. A custom file must keep
// the five pipeline stages since stages report by index.
func loadStages(c config.PipelineConfig) ([]progress.Stage, error) {
	if c.StagesFile == "" {
		return progress.DefaultStages(), nil
	}
	stages, err := progress.LoadStages(c.StagesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load progress stages")
	}
	if len(stages) != len(progress.DefaultStages()) {
		return nil, eris.Errorf("progress stages file %s: want %d stages, got %d",
			c.StagesFile, len(progress.DefaultStages()), len(stages))
	}
	return stages, nil
}

// buildSearchEnricher registers a provider for every search source with
// credentials and wires the waterfall to the lookup cache.
func buildSearchEnricher(cache waterfall.Cache, guard *enrich.Guard) (*enrich.SearchEnricher, error) {
	wfCfg := waterfall.DefaultConfig()
	if cfg.Pipeline.WaterfallFile != "" {
		c, err := waterfall.LoadConfig(cfg.Pipeline.WaterfallFile)
		if err != nil {
			return nil, eris.Wrap(err, "load waterfall config")
		}
		wfCfg = c
	}

	reg := provider.NewRegistry()
	if cfg.Google.Key != "" && cfg.Google.CX != "" {
		reg.Register(enrich.NewGoogleCSE(google.NewClient(cfg.Google.Key, cfg.Google.CX, google.WithBaseURL(cfg.Google.BaseURL)), guard))
	} else {
		zap.L().Warn("GOOGLE_API_KEY or GOOGLE_CX not set, google_cse source disabled")
	}
	if cfg.Serper.Key != "" {
		reg.Register(enrich.NewSerper(serper.NewClient(cfg.Serper.Key, serper.WithBaseURL(cfg.Serper.BaseURL)), guard))
	}
	reg.Register(enrich.NewClearbit(clearbit.NewClient(clearbit.WithBaseURL(cfg.Clearbit.BaseURL)), guard))
	reg.Register(enrich.NewDuckDuckGo(duckduckgo.NewClient(duckduckgo.WithBaseURL(cfg.DuckDuckGo.BaseURL)), guard))

	opts := []waterfall.ExecutorOption{
		waterfall.WithCache(cache),
		waterfall.WithLogger(zap.L()),
	}
	if d := cfg.Pipeline.RequestDelay(); d > 0 {
		opts = append(opts, waterfall.WithLimiter(rate.NewLimiter(rate.Every(d), 1)))
	}

	zap.L().Info("search sources registered", zap.Strings("sources", reg.List()))
	return enrich.NewSearchEnricher(waterfall.NewExecutor(wfCfg, reg, opts...)), nil
}

func buildStages(st store.Store, guard *enrich.Guard, search *enrich.SearchEnricher) pipeline.Stages {
	var dc dropcontact.Client
	if cfg.Dropcontact.Key != "" {
		dc = dropcontact.NewClient(cfg.Dropcontact.Key, dropcontact.WithBaseURL(cfg.Dropcontact.BaseURL))
	}
	dropcontactEnricher := enrich.NewDropcontactEnricher(dc, cfg.Dropcontact.BatchSize, waterfall.PollConfig{
		Interval:    cfg.Dropcontact.PollInterval(),
		MaxAttempts: cfg.Dropcontact.MaxPolls,
	}, guard)

	var claude anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		claude = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}
	website := scrape.NewChain(zap.L(), st,
		scrape.NewHTTPScraper(scrape.MaxWebsiteText),
		scrape.NewBrowserScraper(scrape.MaxWebsiteText, 30*time.Second),
	)
	hitText := scrape.NewHitScraper(scrape.NewLinkedIn(cfg.LinkedIn.CookiesPath), website, cfg.Pipeline.RequestDelay())

	return pipeline.Stages{
		Fetcher: scrape.NewApollo(scrape.ApolloOptions{
			CookiesPath: cfg.Apollo.CookiesPath,
			Headless:    cfg.Apollo.Headless,
			LoginWait:   cfg.Apollo.LoginWait(),
			PageDelay:   cfg.Pipeline.RequestDelay(),
		}),
		Enricher: enrich.Chain{search, dropcontactEnricher},
		Scorer:   scorer.NewHitScorer(cfg.Scoring, cfg.Pipeline.HitThreshold),
		Deepener: enrich.NewDeepener(hitText, claude, enrich.DeepenOptions{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Pause:     500 * time.Millisecond,
		}),
		Exporter: export.NewExporter(cfg.Pipeline.OutputDir, cfg.Pipeline.ExportXLSX),
	}
}
