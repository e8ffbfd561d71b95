// Command screener logs into screener.in, summarizes the Profit & Loss and
// Balance Sheet of every company listed in the input workbook and writes one
// sheet per company to the output workbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/crsdvaibhav/neufin-assignment/pkg/core/cache"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/config"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/llm"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/logging"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/pipeline"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/prompt"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/report"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/screener"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/store"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/summarize"
	"github.com/crsdvaibhav/neufin-assignment/pkg/core/workbook"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run aborted", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	companies, err := workbook.ReadCompanies(cfg.Input.Path, cfg.Input.Sheet, cfg.Input.Column)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	logger.Info("companies loaded", zap.String("path", cfg.Input.Path), zap.Int("count", len(companies)))

	// =========================================================================
	// SESSION
	// =========================================================================

	pageCache, err := cache.New(ctx, cfg.Cache.RedisAddr, logger)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		pageCache = nil
	}
	defer pageCache.Close()

	client, err := screener.NewClient(screener.Options{
		Site:     cfg.Site,
		Scraper:  cfg.Scraper,
		Cache:    pageCache,
		CacheTTL: cfg.Cache.TTL.Std(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := client.Login(ctx, cfg.Credentials.Username, cfg.Credentials.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	// =========================================================================
	// SUMMARIZER
	// =========================================================================

	prompts := prompt.NewRegistry()
	if cfg.LLM.PromptDir != "" {
		n, err := prompts.LoadFromDirectory(cfg.LLM.PromptDir)
		if err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
		logger.Info("prompts loaded", zap.String("dir", cfg.LLM.PromptDir), zap.Int("count", n))
	}
	for _, sec := range cfg.Scraper.Sections {
		if _, err := prompts.GetPrompt(sec.PromptID); err != nil {
			return fmt.Errorf("section %s: %w (have %v)", sec.Key, err, prompts.ListPrompts())
		}
	}
	logger.Debug("prompt registry ready", zap.Int("prompts", prompts.Count()))

	provider, err := llm.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout.Std(), logger)
	if err != nil {
		return err
	}
	summarizer := summarize.New(summarize.Options{
		Provider:    provider,
		Prompts:     prompts,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxAttempts: cfg.LLM.MaxAttempts,
		Logger:      logger,
	})

	// =========================================================================
	// CHECKPOINTS
	// =========================================================================

	var pool *pgxpool.Pool
	if cfg.Credentials.DatabaseURL != "" {
		pool, err = store.OpenDB(ctx, cfg.Credentials.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, using file checkpoints", zap.Error(err))
			pool = nil
		} else {
			defer pool.Close()
		}
	}
	results, err := store.NewResultStore(pool, cfg.Checkpoint.Dir)
	if err != nil {
		return err
	}

	// =========================================================================
	// RUN
	// =========================================================================

	orch := pipeline.NewOrchestrator(client, summarizer, results, pipeline.Options{
		Workers:        cfg.Run.Workers,
		CompanyTimeout: cfg.Run.CompanyTimeout.Std(),
		Resume:         cfg.Checkpoint.Resume,
		Fingerprint:    fingerprint(cfg, prompts),
		Logger:         logger,
	})
	rep := orch.Run(ctx, companies)

	written, err := workbook.Write(cfg.Output.Path, report.Sheets(rep), report.StatusRows(rep), cfg.Output.TitleSuffix)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	logger.Info("workbook written",
		zap.String("path", cfg.Output.Path),
		zap.Int("sheets", len(written)),
		zap.Int("failed", len(rep.Failures())),
	)

	if cfg.Output.ReportPath != "" {
		if err := report.Write(cfg.Output.ReportPath, report.Build(rep, written, cfg.Output.Path)); err != nil {
			logger.Warn("run report not written", zap.String("path", cfg.Output.ReportPath), zap.Error(err))
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn("run interrupted; unprocessed companies are marked skipped")
	}
	return nil
}

// fingerprint identifies the inputs that change a stored summary.
func fingerprint(cfg *config.Config, prompts *prompt.Registry) string {
	ids := make([]string, 0, len(cfg.Scraper.Sections))
	for _, sec := range cfg.Scraper.Sections {
		ids = append(ids, sec.Key+"="+sec.PromptID)
	}
	versions := prompts.Versions(promptIDs(cfg)...)
	keys := make([]string, 0, len(versions))
	for id, v := range versions {
		keys = append(keys, id+"@"+v)
	}
	sort.Strings(keys)

	return store.Fingerprint(
		strings.Join(cfg.Scraper.Periods, "|"),
		strconv.Itoa(cfg.Scraper.LatestPeriods),
		strings.Join(ids, "|"),
		strings.Join(keys, "|"),
		cfg.LLM.Provider,
		cfg.LLM.Model,
	)
}

func promptIDs(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Scraper.Sections))
	for _, sec := range cfg.Scraper.Sections {
		out = append(out, sec.PromptID)
	}
	return out
}
