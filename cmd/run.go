package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/fetcher"
	"github.com/dbdb168/fs-account-scorer/internal/model"
	"github.com/dbdb168/fs-account-scorer/internal/pipeline"
	"github.com/dbdb168/fs-account-scorer/internal/registry"
	"github.com/dbdb168/fs-account-scorer/internal/source"
	anthropicpkg "github.com/dbdb168/fs-account-scorer/pkg/anthropic"
)

// testModeLimit is how many registry companies a --test run scores.
const testModeLimit = 3

var (
	runTestMode  bool
	runCompanies string
	runOutput    string
)

var runCmd = &cobra.Command{
	Use:   "run [tickers...]",
	Short: "Score the company registry and write the ranked artifact",
	Long:  "Fetches evidence for every registry company (or the given tickers), extracts the five weighted signals, scores, and writes the ranked JSON artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (SCORER_ANTHROPIC_KEY)")
		}
		if cfg.FMP.Key == "" {
			zap.L().Warn("FMP API key not set, skipping transcripts and press releases")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		companies, err := loadRegistry(runCompanies)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			companies = registry.Filter(companies, args)
			if len(companies) == 0 {
				return eris.Errorf("no registry companies match tickers %v", args)
			}
		}
		if runTestMode && len(companies) > testModeLimit {
			companies = companies[:testModeLimit]
			zap.L().Info("test mode", zap.Int("companies", len(companies)))
		}

		http := fetcher.New(fetcher.Options{
			UserAgent: cfg.Edgar.UserAgent,
			Timeout:   30 * time.Second,
		})

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		extractor := pipeline.NewSignalExtractor(
			anthropicClient,
			cfg.Anthropic.Model,
			cfg.Anthropic.MaxTokens,
			time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second,
		)

		opts := pipeline.OptionsFromConfig(cfg)
		if runOutput != "" {
			opts.OutputPath = runOutput
		}

		p := pipeline.New(
			source.NewEdgar(http, cfg.Edgar),
			source.NewFMP(http, cfg.FMP),
			source.NewAppStore(http, cfg.AppStore),
			extractor,
			st,
			opts,
		)

		result, err := p.Run(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", result.RunID),
			zap.Int("scored", len(result.Companies)),
			zap.Int("failed", result.Failed),
			zap.String("artifact", result.ArtifactPath),
		)
		return nil
	},
}

// loadRegistry returns the built-in registry, or a validated override
// loaded from the given YAML path.
func loadRegistry(path string) ([]model.CompanyConfig, error) {
	if path == "" {
		return registry.Companies(), nil
	}
	companies, err := registry.LoadOverride(path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("registry override loaded",
		zap.String("path", path),
		zap.Int("companies", len(companies)),
	)
	return companies, nil
}

func init() {
	runCmd.Flags().BoolVar(&runTestMode, "test", false, "score only the first few registry companies")
	runCmd.Flags().StringVar(&runCompanies, "companies", "", "path to a YAML registry override")
	runCmd.Flags().StringVar(&runOutput, "output", "", "artifact output path (overrides config)")
	rootCmd.AddCommand(runCmd)
}
