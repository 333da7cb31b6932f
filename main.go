package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `UK Household Cash Flow Simulator

Simulates a household's finances day by day: wages and other income, PAYE
and self assessment tax, National Insurance, ISA / SIPP / GIA wrappers, a
repayment mortgage and everyday expenses. Tax is settled every 1 April; if
the bill cannot be met from cash, the ISA and then the GIA, the run is
marked unrecoverable.

MODES:
  SINGLE RUN (default)
    Runs the scenario once with the configured market seed and prints the
    tax year table and final balances.

  MONTE CARLO BATCH (-batch N)
    Runs the scenario N times with consecutive seeds across a worker pool
    and prints the spread of outcomes. Use -metrics to also write the batch
    metrics in Prometheus textfile format.

  SENSITIVITY ANALYSIS (-sensitivity flag)
    Reruns the scenario across the configured range of mean inflation
    (sensitivity.inflation_min/max, step_size).

Usage:
  %s [options]

Options:
`, os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  %s                              Run the built-in default scenario
  %s -config household.yaml       Use a custom scenario
  %s -batch 500 -workers 8        Monte Carlo batch
  %s -batch -1                    Batch sized by the scenario's batch section
  %s -batch 500 -metrics out.prom Batch with Prometheus textfile output
  %s -sensitivity                 Inflation sensitivity table
  %s -pdf report.pdf              Write a PDF report
  %s -save-default scenario.yaml  Write the default scenario to edit

Environment:
  Variables may also be set in a .env file in the working directory.
  HHSIM_CONFIG       scenario file (same as -config)
  HHSIM_LOG_LEVEL    debug, info, warn or error
  HHSIM_PRICES_DSN   Postgres DSN for historical prices (same as -prices-dsn)
  HHSIM_WORKERS      worker count for batches
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	// Command line flags
	configFile := flag.String("config", envOr("HHSIM_CONFIG", "scenario.yaml"), "Path to YAML scenario file")
	logLevel := flag.String("log-level", envOr("HHSIM_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	batchRuns := flag.Int("batch", 0, "Run a Monte Carlo batch of N runs (-1 uses the scenario's batch.runs)")
	workers := flag.Int("workers", envInt("HHSIM_WORKERS", 0), "Batch worker count (0 uses the scenario's batch.workers)")
	metricsFile := flag.String("metrics", "", "Write batch metrics to this Prometheus textfile")
	runSensitivity := flag.Bool("sensitivity", false, "Run sensitivity analysis across mean inflation rates")
	pdfFile := flag.String("pdf", "", "Write a PDF report to this path")
	pricesDSN := flag.String("prices-dsn", os.Getenv("HHSIM_PRICES_DSN"), "Postgres DSN to load historical prices from")
	seed := flag.Int64("seed", -1, "Override the scenario's market seed")
	saveDefault := flag.String("save-default", "", "Write the default scenario to this path and exit")
	flag.Parse()

	logger, err := NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *saveDefault != "" {
		config, err := LoadDefaultConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading default scenario: %v\n", err)
			os.Exit(1)
		}
		if err := SaveConfig(config, *saveDefault); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving scenario: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default scenario written to %s\n", *saveDefault)
		return
	}

	config, err := loadScenario(*configFile, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *seed >= 0 {
		config.Market.Seed = uint64(*seed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		pricesDSN:   *pricesDSN,
		sensitivity: *runSensitivity,
		pdfFile:     *pdfFile,
		metricsFile: *metricsFile,
		batchRuns:   *batchRuns,
		workers:     *workers,
	}
	if opts.batchRuns < 0 {
		opts.batchRuns = config.Batch.Runs
	}
	if err := run(ctx, config, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	pricesDSN   string
	sensitivity bool
	pdfFile     string
	metricsFile string
	batchRuns   int
	workers     int
}

// loadScenario reads the scenario file, falling back to the built-in
// default when the file does not exist.
func loadScenario(path string, logger *zap.Logger) (*ScenarioConfig, error) {
	config, err := LoadConfig(path)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	logger.Info("scenario file not found, using built-in default", zap.String("path", path))
	return LoadDefaultConfig()
}

func run(ctx context.Context, config *ScenarioConfig, opts runOptions, logger *zap.Logger) error {
	PrintHeader(config)

	var prices *MarketData
	if opts.pricesDSN != "" {
		var err error
		prices, err = loadPrices(ctx, config, opts.pricesDSN, logger)
		if err != nil {
			return err
		}
	}

	sim, err := config.Build(BuildOptions{
		Seed:   config.Market.Seed,
		RunID:  "main",
		Logger: logger,
		Prices: prices,
	})
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}
	started := time.Now()
	result, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	logger.Info("simulation finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Stringer("state", result.State),
	)
	PrintResultSummary(result)

	var batch *BatchResult
	if opts.batchRuns > 0 {
		workers := opts.workers
		if workers == 0 {
			workers = config.Batch.Workers
		}
		metrics := NewBatchMetrics()
		batch, err = RunBatch(ctx, config, BatchOptions{
			Runs:    opts.batchRuns,
			Workers: workers,
			Logger:  logger,
			Metrics: metrics,
			Prices:  prices,
		})
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		PrintBatchSummary(batch)
		if opts.metricsFile != "" {
			if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			fmt.Printf("\nMetrics written to %s\n", opts.metricsFile)
		}
	}

	var sensitivity *SensitivityAnalysis
	if opts.sensitivity {
		sensitivity, err = RunSensitivityAnalysis(ctx, config, logger)
		if err != nil {
			return fmt.Errorf("sensitivity: %w", err)
		}
		PrintSensitivityTable(sensitivity)
	}

	if opts.pdfFile != "" {
		data, err := GenerateHouseholdPDFReport(config, result, batch, sensitivity)
		if err != nil {
			return fmt.Errorf("pdf report: %w", err)
		}
		if err := os.WriteFile(opts.pdfFile, data, 0644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Printf("\nPDF report written to %s\n", opts.pdfFile)
	}
	return nil
}

// loadPrices reads historical quotes for every configured symbol over the
// scenario's date range.
func loadPrices(ctx context.Context, config *ScenarioConfig, dsn string, logger *zap.Logger) (*MarketData, error) {
	store, err := OpenPriceStore(ctx, dsn, logger.Named("prices"))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	start, err := civil.ParseDate(config.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end := start.AddDays(config.Years * 366)

	symbols := make([]string, 0, len(config.Market.Symbols))
	for _, s := range config.Market.Symbols {
		symbols = append(symbols, s.Symbol)
	}
	return store.Load(ctx, symbols, start, end)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
