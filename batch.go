package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchMetrics tracks a Monte Carlo batch. Each batch has its own registry
// so concurrent batches never collide.
type BatchMetrics struct {
	reg         *prometheus.Registry
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	FinalValue  prometheus.Histogram
	TaxPaid     prometheus.Histogram
}

// NewBatchMetrics creates a registry with every batch metric registered.
func NewBatchMetrics() *BatchMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &BatchMetrics{
		reg: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hhsim_runs_total",
			Help: "Simulation runs completed, by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hhsim_run_duration_seconds",
			Help:    "Wall time of a single simulation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FinalValue: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hhsim_final_value_pounds",
			Help:    "Cash plus wrapper value at the end of each run",
			Buckets: prometheus.ExponentialBuckets(10_000, 2, 12),
		}),
		TaxPaid: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hhsim_tax_paid_pounds",
			Help:    "Total tax paid over each run",
			Buckets: prometheus.ExponentialBuckets(10_000, 2, 12),
		}),
	}
}

// observe records one finished run. Start is when the run began.
func (m *BatchMetrics) observe(r SimulationResult, start time.Time) {
	outcome := "ok"
	if r.Unrecoverable() {
		outcome = "unrecoverable"
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
	m.FinalValue.Observe(r.Final.Total().InexactFloat64())
	m.TaxPaid.Observe(r.TotalTaxPaid().InexactFloat64())
}

// WriteTextfile writes the metrics in the node exporter textfile format
func (m *BatchMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// Registry exposes the underlying registry, mostly for tests
func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// BatchOptions configures RunBatch
type BatchOptions struct {
	Runs    int
	Workers int
	Logger  *zap.Logger
	Metrics *BatchMetrics
	Prices  *MarketData
}

// BatchResult aggregates every run of a batch
type BatchResult struct {
	BatchID       string
	Runs          []SimulationResult
	Unrecoverable int
	MeanFinal     Money
	P10Final      Money
	MedianFinal   Money
	P90Final      Money
	Annual        []AnnualFrame // averaged by year across runs
}

// SuccessRate is the share of runs that never became Unrecoverable
func (b *BatchResult) SuccessRate() float64 {
	if len(b.Runs) == 0 {
		return 0
	}
	return float64(len(b.Runs)-b.Unrecoverable) / float64(len(b.Runs))
}

// RunBatch runs the scenario opts.Runs times with consecutive seeds starting
// at the scenario's seed. Runs share nothing; a hard error in any run
// cancels the rest.
func RunBatch(ctx context.Context, cfg *ScenarioConfig, opts BatchOptions) (*BatchResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Runs < 1 {
		opts.Runs = 1
	}
	batchID := uuid.NewString()
	logger = logger.Named("batch").With(zap.String("batch_id", batchID))

	results := make([]SimulationResult, opts.Runs)
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i := 0; i < opts.Runs; i++ {
		g.Go(func() error {
			started := time.Now()
			sim, err := cfg.Build(BuildOptions{
				Seed:   cfg.Market.Seed + uint64(i),
				RunID:  uuid.NewString(),
				Logger: logger,
				Prices: opts.Prices,
			})
			if err != nil {
				return fmt.Errorf("build run %d: %w", i, err)
			}
			res, err := sim.Run(ctx)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			if opts.Metrics != nil {
				opts.Metrics.observe(res, started)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := summarise(results)
	out.BatchID = batchID
	logger.Info("batch finished",
		zap.Int("runs", len(results)),
		zap.Int("unrecoverable", out.Unrecoverable),
		zap.String("median_final", out.MedianFinal.StringFixed(0)),
	)
	return out, nil
}

func summarise(results []SimulationResult) *BatchResult {
	out := &BatchResult{Runs: results, MeanFinal: zero, P10Final: zero, MedianFinal: zero, P90Final: zero}
	if len(results) == 0 {
		return out
	}

	finals := make([]Money, len(results))
	sum := zero
	for i, r := range results {
		if r.Unrecoverable() {
			out.Unrecoverable++
		}
		finals[i] = r.Final.Total()
		sum = sum.Add(finals[i])
	}
	sort.Slice(finals, func(a, b int) bool { return finals[a].LessThan(finals[b]) })
	out.MeanFinal = sum.Div(M(float64(len(results))))
	out.P10Final = percentile(finals, 0.10)
	out.MedianFinal = percentile(finals, 0.50)
	out.P90Final = percentile(finals, 0.90)
	out.Annual = averageFrames(results)
	return out
}

// percentile uses the nearest-rank method on sorted values
func percentile(sorted []Money, p float64) Money {
	if len(sorted) == 0 {
		return zero
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	idx = min(max(idx, 0), len(sorted)-1)
	return sorted[idx]
}

// averageFrames averages the k-th annual frame over every run that reached it
func averageFrames(results []SimulationResult) []AnnualFrame {
	longest := 0
	for _, r := range results {
		longest = max(longest, len(r.Annual))
	}
	out := make([]AnnualFrame, longest)
	for k := range out {
		acc := AnnualFrame{ISA: zero, GIA: zero, SIPP: zero, Cash: zero, GrossIncome: zero,
			NetIncome: zero, Expense: zero, TaxPaid: zero, SIPPContributions: zero}
		n := 0
		for _, r := range results {
			if k >= len(r.Annual) {
				continue
			}
			f := r.Annual[k]
			acc.Date = f.Date
			acc.ISA = acc.ISA.Add(f.ISA)
			acc.GIA = acc.GIA.Add(f.GIA)
			acc.SIPP = acc.SIPP.Add(f.SIPP)
			acc.Cash = acc.Cash.Add(f.Cash)
			acc.GrossIncome = acc.GrossIncome.Add(f.GrossIncome)
			acc.NetIncome = acc.NetIncome.Add(f.NetIncome)
			acc.Expense = acc.Expense.Add(f.Expense)
			acc.TaxPaid = acc.TaxPaid.Add(f.TaxPaid)
			acc.SIPPContributions = acc.SIPPContributions.Add(f.SIPPContributions)
			n++
		}
		d := M(float64(n))
		out[k] = AnnualFrame{
			Date:              acc.Date,
			ISA:               acc.ISA.Div(d),
			GIA:               acc.GIA.Div(d),
			SIPP:              acc.SIPP.Div(d),
			Cash:              acc.Cash.Div(d),
			GrossIncome:       acc.GrossIncome.Div(d),
			NetIncome:         acc.NetIncome.Div(d),
			Expense:           acc.Expense.Div(d),
			TaxPaid:           acc.TaxPaid.Div(d),
			SIPPContributions: acc.SIPPContributions.Div(d),
		}
	}
	return out
}
