package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketData is historical quotes and dividends keyed by date
type MarketData struct {
	Quotes    map[civil.Date][]Quote
	Dividends map[civil.Date][]Dividend
}

// priceRow is one row of eod_prices or dividends. Values come back as text
// so they convert to Money without going through float64.
type priceRow struct {
	Symbol string
	Date   time.Time
	Value  string
}

// PriceStore reads end-of-day prices and dividends from Postgres
type PriceStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPriceStore connects and pings, retrying with backoff while the
// database comes up.
func OpenPriceStore(ctx context.Context, dsn string, logger *zap.Logger) (*PriceStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = 4

	retries := 3
	backoff := time.Second
	for i := 0; i < retries; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return &PriceStore{pool: pool, logger: logger}, nil
			}
			pool.Close()
		}

		logger.Warn("price store connection failed",
			zap.Int("attempt", i+1),
			zap.Int("retries", retries),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("connect to price store after %d attempts: %w", retries, err)
}

func (p *PriceStore) Close() {
	p.pool.Close()
}

// Load fetches every quote and dividend for symbols dated within [from, to]
func (p *PriceStore) Load(ctx context.Context, symbols []string, from, to civil.Date) (*MarketData, error) {
	start, end := from.In(time.UTC), to.In(time.UTC)

	quoteRows, err := p.query(ctx,
		`SELECT symbol, date, close::text
		 FROM eod_prices
		 WHERE symbol = ANY($1) AND date BETWEEN $2 AND $3
		 ORDER BY date, symbol`,
		symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}
	divRows, err := p.query(ctx,
		`SELECT symbol, date, amount::text
		 FROM dividends
		 WHERE symbol = ANY($1) AND date BETWEEN $2 AND $3
		 ORDER BY date, symbol`,
		symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("load dividends: %w", err)
	}

	data, err := groupMarketData(quoteRows, divRows)
	if err != nil {
		return nil, err
	}
	p.logger.Info("loaded market data",
		zap.Int("quote_rows", len(quoteRows)),
		zap.Int("dividend_rows", len(divRows)),
		zap.Strings("symbols", symbols),
	)
	return data, nil
}

func (p *PriceStore) query(ctx context.Context, sql string, args ...any) ([]priceRow, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (priceRow, error) {
		var r priceRow
		err := row.Scan(&r.Symbol, &r.Date, &r.Value)
		return r, err
	})
}

// groupMarketData converts raw rows into the date-keyed maps a HashMapSource takes
func groupMarketData(quoteRows, divRows []priceRow) (*MarketData, error) {
	data := &MarketData{
		Quotes:    map[civil.Date][]Quote{},
		Dividends: map[civil.Date][]Dividend{},
	}
	for _, r := range quoteRows {
		price, err := decimal.NewFromString(r.Value)
		if err != nil {
			return nil, fmt.Errorf("quote %s %s: %w", r.Symbol, r.Date.Format(time.DateOnly), err)
		}
		d := civil.DateOf(r.Date)
		data.Quotes[d] = append(data.Quotes[d], Quote{Symbol: r.Symbol, Date: d, Bid: price, Ask: price})
	}
	for _, r := range divRows {
		amount, err := decimal.NewFromString(r.Value)
		if err != nil {
			return nil, fmt.Errorf("dividend %s %s: %w", r.Symbol, r.Date.Format(time.DateOnly), err)
		}
		d := civil.DateOf(r.Date)
		data.Dividends[d] = append(data.Dividends[d], Dividend{Symbol: r.Symbol, Date: d, Value: amount})
	}
	return data, nil
}
