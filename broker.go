package main

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
)

// TradeType is the side of a trade
type TradeType int

const (
	Buy TradeType = iota
	Sell
)

func (t TradeType) String() string {
	if t == Sell {
		return "Sell"
	}
	return "Buy"
}

// Trade is an executed order. Value is the total cash exchanged.
type Trade struct {
	Symbol   string
	Date     civil.Date
	Quantity Money
	Value    Money
	Type     TradeType
}

// DividendPayment is cash credited to an account from a holding
type DividendPayment struct {
	Symbol string
	Date   civil.Date
	Value  Money
}

// InvestmentStrategy is the capability an investment wrapper delegates to.
// The simulation never looks at portfolio composition directly.
type InvestmentStrategy interface {
	DepositCash(amount Money) error
	WithdrawCash(amount Money) error
	// WithdrawCashWithLiquidation sells holdings when cash alone does not cover amount.
	WithdrawCashWithLiquidation(amount Money) error
	LiquidationValue() Money
	// TradesBetween returns trades dated within [start, end].
	TradesBetween(start, end civil.Date) []Trade
	// DividendsBetween returns payments dated within (start, end].
	DividendsBetween(start, end civil.Date) []DividendPayment
	Check()
	Rebalance()
	Finish()
	// Zero drops all cash and holdings.
	Zero()
}

// SimulatedBroker holds cash and positions and executes orders immediately at
// today's quote.
type SimulatedBroker struct {
	clock     *Clock
	source    DataSource
	cash      Money
	holdings  map[string]Money
	lastPrice map[string]Money
	trades    []Trade
	dividends []DividendPayment
	logger    *zap.Logger
}

func NewSimulatedBroker(clock *Clock, source DataSource, logger *zap.Logger) *SimulatedBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedBroker{
		clock:     clock,
		source:    source,
		cash:      zero,
		holdings:  map[string]Money{},
		lastPrice: map[string]Money{},
		logger:    logger,
	}
}

func (b *SimulatedBroker) Cash() Money { return b.cash }

// Holding returns the quantity held of symbol
func (b *SimulatedBroker) Holding(symbol string) Money {
	if q, ok := b.holdings[symbol]; ok {
		return q
	}
	return zero
}

// price is today's bid, falling back to the last seen price
func (b *SimulatedBroker) price(symbol string) (Money, bool) {
	if q, ok := b.source.Quote(b.clock.Now(), symbol); ok {
		b.lastPrice[symbol] = q.Bid
		return q.Bid, true
	}
	p, ok := b.lastPrice[symbol]
	return p, ok
}

func (b *SimulatedBroker) DepositCash(amount Money) error {
	b.cash = b.cash.Add(amount)
	return nil
}

func (b *SimulatedBroker) WithdrawCash(amount Money) error {
	if amount.GreaterThan(b.cash) {
		return fmt.Errorf("withdraw %s with cash %s: %w", amount.StringFixed(2), b.cash.StringFixed(2), ErrInsufficientFunds)
	}
	b.cash = b.cash.Sub(amount)
	return nil
}

func (b *SimulatedBroker) WithdrawCashWithLiquidation(amount Money) error {
	if !amount.GreaterThan(b.cash) {
		return b.WithdrawCash(amount)
	}
	if amount.GreaterThan(b.LiquidationValue()) {
		return fmt.Errorf("liquidate %s: %w", amount.StringFixed(2), ErrInsufficientFunds)
	}

	shortfall := amount.Sub(b.cash)
	for _, symbol := range b.symbols() {
		if !shortfall.IsPositive() {
			break
		}
		price, ok := b.price(symbol)
		if !ok || !price.IsPositive() {
			continue
		}
		held := b.holdings[symbol]
		qty := minMoney(held, shortfall.Div(price).RoundUp(8))
		proceeds := b.sell(symbol, qty, price)
		shortfall = shortfall.Sub(proceeds)
	}

	// Every position sold: pay out whatever is left rather than fail on rounding.
	if amount.GreaterThan(b.cash) && len(b.holdings) == 0 {
		b.cash = zero
		return nil
	}
	return b.WithdrawCash(amount)
}

func (b *SimulatedBroker) LiquidationValue() Money {
	total := b.cash
	for symbol, qty := range b.holdings {
		if price, ok := b.price(symbol); ok {
			total = total.Add(qty.Mul(price))
		}
	}
	return total
}

func (b *SimulatedBroker) TradesBetween(start, end civil.Date) []Trade {
	var out []Trade
	for _, t := range b.trades {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out
}

func (b *SimulatedBroker) DividendsBetween(start, end civil.Date) []DividendPayment {
	var out []DividendPayment
	for _, d := range b.dividends {
		if d.Date.After(start) && !d.Date.After(end) {
			out = append(out, d)
		}
	}
	return out
}

// Check refreshes prices and credits any dividends paid today on held positions.
func (b *SimulatedBroker) Check() {
	today := b.clock.Now()
	for _, q := range b.source.Quotes(today) {
		b.lastPrice[q.Symbol] = q.Bid
	}
	for _, div := range b.source.Dividends(today) {
		qty, ok := b.holdings[div.Symbol]
		if !ok || !qty.IsPositive() {
			continue
		}
		value := qty.Mul(div.Value)
		b.cash = b.cash.Add(value)
		b.dividends = append(b.dividends, DividendPayment{Symbol: div.Symbol, Date: today, Value: value})
	}
}

func (b *SimulatedBroker) Finish() {}

// Rebalance is a no-op: a bare broker just holds cash.
func (b *SimulatedBroker) Rebalance() {}

func (b *SimulatedBroker) Zero() {
	b.cash = zero
	b.holdings = map[string]Money{}
}

// Buy spends value on symbol at today's price. Quantity is rounded down so
// the cost never exceeds value.
func (b *SimulatedBroker) Buy(symbol string, value Money) bool {
	price, ok := b.price(symbol)
	if !ok || !price.IsPositive() || !value.IsPositive() {
		return false
	}
	value = minMoney(value, b.cash)
	qty := value.Div(price).RoundDown(8)
	if !qty.IsPositive() {
		return false
	}
	cost := qty.Mul(price)
	b.cash = b.cash.Sub(cost)
	b.holdings[symbol] = b.Holding(symbol).Add(qty)
	b.trades = append(b.trades, Trade{Symbol: symbol, Date: b.clock.Now(), Quantity: qty, Value: cost, Type: Buy})
	return true
}

func (b *SimulatedBroker) sell(symbol string, qty, price Money) Money {
	if !qty.IsPositive() {
		return zero
	}
	proceeds := qty.Mul(price)
	remaining := b.Holding(symbol).Sub(qty)
	if remaining.IsPositive() {
		b.holdings[symbol] = remaining
	} else {
		delete(b.holdings, symbol)
	}
	b.cash = b.cash.Add(proceeds)
	b.trades = append(b.trades, Trade{Symbol: symbol, Date: b.clock.Now(), Quantity: qty, Value: proceeds, Type: Sell})
	return proceeds
}

// Sell disposes of qty units of symbol at today's price
func (b *SimulatedBroker) Sell(symbol string, qty Money) bool {
	price, ok := b.price(symbol)
	if !ok {
		return false
	}
	qty = minMoney(qty, b.Holding(symbol))
	return b.sell(symbol, qty, price).IsPositive()
}

func (b *SimulatedBroker) symbols() []string {
	out := make([]string, 0, len(b.holdings))
	for s := range b.holdings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// StaticWeightsStrategy keeps a broker at fixed target weights, rebalancing
// on its schedule.
type StaticWeightsStrategy struct {
	*SimulatedBroker
	weights  map[string]float64
	schedule Schedule
}

func NewStaticWeightsStrategy(clock *Clock, source DataSource, weights map[string]float64, schedule Schedule, logger *zap.Logger) *StaticWeightsStrategy {
	return &StaticWeightsStrategy{
		SimulatedBroker: NewSimulatedBroker(clock, source, logger),
		weights:         weights,
		schedule:        schedule,
	}
}

// Rebalance trades towards the target weights when the schedule triggers.
// Sells run before buys so the buys can use the proceeds.
func (s *StaticWeightsStrategy) Rebalance() {
	if !s.schedule.Check(s.clock.Now()) {
		return
	}
	total := s.LiquidationValue()
	if !total.IsPositive() {
		return
	}

	symbols := make([]string, 0, len(s.weights))
	for sym := range s.weights {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	buys := map[string]Money{}
	for _, sym := range symbols {
		price, ok := s.price(sym)
		if !ok || !price.IsPositive() {
			continue
		}
		target := total.Mul(M(s.weights[sym]))
		current := s.Holding(sym).Mul(price)
		diff := target.Sub(current)
		switch {
		case diff.IsNegative():
			s.Sell(sym, diff.Neg().Div(price).RoundDown(8))
		case diff.IsPositive():
			buys[sym] = diff
		}
	}
	for _, sym := range symbols {
		if v, ok := buys[sym]; ok {
			s.Buy(sym, v)
		}
	}
	s.logger.Debug("rebalanced",
		zap.String("date", s.clock.Now().String()),
		zap.String("value", total.StringFixed(2)),
	)
}
