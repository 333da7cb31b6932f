package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(symbol string, price float64) Quote {
	return Quote{Symbol: symbol, Date: date(2025, 1, 2), Bid: M(price), Ask: M(price)}
}

// newTestBroker returns a broker whose clock sits on 2 January 2025
func newTestBroker(quotes ...Quote) (*SimulatedBroker, *HashMapSource) {
	clock := NewClock(date(2025, 1, 2), 1)
	clock.Tick()
	source := NewHashMapSource()
	for _, q := range quotes {
		source.AddQuote(q)
	}
	return NewSimulatedBroker(clock, source, nil), source
}

func TestBroker_BuyAndValue(t *testing.T) {
	b, _ := newTestBroker(quote("ABC", 10))
	require.NoError(t, b.DepositCash(M(1_000)))

	assert.True(t, b.Buy("ABC", M(500)))
	assertMoney(t, 50, b.Holding("ABC"))
	assertMoney(t, 500, b.Cash())
	assertMoney(t, 1_000, b.LiquidationValue())

	assert.False(t, b.Buy("NOPE", M(100)), "no quote")
	trades := b.TradesBetween(date(2025, 1, 1), date(2025, 1, 31))
	require.Len(t, trades, 1)
	assert.Equal(t, Buy, trades[0].Type)
}

func TestBroker_WithdrawCash(t *testing.T) {
	b, _ := newTestBroker()
	require.NoError(t, b.DepositCash(M(100)))

	require.NoError(t, b.WithdrawCash(M(60)))
	assertMoney(t, 40, b.Cash())

	err := b.WithdrawCash(M(60))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assertMoney(t, 40, b.Cash(), "failed withdraw leaves cash alone")
}

func TestBroker_WithdrawWithLiquidationSellsHoldings(t *testing.T) {
	b, _ := newTestBroker(quote("ABC", 10))
	require.NoError(t, b.DepositCash(M(1_000)))
	require.True(t, b.Buy("ABC", M(500)))

	require.NoError(t, b.WithdrawCashWithLiquidation(M(800)))
	assertMoney(t, 0, b.Cash())
	assertMoney(t, 20, b.Holding("ABC"))
	assertMoney(t, 200, b.LiquidationValue())

	trades := b.TradesBetween(date(2025, 1, 1), date(2025, 1, 31))
	require.Len(t, trades, 2)
	assert.Equal(t, Sell, trades[1].Type)
	assertMoney(t, 30, trades[1].Quantity)

	assert.ErrorIs(t, b.WithdrawCashWithLiquidation(M(1_000)), ErrInsufficientFunds)
}

func TestBroker_DividendsPaidOnHoldings(t *testing.T) {
	b, source := newTestBroker(quote("ABC", 10))
	source.AddDividend(Dividend{Symbol: "ABC", Date: date(2025, 1, 2), Value: M(0.5)})
	source.AddDividend(Dividend{Symbol: "XYZ", Date: date(2025, 1, 2), Value: M(3)})
	require.NoError(t, b.DepositCash(M(200)))
	require.True(t, b.Buy("ABC", M(200)))

	b.Check()
	assertMoney(t, 10, b.Cash(), "20 units × 0.5, nothing for a symbol not held")

	payments := b.DividendsBetween(date(2025, 1, 1), date(2025, 1, 2))
	require.Len(t, payments, 1)
	assertMoney(t, 10, payments[0].Value)
	assert.Empty(t, b.DividendsBetween(date(2025, 1, 2), date(2025, 1, 3)), "start is exclusive")
}

func TestBroker_Zero(t *testing.T) {
	b, _ := newTestBroker(quote("ABC", 10))
	require.NoError(t, b.DepositCash(M(1_000)))
	require.True(t, b.Buy("ABC", M(500)))

	b.Zero()
	assert.True(t, b.LiquidationValue().IsZero())
}

func TestStaticWeightsStrategy_Rebalance(t *testing.T) {
	clock := NewClock(date(2025, 1, 2), 1)
	clock.Tick()
	source := NewHashMapSource().AddQuote(quote("ABC", 10)).AddQuote(quote("XYZ", 20))
	s := NewStaticWeightsStrategy(clock, source, map[string]float64{"ABC": 0.25, "XYZ": 0.75}, Daily(), nil)
	require.NoError(t, s.DepositCash(M(1_000)))

	s.Rebalance()
	assertMoney(t, 25, s.Holding("ABC"))
	assertMoney(t, 37.5, s.Holding("XYZ"))
	assertMoney(t, 0, s.Cash())
	assertMoney(t, 1_000, s.LiquidationValue())
}

func TestStaticWeightsStrategy_OffScheduleDoesNothing(t *testing.T) {
	clock := NewClock(date(2025, 1, 2), 1)
	clock.Tick()
	source := NewHashMapSource().AddQuote(quote("ABC", 10))
	s := NewStaticWeightsStrategy(clock, source, map[string]float64{"ABC": 1}, MonthStart(), nil)
	require.NoError(t, s.DepositCash(M(1_000)))

	s.Rebalance()
	assertMoney(t, 1_000, s.Cash())
	assert.True(t, s.Holding("ABC").IsZero())
}
