package main

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default-scenario.yaml
var defaultScenarioYAML string

// ScheduleConfig describes a Schedule in a scenario file
type ScheduleConfig struct {
	Type  string `yaml:"type" json:"type" validate:"required"`
	Day   int    `yaml:"day,omitempty" json:"day,omitempty" validate:"gte=0,lte=31"`
	Month int    `yaml:"month,omitempty" json:"month,omitempty" validate:"gte=0,lte=12"`
	Date  string `yaml:"date,omitempty" json:"date,omitempty"` // SpecificDate only, YYYY-MM-DD
}

// GrowthConfig describes how a flow's value grows
type GrowthConfig struct {
	Type     string             `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=none inflation static table"`
	Rate     float64            `yaml:"rate,omitempty" json:"rate,omitempty"`   // static only
	Table    map[string]float64 `yaml:"table,omitempty" json:"table,omitempty"` // table only, date -> rate
	Schedule *ScheduleConfig    `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

// FlowConfig is one income or expense
type FlowConfig struct {
	Name     string         `yaml:"name" json:"name" validate:"required"`
	Type     string         `yaml:"type" json:"type" validate:"required"`
	Value    float64        `yaml:"value" json:"value" validate:"gte=0"`
	Pct      float64        `yaml:"pct,omitempty" json:"pct,omitempty" validate:"gte=0,lte=1"` // contribution or income share
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Growth   GrowthConfig   `yaml:"growth,omitempty" json:"growth,omitempty"`
	// StaticGrowth is the rate used by the *StaticGrowth flow types
	StaticGrowth float64 `yaml:"static_growth,omitempty" json:"static_growth,omitempty"`
}

// StackConfig is an investment wrapper or the mortgage
type StackConfig struct {
	Type      string             `yaml:"type" json:"type" validate:"required,oneof=Isa Sipp Gia Mortgage"`
	Weights   map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"` // symbol -> target weight
	Rebalance *ScheduleConfig    `yaml:"rebalance,omitempty" json:"rebalance,omitempty"`

	// Mortgage only
	Principal   float64 `yaml:"principal,omitempty" json:"principal,omitempty" validate:"gte=0"`
	Rate        float64 `yaml:"rate,omitempty" json:"rate,omitempty" validate:"gte=0"`
	TermYears   int     `yaml:"term_years,omitempty" json:"term_years,omitempty" validate:"gte=0"`
	FixYears    int     `yaml:"fix_years,omitempty" json:"fix_years,omitempty" validate:"gte=0"`
	Overpayment float64 `yaml:"overpayment,omitempty" json:"overpayment,omitempty" validate:"gte=0"`
	HouseValue  float64 `yaml:"house_value,omitempty" json:"house_value,omitempty" validate:"gte=0"`
}

// SymbolConfig is a tradeable instrument priced from a stock index preset
type SymbolConfig struct {
	Symbol     string  `yaml:"symbol" json:"symbol" validate:"required"`
	Index      string  `yaml:"index" json:"index" validate:"required"`
	StartPrice float64 `yaml:"start_price,omitempty" json:"start_price,omitempty" validate:"gte=0"`
}

// MarketConfig drives the synthetic data source
type MarketConfig struct {
	Symbols             []SymbolConfig `yaml:"symbols" json:"symbols" validate:"dive"`
	InflationMean       float64        `yaml:"inflation_mean" json:"inflation_mean"` // annual
	InflationVolatility float64        `yaml:"inflation_volatility" json:"inflation_volatility" validate:"gte=0"`
	BaseRate            float64        `yaml:"base_rate" json:"base_rate"` // annual
	HousePriceGrowth    float64        `yaml:"house_price_growth" json:"house_price_growth"`
	Seed                uint64         `yaml:"seed" json:"seed"`
}

// SensitivityConfig is the inflation grid for the sensitivity report
type SensitivityConfig struct {
	InflationMin float64 `yaml:"inflation_min" json:"inflation_min"`
	InflationMax float64 `yaml:"inflation_max" json:"inflation_max"`
	StepSize     float64 `yaml:"step_size" json:"step_size" validate:"gte=0"`
}

// BatchConfig sets the size of a Monte Carlo batch
type BatchConfig struct {
	Runs    int `yaml:"runs" json:"runs" validate:"gte=0"`
	Workers int `yaml:"workers" json:"workers" validate:"gte=0"`
}

// ScenarioConfig holds the complete scenario
type ScenarioConfig struct {
	Name                  string            `yaml:"name" json:"name" validate:"required"`
	StartDate             string            `yaml:"start_date" json:"start_date" validate:"required"`
	Years                 int               `yaml:"years" json:"years" validate:"gte=1,lte=100"`
	StartingCash          float64           `yaml:"starting_cash" json:"starting_cash" validate:"gte=0"`
	EmergencyMinimum      float64           `yaml:"emergency_minimum" json:"emergency_minimum" validate:"gte=0"`
	NICategory            NICategory        `yaml:"ni_category" json:"ni_category"`
	LifetimeContributions float64           `yaml:"lifetime_pension_contributions" json:"lifetime_pension_contributions" validate:"gte=0"`
	Flows                 []FlowConfig      `yaml:"flows" json:"flows" validate:"dive"`
	Stacks                []StackConfig     `yaml:"stacks" json:"stacks" validate:"dive"`
	Market                MarketConfig      `yaml:"market" json:"market"`
	Tax                   TaxConfig         `yaml:"tax" json:"tax"`
	Sensitivity           SensitivityConfig `yaml:"sensitivity" json:"sensitivity"`
	Batch                 BatchConfig       `yaml:"batch" json:"batch"`
}

// newScenarioConfig returns a config whose tax section starts at the
// defaults, so a scenario only needs to list the fields it overrides.
func newScenarioConfig() ScenarioConfig {
	return ScenarioConfig{NICategory: NICategoryA, Tax: DefaultTaxConfig()}
}

// ParseConfig decodes scenario YAML, accepting "5%" style percentages
func ParseConfig(content string) (*ScenarioConfig, error) {
	config := newScenarioConfig()
	if err := yaml.Unmarshal([]byte(preprocessPercentages(content)), &config); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &config, nil
}

// LoadConfig loads and validates a scenario from a YAML file
func LoadConfig(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config, err := ParseConfig(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return config, nil
}

// LoadDefaultConfig loads the scenario compiled into the binary
func LoadDefaultConfig() (*ScenarioConfig, error) {
	config, err := ParseConfig(defaultScenarioYAML)
	if err != nil {
		return nil, err
	}
	return config, config.Validate()
}

// SaveConfig writes the scenario to a YAML file
func SaveConfig(config *ScenarioConfig, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	header := []byte(`# Household simulation scenario
#
# Percentages may be written as 5% or 0.05.
# Dates use YYYY-MM-DD.
# Flow types: Wage, PAYEWage, Rental, SelfEmployment, Savings, Expense,
#   PercentExpense, EmploymentStaticGrowth, EmploymentPAYEStaticGrowth,
#   InflationLinkedExpense
# Schedule types: EveryDay, EveryFriday, EveryMonth, EveryYear,
#   SpecificDate, StartOfMonth, EndOfMonth

`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// preprocessPercentages converts percentage values like "5%" to decimal "0.05"
func preprocessPercentages(content string) string {
	re := regexp.MustCompile(`(:\s*)(-?\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := strconv.ParseFloat(parts[2], 64)
			if err == nil {
				return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
			}
		}
		return match
	})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules tags cannot express
func (c *ScenarioConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := civil.ParseDate(c.StartDate); err != nil {
		return fmt.Errorf("invalid start_date %q: %w", c.StartDate, err)
	}
	for _, f := range c.Flows {
		if _, _, err := parseFlowType(f.Type); err != nil {
			return fmt.Errorf("flow %s: %w", f.Name, err)
		}
		if _, err := f.Schedule.Build(); err != nil {
			return fmt.Errorf("flow %s: %w", f.Name, err)
		}
	}
	for _, kind := range []string{"Isa", "Sipp", "Gia"} {
		if c.stack(kind) == nil {
			return fmt.Errorf("%w: %s", ErrMissingAccount, kind)
		}
	}
	for _, sym := range c.Market.Symbols {
		if GetStockIndexByID(sym.Index) == nil {
			return fmt.Errorf("symbol %s: unknown index %q", sym.Symbol, sym.Index)
		}
	}
	return nil
}

func (c *ScenarioConfig) stack(kind string) *StackConfig {
	for i := range c.Stacks {
		if c.Stacks[i].Type == kind {
			return &c.Stacks[i]
		}
	}
	return nil
}

// Build turns the schedule description into a Schedule
func (sc ScheduleConfig) Build() (Schedule, error) {
	switch strings.ToLower(sc.Type) {
	case "everyday":
		return Daily(), nil
	case "everyfriday":
		return Weekly(), nil
	case "everymonth":
		if sc.Day < 1 || sc.Day > 28 {
			return Schedule{}, fmt.Errorf("EveryMonth day %d must be 1-28", sc.Day)
		}
		return Monthly(sc.Day), nil
	case "everyyear":
		if sc.Day < 1 || sc.Month < 1 {
			return Schedule{}, fmt.Errorf("EveryYear needs day and month")
		}
		return Yearly(sc.Day, time.Month(sc.Month)), nil
	case "specificdate":
		d, err := civil.ParseDate(sc.Date)
		if err != nil {
			return Schedule{}, fmt.Errorf("SpecificDate %q: %w", sc.Date, err)
		}
		return OnDate(d), nil
	case "startofmonth":
		return MonthStart(), nil
	case "endofmonth":
		return MonthEnd(), nil
	default:
		return Schedule{}, fmt.Errorf("%w: %q", ErrUnknownSchedule, sc.Type)
	}
}

// parseFlowType maps a scenario flow type to its kind plus the growth the
// combined legacy names imply.
func parseFlowType(name string) (FlowKind, GrowthKind, error) {
	switch name {
	case "Wage", "Employment":
		return WageFlow, NoGrowth, nil
	case "PAYEWage", "EmploymentPAYE":
		return PAYEWageFlow, NoGrowth, nil
	case "Rental":
		return RentalFlow, NoGrowth, nil
	case "SelfEmployment":
		return SelfEmploymentFlow, NoGrowth, nil
	case "Savings":
		return SavingsFlow, NoGrowth, nil
	case "Expense":
		return ExpenseFlow, NoGrowth, nil
	case "PercentExpense", "PctOfIncomeExpense":
		return PercentExpenseFlow, NoGrowth, nil
	case "EmploymentStaticGrowth":
		return WageFlow, StaticGrowth, nil
	case "EmploymentPAYEStaticGrowth":
		return PAYEWageFlow, StaticGrowth, nil
	case "InflationLinkedExpense":
		return ExpenseFlow, InflationLinked, nil
	default:
		return 0, NoGrowth, fmt.Errorf("%w: %q", ErrUnknownFlowType, name)
	}
}

// Build constructs the flow. Static growth defaults to once a year on
// 6 April; the other policies default to the flow's own schedule.
func (fc FlowConfig) Build() (*Flow, error) {
	kind, implied, err := parseFlowType(fc.Type)
	if err != nil {
		return nil, err
	}
	schedule, err := fc.Schedule.Build()
	if err != nil {
		return nil, err
	}

	growth := NoGrowthPolicy()
	switch {
	case implied == StaticGrowth:
		growth = GrowthPolicy{Kind: StaticGrowth, Rate: fc.StaticGrowth, Schedule: Yearly(6, time.April)}
	case implied == InflationLinked:
		growth = GrowthPolicy{Kind: InflationLinked, Schedule: schedule}
	}
	switch fc.Growth.Type {
	case "inflation":
		growth = GrowthPolicy{Kind: InflationLinked, Schedule: schedule}
	case "static":
		growth = GrowthPolicy{Kind: StaticGrowth, Rate: fc.Growth.Rate, Schedule: Yearly(6, time.April)}
	case "table":
		table := make(SeriesByDate, len(fc.Growth.Table))
		for ds, rate := range fc.Growth.Table {
			d, err := civil.ParseDate(ds)
			if err != nil {
				return nil, fmt.Errorf("growth table date %q: %w", ds, err)
			}
			table[d] = rate
		}
		growth = GrowthPolicy{Kind: FixedTableGrowth, Table: table, Schedule: schedule}
	case "none":
		growth = NoGrowthPolicy()
	}
	if fc.Growth.Schedule != nil && growth.Kind != NoGrowth {
		gs, err := fc.Growth.Schedule.Build()
		if err != nil {
			return nil, fmt.Errorf("growth schedule: %w", err)
		}
		growth.Schedule = gs
	}

	return &Flow{
		Name:     fc.Name,
		Kind:     kind,
		Value:    M(fc.Value),
		Pct:      M(fc.Pct),
		Schedule: schedule,
		Growth:   growth,
	}, nil
}

// BuildOptions controls how a scenario becomes a runnable simulation
type BuildOptions struct {
	Seed   uint64
	RunID  string
	Logger *zap.Logger
	// Prices replaces the synthetic quotes and dividends when set
	Prices *MarketData
	// InflationMean overrides the scenario's mean when non-nil
	InflationMean *float64
}

// Build creates a fresh Simulation. Every call gets its own clock, data
// source and accounts.
func (c *ScenarioConfig) Build(opts BuildOptions) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start, err := civil.ParseDate(c.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	clock := NewClockYears(start, c.Years)

	market := c.Market
	if opts.InflationMean != nil {
		market.InflationMean = *opts.InflationMean
	}
	source, err := BuildMarketSource(clock.Dates(), market, opts.Seed)
	if err != nil {
		return nil, err
	}
	if opts.Prices != nil {
		source.WithQuotes(opts.Prices.Quotes).WithDividends(opts.Prices.Dividends)
	}

	params := SimulationParams{
		Name:                  c.Name,
		RunID:                 opts.RunID,
		Clock:                 clock,
		Source:                source,
		StartingCash:          M(c.StartingCash),
		EmergencyMinimum:      M(c.EmergencyMinimum),
		LifetimeContributions: M(c.LifetimeContributions),
		NI:                    c.NICategory,
		TaxConfig:             c.Tax,
		Logger:                logger,
	}

	stratLogger := logger.Named("broker")
	for _, st := range c.Stacks {
		switch st.Type {
		case "Isa", "Sipp", "Gia":
			strat, err := st.strategy(clock, source, stratLogger.With(zap.String("wrapper", st.Type)))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", st.Type, err)
			}
			switch st.Type {
			case "Isa":
				params.ISA = strat
			case "Sipp":
				params.SIPP = strat
			case "Gia":
				params.GIA = strat
			}
		case "Mortgage":
			params.Mortgage = &MortgageTerms{
				Principal:   M(st.Principal),
				Rate:        st.Rate,
				TermYears:   st.TermYears,
				FixYears:    st.FixYears,
				Overpayment: M(st.Overpayment),
				HouseValue:  M(st.HouseValue),
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStackType, st.Type)
		}
	}
	if params.ISA == nil || params.SIPP == nil || params.GIA == nil {
		return nil, ErrMissingAccount
	}

	for _, fc := range c.Flows {
		f, err := fc.Build()
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", fc.Name, err)
		}
		params.Flows = append(params.Flows, f)
	}

	return NewSimulation(params), nil
}

// strategy picks the broker for a wrapper: static weights when weights are
// configured, otherwise a cash-only broker.
func (st StackConfig) strategy(clock *Clock, source DataSource, logger *zap.Logger) (InvestmentStrategy, error) {
	if len(st.Weights) == 0 {
		return NewSimulatedBroker(clock, source, logger), nil
	}
	schedule := MonthStart()
	if st.Rebalance != nil {
		s, err := st.Rebalance.Build()
		if err != nil {
			return nil, fmt.Errorf("rebalance: %w", err)
		}
		schedule = s
	}
	return NewStaticWeightsStrategy(clock, source, st.Weights, schedule, logger), nil
}
