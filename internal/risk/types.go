package risk

// =============================================================================
// Order Types
// =============================================================================

// OrderSide represents buy or sell
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType represents the order execution style
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
	OrderStop   OrderType = "stop"
)

// OrderRequest is the proposed order under evaluation.
// Immutable once constructed; the engine never mutates it.
type OrderRequest struct {
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Quantity   int64     `json:"quantity"`
	OrderType  OrderType `json:"order_type"`
	Price      float64   `json:"price,omitempty"` // required for limit/stop orders

	// ReferencePrice is the caller-supplied mark price used to value market
	// orders. The engine never fetches prices on its own.
	ReferencePrice float64 `json:"reference_price,omitempty"`

	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`

	// HighVolatility marks ETF / high-beta symbols. Caller-classified; the
	// engine does not infer asset class.
	HighVolatility bool `json:"high_volatility,omitempty"`
}

// IsMarketOrder checks if the order is a market order
func (o *OrderRequest) IsMarketOrder() bool {
	return o.OrderType == OrderMarket
}

// =============================================================================
// Account Types
// =============================================================================

// Position is an open position in the account snapshot
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`

	// OpenedThisSession is caller-supplied; the PDT rule needs to know
	// whether closing this position would complete a same-session round trip.
	OpenedThisSession bool `json:"opened_this_session,omitempty"`
}

// AccountSnapshot is the read-only account state supplied fresh per
// evaluation. The engine never caches it across calls.
type AccountSnapshot struct {
	Equity             float64    `json:"equity"`
	AvailableCash      float64    `json:"available_cash"`
	OpenPositions      []Position `json:"open_positions"`
	DayTradeCountToday int        `json:"day_trade_count_today"`

	// DailyPnL is the signed realized + unrealized P&L for the session.
	DailyPnL float64 `json:"daily_pnl"`
}

// PositionFor returns the open position for a symbol, or nil
func (a *AccountSnapshot) PositionFor(symbol string) *Position {
	for i := range a.OpenPositions {
		if a.OpenPositions[i].Symbol == symbol {
			return &a.OpenPositions[i]
		}
	}
	return nil
}

// =============================================================================
// Risk Limits
// =============================================================================

// Regulatory constants (FINRA pattern day trader rule)
const (
	DefaultPDTEquityThreshold = 25000.0
	DefaultPDTDayTradeLimit   = 3
)

// RiskLimits holds the per-workspace risk configuration.
// Immutable during an evaluation.
type RiskLimits struct {
	MaxDailyLossAbsolute   float64  `json:"max_daily_loss_absolute" yaml:"max_daily_loss_absolute"`
	MaxPositionSizePct     float64  `json:"max_position_size_pct" yaml:"max_position_size_pct"`
	MaxRiskPerTradePct     float64  `json:"max_risk_per_trade_pct" yaml:"max_risk_per_trade_pct"`
	MaxConcurrentPositions int      `json:"max_concurrent_positions" yaml:"max_concurrent_positions"`
	MinOrderPrice          float64  `json:"min_order_price" yaml:"min_order_price"`
	MinOrderValue          float64  `json:"min_order_value" yaml:"min_order_value"`
	BlacklistedSymbols     []string `json:"blacklisted_symbols" yaml:"blacklisted_symbols"`

	// PDT fields default to the regulatory constants when zero.
	PDTEquityThreshold float64 `json:"pdt_equity_threshold" yaml:"pdt_equity_threshold"`
	PDTDayTradeLimit   int     `json:"pdt_day_trade_limit" yaml:"pdt_day_trade_limit"`
}

// DefaultRiskLimits returns a conservative baseline configuration
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxDailyLossAbsolute:   500,
		MaxPositionSizePct:     10,
		MaxRiskPerTradePct:     1,
		MaxConcurrentPositions: 5,
		MinOrderPrice:          1,
		MinOrderValue:          100,
		PDTEquityThreshold:     DefaultPDTEquityThreshold,
		PDTDayTradeLimit:       DefaultPDTDayTradeLimit,
	}
}

// missingFields reports required fields that are absent or non-positive.
// Fail-closed: missing configuration denies, never silently allows.
func (l RiskLimits) missingFields() []string {
	var missing []string
	if l.MaxDailyLossAbsolute <= 0 {
		missing = append(missing, "max_daily_loss_absolute")
	}
	if l.MaxPositionSizePct <= 0 {
		missing = append(missing, "max_position_size_pct")
	}
	if l.MaxRiskPerTradePct <= 0 {
		missing = append(missing, "max_risk_per_trade_pct")
	}
	if l.MaxConcurrentPositions <= 0 {
		missing = append(missing, "max_concurrent_positions")
	}
	return missing
}

// withDefaults fills regulatory defaults for unset PDT fields
func (l RiskLimits) withDefaults() RiskLimits {
	if l.PDTEquityThreshold <= 0 {
		l.PDTEquityThreshold = DefaultPDTEquityThreshold
	}
	if l.PDTDayTradeLimit <= 0 {
		l.PDTDayTradeLimit = DefaultPDTDayTradeLimit
	}
	return l
}

// =============================================================================
// Verdict Types
// =============================================================================

// Severity classifies how strongly a rule failure counts against the order.
// Only medium and high severity violations block.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Blocking reports whether this severity denies the order
func (s Severity) Blocking() bool {
	return s == SeverityMedium || s == SeverityHigh
}

// RiskLevel is the tier derived from the numeric risk score
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// RuleID identifies a rule in the catalog
type RuleID string

const (
	RuleBlacklist        RuleID = "BLACKLIST"
	RuleSymbolFormat     RuleID = "SYMBOL_FORMAT"
	RuleMinOrderPrice    RuleID = "MIN_ORDER_PRICE"
	RuleMinOrderValue    RuleID = "MIN_ORDER_VALUE"
	RuleBuyingPower      RuleID = "BUYING_POWER"
	RulePositionSize     RuleID = "POSITION_SIZE"
	RuleRiskPerTrade     RuleID = "RISK_PER_TRADE"
	RuleDailyLossLimit   RuleID = "DAILY_LOSS_LIMIT"
	RuleConcurrentLimit  RuleID = "MAX_CONCURRENT_POSITIONS"
	RulePatternDayTrader RuleID = "PDT_VIOLATION"

	// Synthetic rule IDs used outside the catalog
	RuleConfigMissing RuleID = "CONFIG_MISSING"
	RuleSystemError   RuleID = "SYSTEM_ERROR"
)

// Violation is a blocking (or, at low severity, advisory) rule failure
type Violation struct {
	RuleID   RuleID   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Warning has the same shape as Violation but never blocks
type Warning struct {
	RuleID   RuleID   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Modifications suggests an order change that would clear all hard rules
type Modifications struct {
	SuggestedQuantity int64  `json:"suggested_quantity"`
	Reason            string `json:"reason"`
}

// Verdict is the structured result of one evaluation.
// Constructed once, immutable, returned to the caller and the audit emitter.
type Verdict struct {
	Allowed       bool           `json:"allowed"`
	Violations    []Violation    `json:"violations"`
	Warnings      []Warning      `json:"warnings"`
	RiskLevel     RiskLevel      `json:"risk_level"`
	RiskScore     int            `json:"risk_score"`
	Modifications *Modifications `json:"modifications,omitempty"`
}

// HasViolation reports whether the verdict carries a violation for rule
func (v *Verdict) HasViolation(rule RuleID) bool {
	for _, vi := range v.Violations {
		if vi.RuleID == rule {
			return true
		}
	}
	return false
}

// hasBlockingViolation reports whether any violation denies the order
func hasBlockingViolation(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity.Blocking() {
			return true
		}
	}
	return false
}
