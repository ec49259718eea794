package risk

import (
	"testing"
)

func mustContext(t *testing.T, order OrderRequest, account AccountSnapshot, limits RiskLimits, todayTrades int) *EvaluationContext {
	t.Helper()
	ctx, err := BuildContext(order, account, limits, todayTrades)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}
	return ctx
}

func buyLimit(symbol string, qty int64, price float64) OrderRequest {
	return OrderRequest{Symbol: symbol, Side: SideBuy, Quantity: qty, OrderType: OrderLimit, Price: price}
}

func TestCheckBlacklist(t *testing.T) {
	limits := validLimits()
	limits.BlacklistedSymbols = []string{"GME", "AMC"}

	tests := []struct {
		symbol string
		want   OutcomeKind
	}{
		{"GME", OutcomeViolate},
		{"AMC", OutcomeViolate},
		{"AAPL", OutcomePass},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			ctx := mustContext(t, buyLimit(tt.symbol, 10, 100), validAccount(), limits, 0)
			if got := checkBlacklist(ctx); got.Kind != tt.want {
				t.Errorf("checkBlacklist(%s) = %v, want %v", tt.symbol, got.Kind, tt.want)
			}
		})
	}
}

func TestCheckMinOrderPrice(t *testing.T) {
	limits := validLimits()
	limits.MinOrderPrice = 5

	tests := []struct {
		name  string
		price float64
		want  OutcomeKind
	}{
		{"below minimum", 2.50, OutcomeViolate},
		{"at minimum", 5, OutcomePass},
		{"above minimum", 50, OutcomePass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := mustContext(t, buyLimit("AAPL", 100, tt.price), validAccount(), limits, 0)
			if got := checkMinOrderPrice(ctx); got.Kind != tt.want {
				t.Errorf("checkMinOrderPrice() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestCheckMinOrderValue(t *testing.T) {
	limits := validLimits()
	limits.MinOrderValue = 500

	ctx := mustContext(t, buyLimit("AAPL", 2, 100), validAccount(), limits, 0) // notional 200
	if got := checkMinOrderValue(ctx); got.Kind != OutcomeViolate {
		t.Errorf("checkMinOrderValue() = %v, want violate", got.Kind)
	}

	ctx = mustContext(t, buyLimit("AAPL", 10, 100), validAccount(), limits, 0) // notional 1000
	if got := checkMinOrderValue(ctx); got.Kind != OutcomePass {
		t.Errorf("checkMinOrderValue() = %v, want pass", got.Kind)
	}
}

func TestCheckBuyingPower(t *testing.T) {
	account := validAccount()
	account.AvailableCash = 1000

	tests := []struct {
		name  string
		order OrderRequest
		want  OutcomeKind
	}{
		{
			name:  "buy exceeding cash",
			order: buyLimit("AAPL", 20, 100), // notional 2000
			want:  OutcomeViolate,
		},
		{
			name:  "buy within cash",
			order: buyLimit("AAPL", 5, 100),
			want:  OutcomePass,
		},
		{
			name:  "sell is exempt",
			order: OrderRequest{Symbol: "AAPL", Side: SideSell, Quantity: 20, OrderType: OrderLimit, Price: 100},
			want:  OutcomePass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := mustContext(t, tt.order, account, validLimits(), 0)
			if got := checkBuyingPower(ctx); got.Kind != tt.want {
				t.Errorf("checkBuyingPower() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestCheckPositionSize(t *testing.T) {
	limits := validLimits()
	limits.MaxPositionSizePct = 10 // of 100k equity → 10k limit, 8k warn band

	tests := []struct {
		name string
		qty  int64
		want OutcomeKind
	}{
		{"small order", 10, OutcomePass},        // 1k = 1%
		{"inside warn band", 90, OutcomeWarn},   // 9k = 9% > 8%
		{"over limit", 150, OutcomeViolate},     // 15k = 15%
		{"exactly at limit", 100, OutcomeWarn},  // 10k = 10%, not over but in warn band
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := mustContext(t, buyLimit("AAPL", tt.qty, 100), validAccount(), limits, 0)
			if got := checkPositionSize(ctx); got.Kind != tt.want {
				t.Errorf("checkPositionSize(qty=%d) = %v, want %v", tt.qty, got.Kind, tt.want)
			}
		})
	}
}

func TestCheckDailyLossLimit(t *testing.T) {
	limits := validLimits()
	limits.MaxDailyLossAbsolute = 500

	tests := []struct {
		name string
		pnl  float64
		want OutcomeKind
	}{
		{"profitable day", 200, OutcomePass},
		{"small loss", -100, OutcomePass},
		{"at limit", -500, OutcomeViolate},
		{"beyond limit", -520, OutcomeViolate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := validAccount()
			account.DailyPnL = tt.pnl
			ctx := mustContext(t, buyLimit("AAPL", 1, 100), account, limits, 0)
			if got := checkDailyLossLimit(ctx); got.Kind != tt.want {
				t.Errorf("checkDailyLossLimit(pnl=%v) = %v, want %v", tt.pnl, got.Kind, tt.want)
			}
		})
	}
}

func TestCheckConcurrentPositions(t *testing.T) {
	limits := validLimits()
	limits.MaxConcurrentPositions = 2

	held := []Position{
		{Symbol: "AAPL", Quantity: 10, AvgCost: 100},
		{Symbol: "MSFT", Quantity: 10, AvgCost: 200},
	}

	tests := []struct {
		name  string
		order OrderRequest
		want  OutcomeKind
	}{
		{
			name:  "new symbol at limit",
			order: buyLimit("TSLA", 1, 100),
			want:  OutcomeViolate,
		},
		{
			name:  "adding to held symbol is exempt",
			order: buyLimit("AAPL", 1, 100),
			want:  OutcomePass,
		},
		{
			name:  "sell is exempt",
			order: OrderRequest{Symbol: "TSLA", Side: SideSell, Quantity: 1, OrderType: OrderLimit, Price: 100},
			want:  OutcomePass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := validAccount()
			account.OpenPositions = held
			ctx := mustContext(t, tt.order, account, limits, 0)
			if got := checkConcurrentPositions(ctx); got.Kind != tt.want {
				t.Errorf("checkConcurrentPositions() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestCheckPatternDayTrader(t *testing.T) {
	limits := validLimits() // threshold 25000, limit 3

	sameSession := []Position{{Symbol: "AAPL", Quantity: 10, AvgCost: 100, OpenedThisSession: true}}
	overnight := []Position{{Symbol: "AAPL", Quantity: 10, AvgCost: 100}}
	sell := OrderRequest{Symbol: "AAPL", Side: SideSell, Quantity: 10, OrderType: OrderLimit, Price: 100}

	tests := []struct {
		name       string
		equity     float64
		dayTrades  int
		positions  []Position
		order      OrderRequest
		want       OutcomeKind
	}{
		{
			name:   "under threshold at limit closing same-session",
			equity: 20000, dayTrades: 3, positions: sameSession, order: sell,
			want: OutcomeViolate,
		},
		{
			name:   "equity above threshold is exempt",
			equity: 30000, dayTrades: 5, positions: sameSession, order: sell,
			want: OutcomePass,
		},
		{
			name:   "under day trade limit",
			equity: 20000, dayTrades: 2, positions: sameSession, order: sell,
			want: OutcomePass,
		},
		{
			name:   "overnight position does not count",
			equity: 20000, dayTrades: 3, positions: overnight, order: sell,
			want: OutcomePass,
		},
		{
			name:   "buy never triggers",
			equity: 20000, dayTrades: 3, positions: sameSession, order: buyLimit("AAPL", 10, 100),
			want: OutcomePass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := AccountSnapshot{
				Equity:             tt.equity,
				AvailableCash:      tt.equity,
				OpenPositions:      tt.positions,
				DayTradeCountToday: tt.dayTrades,
			}
			ctx := mustContext(t, tt.order, account, limits, tt.dayTrades)
			if got := checkPatternDayTrader(ctx); got.Kind != tt.want {
				t.Errorf("checkPatternDayTrader() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestCheckRiskPerTrade(t *testing.T) {
	limits := validLimits()
	limits.MaxRiskPerTradePct = 1 // of 100k equity → max 1000 at risk

	tests := []struct {
		name  string
		order OrderRequest
		want  OutcomeKind
	}{
		{
			name:  "no stop loss means no check",
			order: buyLimit("AAPL", 1000, 100),
			want:  OutcomePass,
		},
		{
			name: "risk within limit",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 100, OrderType: OrderLimit,
				Price: 100, StopLoss: 95}, // 500 at risk = 0.5%
			want: OutcomePass,
		},
		{
			name: "risk over limit",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 400, OrderType: OrderLimit,
				Price: 100, StopLoss: 95}, // 2000 at risk = 2%
			want: OutcomeViolate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := mustContext(t, tt.order, validAccount(), limits, 0)
			got := checkRiskPerTrade(ctx)
			if got.Kind != tt.want {
				t.Errorf("checkRiskPerTrade() = %v, want %v", got.Kind, tt.want)
			}
			if got.Kind == OutcomeViolate && got.Violation.Severity.Blocking() {
				t.Error("risk-per-trade violation must be low severity (non-blocking)")
			}
		})
	}
}

func TestRunCatalog_HardStopShortCircuit(t *testing.T) {
	limits := validLimits()
	limits.BlacklistedSymbols = []string{"GME"}

	// Order that would also violate buying power and position size.
	account := validAccount()
	account.AvailableCash = 10

	ctx := mustContext(t, buyLimit("GME", 1000, 100), account, limits, 0)
	outcomes := RunCatalog(ctx)

	if len(outcomes) != 1 {
		t.Fatalf("RunCatalog() returned %d outcomes, want 1 (blacklist short-circuit)", len(outcomes))
	}
	if outcomes[0].Violation == nil || outcomes[0].Violation.RuleID != RuleBlacklist {
		t.Errorf("first outcome = %+v, want BLACKLIST violation", outcomes[0])
	}
}

func TestRunCatalog_CollectsAllSoftViolations(t *testing.T) {
	// Order violating buying power, position size and min order value rules
	// at once: all must be reported, not just the first.
	limits := validLimits()
	limits.MinOrderValue = 1000000

	account := validAccount()
	account.AvailableCash = 10

	ctx := mustContext(t, buyLimit("AAPL", 1000, 100), account, limits, 0)
	outcomes := RunCatalog(ctx)

	var violated []RuleID
	for _, o := range outcomes {
		if o.Kind == OutcomeViolate {
			violated = append(violated, o.Violation.RuleID)
		}
	}

	want := map[RuleID]bool{RuleMinOrderValue: true, RuleBuyingPower: true, RulePositionSize: true}
	for rule := range want {
		found := false
		for _, id := range violated {
			if id == rule {
				found = true
			}
		}
		if !found {
			t.Errorf("expected violation %s missing from %v", rule, violated)
		}
	}
}
