package risk

import (
	"errors"
	"testing"
)

func validLimits() RiskLimits {
	return RiskLimits{
		MaxDailyLossAbsolute:   500,
		MaxPositionSizePct:     10,
		MaxRiskPerTradePct:     1,
		MaxConcurrentPositions: 5,
		MinOrderPrice:          1,
		MinOrderValue:          100,
		PDTEquityThreshold:     25000,
		PDTDayTradeLimit:       3,
	}
}

func validAccount() AccountSnapshot {
	return AccountSnapshot{
		Equity:        100000,
		AvailableCash: 50000,
	}
}

func TestBuildContext_DerivedValues(t *testing.T) {
	tests := []struct {
		name          string
		order         OrderRequest
		wantEffective float64
		wantNotional  float64
	}{
		{
			name:          "limit order uses limit price",
			order:         OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 10, OrderType: OrderLimit, Price: 150},
			wantEffective: 150,
			wantNotional:  1500,
		},
		{
			name:          "market order uses reference price",
			order:         OrderRequest{Symbol: "MSFT", Side: SideBuy, Quantity: 5, OrderType: OrderMarket, ReferencePrice: 300},
			wantEffective: 300,
			wantNotional:  1500,
		},
		{
			name:          "stop order uses stop trigger price",
			order:         OrderRequest{Symbol: "TSLA", Side: SideSell, Quantity: 2, OrderType: OrderStop, Price: 200},
			wantEffective: 200,
			wantNotional:  400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := BuildContext(tt.order, validAccount(), validLimits(), 0)
			if err != nil {
				t.Fatalf("BuildContext() error = %v", err)
			}
			if ctx.EffectivePrice != tt.wantEffective {
				t.Errorf("EffectivePrice = %v, want %v", ctx.EffectivePrice, tt.wantEffective)
			}
			if ctx.Notional != tt.wantNotional {
				t.Errorf("Notional = %v, want %v", ctx.Notional, tt.wantNotional)
			}
		})
	}
}

func TestBuildContext_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		order OrderRequest
	}{
		{
			name:  "zero quantity",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 0, OrderType: OrderLimit, Price: 100},
		},
		{
			name:  "negative quantity",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: -5, OrderType: OrderLimit, Price: 100},
		},
		{
			name:  "limit order without price",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 10, OrderType: OrderLimit},
		},
		{
			name:  "stop order with negative price",
			order: OrderRequest{Symbol: "AAPL", Side: SideSell, Quantity: 10, OrderType: OrderStop, Price: -1},
		},
		{
			name:  "market order without reference price",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 10, OrderType: OrderMarket},
		},
		{
			name:  "lowercase symbol",
			order: OrderRequest{Symbol: "aapl", Side: SideBuy, Quantity: 10, OrderType: OrderLimit, Price: 100},
		},
		{
			name:  "symbol too long",
			order: OrderRequest{Symbol: "TOOLONG", Side: SideBuy, Quantity: 10, OrderType: OrderLimit, Price: 100},
		},
		{
			name:  "empty symbol",
			order: OrderRequest{Symbol: "", Side: SideBuy, Quantity: 10, OrderType: OrderLimit, Price: 100},
		},
		{
			name:  "unknown order type",
			order: OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 10, OrderType: "iceberg", Price: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildContext(tt.order, validAccount(), validLimits(), 0)
			if err == nil {
				t.Fatal("BuildContext() expected error, got nil")
			}
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Errorf("error = %T, want *InvalidInputError", err)
			}
		})
	}
}

func TestBuildContext_HeldPosition(t *testing.T) {
	account := validAccount()
	account.OpenPositions = []Position{
		{Symbol: "AAPL", Quantity: 10, AvgCost: 140},
		{Symbol: "MSFT", Quantity: 5, AvgCost: 290, OpenedThisSession: true},
	}

	order := OrderRequest{Symbol: "MSFT", Side: SideSell, Quantity: 5, OrderType: OrderLimit, Price: 300}
	ctx, err := BuildContext(order, account, validLimits(), 0)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	held := ctx.HeldPosition()
	if held == nil {
		t.Fatal("HeldPosition() = nil, want MSFT position")
	}
	if !held.OpenedThisSession {
		t.Error("HeldPosition().OpenedThisSession = false, want true")
	}
}

func TestBuildContext_PDTDefaults(t *testing.T) {
	limits := validLimits()
	limits.PDTEquityThreshold = 0
	limits.PDTDayTradeLimit = 0

	order := OrderRequest{Symbol: "AAPL", Side: SideBuy, Quantity: 10, OrderType: OrderLimit, Price: 100}
	ctx, err := BuildContext(order, validAccount(), limits, 0)
	if err != nil {
		t.Fatalf("BuildContext() error = %v", err)
	}

	if ctx.Limits.PDTEquityThreshold != DefaultPDTEquityThreshold {
		t.Errorf("PDTEquityThreshold = %v, want %v", ctx.Limits.PDTEquityThreshold, DefaultPDTEquityThreshold)
	}
	if ctx.Limits.PDTDayTradeLimit != DefaultPDTDayTradeLimit {
		t.Errorf("PDTDayTradeLimit = %v, want %v", ctx.Limits.PDTDayTradeLimit, DefaultPDTDayTradeLimit)
	}
}
