package risk

import (
	"regexp"
)

// symbolPattern is the accepted ticker format: 1-5 uppercase letters
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// EvaluationContext is the single immutable input consumed by every rule.
// It carries the normalized order, account and limits plus derived values
// shared across rules.
// ⭐ SSOT: 파생값(유효가격, 명목가치) 계산은 여기서만
type EvaluationContext struct {
	Order           OrderRequest
	Account         AccountSnapshot
	Limits          RiskLimits
	TodayTradeCount int

	// Derived values
	EffectivePrice float64 // order price, or reference price for market orders
	Notional       float64 // quantity × effective price

	blacklist map[string]struct{}
	held      *Position // existing open position in the order's symbol, if any
}

// BuildContext normalizes heterogeneous inputs into one evaluation context.
// No side effects; fails with *InvalidInputError on malformed orders.
func BuildContext(order OrderRequest, account AccountSnapshot, limits RiskLimits, todayTradeCount int) (*EvaluationContext, error) {
	if order.Quantity <= 0 {
		return nil, &InvalidInputError{Field: "quantity", Reason: "must be positive"}
	}

	if !symbolPattern.MatchString(order.Symbol) {
		return nil, &InvalidInputError{Field: "symbol", Reason: "must match ^[A-Z]{1,5}$"}
	}

	switch order.OrderType {
	case OrderLimit, OrderStop:
		if order.Price <= 0 {
			return nil, &InvalidInputError{Field: "price", Reason: "required for limit/stop orders"}
		}
	case OrderMarket:
		if order.Price <= 0 && order.ReferencePrice <= 0 {
			return nil, &InvalidInputError{Field: "reference_price", Reason: "required to value a market order"}
		}
	default:
		return nil, &InvalidInputError{Field: "order_type", Reason: "must be market, limit or stop"}
	}

	limits = limits.withDefaults()

	ctx := &EvaluationContext{
		Order:           order,
		Account:         account,
		Limits:          limits,
		TodayTradeCount: todayTradeCount,
		blacklist:       make(map[string]struct{}, len(limits.BlacklistedSymbols)),
		held:            account.PositionFor(order.Symbol),
	}

	ctx.EffectivePrice = order.Price
	if ctx.EffectivePrice <= 0 {
		ctx.EffectivePrice = order.ReferencePrice
	}
	ctx.Notional = float64(order.Quantity) * ctx.EffectivePrice

	for _, s := range limits.BlacklistedSymbols {
		ctx.blacklist[s] = struct{}{}
	}

	return ctx, nil
}

// Blacklisted reports whether the order's symbol is on the workspace blacklist
func (c *EvaluationContext) Blacklisted() bool {
	_, ok := c.blacklist[c.Order.Symbol]
	return ok
}

// HeldPosition returns the existing open position for the order's symbol, or nil
func (c *EvaluationContext) HeldPosition() *Position {
	return c.held
}
