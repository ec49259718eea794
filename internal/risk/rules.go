package risk

import (
	"fmt"
	"math"
)

// =============================================================================
// Rule Catalog
// =============================================================================

// OutcomeKind is the result class of a single rule check
type OutcomeKind int

const (
	OutcomePass OutcomeKind = iota
	OutcomeWarn
	OutcomeViolate
)

// RuleOutcome is the result of evaluating one rule against a context
type RuleOutcome struct {
	Kind      OutcomeKind
	Violation *Violation
	Warning   *Warning
}

func pass() RuleOutcome {
	return RuleOutcome{Kind: OutcomePass}
}

func warn(rule RuleID, sev Severity, format string, args ...interface{}) RuleOutcome {
	return RuleOutcome{
		Kind:    OutcomeWarn,
		Warning: &Warning{RuleID: rule, Severity: sev, Message: fmt.Sprintf(format, args...)},
	}
}

func violate(rule RuleID, sev Severity, format string, args ...interface{}) RuleOutcome {
	return RuleOutcome{
		Kind:      OutcomeViolate,
		Violation: &Violation{RuleID: rule, Severity: sev, Message: fmt.Sprintf(format, args...)},
	}
}

// Rule is a pure check over an evaluation context
type Rule struct {
	ID RuleID

	// HardStop rules short-circuit the catalog on violation. These are
	// non-negotiable exclusions, not risk trade-offs.
	HardStop bool

	Check func(*EvaluationContext) RuleOutcome
}

// Catalog returns the fixed, priority-ordered rule set.
// Evaluation continues past non-hard-stop violations so the caller sees the
// full violation list.
// ⭐ SSOT: 리스크 규칙은 이 카탈로그에만 존재 (UI/실행 경로 공용)
func Catalog() []Rule {
	return []Rule{
		{ID: RuleBlacklist, HardStop: true, Check: checkBlacklist},
		{ID: RuleSymbolFormat, HardStop: true, Check: checkSymbolFormat},
		{ID: RuleMinOrderPrice, HardStop: true, Check: checkMinOrderPrice},
		{ID: RuleDailyLossLimit, Check: checkDailyLossLimit},
		{ID: RuleMinOrderValue, Check: checkMinOrderValue},
		{ID: RuleBuyingPower, Check: checkBuyingPower},
		{ID: RulePositionSize, Check: checkPositionSize},
		{ID: RuleConcurrentLimit, Check: checkConcurrentPositions},
		{ID: RulePatternDayTrader, Check: checkPatternDayTrader},
		{ID: RuleRiskPerTrade, Check: checkRiskPerTrade},
	}
}

// RunCatalog evaluates every rule in priority order, short-circuiting only
// when a hard-stop rule violates. No rule mutates the context.
func RunCatalog(ctx *EvaluationContext) []RuleOutcome {
	outcomes := make([]RuleOutcome, 0, 10)

	for _, rule := range Catalog() {
		outcome := rule.Check(ctx)
		outcomes = append(outcomes, outcome)

		if rule.HardStop && outcome.Kind == OutcomeViolate {
			return outcomes
		}
	}

	return outcomes
}

// =============================================================================
// Individual Rules
// =============================================================================

// checkBlacklist denies any order on a blacklisted symbol. Hard-stop;
// dominates every other rule regardless of configured severity.
func checkBlacklist(ctx *EvaluationContext) RuleOutcome {
	if ctx.Blacklisted() {
		return violate(RuleBlacklist, SeverityHigh,
			"symbol %s is blacklisted for this workspace", ctx.Order.Symbol)
	}
	return pass()
}

// checkSymbolFormat re-validates the ticker format. BuildContext already
// rejects malformed symbols; this guards direct catalog users.
func checkSymbolFormat(ctx *EvaluationContext) RuleOutcome {
	if !symbolPattern.MatchString(ctx.Order.Symbol) {
		return violate(RuleSymbolFormat, SeverityHigh,
			"symbol %q does not match ^[A-Z]{1,5}$", ctx.Order.Symbol)
	}
	return pass()
}

// checkMinOrderPrice excludes sub-minimum (penny stock) prices. Hard-stop.
func checkMinOrderPrice(ctx *EvaluationContext) RuleOutcome {
	if ctx.Limits.MinOrderPrice > 0 && ctx.EffectivePrice < ctx.Limits.MinOrderPrice {
		return violate(RuleMinOrderPrice, SeverityHigh,
			"price %.2f below minimum order price %.2f", ctx.EffectivePrice, ctx.Limits.MinOrderPrice)
	}
	return pass()
}

// checkDailyLossLimit denies every order once the session loss limit is
// breached, independent of the order itself.
func checkDailyLossLimit(ctx *EvaluationContext) RuleOutcome {
	if ctx.Account.DailyPnL <= -ctx.Limits.MaxDailyLossAbsolute {
		return violate(RuleDailyLossLimit, SeverityHigh,
			"daily P&L %.2f breaches loss limit %.2f", ctx.Account.DailyPnL, -ctx.Limits.MaxDailyLossAbsolute)
	}
	return pass()
}

// checkMinOrderValue rejects orders below the minimum notional
func checkMinOrderValue(ctx *EvaluationContext) RuleOutcome {
	if ctx.Limits.MinOrderValue > 0 && ctx.Notional < ctx.Limits.MinOrderValue {
		return violate(RuleMinOrderValue, SeverityMedium,
			"order value %.2f below minimum %.2f", ctx.Notional, ctx.Limits.MinOrderValue)
	}
	return pass()
}

// checkBuyingPower rejects buys whose notional exceeds available cash
func checkBuyingPower(ctx *EvaluationContext) RuleOutcome {
	if ctx.Order.Side != SideBuy {
		return pass()
	}
	if ctx.Notional > ctx.Account.AvailableCash {
		return violate(RuleBuyingPower, SeverityHigh,
			"order value %.2f exceeds available cash %.2f", ctx.Notional, ctx.Account.AvailableCash)
	}
	return pass()
}

// checkPositionSize limits a single order to a percentage of equity.
// Warns when within 80% of the limit.
func checkPositionSize(ctx *EvaluationContext) RuleOutcome {
	if ctx.Account.Equity <= 0 {
		return violate(RulePositionSize, SeverityHigh, "account equity is zero")
	}

	sizePct := ctx.Notional / ctx.Account.Equity * 100
	limit := ctx.Limits.MaxPositionSizePct

	if sizePct > limit {
		return violate(RulePositionSize, SeverityMedium,
			"position size %.1f%% of equity exceeds limit %.1f%%", sizePct, limit)
	}
	if sizePct > 0.8*limit {
		return warn(RulePositionSize, SeverityLow,
			"position size %.1f%% of equity approaching limit %.1f%%", sizePct, limit)
	}
	return pass()
}

// checkConcurrentPositions limits the number of simultaneously open
// positions. Adding to an already-held symbol does not count.
func checkConcurrentPositions(ctx *EvaluationContext) RuleOutcome {
	if ctx.Order.Side != SideBuy {
		return pass()
	}
	if ctx.HeldPosition() != nil {
		return pass()
	}
	if len(ctx.Account.OpenPositions) >= ctx.Limits.MaxConcurrentPositions {
		return violate(RuleConcurrentLimit, SeverityMedium,
			"open positions %d at limit %d", len(ctx.Account.OpenPositions), ctx.Limits.MaxConcurrentPositions)
	}
	return pass()
}

// checkPatternDayTrader enforces the FINRA PDT rule: under the equity
// threshold, at the day-trade limit, a sell that would close a position
// opened this session is denied. Session attribution is caller-supplied.
func checkPatternDayTrader(ctx *EvaluationContext) RuleOutcome {
	if ctx.Account.Equity >= ctx.Limits.PDTEquityThreshold {
		return pass()
	}
	if ctx.TodayTradeCount < ctx.Limits.PDTDayTradeLimit {
		return pass()
	}
	if ctx.Order.Side != SideSell {
		return pass()
	}

	held := ctx.HeldPosition()
	if held == nil || !held.OpenedThisSession {
		return pass()
	}

	return violate(RulePatternDayTrader, SeverityHigh,
		"day trade count %d at limit %d with equity %.2f below %.2f threshold",
		ctx.TodayTradeCount, ctx.Limits.PDTDayTradeLimit,
		ctx.Account.Equity, ctx.Limits.PDTEquityThreshold)
}

// checkRiskPerTrade bounds the loss if the stop is hit. Without a stop loss
// the rule does not fire. Low severity: the engine prefers suggesting a size
// reduction over denying outright.
func checkRiskPerTrade(ctx *EvaluationContext) RuleOutcome {
	if ctx.Order.StopLoss <= 0 {
		return pass()
	}
	if ctx.Account.Equity <= 0 {
		return pass() // position-size rule already violates on zero equity
	}

	riskPerShare := math.Abs(ctx.EffectivePrice - ctx.Order.StopLoss)
	riskPct := riskPerShare * float64(ctx.Order.Quantity) / ctx.Account.Equity * 100

	if riskPct > ctx.Limits.MaxRiskPerTradePct {
		return violate(RuleRiskPerTrade, SeverityLow,
			"per-trade risk %.2f%% exceeds limit %.2f%%", riskPct, ctx.Limits.MaxRiskPerTradePct)
	}
	return pass()
}

// RiskPerShare returns the per-share loss at the stop price
func (c *EvaluationContext) RiskPerShare() float64 {
	if c.Order.StopLoss <= 0 {
		return 0
	}
	return math.Abs(c.EffectivePrice - c.Order.StopLoss)
}
