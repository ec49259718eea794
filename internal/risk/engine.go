package risk

import (
	"fmt"
	"math"
)

// =============================================================================
// Engine - Decision Assembler (순수 계산기)
// =============================================================================

// Engine composes the context builder, rule catalog and scorer into a single
// verdict. Stateless and side-effect free: identical inputs always produce
// identical verdicts, and evaluations may run fully in parallel.
// ⭐ SSOT: 허용/거부 판정은 여기서만 (UI 미리보기와 실행 경로 공용)
type Engine struct{}

// NewEngine creates a new risk engine
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs the full decision pipeline over one proposed order.
//
// Risk failures are never errors: they come back as a denial verdict with
// populated violations. The error return is reserved for malformed input
// (*InvalidInputError) and broken configuration (*ConfigurationError). A
// configuration error is fail-closed: the returned verdict still denies.
func (e *Engine) Evaluate(order OrderRequest, account AccountSnapshot, limits RiskLimits, todayTradeCount int) (*Verdict, error) {
	if missing := limits.missingFields(); len(missing) > 0 {
		return FailClosedVerdict(RuleConfigMissing,
				fmt.Sprintf("risk limits missing required fields: %v", missing)),
			&ConfigurationError{Missing: missing}
	}

	ctx, err := BuildContext(order, account, limits, todayTradeCount)
	if err != nil {
		return nil, err
	}

	return e.evaluateContext(ctx), nil
}

// evaluateContext assembles the verdict for an already-built context
func (e *Engine) evaluateContext(ctx *EvaluationContext) *Verdict {
	outcomes := RunCatalog(ctx)

	violations := make([]Violation, 0)
	warnings := make([]Warning, 0)
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeViolate:
			violations = append(violations, *o.Violation)
		case OutcomeWarn:
			warnings = append(warnings, *o.Warning)
		}
	}

	hard := hasBlockingViolation(violations)
	scored := Score(ctx, hard)

	verdict := &Verdict{
		Allowed:    !hard,
		Violations: violations,
		Warnings:   warnings,
		RiskLevel:  scored.Level,
		RiskScore:  scored.Score,
	}

	verdict.Modifications = e.suggestReduction(ctx, violations)

	return verdict
}

// suggestReduction computes a smaller quantity that brings per-trade risk
// within the limit, and includes it only after verifying the hypothetical
// order clears every hard rule on its own. Returns nil when no valid
// suggestion can be constructed.
func (e *Engine) suggestReduction(ctx *EvaluationContext, violations []Violation) *Modifications {
	var riskViolated bool
	for _, v := range violations {
		if v.RuleID == RuleRiskPerTrade {
			riskViolated = true
			break
		}
	}
	if !riskViolated {
		return nil
	}

	riskPerShare := ctx.RiskPerShare()
	if riskPerShare <= 0 || ctx.Account.Equity <= 0 {
		return nil
	}

	suggested := int64(math.Floor(ctx.Limits.MaxRiskPerTradePct / 100 * ctx.Account.Equity / riskPerShare))
	if suggested < 1 || suggested >= ctx.Order.Quantity {
		return nil
	}

	// Re-validate: the suggested order must independently pass all hard rules.
	reduced := ctx.Order
	reduced.Quantity = suggested

	reducedCtx, err := BuildContext(reduced, ctx.Account, ctx.Limits, ctx.TodayTradeCount)
	if err != nil {
		return nil
	}
	for _, o := range RunCatalog(reducedCtx) {
		if o.Kind == OutcomeViolate && (o.Violation.Severity.Blocking() || o.Violation.RuleID == RuleRiskPerTrade) {
			return nil
		}
	}

	return &Modifications{
		SuggestedQuantity: suggested,
		Reason: fmt.Sprintf("reduce quantity from %d to %d to keep per-trade risk within %.2f%% of equity",
			ctx.Order.Quantity, suggested, ctx.Limits.MaxRiskPerTradePct),
	}
}

// FailClosedVerdict builds the denial verdict used when evaluation itself is
// impossible (missing configuration, upstream failure). Never allow when the
// engine cannot evaluate.
func FailClosedVerdict(rule RuleID, message string) *Verdict {
	return &Verdict{
		Allowed: false,
		Violations: []Violation{
			{RuleID: rule, Severity: SeverityHigh, Message: message},
		},
		Warnings:  make([]Warning, 0),
		RiskLevel: LevelCritical,
		RiskScore: 100,
	}
}
