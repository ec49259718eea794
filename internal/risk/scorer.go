package risk

// Fixed point contributions of the risk scorer. Each contributor is
// independent and monotone: increasing its input never lowers the score.
const (
	pointsDrawdown    = 30 // daily P&L beyond half the loss limit
	pointsPositions   = 20 // open positions at 70% of the concurrency limit
	pointsDayTrades   = 15 // two or more day trades today
	pointsLargeOrder  = 25 // notional past 70% of the max position value
	pointsVolatileMkt = 10 // market order on a caller-flagged volatile symbol
)

// Level boundaries for the score → tier mapping
const (
	levelMediumFloor   = 40
	levelHighFloor     = 70
	levelCriticalFloor = 90
)

// ScoreResult is the numeric score and its tier
type ScoreResult struct {
	Score int       `json:"score"`
	Level RiskLevel `json:"level"`
}

// Score aggregates weighted context contributions into a 0-100 score and
// maps it to a tier. hardViolation forces the critical tier regardless of
// the numeric score.
func Score(ctx *EvaluationContext, hardViolation bool) ScoreResult {
	score := 0

	if ctx.Account.DailyPnL < -0.5*ctx.Limits.MaxDailyLossAbsolute {
		score += pointsDrawdown
	}

	if float64(len(ctx.Account.OpenPositions)) >= 0.7*float64(ctx.Limits.MaxConcurrentPositions) {
		score += pointsPositions
	}

	if ctx.TodayTradeCount >= 2 {
		score += pointsDayTrades
	}

	maxPositionValue := ctx.Limits.MaxPositionSizePct / 100 * ctx.Account.Equity
	if ctx.Notional > 0.7*maxPositionValue {
		score += pointsLargeOrder
	}

	if ctx.Order.IsMarketOrder() && ctx.Order.HighVolatility {
		score += pointsVolatileMkt
	}

	if score > 100 {
		score = 100
	}

	level := levelFor(score)
	if hardViolation {
		level = LevelCritical
	}

	return ScoreResult{Score: score, Level: level}
}

// levelFor maps a clamped score to its tier
func levelFor(score int) RiskLevel {
	switch {
	case score >= levelCriticalFloor:
		return LevelCritical
	case score >= levelHighFloor:
		return LevelHigh
	case score >= levelMediumFloor:
		return LevelMedium
	default:
		return LevelLow
	}
}
