package gate

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/limits"
	"github.com/wonny/tradegate/internal/metrics"
	"github.com/wonny/tradegate/internal/portfolio"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/id"
	"github.com/wonny/tradegate/pkg/logger"
)

// =============================================================================
// Gate - Pre-Trade Governance Orchestrator
// ⭐ SSOT: 주문 사전 승인은 반드시 이 게이트를 통과해야 함
// =============================================================================

// Gate wires the pure risk engine to the outside world: it fetches account
// state and limits, runs the evaluation, applies the operating mode, and
// emits the decision record. Fail-closed: when state or configuration cannot
// be fetched the order is denied, never waved through.
type Gate struct {
	engine    *risk.Engine
	snapshots contracts.SnapshotProvider
	limits    contracts.LimitsProvider
	emitter   Emitter
	mode      contracts.GateMode
	logger    *logger.Logger
}

// Emitter is the async decision-event publisher the gate hands records to
type Emitter interface {
	Emit(event *contracts.DecisionEvent)
}

// Result is one gate decision: the engine verdict plus the mode-adjusted
// final outcome. In shadow mode Allowed stays true even when the verdict
// denies; WouldBlock preserves what enforce mode would have done.
type Result struct {
	DecisionID string             `json:"decision_id"`
	Mode       contracts.GateMode `json:"mode"`
	Allowed    bool               `json:"allowed"`
	WouldBlock bool               `json:"would_block"`
	Verdict    *risk.Verdict      `json:"verdict"`
}

// New creates a gate in the given operating mode
func New(
	mode contracts.GateMode,
	snapshots contracts.SnapshotProvider,
	limitsProvider contracts.LimitsProvider,
	emitter Emitter,
	log *logger.Logger,
) *Gate {
	return &Gate{
		engine:    risk.NewEngine(),
		snapshots: snapshots,
		limits:    limitsProvider,
		emitter:   emitter,
		mode:      mode,
		logger:    log,
	}
}

// Mode returns the gate's operating mode
func (g *Gate) Mode() contracts.GateMode {
	return g.mode
}

// Evaluate runs one order through the full decision pipeline for a workspace.
//
// The error return is reserved for malformed input (*risk.InvalidInputError);
// everything else - rule violations, missing limits, upstream outages -
// comes back as a (denial) Result with a nil error, so callers only branch
// on bad requests vs. decisions.
func (g *Gate) Evaluate(ctx context.Context, workspaceID string, order risk.OrderRequest) (*Result, error) {
	if g.mode == contracts.GateModeOff {
		g.logger.WithField("workspace_id", workspaceID).Debug("Gate off, passing order through unevaluated")
		return &Result{
			DecisionID: id.New(),
			Mode:       g.mode,
			Allowed:    true,
			Verdict:    passVerdict(),
		}, nil
	}

	started := time.Now()

	wsLimits, err := g.limits.GetLimits(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, limits.ErrNotFound) {
			return g.failClosed(workspaceID, order, nil,
				risk.RuleConfigMissing, "no risk limits configured for workspace"), nil
		}
		metrics.RecordUpstreamFailure("limits")
		upErr := &risk.UpstreamUnavailableError{Upstream: "limits", Err: err}
		g.logger.WithError(upErr).WithField("workspace_id", workspaceID).Error("Limits provider failed, denying order")
		return g.failClosed(workspaceID, order, nil,
			risk.RuleSystemError, "risk limits unavailable"), nil
	}

	snapshot, err := g.snapshots.GetSnapshot(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			return g.failClosed(workspaceID, order, nil,
				risk.RuleSystemError, "no account snapshot for workspace"), nil
		}
		metrics.RecordUpstreamFailure("account")
		upErr := &risk.UpstreamUnavailableError{Upstream: "account", Err: err}
		g.logger.WithError(upErr).WithField("workspace_id", workspaceID).Error("Snapshot provider failed, denying order")
		return g.failClosed(workspaceID, order, nil,
			risk.RuleSystemError, "account snapshot unavailable"), nil
	}

	verdict, err := g.engine.Evaluate(order, *snapshot, *wsLimits, snapshot.DayTradeCountToday)
	if err != nil {
		var confErr *risk.ConfigurationError
		if errors.As(err, &confErr) {
			// 엔진이 이미 fail-closed 판정을 반환함
			g.logger.WithError(err).WithField("workspace_id", workspaceID).Error("Risk limits incomplete, denying order")
			return g.finish(workspaceID, order, snapshot, verdict, started), nil
		}
		// Malformed order: the caller's problem, no decision was made
		return nil, err
	}

	return g.finish(workspaceID, order, snapshot, verdict, started), nil
}

// finish applies the operating mode, records metrics, and emits the decision
func (g *Gate) finish(workspaceID string, order risk.OrderRequest, snapshot *risk.AccountSnapshot, verdict *risk.Verdict, started time.Time) *Result {
	result := &Result{
		DecisionID: id.New(),
		Mode:       g.mode,
		Allowed:    verdict.Allowed,
		WouldBlock: !verdict.Allowed,
		Verdict:    verdict,
	}

	if g.mode == contracts.GateModeShadow && !verdict.Allowed {
		// Shadow: record what enforce would have done, let the order through
		result.Allowed = true
		g.logger.WithFields(map[string]interface{}{
			"workspace_id": workspaceID,
			"symbol":       order.Symbol,
			"risk_level":   string(verdict.RiskLevel),
		}).Warn("Shadow mode: order would be blocked")
	}

	metrics.RecordEvaluation(result.Allowed, string(verdict.RiskLevel), time.Since(started))
	for _, v := range verdict.Violations {
		metrics.RecordViolation(string(v.RuleID), string(v.Severity))
	}

	g.emit(workspaceID, order, snapshot, result)

	return result
}

// failClosed builds and emits a denial for evaluations that never ran
func (g *Gate) failClosed(workspaceID string, order risk.OrderRequest, snapshot *risk.AccountSnapshot, rule risk.RuleID, message string) *Result {
	verdict := risk.FailClosedVerdict(rule, message)

	result := &Result{
		DecisionID: id.New(),
		Mode:       g.mode,
		Allowed:    false,
		WouldBlock: true,
		Verdict:    verdict,
	}
	if g.mode == contracts.GateModeShadow {
		result.Allowed = true
	}

	metrics.RecordEvaluation(result.Allowed, string(verdict.RiskLevel), 0)
	g.emit(workspaceID, order, snapshot, result)

	return result
}

// emit hands the decision record to the async emitter
func (g *Gate) emit(workspaceID string, order risk.OrderRequest, snapshot *risk.AccountSnapshot, result *Result) {
	if g.emitter == nil {
		return
	}

	event := &contracts.DecisionEvent{
		ID:          result.DecisionID,
		WorkspaceID: workspaceID,
		Mode:        g.mode,
		WouldBlock:  result.WouldBlock,
		CreatedAt:   time.Now().UTC(),
		Order:       order,
		Verdict:     *result.Verdict,
	}
	if snapshot != nil {
		event.Account = *snapshot
	}

	g.emitter.Emit(event)
}

// passVerdict is the verdict shape for an unevaluated pass-through (gate off)
func passVerdict() *risk.Verdict {
	return &risk.Verdict{
		Allowed:    true,
		Violations: make([]risk.Violation, 0),
		Warnings:   make([]risk.Warning, 0),
		RiskLevel:  risk.LevelLow,
		RiskScore:  0,
	}
}
