package gate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/limits"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/logger"
)

type fakeSnapshots struct {
	snapshot *risk.AccountSnapshot
	err      error
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, _ string) (*risk.AccountSnapshot, error) {
	return f.snapshot, f.err
}

type fakeLimits struct {
	limits *risk.RiskLimits
	err    error
}

func (f *fakeLimits) GetLimits(_ context.Context, _ string) (*risk.RiskLimits, error) {
	return f.limits, f.err
}

type captureEmitter struct {
	mu     sync.Mutex
	events []*contracts.DecisionEvent
}

func (c *captureEmitter) Emit(event *contracts.DecisionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEmitter) last() *contracts.DecisionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func healthyProviders() (*fakeSnapshots, *fakeLimits) {
	l := risk.DefaultRiskLimits()
	l.MaxPositionSizePct = 50
	l.MaxRiskPerTradePct = 100
	return &fakeSnapshots{snapshot: &risk.AccountSnapshot{
			Equity:        100_000,
			AvailableCash: 50_000,
		}},
		&fakeLimits{limits: &l}
}

func cleanOrder() risk.OrderRequest {
	return risk.OrderRequest{
		Symbol:    "AAPL",
		Side:      risk.SideBuy,
		Quantity:  10,
		OrderType: risk.OrderLimit,
		Price:     150,
	}
}

func TestGate_EnforceAllowsCleanOrder(t *testing.T) {
	snaps, lims := healthyProviders()
	emitter := &captureEmitter{}
	g := New(contracts.GateModeEnforce, snaps, lims, emitter, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.False(t, result.WouldBlock)
	assert.NotEmpty(t, result.DecisionID)

	event := emitter.last()
	require.NotNil(t, event, "decision must be emitted")
	assert.Equal(t, result.DecisionID, event.ID)
	assert.Equal(t, "ws-1", event.WorkspaceID)
	assert.Equal(t, contracts.GateModeEnforce, event.Mode)
}

func TestGate_EnforceDeniesBlockedOrder(t *testing.T) {
	snaps, lims := healthyProviders()
	lims.limits.BlacklistedSymbols = []string{"AAPL"}
	g := New(contracts.GateModeEnforce, snaps, lims, &captureEmitter{}, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.WouldBlock)
	assert.True(t, result.Verdict.HasViolation(risk.RuleBlacklist))
}

func TestGate_ShadowRecordsButNeverBlocks(t *testing.T) {
	snaps, lims := healthyProviders()
	lims.limits.BlacklistedSymbols = []string{"AAPL"}
	emitter := &captureEmitter{}
	g := New(contracts.GateModeShadow, snaps, lims, emitter, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.True(t, result.Allowed, "shadow mode lets the order through")
	assert.True(t, result.WouldBlock, "but records the enforce outcome")
	assert.False(t, result.Verdict.Allowed, "verdict itself is unchanged")

	event := emitter.last()
	require.NotNil(t, event)
	assert.True(t, event.WouldBlock)
}

func TestGate_OffSkipsEvaluation(t *testing.T) {
	// Providers that would fail hard: off mode must never touch them.
	snaps := &fakeSnapshots{err: errors.New("down")}
	lims := &fakeLimits{err: errors.New("down")}
	g := New(contracts.GateModeOff, snaps, lims, &captureEmitter{}, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Verdict.Violations)
}

func TestGate_MissingLimitsFailsClosed(t *testing.T) {
	snaps, _ := healthyProviders()
	lims := &fakeLimits{err: limits.ErrNotFound}
	g := New(contracts.GateModeEnforce, snaps, lims, &captureEmitter{}, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-unknown", cleanOrder())

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.Verdict.HasViolation(risk.RuleConfigMissing))
	assert.Equal(t, risk.LevelCritical, result.Verdict.RiskLevel)
}

func TestGate_LimitsProviderOutageFailsClosed(t *testing.T) {
	snaps, _ := healthyProviders()
	lims := &fakeLimits{err: errors.New("connection refused")}
	g := New(contracts.GateModeEnforce, snaps, lims, &captureEmitter{}, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.Verdict.HasViolation(risk.RuleSystemError))
}

func TestGate_SnapshotProviderOutageFailsClosed(t *testing.T) {
	_, lims := healthyProviders()
	snaps := &fakeSnapshots{err: errors.New("timeout")}
	emitter := &captureEmitter{}
	g := New(contracts.GateModeEnforce, snaps, lims, emitter, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.Verdict.HasViolation(risk.RuleSystemError))
	assert.NotNil(t, emitter.last(), "fail-closed denial is still recorded")
}

func TestGate_IncompleteLimitsFailsClosed(t *testing.T) {
	snaps, _ := healthyProviders()
	lims := &fakeLimits{limits: &risk.RiskLimits{MaxDailyLossAbsolute: 500}}
	g := New(contracts.GateModeEnforce, snaps, lims, &captureEmitter{}, logger.NewNop())

	result, err := g.Evaluate(context.Background(), "ws-1", cleanOrder())

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.Verdict.HasViolation(risk.RuleConfigMissing))
}

func TestGate_InvalidInputReturnsError(t *testing.T) {
	snaps, lims := healthyProviders()
	g := New(contracts.GateModeEnforce, snaps, lims, &captureEmitter{}, logger.NewNop())

	order := cleanOrder()
	order.Quantity = 0

	result, err := g.Evaluate(context.Background(), "ws-1", order)

	assert.Nil(t, result)
	var invalidErr *risk.InvalidInputError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "quantity", invalidErr.Field)
}
