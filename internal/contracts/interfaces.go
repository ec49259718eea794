package contracts

import (
	"context"

	"github.com/wonny/tradegate/internal/risk"
)

// =============================================================================
// External Collaborator Interfaces
// ⭐ SSOT: 외부 의존성 인터페이스는 여기서만 정의 (의존성 역전)
// =============================================================================

// SnapshotProvider supplies the read-only account state for a workspace.
// The core never calls this directly; the gate fetches and passes the
// snapshot in, fresh per evaluation.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, workspaceID string) (*risk.AccountSnapshot, error)
}

// LimitsProvider supplies the risk configuration for a workspace
type LimitsProvider interface {
	GetLimits(ctx context.Context, workspaceID string) (*risk.RiskLimits, error)
}

// DecisionRecorder appends one decision event to the audit trail.
// Append-only; at-least-once delivery is not guaranteed.
type DecisionRecorder interface {
	Append(ctx context.Context, event *DecisionEvent) error
}

// DecisionSink receives emitted decision events (audit store, websocket
// feed, webhooks). Sinks must not block the decision path.
type DecisionSink interface {
	Name() string
	Write(ctx context.Context, event *DecisionEvent) error
}
