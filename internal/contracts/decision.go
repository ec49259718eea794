package contracts

import (
	"time"

	"github.com/wonny/tradegate/internal/risk"
)

// GateMode controls how the gate acts on a blocking verdict
type GateMode string

const (
	GateModeShadow  GateMode = "shadow"  // log/record only, never block
	GateModeEnforce GateMode = "enforce" // deny blocked orders
	GateModeOff     GateMode = "off"     // pass everything through
)

// Valid reports whether the mode is one of the known values
func (m GateMode) Valid() bool {
	switch m {
	case GateModeShadow, GateModeEnforce, GateModeOff:
		return true
	}
	return false
}

// DecisionEvent is the append-only audit payload for one evaluation.
// It captures the verdict plus enough context to replay the decision.
type DecisionEvent struct {
	ID          string    `json:"id"` // ULID, time-sortable
	WorkspaceID string    `json:"workspace_id"`
	Mode        GateMode  `json:"mode"`
	WouldBlock  bool      `json:"would_block"` // true in shadow mode when enforce would deny
	CreatedAt   time.Time `json:"created_at"`

	Order   risk.OrderRequest   `json:"order"`
	Account risk.AccountSnapshot `json:"account"`
	Verdict risk.Verdict        `json:"verdict"`
}
