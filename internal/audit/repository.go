package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradegate/internal/contracts"
)

// Repository persists decision records to PostgreSQL
// ⭐ SSOT: 의사결정 감사 기록 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Name implements contracts.DecisionSink
func (r *Repository) Name() string {
	return "postgres"
}

// Write implements contracts.DecisionSink by appending the event
func (r *Repository) Write(ctx context.Context, event *contracts.DecisionEvent) error {
	return r.Append(ctx, event)
}

// Append inserts one decision record. Append-only: records are never updated.
func (r *Repository) Append(ctx context.Context, event *contracts.DecisionEvent) error {
	violationsJSON, err := json.Marshal(event.Verdict.Violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violations: %w", err)
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	query := `
		INSERT INTO gate.decision_records (
			id, workspace_id, mode, symbol, side, quantity, allowed, would_block,
			risk_level, risk_score, violations, event, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		event.ID, event.WorkspaceID, event.Mode,
		event.Order.Symbol, event.Order.Side, event.Order.Quantity,
		event.Verdict.Allowed, event.WouldBlock,
		event.Verdict.RiskLevel, event.Verdict.RiskScore,
		violationsJSON, eventJSON, event.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append decision record: %w", err)
	}

	return nil
}

// Record is one row of the decision trail as returned to API consumers
type Record struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Mode        string    `json:"mode"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Quantity    int64     `json:"quantity"`
	Allowed     bool      `json:"allowed"`
	WouldBlock  bool      `json:"would_block"`
	RiskLevel   string    `json:"risk_level"`
	RiskScore   int       `json:"risk_score"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetRecent returns the newest decision records for a workspace
func (r *Repository) GetRecent(ctx context.Context, workspaceID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, workspace_id, mode, symbol, side, quantity, allowed,
		       would_block, risk_level, risk_score, created_at
		FROM gate.decision_records
		WHERE workspace_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.WorkspaceID, &rec.Mode, &rec.Symbol, &rec.Side,
			&rec.Quantity, &rec.Allowed, &rec.WouldBlock,
			&rec.RiskLevel, &rec.RiskScore, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Stats summarizes gate outcomes over a period (shadow-mode reporting)
type Stats struct {
	From       time.Time      `json:"from"`
	To         time.Time      `json:"to"`
	Total      int64          `json:"total"`
	Denied     int64          `json:"denied"`
	WouldBlock int64          `json:"would_block"`
	ByRule     map[string]int `json:"by_rule"`
}

// GetStats aggregates decision outcomes for a workspace and date range
func (r *Repository) GetStats(ctx context.Context, workspaceID string, from, to time.Time) (*Stats, error) {
	stats := &Stats{From: from, To: to, ByRule: make(map[string]int)}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT allowed),
		       COUNT(*) FILTER (WHERE would_block)
		FROM gate.decision_records
		WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3
	`
	err := r.pool.QueryRow(ctx, query, workspaceID, from, to).Scan(
		&stats.Total, &stats.Denied, &stats.WouldBlock,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision stats: %w", err)
	}

	ruleQuery := `
		SELECT v->>'rule_id' AS rule, COUNT(*)
		FROM gate.decision_records, jsonb_array_elements(violations) v
		WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY rule
	`
	rows, err := r.pool.Query(ctx, ruleQuery, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get violation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule string
		var count int
		if err := rows.Scan(&rule, &count); err != nil {
			return nil, fmt.Errorf("failed to scan violation stat: %w", err)
		}
		stats.ByRule[rule] = count
	}

	return stats, rows.Err()
}

// PurgeOlderThan deletes records created before the cutoff, returning the
// number of rows removed
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM gate.decision_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge decision records: %w", err)
	}
	return tag.RowsAffected(), nil
}
