package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradegate/internal/risk"
)

// ErrNotFound marks a workspace without an account row
var ErrNotFound = errors.New("account snapshot not found for workspace")

// Repository builds account snapshots from PostgreSQL.
// The account row and open positions are maintained by the portfolio sync
// process; this repository only reads. Day-trade counting and same-session
// attribution are owned by that writer, not inferred here.
// ⭐ SSOT: 계좌 스냅샷 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSnapshot returns the current account snapshot for a workspace
func (r *Repository) GetSnapshot(ctx context.Context, workspaceID string) (*risk.AccountSnapshot, error) {
	query := `
		SELECT equity, available_cash, day_trade_count_today, daily_pnl
		FROM gate.accounts
		WHERE workspace_id = $1
	`

	var snapshot risk.AccountSnapshot
	err := r.pool.QueryRow(ctx, query, workspaceID).Scan(
		&snapshot.Equity, &snapshot.AvailableCash,
		&snapshot.DayTradeCountToday, &snapshot.DailyPnL,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	positions, err := r.getOpenPositions(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	snapshot.OpenPositions = positions

	return &snapshot, nil
}

// getOpenPositions returns open positions ordered by symbol
func (r *Repository) getOpenPositions(ctx context.Context, workspaceID string) ([]risk.Position, error) {
	query := `
		SELECT symbol, quantity, avg_cost, opened_this_session
		FROM gate.positions
		WHERE workspace_id = $1 AND quantity > 0
		ORDER BY symbol
	`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	positions := make([]risk.Position, 0)
	for rows.Next() {
		var p risk.Position
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AvgCost, &p.OpenedThisSession); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}
