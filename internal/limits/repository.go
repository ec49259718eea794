package limits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradegate/internal/risk"
)

// ErrNotFound marks a workspace without configured limits.
// The gate treats this as missing configuration and fails closed.
var ErrNotFound = errors.New("risk limits not found for workspace")

// Repository loads per-workspace risk limits from PostgreSQL
// ⭐ SSOT: 리스크 한도 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new limits repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLimits retrieves the risk limits for a workspace
func (r *Repository) GetLimits(ctx context.Context, workspaceID string) (*risk.RiskLimits, error) {
	query := `
		SELECT max_daily_loss_absolute, max_position_size_pct, max_risk_per_trade_pct,
		       max_concurrent_positions, min_order_price, min_order_value,
		       blacklisted_symbols, pdt_equity_threshold, pdt_day_trade_limit
		FROM gate.risk_limits
		WHERE workspace_id = $1
	`

	var limits risk.RiskLimits
	var blacklistJSON []byte

	err := r.pool.QueryRow(ctx, query, workspaceID).Scan(
		&limits.MaxDailyLossAbsolute, &limits.MaxPositionSizePct, &limits.MaxRiskPerTradePct,
		&limits.MaxConcurrentPositions, &limits.MinOrderPrice, &limits.MinOrderValue,
		&blacklistJSON, &limits.PDTEquityThreshold, &limits.PDTDayTradeLimit,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk limits: %w", err)
	}

	if len(blacklistJSON) > 0 {
		if err := json.Unmarshal(blacklistJSON, &limits.BlacklistedSymbols); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blacklist: %w", err)
		}
	}

	return &limits, nil
}

// SaveLimits upserts the risk limits for a workspace
func (r *Repository) SaveLimits(ctx context.Context, workspaceID string, limits *risk.RiskLimits) error {
	blacklistJSON, err := json.Marshal(limits.BlacklistedSymbols)
	if err != nil {
		return fmt.Errorf("failed to marshal blacklist: %w", err)
	}

	query := `
		INSERT INTO gate.risk_limits (
			workspace_id, max_daily_loss_absolute, max_position_size_pct,
			max_risk_per_trade_pct, max_concurrent_positions, min_order_price,
			min_order_value, blacklisted_symbols, pdt_equity_threshold,
			pdt_day_trade_limit, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (workspace_id) DO UPDATE SET
			max_daily_loss_absolute = EXCLUDED.max_daily_loss_absolute,
			max_position_size_pct = EXCLUDED.max_position_size_pct,
			max_risk_per_trade_pct = EXCLUDED.max_risk_per_trade_pct,
			max_concurrent_positions = EXCLUDED.max_concurrent_positions,
			min_order_price = EXCLUDED.min_order_price,
			min_order_value = EXCLUDED.min_order_value,
			blacklisted_symbols = EXCLUDED.blacklisted_symbols,
			pdt_equity_threshold = EXCLUDED.pdt_equity_threshold,
			pdt_day_trade_limit = EXCLUDED.pdt_day_trade_limit,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		workspaceID, limits.MaxDailyLossAbsolute, limits.MaxPositionSizePct,
		limits.MaxRiskPerTradePct, limits.MaxConcurrentPositions, limits.MinOrderPrice,
		limits.MinOrderValue, blacklistJSON, limits.PDTEquityThreshold,
		limits.PDTDayTradeLimit, time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to save risk limits: %w", err)
	}

	return nil
}
