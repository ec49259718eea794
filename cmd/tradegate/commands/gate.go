package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/audit"
	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/limits"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/database"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Risk Gate - 사전 리스크 게이트 관리",
	Long: `사전 리스크 게이트를 관리합니다.

리스크 게이트 모드:
- shadow:  로깅만 (실제 차단 안함)
- enforce: 실제 차단
- off:     비활성화

Example:
  go run ./cmd/tradegate gate status
  go run ./cmd/tradegate gate check --demo
  go run ./cmd/tradegate gate stats --workspace ws-1 --from 2026-08-01`,
}

var (
	gateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "현재 게이트 설정 확인",
		RunE:  runGateStatus,
	}

	gateCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "샘플 주문으로 게이트 평가 실행",
		Long: `샘플 주문들을 게이트에 통과시켜 판정을 확인합니다.

Example:
  go run ./cmd/tradegate gate check --demo
  go run ./cmd/tradegate gate check --demo --limits ./limits.yaml`,
		RunE: runGateCheck,
	}

	gateStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Shadow 모드 통계 조회",
		Long: `Shadow 모드에서의 차단 통계를 조회합니다.

Example:
  go run ./cmd/tradegate gate stats --workspace ws-1
  go run ./cmd/tradegate gate stats --workspace ws-1 --from 2026-08-01 --to 2026-08-25`,
		RunE: runGateStats,
	}

	// Flags
	gateDemo       bool
	gateLimitsFile string
	gateWorkspace  string
	gateFrom       string
	gateTo         string
)

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateStatusCmd)
	gateCmd.AddCommand(gateCheckCmd)
	gateCmd.AddCommand(gateStatsCmd)

	// check flags
	gateCheckCmd.Flags().BoolVar(&gateDemo, "demo", false, "Use sample orders and account")
	gateCheckCmd.Flags().StringVar(&gateLimitsFile, "limits", "", "YAML limits file (default: built-in baseline)")
	gateCheckCmd.Flags().StringVar(&gateWorkspace, "workspace", "default", "Workspace for limits lookup")

	// stats flags
	gateStatsCmd.Flags().StringVar(&gateWorkspace, "workspace", "default", "Workspace to report on")
	gateStatsCmd.Flags().StringVar(&gateFrom, "from", "", "Start date (YYYY-MM-DD)")
	gateStatsCmd.Flags().StringVar(&gateTo, "to", "", "End date (YYYY-MM-DD)")
}

func runGateStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Risk Gate Status ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println()
	fmt.Println("📊 Gate Configuration")
	fmt.Printf("  Mode:            %s\n", cfg.Gate.Mode)
	if cfg.Gate.LimitsFile != "" {
		fmt.Printf("  Limits Source:   file (%s)\n", cfg.Gate.LimitsFile)
	} else {
		fmt.Println("  Limits Source:   database")
	}
	fmt.Printf("  Audit Enabled:   %v (retention %d days)\n", cfg.Audit.Enabled, cfg.Audit.RetentionDays)
	fmt.Println()
	fmt.Println("🎯 Risk Limits (Baseline)")
	baseline := risk.DefaultRiskLimits()
	fmt.Printf("  Max Daily Loss:          $%.0f\n", baseline.MaxDailyLossAbsolute)
	fmt.Printf("  Max Position Size:       %.1f%% of equity\n", baseline.MaxPositionSizePct)
	fmt.Printf("  Max Risk Per Trade:      %.1f%% of equity\n", baseline.MaxRiskPerTradePct)
	fmt.Printf("  Max Concurrent Positions: %d\n", baseline.MaxConcurrentPositions)
	fmt.Printf("  Min Order Price:         $%.2f\n", baseline.MinOrderPrice)
	fmt.Printf("  Min Order Value:         $%.0f\n", baseline.MinOrderValue)
	fmt.Println()
	fmt.Println("💡 Use 'gate check --demo' to run sample evaluations")
	fmt.Println("   Use 'gate stats' to view shadow mode statistics")

	return nil
}

func runGateCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Risk Gate Check ===")

	if !gateDemo {
		fmt.Println("\n💡 Tip: Use --demo flag for a sample evaluation run")
		fmt.Println("   Example: go run ./cmd/tradegate gate check --demo")
		return nil
	}

	ctx := cmd.Context()

	// 한도 로드: 파일 또는 기본값
	wsLimits := risk.DefaultRiskLimits()
	if gateLimitsFile != "" {
		provider, err := limits.NewFileProvider(gateLimitsFile)
		if err != nil {
			return fmt.Errorf("load limits file: %w", err)
		}
		loaded, err := provider.GetLimits(ctx, gateWorkspace)
		if err != nil {
			return fmt.Errorf("get limits for %s: %w", gateWorkspace, err)
		}
		wsLimits = *loaded
		fmt.Printf("📋 Limits: %s (workspace %s)\n", gateLimitsFile, gateWorkspace)
	} else {
		fmt.Println("📋 Limits: built-in baseline")
	}

	// 샘플 계좌
	account := risk.AccountSnapshot{
		Equity:        100_000,
		AvailableCash: 40_000,
		OpenPositions: []risk.Position{
			{Symbol: "MSFT", Quantity: 50, AvgCost: 410},
			{Symbol: "NVDA", Quantity: 30, AvgCost: 120, OpenedThisSession: true},
		},
		DayTradeCountToday: 1,
		DailyPnL:           -180,
	}

	fmt.Println("\n🧪 Sample account: $100,000 equity, $40,000 cash, 2 open positions")

	orders := []struct {
		label string
		order risk.OrderRequest
	}{
		{"Clean limit buy", risk.OrderRequest{
			Symbol: "AAPL", Side: risk.SideBuy, Quantity: 20,
			OrderType: risk.OrderLimit, Price: 230, StopLoss: 224,
		}},
		{"Oversized risk (stop too wide)", risk.OrderRequest{
			Symbol: "TSLA", Side: risk.SideBuy, Quantity: 600,
			OrderType: risk.OrderLimit, Price: 100, StopLoss: 95,
		}},
		{"Buying power exceeded", risk.OrderRequest{
			Symbol: "AMZN", Side: risk.SideBuy, Quantity: 300,
			OrderType: risk.OrderLimit, Price: 220,
		}},
		{"Market order with reference price", risk.OrderRequest{
			Symbol: "MSFT", Side: risk.SideSell, Quantity: 50,
			OrderType: risk.OrderMarket, ReferencePrice: 415,
		}},
	}

	engine := risk.NewEngine()

	for _, tc := range orders {
		fmt.Println("\n" + strings.Repeat("-", 50))
		fmt.Printf("▶ %s: %s %d %s @ %.2f\n",
			tc.label, tc.order.Side, tc.order.Quantity, tc.order.Symbol, effectivePrice(tc.order))

		verdict, err := engine.Evaluate(tc.order, account, wsLimits, account.DayTradeCountToday)
		if err != nil {
			fmt.Printf("  ⚠️  Evaluation error: %v\n", err)
			if verdict == nil {
				continue
			}
		}

		printVerdict(verdict)
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	return nil
}

func effectivePrice(o risk.OrderRequest) float64 {
	if o.Price > 0 {
		return o.Price
	}
	return o.ReferencePrice
}

func printVerdict(v *risk.Verdict) {
	if v.Allowed {
		fmt.Println("  ✅ ALLOWED")
	} else {
		fmt.Println("  ❌ DENIED")
	}
	fmt.Printf("  📊 Risk: %s (score %d)\n", v.RiskLevel, v.RiskScore)

	for _, violation := range v.Violations {
		fmt.Printf("  ✗ [%s/%s] %s\n", violation.RuleID, violation.Severity, violation.Message)
	}
	for _, warning := range v.Warnings {
		fmt.Printf("  ! [%s] %s\n", warning.RuleID, warning.Message)
	}
	if v.Modifications != nil {
		fmt.Printf("  💡 Suggested quantity: %d (%s)\n",
			v.Modifications.SuggestedQuantity, v.Modifications.Reason)
	}
}

func runGateStats(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Risk Gate Stats ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	to := time.Now()
	from := to.AddDate(0, 0, -7)
	if gateFrom != "" {
		if from, err = time.Parse("2006-01-02", gateFrom); err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if gateTo != "" {
		if to, err = time.Parse("2006-01-02", gateTo); err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	repo := audit.NewRepository(db.Pool)
	stats, err := repo.GetStats(context.Background(), gateWorkspace, from, to)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	fmt.Printf("\n📊 Workspace %s, %s ~ %s\n", gateWorkspace,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("  Total Decisions: %d\n", stats.Total)
	fmt.Printf("  Denied:          %d\n", stats.Denied)
	fmt.Printf("  Would Block:     %d", stats.WouldBlock)
	if cfg.Gate.Mode == string(contracts.GateModeShadow) {
		fmt.Print("  (shadow mode: not actually blocked)")
	}
	fmt.Println()

	if len(stats.ByRule) > 0 {
		fmt.Println("\n🔍 Violations by rule")
		for rule, count := range stats.ByRule {
			fmt.Printf("  %-26s %d\n", rule, count)
		}
	}

	return nil
}
