package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/api"
	"github.com/wonny/tradegate/internal/api/handlers"
	"github.com/wonny/tradegate/internal/audit"
	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/gate"
	"github.com/wonny/tradegate/internal/limits"
	"github.com/wonny/tradegate/internal/portfolio"
	"github.com/wonny/tradegate/internal/realtime"
	"github.com/wonny/tradegate/internal/scheduler"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/database"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `리스크 게이트 REST API 서버를 시작합니다.

이 명령어는:
- 주문 사전 평가 엔드포인트 제공
- 워크스페이스별 리스크 한도 조회
- 의사결정 감사 추적 조회
- 실시간 의사결정 피드 (websocket)

Endpoints:
  GET  /health                        - Health check
  POST /api/risk/evaluate             - 주문 평가
  GET  /api/risk/limits/{workspace}   - 리스크 한도 조회
  GET  /api/risk/decisions            - 의사결정 기록 조회
  GET  /api/risk/stats                - Shadow 모드 통계
  GET  /ws/decisions                  - 실시간 의사결정 피드

Example:
  go run ./cmd/tradegate api
  go run ./cmd/tradegate api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tradegate API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
		"mode": cfg.Gate.Mode,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (optional limits cache)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	// 5. Limits provider: file takes precedence (development), else Postgres
	var fileProvider *limits.FileProvider
	var limitsProvider contracts.LimitsProvider
	if cfg.Gate.LimitsFile != "" {
		fileProvider, err = limits.NewFileProvider(cfg.Gate.LimitsFile)
		if err != nil {
			return fmt.Errorf("load limits file: %w", err)
		}
		limitsProvider = fileProvider
		log.WithField("file", cfg.Gate.LimitsFile).Info("Using file-backed risk limits")
	} else {
		limitsProvider = limits.NewRepository(db.Pool)
		if redisClient.Enabled() {
			cache := redis.NewCache(redisClient, "tradegate")
			limitsProvider = limits.NewCachedProvider(limitsProvider, cache, cfg.Gate.LimitsCacheTTL, log)
			log.Info("Limits cache enabled")
		}
	}

	// 6. Account snapshots
	snapshotProvider := portfolio.NewRepository(db.Pool)

	// 7. Audit trail + realtime feed
	hub := realtime.NewHub(log)

	var auditRepo *audit.Repository
	sinks := []contracts.DecisionSink{hub}
	if cfg.Audit.Enabled {
		auditRepo = audit.NewRepository(db.Pool)
		sinks = append(sinks, auditRepo)
	}

	emitter := audit.NewEmitter(audit.EmitterConfig{
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: cfg.Audit.EmitTimeout,
	}, log, sinks...)
	defer emitter.Close()

	// 8. Gate
	mode := contracts.GateMode(cfg.Gate.Mode)
	if !mode.Valid() {
		return fmt.Errorf("invalid gate mode %q (use: shadow, enforce, off)", cfg.Gate.Mode)
	}
	g := gate.New(mode, snapshotProvider, limitsProvider, emitter, log)

	// 9. Scheduler: retention purge, limits file reload
	sched := scheduler.New(log)
	if auditRepo != nil && cfg.Audit.RetentionDays > 0 {
		if err := sched.AddJob(audit.NewRetentionJob(auditRepo, log, cfg.Audit.RetentionDays)); err != nil {
			return fmt.Errorf("schedule retention job: %w", err)
		}
	}
	if fileProvider != nil {
		if err := sched.AddJob(limits.NewReloadJob(fileProvider)); err != nil {
			return fmt.Errorf("schedule limits reload job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 10. Create handler and router
	riskHandler := handlers.NewRiskHandler(g, limitsProvider, auditRepo, log)
	router := api.NewRouter(riskHandler, hub, api.RouterConfig{
		RateLimitPerSecond: cfg.Gate.RateLimitPerSecond,
		RateLimitBurst:     cfg.Gate.RateLimitBurst,
		MetricsEnabled:     cfg.MetricsEnabled,
	}, log)

	// 11. Create server
	server := api.New(cfg, log, router)

	// 12. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s (gate mode: %s)\n", cfg.Port, cfg.Gate.Mode)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/risk/evaluate")
	fmt.Println("  GET  /api/risk/limits/{workspace}")
	fmt.Println("  GET  /api/risk/decisions")
	fmt.Println("  GET  /api/risk/stats")
	fmt.Println("  GET  /ws/decisions")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	hub.CloseAll()

	log.Info("Server stopped")
	return nil
}
