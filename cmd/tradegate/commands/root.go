package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradegate",
	Short: "Tradegate - 주문 사전 리스크 게이트",
	Long: `Tradegate Unified CLI

주문이 브로커로 나가기 전 리스크 규칙을 검사하는 사전 승인 게이트.
규칙 카탈로그, 리스크 스코어링, 의사결정 감사 추적을 제공합니다.

Usage:
  go run ./cmd/tradegate [command]

Examples:
  go run ./cmd/tradegate api
  go run ./cmd/tradegate gate check --demo
  go run ./cmd/tradegate gate stats --workspace ws-1`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
