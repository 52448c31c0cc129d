package main

import (
	"context"
	"fmt"
	"os"

	"freshloop/internal/core/ai/service"
	"freshloop/internal/core/recipe"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/pkg/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "freshctl",
	Short: "Operator tools for the FreshLoop ingredient engine",
	Long: `freshctl runs the FreshLoop reconciliation engine from the command line:
recipe suggestions, ingredient parsing, community matching, demo data seeding,
and polling a running server for new detection results.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.InitConsoleLogger(viper.GetString("log_level"))
		return nil
	},
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ai-provider", "", "AI provider override (openrouter, gemini, none)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newSuggestCmd(), newParseCmd(), newMatchCmd(), newSeedCmd(), newWatchCmd())
}

// Execute 執行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 讀取與伺服器相同的設定，命令列旗標優先
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if p := cmd.Flags().Lookup("ai-provider"); p != nil && p.Changed {
		viper.Set("ai.provider", p.Value.String())
	}
	return config.LoadConfig()
}

// newGenerator 回傳 nil 介面表示只使用本地邏輯
func newGenerator(ctx context.Context, cmd *cobra.Command) (recipe.Generator, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, func() {}, err
	}
	svc, err := service.New(ctx, cfg)
	if err != nil || svc == nil {
		return nil, func() {}, err
	}
	return svc, func() { _ = svc.Close() }, nil
}
