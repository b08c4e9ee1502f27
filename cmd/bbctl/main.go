// Command bbctl 运维工具：建表、创建用户、清扫孤儿文件
package main

import (
	"fmt"
	"os"

	"github.com/go-extras/go-kit/must"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bugboard/internal/app"
	"bugboard/internal/core/config"
	"bugboard/internal/core/logger"
)

var configPath string

func main() {
	_ = godotenv.Load()
	root := &cobra.Command{
		Use:           "bbctl",
		Short:         "BugBoard operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	root.AddCommand(newMigrateCommand(), newUserCommand(), newStorageCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap 读配置、建 logger、装配依赖；调用方负责 Close
func bootstrap() (*app.App, func()) {
	cfg := must.Must(config.Read(configPath))
	log, cleanup := logger.FromConfig(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	return a, func() {
		a.Close()
		cleanup()
	}
}
