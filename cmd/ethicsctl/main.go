package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethicalbot/ethicalbot-go/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// errInvalidPolicy validate 发现问题时返回，进程以非零码退出
var errInvalidPolicy = errors.New("policy has validation issues")

// app 命令共享状态
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "ethicsctl",
		Short:         "Inspect and edit the ethical assistant policy file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().String("policy", "configs/ethics.yaml", "policy file")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("policy", root.PersistentFlags().Lookup("policy"))
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(a.validateCmd())
	root.AddCommand(a.getCmd())
	root.AddCommand(a.setCmd())
	root.AddCommand(a.pathsCmd())
	return root
}

func (a *app) init() error {
	a.v.SetEnvPrefix("ETHICSCTL")
	a.v.AutomaticEnv()

	zapLogger, err := logger.NewLogger(a.v.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	a.logger = zapLogger
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
