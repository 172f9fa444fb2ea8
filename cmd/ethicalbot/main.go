package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethicalbot/ethicalbot-go/internal/client"
	"github.com/ethicalbot/ethicalbot-go/internal/config"
	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/ethicalbot/ethicalbot-go/internal/handler"
	"github.com/ethicalbot/ethicalbot-go/internal/middleware"
	"github.com/ethicalbot/ethicalbot-go/internal/service"
	"github.com/ethicalbot/ethicalbot-go/pkg/logger"
	"github.com/ethicalbot/ethicalbot-go/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/ethicalbot.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("ethicalbot 服务启动中...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("服务异常退出", zap.Error(err))
	}
	zapLogger.Info("ethicalbot 服务已停止")
}

func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	policy, err := loadPolicy(cfg.Ethics.PolicyFile, zapLogger)
	if err != nil {
		return err
	}
	policies := service.NewPolicyStore(policy, cfg.Ethics.PolicyFile, zapLogger)

	var (
		history     service.HistoryStore
		appealStore service.AppealStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		zapLogger.Info("Redis 连接成功", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))

		history = service.NewRedisHistoryStore(rdb, policies)
		appealStore = service.NewRedisAppealStore(rdb, policies)
	}

	llmClient, err := client.NewModelClient(ctx, cfg.LLM, zapLogger)
	if err != nil {
		return err
	}

	appealService := service.NewAppealService(appealStore, policies, zapLogger)
	sessionService := service.NewSessionService(policies, appealService, history, zapLogger)
	chatService := service.NewChatService(llmClient, policies, history, cfg.LLM.Timeout(), zapLogger)

	r := gin.Default()
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(func(c *gin.Context) {
		c.Set("service_name", cfg.Server.Name)
		c.Next()
	})

	api := r.Group("/api")
	handler.NewAPIHandler(sessionService, chatService, zapLogger).Register(api)
	handler.NewAppealHandler(sessionService, zapLogger).Register(api)
	handler.NewConfigHandler(policies, zapLogger).Register(api)
	r.GET("/ws", handler.NewWebSocketHandler(sessionService, chatService, cfg.Server.AllowedOrigins, zapLogger).HandleWebSocket)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessionService.Run(gctx)
	})
	g.Go(func() error {
		zapLogger.Info("ethicalbot 服务启动成功",
			zap.Int("port", cfg.Server.Port),
			zap.String("provider", cfg.LLM.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loadPolicy 读取伦理策略，文件不存在时使用默认策略
func loadPolicy(path string, zapLogger *zap.Logger) (ethics.Policy, error) {
	if path == "" {
		return ethics.DefaultPolicy(), nil
	}

	policy, err := ethics.LoadPolicy(path)
	if errors.Is(err, os.ErrNotExist) {
		zapLogger.Warn("策略文件不存在，使用默认策略", zap.String("path", path))
		return ethics.DefaultPolicy(), nil
	}
	if err != nil {
		return ethics.Policy{}, err
	}

	if report := policy.Validate(); !report.Valid {
		zapLogger.Warn("策略校验未通过", zap.Strings("issues", report.Issues))
	}
	return policy, nil
}
