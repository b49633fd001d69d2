package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/internal/queue"
	"github.com/simsta2/modus-klar/internal/reminder"
	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/otel"
	"github.com/simsta2/modus-klar/pkg/snowflake"
	"github.com/simsta2/modus-klar/storage"
)

// 提醒进程跟随一个会话（REMINDER_SESSION_ID）：会话登录期间每天早晚各提醒一次，
// 登出后停止。
func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Reminder agent received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if config.Cfg.ReminderSessionID == "" {
		logger.Logger.Fatal("REMINDER_SESSION_ID is required")
	}

	shutdownTelemetry, err := otel.Setup(ctx, "reminder")
	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}()

	// 权限检查需要读取参与者设置，所以连接数据库
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for reminder agent", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for reminder agent", zap.Error(err))
	}

	identity := cache.SessionIdentity{SessionID: config.Cfg.ReminderSessionID}
	scheduler := reminder.NewScheduler(
		service.Notification(),
		identity,
		queue.NewNotifier(config.Cfg.ReminderSessionID),
		reminder.Options{
			Clock:          reminder.NewRealClock(config.Cfg.Location()),
			Windows:        reminder.WindowsFromConfig(&config.Cfg),
			DisplayTimeout: time.Duration(config.Cfg.ReminderDisplayTimeout) * time.Second,
		},
	)
	agent := reminder.NewAgent(scheduler, identity, time.Duration(config.Cfg.ReminderPollSeconds)*time.Second)

	logger.Logger.Info("Reminder agent starting",
		zap.String("service", config.Cfg.ServiceName+"-reminder"),
		zap.String("session_id", config.Cfg.ReminderSessionID),
		zap.String("timezone", config.Cfg.ChallengeTimezone),
		zap.String("environment", config.Cfg.Environment),
	)

	// 阻塞直到 ctx 取消，退出时取消所有定时器
	agent.Run(ctx)

	logger.Logger.Info("Reminder agent shutting down gracefully")
}
