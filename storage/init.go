package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/storage/database"
	"github.com/simsta2/modus-klar/storage/mq"
	"github.com/simsta2/modus-klar/storage/redis"
)

const closeTimeout = 15 * time.Second

type backend struct {
	name  string
	init  func() error
	close func(ctx context.Context) error
}

var (
	postgresBackend = backend{name: "database", init: database.Init, close: database.Close}
	redisBackend    = backend{name: "redis", init: redis.Init, close: redis.Close}
	mqBackend       = backend{name: "message queue", init: mq.Init, close: mq.Close}

	// 关闭时逆序：先停止收发消息，最后关闭数据库
	allBackends = []backend{postgresBackend, redisBackend, mqBackend}
)

// Init 按 数据库 -> Redis -> MQ 的顺序建立连接
func Init() error {
	return initBackends(allBackends)
}

// InitWithoutDatabase worker 只需要 Redis 和 MQ
func InitWithoutDatabase() error {
	return initBackends([]backend{redisBackend, mqBackend})
}

func initBackends(backends []backend) error {
	for _, b := range backends {
		if err := b.init(); err != nil {
			return fmt.Errorf("init %s: %w", b.name, err)
		}
	}
	return nil
}

// Close 逆序关闭全部连接，未初始化的后端直接跳过
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for i := len(allBackends) - 1; i >= 0; i-- {
		b := allBackends[i]
		if err := b.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage backend", zap.String("backend", b.name), zap.Error(err))
			continue
		}
		logger.Logger.Debug("Storage backend closed", zap.String("backend", b.name))
	}
	logger.Logger.Info("Storage connections closed")
}
