package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/response"
	"github.com/simsta2/modus-klar/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 限流键前缀
	KeyPrefix string
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 超过限制后禁止访问的时长（秒）
	BlockDuration int
	// 按参与者 ID 限流（需要认证）
	ByParticipant bool
	// 按 IP 限流
	ByIP bool
}

// DefaultRateLimitConfig 已认证接口的通用限流
var DefaultRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   100,
	KeyPrefix:     "rate:limit",
	ByParticipant: true,
	ByIP:          true,
	BlockDuration: 300,
}

// AuthRateLimitConfig 注册、登录、刷新 token，按 IP 限流
var AuthRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   10,
	KeyPrefix:     "auth:rate",
	ByIP:          true,
	BlockDuration: 900,
}

// SubmissionRateLimitConfig 视频提交
var SubmissionRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   10,
	KeyPrefix:     "submission:rate",
	ByParticipant: true,
	BlockDuration: 60,
}

// SettingsRateLimitConfig 参与者设置修改
var SettingsRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   5,
	KeyPrefix:     "settings:rate",
	ByParticipant: true,
	BlockDuration: 600,
}

// RateLimiter 基于 Redis ZSET 的滑动窗口限流器
type RateLimiter struct {
	now    func() time.Time
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config: config,
		now:    time.Now,
	}
}

// getKey 生成限流键，优先使用参与者 ID
func (rl *RateLimiter) getKey(ctx context.Context, c *app.RequestContext) string {
	var identifier string

	if rl.config.ByParticipant {
		if participantID, ok := GetParticipantID(ctx, c); ok {
			identifier = "participant:" + strconv.FormatInt(participantID, 10)
		}
	}

	if identifier == "" && rl.config.ByIP {
		identifier = "ip:" + c.ClientIP()
	}

	return identifier
}

// Allow 记录一次请求并返回窗口内是否仍未超限
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) (bool, int, error) {
	key := redis.Key(rl.config.KeyPrefix, identifier)
	now := rl.now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := redis.Client().Pipeline()

	// 先移除窗口开始之前的记录
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) Block(ctx context.Context, identifier string) error {
	key := redis.Key(rl.config.KeyPrefix+":block", identifier)
	return redis.Client().Set(ctx, key, "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	key := redis.Key(rl.config.KeyPrefix+":block", identifier)
	result, err := redis.Client().Exists(ctx, key).Result()
	return result > 0, err
}

// RateLimitMiddleware 创建限流中间件。Redis 不可用时放行请求，只记录日志。
func RateLimitMiddleware(config RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(config)

	return func(ctx context.Context, c *app.RequestContext) {
		identifier := limiter.getKey(ctx, c)
		if identifier == "" {
			c.Next(ctx)
			return
		}

		blocked, err := limiter.IsBlocked(ctx, identifier)
		if err != nil {
			logger.Logger.Warn("Failed to check block status", zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		allowed, count, err := limiter.Allow(ctx, identifier)
		if err != nil {
			logger.Logger.Warn("Failed to check rate limit", zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(limiter.now().Add(time.Duration(config.Window)*time.Second).Unix(), 10))

		if !allowed {
			if err := limiter.Block(ctx, identifier); err != nil {
				logger.Logger.Error("Failed to block client", zap.String("identifier", identifier), zap.Error(err))
			}
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

// GeneralRateLimitMiddleware 通用限流中间件（适用于所有需要认证的路由）
func GeneralRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(DefaultRateLimitConfig)
}

// AuthRateLimitMiddleware 认证相关限流（注册、登录、刷新）
func AuthRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AuthRateLimitConfig)
}

func SubmissionRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(SubmissionRateLimitConfig)
}

func SettingsRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(SettingsRateLimitConfig)
}
