package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"
	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/response"
	"github.com/simsta2/modus-klar/pkg/token"
)

const (
	IdentityKey = token.IdentityKey
	SessionKey  = token.SessionKey

	ReviewerKeyHeader = "X-Reviewer-Key"
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	// 使用 token 包中共享的生成器
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	authMiddleware = &jwt.HertzJWTMiddleware{
		Realm:       "ModusKlar API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			pid, ok := token.ClaimString(jwt.ExtractClaims(ctx, c), IdentityKey)
			if !ok {
				return nil
			}
			return pid
		},

		// refresh token 不能当作 access token 使用
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			claims := jwt.ExtractClaims(ctx, c)
			if typ, _ := claims["type"].(string); typ == "refresh" {
				return false
			}
			_, ok := token.ClaimString(claims, SessionKey)
			return ok
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    errors.Unauthorized.Code,
					"message": message,
				},
			})
		},

		TokenLookup:   "header: Authorization, query: token, cookie: jwt",
		TokenHeadName: "Bearer",
	}

	return nil
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// SessionMiddleware 要求 token 对应的会话仍然有效，登出后旧 access token 立即失效。
// 必须放在 AuthMiddleware 之后。
func SessionMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		participantID, ok := GetParticipantID(ctx, c)
		if !ok {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}
		sessionID, ok := GetSessionID(ctx, c)
		if !ok {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		owner, found, err := cache.GetSessionParticipant(ctx, sessionID)
		if err != nil {
			// Redis 不可用时不能确认会话状态，拒绝请求
			logger.Logger.Error("Failed to verify session",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			response.Error(ctx, c, fmt.Errorf("%w: session lookup: %v", errors.StoreUnavailable, err))
			c.Abort()
			return
		}
		if !found || owner != participantID {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

// ReviewerAuth 校验审核方共享密钥
func ReviewerAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		expected := config.Cfg.ReviewerAPIKey
		provided := string(c.GetHeader(ReviewerKeyHeader))

		if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			logger.Logger.Warn("Rejected reviewer request",
				zap.String("path", string(c.Path())),
				zap.String("client_ip", c.ClientIP()),
			)
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

// GetParticipantID 从请求上下文中获取参与者 ID
func GetParticipantID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return 0, false
	}

	raw, ok := value.(string)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetSessionID 从 token claims 中获取会话 ID
func GetSessionID(ctx context.Context, c *app.RequestContext) (string, bool) {
	return token.ClaimString(jwt.ExtractClaims(ctx, c), SessionKey)
}
