package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/pkg/errors"
)

const (
	IdentityKey = "pid"
	SessionKey  = "sid"
)

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware
)

func Init() error {
	if config.Cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}

	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute,
		MaxRefresh:  time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour,
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

// Pair access token 与 refresh token
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// GenerateTokenPair 为一次会话签发 token，两个 token 都带上参与者 ID 和会话 ID
func GenerateTokenPair(participantID, sessionID string) (Pair, error) {
	if sharedGenerator == nil {
		return Pair{}, errors.ErrTokenGeneratorNotInitialized
	}

	now := sharedGenerator.TimeFunc()
	expiresAt := now.Add(sharedGenerator.Timeout)

	accessClaims := jwtv5.MapClaims{
		IdentityKey: participantID,
		SessionKey:  sessionID,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}

	accessToken, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, accessClaims).SignedString(sharedGenerator.Key)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshClaims := jwtv5.MapClaims{
		IdentityKey: participantID,
		SessionKey:  sessionID,
		"iat":       now.Unix(),
		"type":      "refresh",
		"exp":       now.Add(sharedGenerator.MaxRefresh).Unix(),
	}

	refreshToken, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, refreshClaims).SignedString(sharedGenerator.Key)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(sharedGenerator.Timeout.Seconds()),
	}, nil
}

// ValidateRefreshToken 验证 refresh token 并返回参与者 ID 和会话 ID
func ValidateRefreshToken(tokenString string) (participantID, sessionID string, err error) {
	if sharedGenerator == nil {
		return "", "", errors.ErrTokenGeneratorNotInitialized
	}

	token, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(token *jwtv5.Token) (interface{}, error) {
		if token.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return sharedGenerator.Key, nil
	}, jwtv5.WithTimeFunc(sharedGenerator.TimeFunc))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", "", errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", "", errors.ErrInvalidTokenClaims
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return "", "", errors.ErrInvalidTokenType
	}

	participantID, ok = ClaimString(claims, IdentityKey)
	if !ok {
		return "", "", errors.ErrParticipantIDNotFound
	}
	sessionID, ok = ClaimString(claims, SessionKey)
	if !ok {
		return "", "", errors.ErrInvalidTokenClaims
	}

	return participantID, sessionID, nil
}

// ClaimString 读取字符串 claim，兼容被解析成 float64 的数字
func ClaimString(claims map[string]interface{}, key string) (string, bool) {
	switch v := claims[key].(type) {
	case string:
		return v, v != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	default:
		return "", false
	}
}
