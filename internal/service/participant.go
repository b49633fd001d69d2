package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/snowflake"
	"github.com/simsta2/modus-klar/pkg/token"
	"github.com/simsta2/modus-klar/utils"
)

const minPasswordLength = 8

var (
	participantService *ParticipantService
	participantOnce    sync.Once
)

func Participant() *ParticipantService {
	participantOnce.Do(func() {
		participantService = NewParticipantService(defaultStore(), ParticipantOptions{
			SessionTTL: time.Duration(config.Cfg.SessionTTLHours) * time.Hour,
		})
	})
	return participantService
}

// ParticipantOptions 零值使用系统时间、snowflake ID 和 30 天会话
type ParticipantOptions struct {
	Now        func() time.Time
	NextID     func() (int64, error)
	SessionTTL time.Duration
	BcryptCost int
}

// ParticipantService 报名、登录和会话管理。
// 会话身份 session_id -> participant_id 写在 Redis，提醒进程据此判断是否仍然登录。
type ParticipantService struct {
	store      Store
	now        func() time.Time
	nextID     func() (int64, error)
	sessionTTL time.Duration
	bcryptCost int
	logger     *zap.Logger
}

func NewParticipantService(store Store, opts ParticipantOptions) *ParticipantService {
	if opts.Now == nil {
		loc := config.Cfg.Location()
		opts.Now = func() time.Time { return time.Now().In(loc) }
	}
	if opts.NextID == nil {
		opts.NextID = snowflake.NextID
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	return &ParticipantService{
		store:      store,
		now:        opts.Now,
		nextID:     opts.NextID,
		sessionTTL: opts.SessionTTL,
		bcryptCost: opts.BcryptCost,
		logger:     logger.Named("participant"),
	}
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

// Enroll 报名，挑战从今天开始
func (s *ParticipantService) Enroll(ctx context.Context, req dto.EnrollRequest) (*dto.ParticipantResponse, error) {
	email, ok := normalizeEmail(req.Email)
	if !ok || len(req.Password) < minPasswordLength {
		return nil, errors.InvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate participant ID: %w", err)
	}

	p := &model.Participant{
		PublicID:             publicID,
		Email:                email,
		PasswordHash:         string(hash),
		Name:                 strings.TrimSpace(req.Name),
		ChallengeStartDate:   utils.DateOf(s.now()),
		CurrentDay:           1,
		NotificationsEnabled: req.NotificationsEnabled,
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Participant enrolled",
		zap.Int64("participant_id", publicID),
		zap.Bool("notifications_enabled", p.NotificationsEnabled),
	)
	return participantResponse(p), nil
}

// Login 校验密码后建立新会话
func (s *ParticipantService) Login(ctx context.Context, req dto.LoginRequest) (*dto.SessionResponse, error) {
	email, ok := normalizeEmail(req.Email)
	if !ok {
		return nil, errors.InvalidCredentials
	}

	p, err := s.store.GetParticipantByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, errors.ParticipantNotFound) {
			return nil, errors.InvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials
	}

	sessionID := uuid.NewString()
	if err := cache.SetSession(ctx, sessionID, p.PublicID, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	resp, err := s.issue(ctx, p, sessionID)
	if err != nil {
		_ = cache.DeleteSession(ctx, sessionID)
		return nil, err
	}

	s.logger.Info("Participant logged in",
		zap.Int64("participant_id", p.PublicID),
		zap.String("session_id", sessionID),
	)
	return resp, nil
}

func (s *ParticipantService) issue(ctx context.Context, p *model.Participant, sessionID string) (*dto.SessionResponse, error) {
	pair, err := token.GenerateTokenPair(strconv.FormatInt(p.PublicID, 10), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// 存储 refresh token 到 Redis，保持缓存即可
	if err := cache.SetRefreshToken(ctx, sessionID, pair.RefreshToken); err != nil {
		s.logger.Warn("Failed to store refresh token in Redis",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	return &dto.SessionResponse{
		Participant:  *participantResponse(p),
		SessionID:    sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout 删除会话身份，该会话上已布置的提醒在触发时会被丢弃
func (s *ParticipantService) Logout(ctx context.Context, participantID int64, sessionID string) error {
	current, ok, err := cache.GetSessionParticipant(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || current != participantID {
		return errors.SessionNotFound
	}

	if err := cache.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := cache.DeleteRefreshToken(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete refresh token",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	s.logger.Info("Participant logged out",
		zap.Int64("participant_id", participantID),
		zap.String("session_id", sessionID),
	)
	return nil
}

// Refresh 用 refresh token 换新的 token，会话必须仍然有效
func (s *ParticipantService) Refresh(ctx context.Context, refreshToken string) (*dto.SessionResponse, error) {
	pidStr, sessionID, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.RefreshTokenInvalid
	}
	if !cache.ValidateRefreshTokenExists(ctx, sessionID, refreshToken) {
		return nil, errors.RefreshTokenInvalid
	}

	participantID, err := strconv.ParseInt(pidStr, 10, 64)
	if err != nil {
		return nil, errors.RefreshTokenInvalid
	}
	current, ok, err := cache.GetSessionParticipant(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || current != participantID {
		return nil, errors.RefreshTokenInvalid
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, p, sessionID)
}

func (s *ParticipantService) Profile(ctx context.Context, participantID int64) (*dto.ParticipantResponse, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return participantResponse(p), nil
}

// UpdateSettings 目前只有提醒开关
func (s *ParticipantService) UpdateSettings(ctx context.Context, participantID int64, req dto.SettingsRequest) (*dto.ParticipantResponse, error) {
	if req.NotificationsEnabled != nil {
		if err := s.store.UpdateNotificationsEnabled(ctx, participantID, *req.NotificationsEnabled); err != nil {
			return nil, err
		}
	}
	return s.Profile(ctx, participantID)
}

// Delete 删除账号及全部挑战数据，并结束当前会话
func (s *ParticipantService) Delete(ctx context.Context, participantID int64, sessionID string) error {
	if err := s.store.DeleteParticipant(ctx, participantID); err != nil {
		return err
	}

	if err := cache.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
	}
	_ = cache.DeleteRefreshToken(ctx, sessionID)
	_ = cache.InvalidateProgressSnapshot(ctx, participantID)

	s.logger.Info("Participant deleted", zap.Int64("participant_id", participantID))
	return nil
}

func participantResponse(p *model.Participant) *dto.ParticipantResponse {
	return &dto.ParticipantResponse{
		ParticipantID:        strconv.FormatInt(p.PublicID, 10),
		Email:                p.Email,
		Name:                 p.Name,
		ChallengeStartDate:   utils.FormatDate(p.ChallengeStartDate),
		NotificationsEnabled: p.NotificationsEnabled,
	}
}
