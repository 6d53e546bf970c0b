package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/pkg/config"
	"github.com/topdog/backend/pkg/crypto"
	jwtpkg "github.com/topdog/backend/pkg/jwt"
)

const minPasswordLength = 8

// Service handles authentication workflows.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Signup registers a new user with a zero wallet balance.
func (s Service) Signup(ctx context.Context, email, username, password string) (*domain.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || !strings.Contains(email, "@") {
		return nil, TokenPair{}, apperror.Validation("valid email is required")
	}
	if username == "" {
		return nil, TokenPair{}, apperror.Validation("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, TokenPair{}, apperror.Validation("password must be at least 8 characters")
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, TokenPair{}, apperror.New(apperror.CodeConflict, "email or username already registered")
		}
		return nil, TokenPair{}, apperror.Wrap(apperror.CodeDatabase, "could not create user", err)
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, apperror.New(apperror.CodeUnauthorized, "invalid credentials")
		}
		return nil, TokenPair{}, apperror.Wrap(apperror.CodeDatabase, "could not load user", err)
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, apperror.New(apperror.CodeUnauthorized, "invalid credentials")
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Authorize validates a bearer access token and returns the associated user
// and claims. Refresh tokens are rejected here; they are only good for the
// refresh exchange.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, apperror.New(apperror.CodeUnauthorized, "token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.CodeUnauthorized, "invalid token", err)
	}
	if claims.Kind != jwtpkg.KindAccess {
		return nil, nil, apperror.New(apperror.CodeUnauthorized, "token is not an access token")
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.CodeUnauthorized, "unknown user", err)
	}
	return user, claims, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s Service) Refresh(ctx context.Context, token string) (*domain.User, TokenPair, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, TokenPair{}, apperror.New(apperror.CodeUnauthorized, "refresh token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, TokenPair{}, apperror.Wrap(apperror.CodeUnauthorized, "invalid refresh token", err)
	}
	if claims.Kind != jwtpkg.KindRefresh {
		return nil, TokenPair{}, apperror.New(apperror.CodeUnauthorized, "token is not a refresh token")
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, TokenPair{}, apperror.Wrap(apperror.CodeUnauthorized, "unknown user", err)
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("tokens refreshed", "user_id", user.ID)
	return user, tokens, nil
}

func (s Service) issueTokens(user *domain.User) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(user.ID, user.Admin, jwtpkg.KindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(user.ID, user.Admin, jwtpkg.KindRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}
