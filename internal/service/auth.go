package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparshsam/wager-ai-assistant/internal/auth"
	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/constants"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type AuthService struct {
	cfg      *config.Config
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	logger   zerolog.Logger
}

func NewAuthService(
	cfg *config.Config,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{cfg: cfg, users: users, sessions: sessions, logger: logger}
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.Invalid("Email and password are required")
	}
	if len(req.Password) < 8 {
		return nil, domain.Invalid("Password must be at least 8 characters")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Invalid("Email already registered")
	} else if err != domain.ErrNotFound {
		return nil, err
	}

	user := &domain.User{
		Email:           email,
		PasswordHash:    auth.HashPassword(s.cfg.SessionSecret, req.Password),
		Name:            req.Name,
		CurrentBankroll: constants.DefaultBankroll,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", email).Msg("user signed up")

	return s.issueSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.Invalid("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !auth.VerifyPassword(s.cfg.SessionSecret, req.Password, user.PasswordHash) {
		s.logger.Warn().Str("email", email).Msg("failed login attempt")
		return nil, domain.ErrUnauthorized
	}

	return s.issueSession(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve maps a bearer token to the authenticated principal.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Principal, error) {
	session, err := s.sessions.GetValid(ctx, token)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return &domain.Principal{UserID: user.ID, Email: user.Email}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}
