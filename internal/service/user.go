package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NurulloMahmud/tafakkur/internal/auth"
	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/event"
	"github.com/NurulloMahmud/tafakkur/internal/repository"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// UserService implements registration and token-based authentication.
type UserService struct {
	users      repository.UserRepository
	jwtManager *auth.JWTManager
	indexer    Indexer
	producer   *event.Producer
	logger     *slog.Logger
	cost       int
}

// NewUserService creates a new user service. indexer may be nil.
func NewUserService(
	users repository.UserRepository,
	jwtManager *auth.JWTManager,
	indexer Indexer,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		jwtManager: jwtManager,
		indexer:    indexer,
		producer:   producer,
		logger:     logger,
		cost:       bcryptCost,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is a successful login.
type LoginResult struct {
	Tokens domain.TokenPair
	User   *domain.User
}

// Register creates an active, unprivileged account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.Validation(map[string]string{"email": "is required"})
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.Validation(map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", minPasswordLength),
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Validation(map[string]string{"email": "Email is already in use."})
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID))

	if s.indexer != nil {
		if err := s.indexer.Project(ctx, domain.EntityUser, u); err != nil {
			s.logger.ErrorContext(ctx, "write-path projection failed",
				slog.String("entity", string(domain.EntityUser)),
				slog.String("id", u.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.producer.UserRegistered(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user event",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}
	return u, nil
}

// Login checks credentials and issues a token pair. Unknown emails, wrong
// passwords and inactive accounts are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("no active account found with the given credentials")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil || !u.IsActive {
		return nil, apperrors.Unauthorized("no active account found with the given credentials")
	}

	tokens, err := s.jwtManager.GeneratePair(u)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", u.ID))
	return &LoginResult{Tokens: tokens, User: u}, nil
}

// Refresh exchanges a refresh token for a new access token. Privilege flags
// are re-read so a demoted user loses access on the next refresh.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.Unauthorized("token is invalid or expired")
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized("token is invalid or expired")
		}
		return "", fmt.Errorf("get user for refresh: %w", err)
	}
	if !u.IsActive {
		return "", apperrors.Unauthorized("account is inactive")
	}

	access, err := s.jwtManager.GenerateAccessToken(u)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return access, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
