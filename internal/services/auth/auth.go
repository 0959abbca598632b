package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/lib/jwt"
	"expenso/internal/lib/sl"
	"expenso/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Auth issues, validates, rotates and revokes access/refresh token pairs.
// Exactly one refresh token per user is valid at any time: issuing a new
// pair deletes every stored token for that user first.
type Auth struct {
	logger       *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	tokenStore   TokenStore
	secret       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

type UserSaver interface {
	SaveUser(
		ctx context.Context,
		email string,
		passHash []byte,
	) (userID string, err error)
}

type UserProvider interface {
	User(
		ctx context.Context,
		email string,
	) (user *models.User, err error)
}

type TokenStore interface {
	SaveRefreshToken(ctx context.Context, token, userID string, expiresAt time.Time) error
	RefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}

var (
	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserAlreadyExists  = errors.New("user already exists")
	// ErrInvalidToken covers every token failure: malformed, expired,
	// wrong type, bad signature, revoked. The reason is not exposed.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokenStore TokenStore,
	secret string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Auth {
	return &Auth{
		logger:       logger,
		userSaver:    userSaver,
		userProvider: userProvider,
		tokenStore:   tokenStore,
		secret:       secret,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// Register creates a user and issues an initial token pair.
func (a *Auth) Register(
	ctx context.Context,
	email string,
	password string,
) (*models.User, *models.TokenPair, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	log.Info("register request")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := a.userSaver.SaveUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Warn("user already exists", sl.Err(err))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.IssueTokenPair(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("userID", userID))

	return &models.User{ID: userID, Email: email, PassHash: passHash}, pair, nil
}

// Login authenticates a user and issues a token pair.
func (a *Auth) Login(
	ctx context.Context,
	email string,
	password string,
) (*models.User, *models.TokenPair, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op))
	log.Info("login request", slog.String("email", email))

	user, err := a.userProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Warn("invalid password", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := a.IssueTokenPair(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token pair", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("userID", user.ID))

	return user, pair, nil
}

// IssueTokenPair mints a signed access/refresh pair and persists the refresh
// token, deleting all prior refresh tokens for the user (single session).
func (a *Auth) IssueTokenPair(ctx context.Context, userID string) (*models.TokenPair, error) {
	const op = "auth.IssueTokenPair"

	accessToken, err := jwt.NewToken(userID, jwt.TypeAccess, a.secret, a.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := jwt.NewToken(userID, jwt.TypeRefresh, a.secret, a.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.tokenStore.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().Add(a.refreshTTL)
	if err := a.tokenStore.SaveRefreshToken(ctx, refreshToken, userID, expiresAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ValidateAccessToken verifies signature, expiry and token type and returns
// the caller's user ID. CPU-only, no storage access.
func (a *Auth) ValidateAccessToken(token string) (string, error) {
	const op = "auth.ValidateAccessToken"

	userID, tokenType, err := jwt.ParseToken(token, a.secret)
	if err != nil || tokenType != jwt.TypeAccess {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return userID, nil
}

// Refresh exchanges a valid refresh token for a new pair (rotation). The old
// token is deleted and can never be used again.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	userID, tokenType, err := jwt.ParseToken(refreshToken, a.secret)
	if err != nil || tokenType != jwt.TypeRefresh {
		log.Warn("refresh token failed verification")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	rec, err := a.tokenStore.RefreshToken(ctx, refreshToken, userID)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("refresh token not found", slog.String("userID", userID))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		log.Error("failed to get refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The stored expiry can lag the JWT claim when TTLs are reconfigured;
	// an expired record is cleaned up lazily here.
	if time.Now().After(rec.ExpiresAt) {
		log.Warn("refresh token expired", slog.String("userID", userID))
		_ = a.tokenStore.DeleteRefreshToken(ctx, refreshToken)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Rotation: the pair issue below also clears tokens for the user, but
	// the explicit delete keeps the old token dead even if issuing fails.
	if err := a.tokenStore.DeleteRefreshToken(ctx, refreshToken); err != nil {
		log.Error("failed to delete refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.IssueTokenPair(ctx, userID)
	if err != nil {
		log.Error("failed to issue token pair", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.String("userID", userID))

	return pair, nil
}

// Revoke deletes all refresh tokens for a user (logout).
func (a *Auth) Revoke(ctx context.Context, userID string) error {
	const op = "auth.Revoke"
	log := a.logger.With(slog.String("op", op), slog.String("userID", userID))

	if err := a.tokenStore.DeleteUserRefreshTokens(ctx, userID); err != nil {
		log.Error("failed to delete refresh tokens", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session revoked")

	return nil
}
