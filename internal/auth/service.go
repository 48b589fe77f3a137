package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hallwaychat/hallway-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// FormatError describes a signup format violation with a client-facing reason.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}

// ErrBadFormat builds a FormatError with the given reason.
func ErrBadFormat(reason string) error {
	return &FormatError{Reason: reason}
}

// Principal is the authenticated identity resolved from a token.
type Principal struct {
	UserID   int64
	Username string
}

// TokenPair bundles an access token with its refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register validates the signup format, creates the user with a hashed
// password, and returns a fresh token pair.
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, *TokenPair, error) {
	normalized, err := ValidateSignup(username, password)
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.store.GetUserByUsername(ctx, normalized)
	if err == nil && existing != nil {
		return nil, nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, normalized, hashedPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login validates credentials and returns a fresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, *TokenPair, error) {
	user, err := s.store.GetUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtConfig, refreshToken)
	if err != nil || claims.TokenType != TokenTypeRefresh {
		return "", ErrInvalidToken
	}

	// The user must still exist; tokens can outlive accounts.
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return "", ErrInvalidToken
	}

	access, err := GenerateToken(s.jwtConfig, user.ID, user.Username, TokenTypeAccess)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return access, nil
}

// Verify resolves an access token to a Principal. This is the capability the
// session core consumes at WebSocket handshake time.
func (s *Service) Verify(ctx context.Context, token string) (*Principal, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil || claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Principal{UserID: user.ID, Username: user.Username}, nil
}

func (s *Service) issueTokens(user *store.User) (*TokenPair, error) {
	access, err := GenerateToken(s.jwtConfig, user.ID, user.Username, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := GenerateToken(s.jwtConfig, user.ID, user.Username, TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// normalizeUsername mirrors the normalization ValidateSignup applies, so
// login lookups hit the stored form.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
