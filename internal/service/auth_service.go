package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"alcyxob/strength-tracker/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrUnauthorizedEmail    = errors.New("this account is not allowed to use the tracker")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired token")
)

const tokenIssuer = "strength-tracker"

// IdentityProvider signs a user in and returns who they are.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
}

// passwordIdentityProvider checks credentials against bcrypt hashes keyed by email.
type passwordIdentityProvider struct {
	accounts map[string]string
	now      func() time.Time
}

// NewPasswordIdentityProvider creates a provider from email -> bcrypt hash pairs.
func NewPasswordIdentityProvider(accounts map[string]string) IdentityProvider {
	normalized := make(map[string]string, len(accounts))
	for email, hash := range accounts {
		normalized[normalizeEmail(email)] = hash
	}
	return &passwordIdentityProvider{accounts: normalized, now: time.Now}
}

func (p *passwordIdentityProvider) SignIn(_ context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password cannot be empty")
	}
	hash, ok := p.accounts[normalizeEmail(email)]
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return &domain.Identity{Email: strings.TrimSpace(email), SignedInAt: p.now()}, nil
}

// AuthService gates the tracker to a single allow-listed account.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, identity *domain.Identity, err error)
	ValidateToken(tokenString string) (*domain.Identity, error)
	IsAllowed(email string) bool
	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	provider      IdentityProvider
	allowedEmail  string
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(provider IdentityProvider, allowedEmail, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 24 * time.Hour
	}
	return &authService{
		provider:      provider,
		allowedEmail:  normalizeEmail(allowedEmail),
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Login signs in through the identity provider and issues a token, but only
// for the allow-listed email. Any other identity is dropped right away.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	// 1. Authenticate
	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	// 2. Authorize
	if !s.IsAllowed(identity.Email) {
		log.WithField("email", identity.Email).Warn("sign-in by an account outside the allow-list")
		return "", nil, ErrUnauthorizedEmail
	}

	// 3. Issue token
	token, err := s.generateJWT(identity)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}
	return token, identity, nil
}

func (s *authService) IsAllowed(email string) bool {
	return s.allowedEmail != "" && normalizeEmail(email) == s.allowedEmail
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given identity.
func (s *authService) generateJWT(identity *domain.Identity) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateToken parses the token and re-applies the allow-list, so a token
// minted for another email is never accepted.
func (s *authService) ValidateToken(tokenString string) (*domain.Identity, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if !s.IsAllowed(claims.Email) {
		return nil, ErrUnauthorizedEmail
	}

	identity := &domain.Identity{Email: claims.Email}
	if claims.IssuedAt != nil {
		identity.SignedInAt = claims.IssuedAt.Time
	}
	return identity, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
