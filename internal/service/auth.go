// Package service orchestrates the ledger rules over the storage ports
// and exposes the operations the HTTP layer calls.
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/port"
)

var authTracer = otel.Tracer("rentbook/service/auth")

const bcryptCost = 12

// scopePrefix namespaces every identity's snapshot file. All store
// access goes through ScopeKey; there is no cross-scope read path.
const scopePrefix = "rentbook_v1_"

// ScopeKey derives the storage namespace for a user.
func ScopeKey(userID string) string {
	return scopePrefix + userID
}

// AuthService implements the demo credential contract: signup with
// email conflict detection, password login and Google sign-in that
// trusts the ID token payload.
type AuthService struct {
	users     port.UserStore
	logger    *zap.Logger
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(users port.UserStore, logger *zap.Logger, jwtSecret string, accessTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
	}
}

// ============================================================
// Signup — POST /v1/auth/signup
// ============================================================

func (s *AuthService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if len(req.Password) < 6 {
		return nil, &domain.ErrValidation{Field: "password", Message: "must be at least 6 characters"}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &domain.ErrConflict{Message: "an account with this email already exists"}
	} else {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec := &domain.UserRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", rec.ID))
	// Signup logs the user straight in.
	return s.issueToken(rec)
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	rec, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if rec.PasswordHash == "" {
		// Google-only account; no password to compare.
		return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: bad password", zap.String("user_id", rec.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
	}

	return s.issueToken(rec)
}

// ============================================================
// Google sign-in — POST /v1/auth/google
// ============================================================

// googlePayload is the subset of the Google ID token payload we read.
type googlePayload struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// LoginWithGoogle accepts a Google ID token, decodes its payload and
// upserts the account by email. The signature is not verified; this
// mirrors the demo credential contract, where the token is only a
// profile carrier.
func (s *AuthService) LoginWithGoogle(ctx context.Context, credential string) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.LoginWithGoogle")
	defer span.End()

	payload, err := decodeGooglePayload(credential)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid Google credential"}
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return nil, &domain.ErrUnauthorized{Message: "Google credential carries no email"}
	}

	rec, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		rec = &domain.UserRecord{
			ID:        uuid.NewString(),
			Name:      payload.Name,
			Email:     email,
			CreatedAt: time.Now(),
		}
	}

	// Refresh profile data on every sign-in.
	if payload.Name != "" {
		rec.Name = payload.Name
	}
	rec.Picture = payload.Picture

	if err := s.users.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	s.logger.Info("google sign-in", zap.String("user_id", rec.ID))
	return s.issueToken(rec)
}

func decodeGooglePayload(credential string) (*googlePayload, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("credential is not a JWT")
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var p googlePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &p, nil
}

// ============================================================
// Tokens
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueToken(rec *domain.UserRecord) (*domain.AuthResponse, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  rec.ID,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "rentbook-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User: domain.User{
			ID:      rec.ID,
			Name:    rec.Name,
			Email:   rec.Email,
			Picture: rec.Picture,
		},
	}, nil
}

// ValidateAccessToken parses and verifies a bearer token. Used by the
// auth middleware.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	return claims, nil
}
