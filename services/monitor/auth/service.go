// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package auth implements user accounts for the dashboard: registration,
// login, token refresh and password reset. Passwords are bcrypt-hashed and
// sessions are stateless JWTs signed with an HMAC key from config.
//
// # Enumeration Safety
//
// Login returns the same ErrInvalidCredentials whether the email is unknown
// or the password wrong, and ForgotPassword succeeds silently for unknown
// emails, so neither endpoint leaks which addresses are registered.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// Sentinel errors returned by the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// Token type claim values.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	UserID    string `json:"uid,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token set returned on register and login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Config holds the signing key and token lifetimes.
type Config struct {
	// SigningKey is the HMAC key for JWTs. Must not be empty.
	SigningKey []byte

	// AccessTTL is the default access token lifetime. Default: 1h.
	AccessTTL time.Duration

	// RememberTTL is the access token lifetime when the client asks to be
	// remembered. Default: 7 days.
	RememberTTL time.Duration

	// RefreshTTL is the refresh token lifetime. Default: 30 days.
	RefreshTTL time.Duration

	// ResetTokenTTL is the password reset token lifetime. Default: 1h.
	ResetTokenTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.AccessTTL == 0 {
		c.AccessTTL = time.Hour
	}
	if c.RememberTTL == 0 {
		c.RememberTTL = 7 * 24 * time.Hour
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = time.Hour
	}
}

// Service provides account operations backed by the store.
type Service struct {
	store    *store.Store
	cfg      Config
	validate *validator.Validate
}

// NewService returns an auth service. Returns an error when the signing key
// is empty; running without one would mint forgeable tokens.
func NewService(s *store.Store, cfg Config) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("jwt signing key must not be empty")
	}
	cfg.applyDefaults()
	return &Service{
		store:    s,
		cfg:      cfg,
		validate: validator.New(),
	}, nil
}

// ValidatePassword checks the password policy: at least 8 characters with
// an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one number")
	}
	return nil
}

// Register creates a new account with the default viewer role and returns
// the user with a fresh token pair.
func (a *Service) Register(ctx context.Context, email, password, fullName string) (*datatypes.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if err := a.validate.Var(email, "required,email"); err != nil {
		return nil, nil, ErrInvalidEmail
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &datatypes.User{
		ID:           "USR-" + uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		Role:         datatypes.RoleViewer,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := a.mintPair(user, a.cfg.AccessTTL)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login verifies credentials and returns the user with a fresh token pair.
// When remember is true the access token lives RememberTTL instead of
// AccessTTL.
func (a *Service) Login(ctx context.Context, email, password string, remember bool) (*datatypes.User, *TokenPair, error) {
	user, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := a.store.UpdateUser(ctx, user.Email, user); err != nil {
		return nil, nil, err
	}

	accessTTL := a.cfg.AccessTTL
	if remember {
		accessTTL = a.cfg.RememberTTL
	}
	tokens, err := a.mintPair(user, accessTTL)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh validates a refresh token and mints a new access token.
func (a *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := a.ParseToken(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", ErrInvalidToken
	}
	user, err := a.store.GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return a.mintToken(user, TokenTypeAccess, a.cfg.AccessTTL)
}

// ForgotPassword stores a reset token on the account and returns it.
// Unknown emails return ("", nil) so callers can answer uniformly.
func (a *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token := uuid.NewString() + uuid.NewString()
	expiry := time.Now().UTC().Add(a.cfg.ResetTokenTTL)
	user.ResetToken = token
	user.ResetTokenExpiry = &expiry
	if err := a.store.UpdateUser(ctx, user.Email, user); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword sets a new password for the account holding the reset token.
func (a *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := a.store.GetUserByResetToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		return ErrInvalidToken
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	return a.store.UpdateUser(ctx, user.Email, user)
}

// CurrentUser returns the account for an email, typically taken from a
// validated token's subject.
func (a *Service) CurrentUser(ctx context.Context, email string) (*datatypes.User, error) {
	return a.store.GetUserByEmail(ctx, email)
}

// UpdateProfile changes the account's full name and/or email. An email
// change is validated and must not collide with another account.
func (a *Service) UpdateProfile(ctx context.Context, currentEmail, newEmail, fullName string) (*datatypes.User, error) {
	user, err := a.store.GetUserByEmail(ctx, currentEmail)
	if err != nil {
		return nil, err
	}
	if fullName != "" {
		user.FullName = strings.TrimSpace(fullName)
	}
	oldEmail := user.Email
	if newEmail != "" {
		newEmail = normalizeEmail(newEmail)
		if err := a.validate.Var(newEmail, "required,email"); err != nil {
			return nil, ErrInvalidEmail
		}
		user.Email = newEmail
	}
	if err := a.store.UpdateUser(ctx, oldEmail, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ParseToken validates a JWT's signature and expiry and returns its claims.
func (a *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.cfg.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (a *Service) mintPair(user *datatypes.User, accessTTL time.Duration) (*TokenPair, error) {
	access, err := a.mintToken(user, TokenTypeAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := a.mintToken(user, TokenTypeRefresh, a.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *Service) mintToken(user *datatypes.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    user.ID,
		Role:      user.Role,
		Name:      user.FullName,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", tokenType, err)
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
