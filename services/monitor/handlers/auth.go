// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/auth"
	"github.com/ict4d-health/chwmonitor/services/monitor/middleware"
	"github.com/ict4d-health/chwmonitor/services/monitor/observability"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Register creates a new dashboard account.
func Register(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, tokens, err := a.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		case errors.Is(err, auth.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
			return
		case err != nil:
			// Password policy errors carry their own message.
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Info("registered user", "user_id", user.ID, "role", user.Role)
		c.JSON(http.StatusCreated, gin.H{
			"message":       "Registration successful",
			"user":          user.Public(),
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
		})
	}
}

// Login authenticates a user and issues a token pair.
func Login(a *auth.Service, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
			return
		}

		user, tokens, err := a.Login(c.Request.Context(), req.Email, req.Password, req.Remember)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			if metrics != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_credentials").Inc()
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		case errors.Is(err, auth.ErrAccountDeactivated):
			if metrics != nil {
				metrics.AuthFailuresTotal.WithLabelValues("deactivated").Inc()
			}
			c.JSON(http.StatusForbidden, gin.H{"error": "account is deactivated"})
			return
		case err != nil:
			slog.Error("login failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       "Login successful",
			"user":          user.Public(),
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
		})
	}
}

// Logout acknowledges the logout. Sessions are stateless JWTs; the client
// discards its tokens.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
	}
}

// RefreshToken mints a new access token from a refresh token.
func RefreshToken(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
			return
		}
		access, err := a.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": access})
	}
}

// ForgotPassword starts a password reset. The response is identical whether
// or not the email is registered, to prevent enumeration. Without an email
// channel the token is logged for the operator to relay.
func ForgotPassword(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
			return
		}
		token, err := a.ForgotPassword(c.Request.Context(), req.Email)
		if err != nil {
			slog.Error("forgot password failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			return
		}
		if token != "" {
			slog.Info("password reset token issued", "token", token)
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "If your email is registered, you will receive a password reset link",
		})
	}
}

// ResetPassword completes a password reset with a valid token.
func ResetPassword(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and new password required"})
			return
		}
		err := a.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
	}
}

// Me returns the authenticated user's profile.
func Me(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		user, err := a.CurrentUser(c.Request.Context(), claims.Subject)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user.Public()})
	}
}

// UpdateProfile changes the authenticated user's name and/or email.
func UpdateProfile(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := a.UpdateProfile(c.Request.Context(), claims.Subject, req.Email, req.FullName)
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		case errors.Is(err, auth.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
			return
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user.Public()})
	}
}
