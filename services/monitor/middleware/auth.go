// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the monitor service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// validates it with the auth service, and stores the resulting Claims in the
// Gin context for downstream handlers.
//
//	Request
//	   |
//	   v
//	RequireAuth
//	   |
//	   +- Extract token from "Authorization: Bearer <token>"
//	   |
//	   +- auth.ParseToken(token), require access type
//	   |
//	   +- Store Claims in context
//	           |
//	           v
//	       Handler (retrieves via GetClaims)
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/auth"
)

// claimsKey is the context key for storing token claims.
// Using a namespaced key prevents collisions with other context values.
const claimsKey = "chwmonitor_claims"

// SetClaims stores the authenticated user's claims in the Gin context.
// Called by RequireAuth after successful validation.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
}

// GetClaims retrieves the authenticated user's claims from the Gin context.
// Returns nil if the request was not authenticated.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(claimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// RequireAuth returns middleware that rejects requests without a valid
// access token. Refresh tokens are not accepted here; they are only good
// for the refresh endpoint.
func RequireAuth(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := a.ParseToken(token)
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		SetClaims(c, claims)
		c.Next()
	}
}

// RequireRole returns middleware that rejects authenticated requests whose
// role is not in the allowed set. Must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// extractBearerToken parses the Authorization header expecting the format
// "Bearer <token>". The prefix is case-insensitive per RFC 7235. Returns
// empty string if the header is missing or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
