// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ict4d-health/chwmonitor/services/monitor/auth"
	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/handlers"
	"github.com/ict4d-health/chwmonitor/services/monitor/middleware"
	"github.com/ict4d-health/chwmonitor/services/monitor/observability"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// SetupRoutes wires all endpoints. Reads require any authenticated role,
// writes require manager or admin, deletes require admin. The credential
// endpoints sit behind a per-IP rate limit.
func SetupRoutes(router *gin.Engine, s *store.Store, r *reports.Service,
	a *auth.Service, graphqlHandler http.Handler, metrics *observability.Metrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// GraphQL endpoint, open like the original so GraphiQL works in a
	// browser without a bearer token.
	router.Any("/graphql", gin.WrapH(graphqlHandler))

	limiter := middleware.NewRateLimiter(10, 5)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limiter.Middleware(), handlers.Register(a))
		authGroup.POST("/login", limiter.Middleware(), handlers.Login(a, metrics))
		authGroup.POST("/logout", handlers.Logout())
		authGroup.POST("/refresh", handlers.RefreshToken(a))
		authGroup.POST("/forgot-password", limiter.Middleware(), handlers.ForgotPassword(a))
		authGroup.POST("/reset-password", limiter.Middleware(), handlers.ResetPassword(a))
		authGroup.GET("/me", middleware.RequireAuth(a), handlers.Me(a))
		authGroup.PUT("/profile", middleware.RequireAuth(a), handlers.UpdateProfile(a))
	}

	anyRole := middleware.RequireRole(datatypes.RoleViewer, datatypes.RoleManager, datatypes.RoleAdmin)
	writeRole := middleware.RequireRole(datatypes.RoleManager, datatypes.RoleAdmin)
	adminRole := middleware.RequireRole(datatypes.RoleAdmin)

	v1 := router.Group("/v1")
	v1.Use(middleware.RequireAuth(a))
	{
		chws := v1.Group("/chws")
		{
			chws.GET("", anyRole, handlers.ListCHWs(s))
			chws.POST("", writeRole, handlers.CreateCHW(s))
			chws.GET("/:chwId", anyRole, handlers.GetCHW(s, r))
			chws.PUT("/:chwId", writeRole, handlers.UpdateCHW(s))
			chws.DELETE("/:chwId", adminRole, handlers.DeleteCHW(s))
		}
		patients := v1.Group("/patients")
		{
			patients.GET("", anyRole, handlers.ListPatients(s))
			patients.POST("", writeRole, handlers.CreatePatient(s))
			patients.GET("/:patientId", anyRole, handlers.GetPatient(s))
			patients.PUT("/:patientId", writeRole, handlers.UpdatePatient(s))
		}
		v1.POST("/visits", writeRole, handlers.CreateVisit(s, metrics))

		v1.GET("/stats", anyRole, handlers.GetStats(r))
		v1.GET("/stats/districts", anyRole, handlers.GetDistrictStats(r))
		v1.GET("/dashboard/:district", anyRole, handlers.GetDistrictDashboard(r))
	}
}
