// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
)

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStats returns the whole-program dashboard snapshot.
func GetStats(r *reports.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := r.ProgramStats(c.Request.Context())
		if err != nil {
			slog.Error("failed to compute program stats", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetDistrictStats returns the per-district breakdown used for charts.
func GetDistrictStats(r *reports.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := r.DistrictStats(c.Request.Context())
		if err != nil {
			slog.Error("failed to compute district stats", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute district stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetDistrictDashboard returns the summary for one district, for ministry
// reporting views.
func GetDistrictDashboard(r *reports.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		district := c.Param("district")
		summary, err := r.DistrictSummary(c.Request.Context(), district)
		if err != nil {
			slog.Error("failed to compute district summary", "district", district, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute district summary"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
