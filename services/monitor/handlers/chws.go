// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the Gin HTTP handlers for the monitor service.
// Handlers are closures over their dependencies so routes.SetupRoutes can
// wire them without package-level state.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// CHWRequest is the create/update payload for a CHW.
type CHWRequest struct {
	Name     string `json:"name" binding:"required"`
	Village  string `json:"village" binding:"required"`
	District string `json:"district" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

// ListCHWs returns all CHWs, optionally filtered by district and
// status (active|inactive).
func ListCHWs(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		chws, err := s.ListCHWs(c.Request.Context())
		if err != nil {
			slog.Error("failed to list CHWs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list health workers"})
			return
		}

		district := c.Query("district")
		status := c.Query("status")
		filtered := make([]datatypes.CommunityHealthWorker, 0, len(chws))
		for _, chw := range chws {
			if district != "" && chw.District != district {
				continue
			}
			if status == "active" && !chw.IsActive {
				continue
			}
			if status == "inactive" && chw.IsActive {
				continue
			}
			filtered = append(filtered, chw)
		}
		c.JSON(http.StatusOK, gin.H{"chws": filtered, "count": len(filtered)})
	}
}

// CreateCHW registers a new CHW. New workers default to active.
func CreateCHW(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CHWRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chw := &datatypes.CommunityHealthWorker{
			Name:           req.Name,
			Village:        req.Village,
			District:       req.District,
			Phone:          req.Phone,
			IsActive:       true,
			DateRegistered: time.Now().UTC(),
		}
		if req.IsActive != nil {
			chw.IsActive = *req.IsActive
		}
		if err := s.PutCHW(c.Request.Context(), chw); err != nil {
			slog.Error("failed to create CHW", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create health worker"})
			return
		}
		slog.Info("registered new CHW", "chw_id", chw.ID, "district", chw.District)
		c.JSON(http.StatusCreated, chw)
	}
}

// GetCHW returns one CHW with their patients, recent visits and workload
// statistics for the detail view.
func GetCHW(s *store.Store, r *reports.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		chwID := c.Param("chwId")
		chw, err := s.GetCHW(ctx, chwID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "health worker not found"})
			return
		}
		if err != nil {
			slog.Error("failed to load CHW", "chw_id", chwID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
			return
		}

		patients, err := s.ListPatients(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load patients"})
			return
		}
		visits, err := s.ListVisits(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load visits"})
			return
		}

		chwPatients := make([]datatypes.Patient, 0)
		needingVisits := 0
		for _, patient := range patients {
			if patient.CHWID != chwID {
				continue
			}
			chwPatients = append(chwPatients, patient)
			if patient.NeedsVisit(reports.DefaultVisitThresholdDays) {
				needingVisits++
			}
		}

		chwVisits := make([]datatypes.HealthVisit, 0)
		monthAgo := time.Now().AddDate(0, 0, -30)
		visitsThisMonth := 0
		for _, visit := range visits {
			if visit.CHWID != chwID {
				continue
			}
			chwVisits = append(chwVisits, visit)
			if visit.VisitDate.After(monthAgo) {
				visitsThisMonth++
			}
		}
		sort.Slice(chwVisits, func(i, j int) bool {
			return chwVisits[i].VisitDate.After(chwVisits[j].VisitDate)
		})
		recentVisits := chwVisits
		if len(recentVisits) > 20 {
			recentVisits = recentVisits[:20]
		}

		c.JSON(http.StatusOK, gin.H{
			"chw":      chw,
			"patients": chwPatients,
			"visits":   recentVisits,
			"stats": gin.H{
				"total_patients":          len(chwPatients),
				"total_visits":            len(chwVisits),
				"visits_this_month":       visitsThisMonth,
				"patients_needing_visits": needingVisits,
			},
		})
	}
}

// UpdateCHW replaces a CHW's editable fields.
func UpdateCHW(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		chwID := c.Param("chwId")
		chw, err := s.GetCHW(ctx, chwID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "health worker not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
			return
		}

		var req CHWRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		chw.Name = req.Name
		chw.Village = req.Village
		chw.District = req.District
		chw.Phone = req.Phone
		if req.IsActive != nil {
			chw.IsActive = *req.IsActive
		}
		if err := s.PutCHW(ctx, chw); err != nil {
			slog.Error("failed to update CHW", "chw_id", chwID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update health worker"})
			return
		}
		c.JSON(http.StatusOK, chw)
	}
}

// DeleteCHW removes a CHW from the program.
func DeleteCHW(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		chwID := c.Param("chwId")
		err := s.DeleteCHW(c.Request.Context(), chwID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "health worker not found"})
			return
		}
		if err != nil {
			slog.Error("failed to delete CHW", "chw_id", chwID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete health worker"})
			return
		}
		slog.Info("deleted CHW", "chw_id", chwID)
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "chw_id": chwID})
	}
}
