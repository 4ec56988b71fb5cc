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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/observability"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// VisitRequest is the payload for recording a health visit. VisitDate is
// RFC 3339; IsOfflineSync marks visits captured without connectivity and
// uploaded later.
type VisitRequest struct {
	PatientID     string    `json:"patient_id" binding:"required"`
	CHWID         string    `json:"chw_id" binding:"required"`
	VisitDate     time.Time `json:"visit_date" binding:"required"`
	VisitType     string    `json:"visit_type" binding:"required"`
	Notes         string    `json:"notes"`
	LocationLat   *float64  `json:"location_lat"`
	LocationLon   *float64  `json:"location_lon"`
	IsOfflineSync bool      `json:"is_offline_sync"`
}

// CreateVisit records a health visit and bumps the patient's last visit
// date when the new visit is the most recent one.
func CreateVisit(s *store.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req VisitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !datatypes.ValidVisitType(req.VisitType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "visit_type must be routine, follow-up or emergency"})
			return
		}

		patient, err := s.GetPatient(ctx, req.PatientID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "patient does not exist"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load patient"})
			return
		}
		if _, err := s.GetCHW(ctx, req.CHWID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "health worker does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
			return
		}

		visit := &datatypes.HealthVisit{
			PatientID:     req.PatientID,
			CHWID:         req.CHWID,
			VisitDate:     req.VisitDate,
			VisitType:     req.VisitType,
			Notes:         req.Notes,
			LocationLat:   req.LocationLat,
			LocationLon:   req.LocationLon,
			IsOfflineSync: req.IsOfflineSync,
		}
		if err := s.PutVisit(ctx, visit); err != nil {
			slog.Error("failed to record visit", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record visit"})
			return
		}

		if patient.LastVisitDate == nil || visit.VisitDate.After(*patient.LastVisitDate) {
			patient.LastVisitDate = &visit.VisitDate
			if err := s.PutPatient(ctx, patient); err != nil {
				slog.Error("failed to update patient last visit", "patient_id", patient.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update patient"})
				return
			}
		}

		if metrics != nil {
			metrics.RecordVisit(visit.VisitType, visit.IsOfflineSync)
		}
		slog.Info("recorded visit",
			"visit_id", visit.ID,
			"patient_id", visit.PatientID,
			"chw_id", visit.CHWID,
			"offline", visit.IsOfflineSync)
		c.JSON(http.StatusCreated, visit)
	}
}
