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
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// PatientRequest is the create/update payload for a patient.
type PatientRequest struct {
	Name                string `json:"name" binding:"required"`
	Age                 int    `json:"age" binding:"required,gte=0,lte=130"`
	Village             string `json:"village" binding:"required"`
	CHWID               string `json:"chw_id" binding:"required"`
	IsPregnant          bool   `json:"is_pregnant"`
	HasChronicCondition bool   `json:"has_chronic_condition"`
}

// ListPatients returns all patients, optionally filtered by assigned CHW
// (chw_id) or due status (needs_visit=true).
func ListPatients(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		patients, err := s.ListPatients(c.Request.Context())
		if err != nil {
			slog.Error("failed to list patients", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list patients"})
			return
		}

		chwID := c.Query("chw_id")
		needsVisit := c.Query("needs_visit")
		filtered := make([]datatypes.Patient, 0, len(patients))
		for _, patient := range patients {
			if chwID != "" && patient.CHWID != chwID {
				continue
			}
			if needsVisit == "true" && !patient.NeedsVisit(reports.DefaultVisitThresholdDays) {
				continue
			}
			filtered = append(filtered, patient)
		}
		c.JSON(http.StatusOK, gin.H{"patients": filtered, "count": len(filtered)})
	}
}

// CreatePatient registers a new patient and adds them to the assigned
// CHW's patient list. The CHW must exist.
func CreatePatient(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req PatientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chw, err := s.GetCHW(ctx, req.CHWID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assigned health worker does not exist"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
			return
		}

		patient := &datatypes.Patient{
			Name:                req.Name,
			Age:                 req.Age,
			Village:             req.Village,
			CHWID:               req.CHWID,
			IsPregnant:          req.IsPregnant,
			HasChronicCondition: req.HasChronicCondition,
		}
		if err := s.PutPatient(ctx, patient); err != nil {
			slog.Error("failed to create patient", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register patient"})
			return
		}

		chw.PatientsAssigned = append(chw.PatientsAssigned, patient.ID)
		if err := s.PutCHW(ctx, chw); err != nil {
			slog.Error("failed to update CHW assignment", "chw_id", chw.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign patient"})
			return
		}
		slog.Info("registered new patient", "patient_id", patient.ID, "chw_id", chw.ID)
		c.JSON(http.StatusCreated, patient)
	}
}

// GetPatient returns one patient with their CHW and full visit history.
func GetPatient(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		patientID := c.Param("patientId")
		patient, err := s.GetPatient(ctx, patientID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load patient"})
			return
		}

		chw, err := s.GetCHW(ctx, patient.CHWID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
			return
		}

		visits, err := s.ListVisits(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load visits"})
			return
		}
		history := make([]datatypes.HealthVisit, 0)
		for _, visit := range visits {
			if visit.PatientID == patientID {
				history = append(history, visit)
			}
		}
		sort.Slice(history, func(i, j int) bool {
			return history[i].VisitDate.After(history[j].VisitDate)
		})

		c.JSON(http.StatusOK, gin.H{"patient": patient, "chw": chw, "visits": history})
	}
}

// UpdatePatient replaces a patient's editable fields. A CHW reassignment
// moves the patient between the old and new workers' assignment lists.
func UpdatePatient(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		patientID := c.Param("patientId")
		patient, err := s.GetPatient(ctx, patientID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load patient"})
			return
		}

		var req PatientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.CHWID != patient.CHWID {
			if err := reassignPatient(c, s, patient, req.CHWID); err != nil {
				return // response already written
			}
		}
		patient.Name = req.Name
		patient.Age = req.Age
		patient.Village = req.Village
		patient.IsPregnant = req.IsPregnant
		patient.HasChronicCondition = req.HasChronicCondition

		if err := s.PutPatient(ctx, patient); err != nil {
			slog.Error("failed to update patient", "patient_id", patientID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update patient"})
			return
		}
		c.JSON(http.StatusOK, patient)
	}
}

// reassignPatient moves the patient to a new CHW, maintaining both
// assignment lists. Writes the error response itself on failure.
func reassignPatient(c *gin.Context, s *store.Store, patient *datatypes.Patient, newCHWID string) error {
	ctx := c.Request.Context()
	newCHW, err := s.GetCHW(ctx, newCHWID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new health worker does not exist"})
		return err
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load health worker"})
		return err
	}

	if oldCHW, err := s.GetCHW(ctx, patient.CHWID); err == nil {
		kept := oldCHW.PatientsAssigned[:0]
		for _, id := range oldCHW.PatientsAssigned {
			if id != patient.ID {
				kept = append(kept, id)
			}
		}
		oldCHW.PatientsAssigned = kept
		if err := s.PutCHW(ctx, oldCHW); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reassign patient"})
			return err
		}
	}

	patient.CHWID = newCHWID
	newCHW.PatientsAssigned = append(newCHW.PatientsAssigned, patient.ID)
	if err := s.PutCHW(ctx, newCHW); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reassign patient"})
		return err
	}
	slog.Info("reassigned patient", "patient_id", patient.ID, "chw_id", newCHWID)
	return nil
}
