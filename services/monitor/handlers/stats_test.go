// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

func statsRouter(s *store.Store) *gin.Engine {
	r := reports.NewService(s)
	router := gin.New()
	router.GET("/health", HealthCheck)
	router.GET("/stats", GetStats(r))
	router.GET("/stats/districts", GetDistrictStats(r))
	router.GET("/dashboard/:district", GetDistrictDashboard(r))
	return router
}

func TestHealthCheck(t *testing.T) {
	router := statsRouter(newTestStore(t))
	w := doJSON(router, http.MethodGet, "/health", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chw := seedCHW(t, s, "Turkana", "Lodwar", true)
	seedCHW(t, s, "Nairobi", "Kibera", false)
	p := seedPatient(t, s, chw.ID, "Lodwar")
	require.NoError(t, s.PutVisit(ctx, &datatypes.HealthVisit{
		PatientID: p.ID, CHWID: chw.ID,
		VisitDate: time.Now().AddDate(0, 0, -1),
		VisitType: datatypes.VisitTypeRoutine,
	}))

	router := statsRouter(s)
	w := doJSON(router, http.MethodGet, "/stats", nil)
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["total_chws"])
	assert.Equal(t, float64(1), body["active_chws"])
	assert.Equal(t, float64(1), body["total_patients"])
	assert.Equal(t, float64(1), body["total_visits"])
	assert.Equal(t, float64(1), body["visits_this_week"])
}

func TestGetDistrictStats(t *testing.T) {
	s := newTestStore(t)
	chw := seedCHW(t, s, "Turkana", "Lodwar", true)
	seedPatient(t, s, chw.ID, "Lodwar")
	seedCHW(t, s, "Nairobi", "Kibera", true)

	router := statsRouter(s)
	w := doJSON(router, http.MethodGet, "/stats/districts", nil)
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	turkana := body["Turkana"].(map[string]any)
	assert.Equal(t, float64(1), turkana["chws"])
	assert.Equal(t, float64(1), turkana["patients"])
	nairobi := body["Nairobi"].(map[string]any)
	assert.Equal(t, float64(0), nairobi["patients"])
}

func TestGetDistrictDashboard(t *testing.T) {
	s := newTestStore(t)
	seedCHW(t, s, "Turkana", "Lodwar", true)

	router := statsRouter(s)
	w := doJSON(router, http.MethodGet, "/dashboard/Turkana", nil)
	requireStatus(t, w, http.StatusOK)

	body := decodeBody(t, w)
	assert.Equal(t, "Turkana", body["district"])
	assert.Equal(t, float64(1), body["total_chws"])
}
