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

	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

func visitRouter(s *store.Store) *gin.Engine {
	router := gin.New()
	router.POST("/visits", CreateVisit(s, nil))
	return router
}

func TestCreateVisit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chw := seedCHW(t, s, "Turkana", "Lodwar", true)
	p := seedPatient(t, s, chw.ID, "Lodwar")
	router := visitRouter(s)

	visitDate := time.Now().Add(-2 * time.Hour).UTC()
	w := doJSON(router, http.MethodPost, "/visits", gin.H{
		"patient_id":      p.ID,
		"chw_id":          chw.ID,
		"visit_date":      visitDate.Format(time.RFC3339),
		"visit_type":      "routine",
		"notes":           "BP and weight normal",
		"is_offline_sync": true,
	})
	requireStatus(t, w, http.StatusCreated)

	body := decodeBody(t, w)
	assert.Equal(t, "VIS00001", body["id"])
	assert.Equal(t, true, body["is_offline_sync"])

	// The patient's last visit date is bumped.
	got, err := s.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastVisitDate)
	assert.Equal(t, visitDate.Unix(), got.LastVisitDate.Unix())
}

func TestCreateVisit_DoesNotRegressLastVisitDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chw := seedCHW(t, s, "Turkana", "Lodwar", true)
	p := seedPatient(t, s, chw.ID, "Lodwar")
	newest := time.Now().UTC()
	p.LastVisitDate = &newest
	require.NoError(t, s.PutPatient(ctx, p))

	// Backfilling an older offline visit must not move the date backwards.
	router := visitRouter(s)
	w := doJSON(router, http.MethodPost, "/visits", gin.H{
		"patient_id":      p.ID,
		"chw_id":          chw.ID,
		"visit_date":      newest.AddDate(0, 0, -10).Format(time.RFC3339),
		"visit_type":      "follow-up",
		"is_offline_sync": true,
	})
	requireStatus(t, w, http.StatusCreated)

	got, err := s.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, newest.Unix(), got.LastVisitDate.Unix())
}

func TestCreateVisit_Rejections(t *testing.T) {
	s := newTestStore(t)
	chw := seedCHW(t, s, "Turkana", "Lodwar", true)
	p := seedPatient(t, s, chw.ID, "Lodwar")
	router := visitRouter(s)
	date := time.Now().Format(time.RFC3339)

	tests := []struct {
		name string
		body gin.H
	}{
		{"invalid visit type", gin.H{
			"patient_id": p.ID, "chw_id": chw.ID, "visit_date": date, "visit_type": "checkup"}},
		{"unknown patient", gin.H{
			"patient_id": "PAT9999", "chw_id": chw.ID, "visit_date": date, "visit_type": "routine"}},
		{"unknown chw", gin.H{
			"patient_id": p.ID, "chw_id": "CHW999", "visit_date": date, "visit_type": "routine"}},
		{"missing visit date", gin.H{
			"patient_id": p.ID, "chw_id": chw.ID, "visit_type": "routine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/visits", tt.body)
			requireStatus(t, w, http.StatusBadRequest)
		})
	}
}
