// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// seedFixture writes a small known program: two Turkana CHWs (one inactive),
// one Nairobi CHW, three patients, and four visits.
func seedFixture(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	chws := []*datatypes.CommunityHealthWorker{
		{ID: "CHW001", Name: "Akai", Village: "Lodwar", District: "Turkana", IsActive: true},
		{ID: "CHW002", Name: "Ekal", Village: "Kakuma", District: "Turkana", IsActive: false},
		{ID: "CHW003", Name: "Njeri", Village: "Kibera", District: "Nairobi", IsActive: true},
	}
	for _, chw := range chws {
		require.NoError(t, s.PutCHW(ctx, chw))
	}

	recent := time.Now().AddDate(0, 0, -3)
	stale := time.Now().AddDate(0, 0, -60)
	patients := []*datatypes.Patient{
		{ID: "PAT0001", Village: "Lodwar", CHWID: "CHW001", LastVisitDate: &recent},
		{ID: "PAT0002", Village: "Kakuma", CHWID: "CHW002", LastVisitDate: &stale},
		{ID: "PAT0003", Village: "Kibera", CHWID: "CHW003"},
	}
	for _, p := range patients {
		require.NoError(t, s.PutPatient(ctx, p))
	}

	visits := []*datatypes.HealthVisit{
		{ID: "VIS00001", PatientID: "PAT0001", CHWID: "CHW001",
			VisitDate: recent, VisitType: datatypes.VisitTypeRoutine, IsOfflineSync: true},
		{ID: "VIS00002", PatientID: "PAT0001", CHWID: "CHW001",
			VisitDate: stale, VisitType: datatypes.VisitTypeEmergency, IsOfflineSync: true},
		{ID: "VIS00003", PatientID: "PAT0002", CHWID: "CHW002",
			VisitDate: stale, VisitType: datatypes.VisitTypeFollowUp, IsOfflineSync: false},
		{ID: "VIS00004", PatientID: "PAT0003", CHWID: "CHW003",
			VisitDate: recent, VisitType: datatypes.VisitTypeRoutine, IsOfflineSync: true},
	}
	for _, v := range visits {
		require.NoError(t, s.PutVisit(ctx, v))
	}

	return NewService(s), s
}

func TestDistrictSummary(t *testing.T) {
	r, _ := seedFixture(t)

	summary, err := r.DistrictSummary(context.Background(), "Turkana")
	require.NoError(t, err)

	assert.Equal(t, "Turkana", summary.District)
	assert.Equal(t, 2, summary.TotalCHWs)
	assert.Equal(t, 1, summary.ActiveCHWs)
	assert.Equal(t, 2, summary.TotalPatients, "patients in Lodwar and Kakuma")
	assert.Equal(t, 3, summary.TotalVisits, "visits by CHW001 and CHW002")
	assert.Equal(t, 1.0, summary.PatientToCHWRatio)
}

func TestDistrictSummary_UnknownDistrict(t *testing.T) {
	r, _ := seedFixture(t)

	summary, err := r.DistrictSummary(context.Background(), "Mombasa")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalCHWs)
	assert.Equal(t, 0.0, summary.PatientToCHWRatio, "no division by zero")
}

func TestOfflineSyncStatus(t *testing.T) {
	r, _ := seedFixture(t)

	report, err := r.OfflineSyncStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalOfflineVisits)
	assert.Equal(t, 2, report.UniqueCHWsOffline, "CHW001 and CHW003")
	assert.Equal(t, 2, report.LastWeekOffline)
	assert.InDelta(t, 75.0, report.OfflineAdoptionRate, 0.01)
}

func TestOfflineSyncStatus_EmptyStore(t *testing.T) {
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	report, err := NewService(s).OfflineSyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.OfflineAdoptionRate)
}

func TestVisitStatsForCHW(t *testing.T) {
	r, _ := seedFixture(t)

	stats, err := r.VisitStatsForCHW(context.Background(), "CHW001")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalVisits)
	assert.Equal(t, 1, stats.RoutineVisits)
	assert.Equal(t, 1, stats.EmergencyVisits)
	assert.Equal(t, 2, stats.OfflineSyncVisits)
	assert.InDelta(t, 50.0, stats.CompletionRate, 0.01)
}

func TestVisitStatsFrom_NoVisits(t *testing.T) {
	stats := VisitStatsFrom(nil, "CHW999")
	assert.Equal(t, 0, stats.TotalVisits)
	assert.Equal(t, 0.0, stats.CompletionRate)
}

func TestProgramStats(t *testing.T) {
	r, _ := seedFixture(t)

	stats, err := r.ProgramStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalCHWs)
	assert.Equal(t, 3, stats.TotalPatients)
	assert.Equal(t, 4, stats.TotalVisits)
	assert.Equal(t, 2, stats.ActiveCHWs)
	assert.Equal(t, 2, stats.VisitsThisWeek)
	// PAT0002 (60 days stale) and PAT0003 (never visited).
	assert.Equal(t, 2, stats.PatientsNeedingVisits)
}

func TestDistrictStats(t *testing.T) {
	r, _ := seedFixture(t)

	stats, err := r.DistrictStats(context.Background())
	require.NoError(t, err)
	require.Contains(t, stats, "Turkana")
	require.Contains(t, stats, "Nairobi")

	assert.Equal(t, 2, stats["Turkana"].CHWs)
	assert.Equal(t, 2, stats["Turkana"].Patients)
	assert.Equal(t, 3, stats["Turkana"].Visits)
	assert.Equal(t, 1, stats["Nairobi"].CHWs)
	assert.Equal(t, 1, stats["Nairobi"].Patients)
	assert.Equal(t, 1, stats["Nairobi"].Visits)
}

func TestPatientsNeedingVisits(t *testing.T) {
	r, _ := seedFixture(t)

	needing, err := r.PatientsNeedingVisits(context.Background(), 30)
	require.NoError(t, err)
	ids := make([]string, 0, len(needing))
	for _, p := range needing {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"PAT0002", "PAT0003"}, ids)

	// Wide threshold clears the stale patient but not the never-visited one.
	needing, err = r.PatientsNeedingVisits(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, "PAT0003", needing[0].ID)
}
