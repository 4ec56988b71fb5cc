// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reports computes the MEAL (Monitoring, Evaluation, Accountability,
// Learning) aggregates the program reports to stakeholders: district
// summaries for ministry reporting, offline adoption rates for technology
// assessment, and per-CHW workload statistics.
package reports

import (
	"context"
	"math"
	"time"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// DefaultVisitThresholdDays is the follow-up window used when a report or
// query does not specify one.
const DefaultVisitThresholdDays = 30

// DistrictSummary is the high-level district view for government reporting.
type DistrictSummary struct {
	District          string  `json:"district"`
	TotalCHWs         int     `json:"total_chws"`
	TotalPatients     int     `json:"total_patients"`
	TotalVisits       int     `json:"total_visits"`
	ActiveCHWs        int     `json:"active_chws"`
	PatientToCHWRatio float64 `json:"patient_to_chw_ratio"`
}

// OfflineSyncReport tracks adoption of offline data collection by CHWs.
type OfflineSyncReport struct {
	TotalOfflineVisits  int     `json:"total_offline_visits"`
	UniqueCHWsOffline   int     `json:"unique_chws_offline"`
	LastWeekOffline     int     `json:"last_week_offline"`
	OfflineAdoptionRate float64 `json:"offline_adoption_rate"`
}

// VisitStats aggregates one CHW's visit history for dashboards.
type VisitStats struct {
	TotalVisits       int     `json:"total_visits"`
	RoutineVisits     int     `json:"routine_visits"`
	EmergencyVisits   int     `json:"emergency_visits"`
	OfflineSyncVisits int     `json:"offline_sync_visits"`
	CompletionRate    float64 `json:"completion_rate"`
}

// ProgramStats is the whole-program dashboard snapshot.
type ProgramStats struct {
	TotalCHWs             int `json:"total_chws"`
	TotalPatients         int `json:"total_patients"`
	TotalVisits           int `json:"total_visits"`
	ActiveCHWs            int `json:"active_chws"`
	VisitsThisWeek        int `json:"visits_this_week"`
	PatientsNeedingVisits int `json:"patients_needing_visits"`
}

// DistrictStats is the per-district breakdown used for charts.
type DistrictStats struct {
	CHWs     int `json:"chws"`
	Patients int `json:"patients"`
	Visits   int `json:"visits"`
}

// Service computes aggregates from store snapshots. Each report reads a
// fresh snapshot so its figures are internally consistent.
type Service struct {
	store *store.Store
}

// NewService returns a report service backed by s.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// DistrictSummary computes the summary for a single district. A district's
// patients are those whose village is covered by a district CHW; its visits
// are those performed by district CHWs.
func (r *Service) DistrictSummary(ctx context.Context, district string) (*DistrictSummary, error) {
	chws, patients, visits, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	chwIDs := make(map[string]bool)
	villages := make(map[string]bool)
	summary := &DistrictSummary{District: district}
	for i := range chws {
		if chws[i].District != district {
			continue
		}
		summary.TotalCHWs++
		if chws[i].IsActive {
			summary.ActiveCHWs++
		}
		chwIDs[chws[i].ID] = true
		villages[chws[i].Village] = true
	}
	for i := range patients {
		if villages[patients[i].Village] {
			summary.TotalPatients++
		}
	}
	for i := range visits {
		if chwIDs[visits[i].CHWID] {
			summary.TotalVisits++
		}
	}
	if summary.TotalCHWs > 0 {
		ratio := float64(summary.TotalPatients) / float64(summary.TotalCHWs)
		summary.PatientToCHWRatio = math.Round(ratio*10) / 10
	}
	return summary, nil
}

// OfflineSyncStatus reports how much data collection happens offline.
func (r *Service) OfflineSyncStatus(ctx context.Context) (*OfflineSyncReport, error) {
	visits, err := r.store.ListVisits(ctx)
	if err != nil {
		return nil, err
	}

	report := &OfflineSyncReport{}
	weekAgo := time.Now().AddDate(0, 0, -7)
	chwsOffline := make(map[string]bool)
	for i := range visits {
		if !visits[i].IsOfflineSync {
			continue
		}
		report.TotalOfflineVisits++
		chwsOffline[visits[i].CHWID] = true
		if visits[i].VisitDate.After(weekAgo) {
			report.LastWeekOffline++
		}
	}
	report.UniqueCHWsOffline = len(chwsOffline)
	if len(visits) > 0 {
		report.OfflineAdoptionRate = float64(report.TotalOfflineVisits) / float64(len(visits)) * 100
	}
	return report, nil
}

// VisitStatsForCHW aggregates the visit history of one CHW.
func (r *Service) VisitStatsForCHW(ctx context.Context, chwID string) (*VisitStats, error) {
	visits, err := r.store.ListVisits(ctx)
	if err != nil {
		return nil, err
	}
	return VisitStatsFrom(visits, chwID), nil
}

// VisitStatsFrom computes VisitStats for chwID from an existing snapshot
// of visits, so callers that already hold one avoid another store read.
func VisitStatsFrom(visits []datatypes.HealthVisit, chwID string) *VisitStats {
	stats := &VisitStats{}
	for i := range visits {
		if visits[i].CHWID != chwID {
			continue
		}
		stats.TotalVisits++
		switch visits[i].VisitType {
		case datatypes.VisitTypeRoutine:
			stats.RoutineVisits++
		case datatypes.VisitTypeEmergency:
			stats.EmergencyVisits++
		}
		if visits[i].IsOfflineSync {
			stats.OfflineSyncVisits++
		}
	}
	if stats.TotalVisits > 0 {
		stats.CompletionRate = float64(stats.RoutineVisits) / float64(stats.TotalVisits) * 100
	}
	return stats
}

// ProgramStats computes the whole-program dashboard snapshot.
func (r *Service) ProgramStats(ctx context.Context) (*ProgramStats, error) {
	chws, patients, visits, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ProgramStats{
		TotalCHWs:     len(chws),
		TotalPatients: len(patients),
		TotalVisits:   len(visits),
	}
	for i := range chws {
		if chws[i].IsActive {
			stats.ActiveCHWs++
		}
	}
	weekAgo := time.Now().AddDate(0, 0, -7)
	for i := range visits {
		if visits[i].VisitDate.After(weekAgo) {
			stats.VisitsThisWeek++
		}
	}
	for i := range patients {
		if patients[i].NeedsVisit(DefaultVisitThresholdDays) {
			stats.PatientsNeedingVisits++
		}
	}
	return stats, nil
}

// DistrictStats computes the per-district breakdown. Patients and visits
// attribute to their CHW's district.
func (r *Service) DistrictStats(ctx context.Context) (map[string]*DistrictStats, error) {
	chws, patients, visits, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*DistrictStats)
	chwDistrict := make(map[string]string)
	for i := range chws {
		district := chws[i].District
		if stats[district] == nil {
			stats[district] = &DistrictStats{}
		}
		stats[district].CHWs++
		chwDistrict[chws[i].ID] = district
	}
	for i := range patients {
		if district, ok := chwDistrict[patients[i].CHWID]; ok {
			stats[district].Patients++
		}
	}
	for i := range visits {
		if district, ok := chwDistrict[visits[i].CHWID]; ok {
			stats[district].Visits++
		}
	}
	return stats, nil
}

// PatientsNeedingVisits returns the patients due for a follow-up.
func (r *Service) PatientsNeedingVisits(ctx context.Context, thresholdDays int) ([]datatypes.Patient, error) {
	patients, err := r.store.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	needing := make([]datatypes.Patient, 0)
	for i := range patients {
		if patients[i].NeedsVisit(thresholdDays) {
			needing = append(needing, patients[i])
		}
	}
	return needing, nil
}

func (r *Service) snapshot(ctx context.Context) (
	[]datatypes.CommunityHealthWorker, []datatypes.Patient, []datatypes.HealthVisit, error) {

	chws, err := r.store.ListCHWs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	patients, err := r.store.ListPatients(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	visits, err := r.store.ListVisits(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return chws, patients, visits, nil
}
