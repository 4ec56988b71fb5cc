// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

func (b *builder) resolveHealthWorkers(p graphql.ResolveParams) (any, error) {
	chws, err := b.store.ListCHWs(p.Context)
	if err != nil {
		return nil, err
	}
	district, hasDistrict := p.Args["district"].(string)
	isActive, hasActive := p.Args["isActive"].(bool)

	result := make([]datatypes.CommunityHealthWorker, 0, len(chws))
	for _, chw := range chws {
		if hasDistrict && chw.District != district {
			continue
		}
		if hasActive && chw.IsActive != isActive {
			continue
		}
		result = append(result, chw)
	}
	return result, nil
}

func (b *builder) resolvePatientsNeedingVisits(p graphql.ResolveParams) (any, error) {
	threshold, _ := p.Args["daysThreshold"].(int)
	if threshold <= 0 {
		threshold = reports.DefaultVisitThresholdDays
	}
	return b.reports.PatientsNeedingVisits(p.Context, threshold)
}

func (b *builder) resolveDistrictSummary(p graphql.ResolveParams) (any, error) {
	district, _ := p.Args["district"].(string)
	return b.reports.DistrictSummary(p.Context, district)
}

func (b *builder) resolveCHWPatients(p graphql.ResolveParams) (any, error) {
	chw, err := source[datatypes.CommunityHealthWorker](p)
	if err != nil {
		return nil, err
	}
	patients, err := b.store.ListPatients(p.Context)
	if err != nil {
		return nil, err
	}
	assigned := make([]datatypes.Patient, 0)
	for _, patient := range patients {
		if patient.CHWID == chw.ID {
			assigned = append(assigned, patient)
		}
	}
	return assigned, nil
}

func (b *builder) resolveCHWRecentVisits(p graphql.ResolveParams) (any, error) {
	chw, err := source[datatypes.CommunityHealthWorker](p)
	if err != nil {
		return nil, err
	}
	days, _ := p.Args["days"].(int)
	if days <= 0 {
		days = reports.DefaultVisitThresholdDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	visits, err := b.store.ListVisits(p.Context)
	if err != nil {
		return nil, err
	}
	recent := make([]datatypes.HealthVisit, 0)
	for _, visit := range visits {
		if visit.CHWID == chw.ID && visit.VisitDate.After(cutoff) {
			recent = append(recent, visit)
		}
	}
	return recent, nil
}

func (b *builder) resolveCHWVisitStats(p graphql.ResolveParams) (any, error) {
	chw, err := source[datatypes.CommunityHealthWorker](p)
	if err != nil {
		return nil, err
	}
	return b.reports.VisitStatsForCHW(p.Context, chw.ID)
}

func (b *builder) resolvePatientCHW(p graphql.ResolveParams) (any, error) {
	patient, err := source[datatypes.Patient](p)
	if err != nil {
		return nil, err
	}
	chw, err := b.store.GetCHW(p.Context, patient.CHWID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return chw, err
}

func (b *builder) resolvePatientVisits(p graphql.ResolveParams) (any, error) {
	patient, err := source[datatypes.Patient](p)
	if err != nil {
		return nil, err
	}
	visits, err := b.store.ListVisits(p.Context)
	if err != nil {
		return nil, err
	}
	history := make([]datatypes.HealthVisit, 0)
	for _, visit := range visits {
		if visit.PatientID == patient.ID {
			history = append(history, visit)
		}
	}
	return history, nil
}

func (b *builder) resolveVisitPatient(p graphql.ResolveParams) (any, error) {
	visit, err := source[datatypes.HealthVisit](p)
	if err != nil {
		return nil, err
	}
	patient, err := b.store.GetPatient(p.Context, visit.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return patient, err
}

func (b *builder) resolveVisitCHW(p graphql.ResolveParams) (any, error) {
	visit, err := source[datatypes.HealthVisit](p)
	if err != nil {
		return nil, err
	}
	chw, err := b.store.GetCHW(p.Context, visit.CHWID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return chw, err
}
