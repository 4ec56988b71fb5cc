// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package seeder generates realistic demonstration data: CHWs spread across
// four Kenyan districts, patients assigned to them, and a visit history with
// a majority of visits captured offline. Intended for demos and local
// development, not production deployments.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// ErrNotEmpty is returned when the store already holds records and Force
// was not set.
var ErrNotEmpty = errors.New("store already contains data; use force to seed anyway")

var districts = []string{"Turkana", "Elgeyo-Marakwet", "Kajiado", "Nairobi"}

var villages = map[string][]string{
	"Turkana":         {"Lodwar", "Kakuma", "Lokitaung"},
	"Elgeyo-Marakwet": {"Iten", "Kapsowar", "Tambach"},
	"Kajiado":         {"Kajiado Town", "Ngong", "Kitengela"},
	"Nairobi":         {"Kibera", "Mathare", "Kawangware"},
}

// Options controls how much data to generate.
type Options struct {
	CHWs     int
	Patients int
	Visits   int

	// Force seeds even when the store already contains records.
	Force bool

	// Seed fixes the random source for reproducible data. Zero picks a
	// random seed.
	Seed uint64
}

// Result reports what was written.
type Result struct {
	CHWs     int
	Patients int
	Visits   int
}

// Run populates the store with generated data. Unless Force is set, it
// refuses to touch a non-empty store so a restart never duplicates records.
func Run(ctx context.Context, s *store.Store, opts Options) (*Result, error) {
	if !opts.Force {
		empty, err := s.IsEmpty(ctx)
		if err != nil {
			return nil, err
		}
		if !empty {
			return nil, ErrNotEmpty
		}
	}
	if opts.CHWs <= 0 || opts.Patients <= 0 {
		return nil, fmt.Errorf("seed counts must be positive, got chws=%d patients=%d", opts.CHWs, opts.Patients)
	}

	faker := gofakeit.New(opts.Seed)
	now := time.Now()

	chws := make([]*datatypes.CommunityHealthWorker, 0, opts.CHWs)
	for i := 0; i < opts.CHWs; i++ {
		district := districts[faker.IntRange(0, len(districts)-1)]
		vs := villages[district]
		chw := &datatypes.CommunityHealthWorker{
			Name:     faker.Name(),
			Village:  vs[faker.IntRange(0, len(vs)-1)],
			District: district,
			Phone:    faker.Phone(),
			IsActive: faker.Float64() > 0.1, // 90% active
			DateRegistered: faker.DateRange(
				now.AddDate(-2, 0, 0), now),
		}
		if err := s.PutCHW(ctx, chw); err != nil {
			return nil, fmt.Errorf("seeding chw %d: %w", i, err)
		}
		chws = append(chws, chw)
	}

	patients := make([]*datatypes.Patient, 0, opts.Patients)
	for i := 0; i < opts.Patients; i++ {
		chw := chws[faker.IntRange(0, len(chws)-1)]
		age := faker.IntRange(1, 80)
		p := &datatypes.Patient{
			Name:                faker.Name(),
			Age:                 age,
			Village:             chw.Village,
			CHWID:               chw.ID,
			IsPregnant:          age >= 15 && age <= 45 && faker.Float64() > 0.7,
			HasChronicCondition: faker.Float64() > 0.8,
		}
		if err := s.PutPatient(ctx, p); err != nil {
			return nil, fmt.Errorf("seeding patient %d: %w", i, err)
		}
		chw.PatientsAssigned = append(chw.PatientsAssigned, p.ID)
		patients = append(patients, p)
	}
	// Second pass so each CHW record carries its full assignment list.
	for _, chw := range chws {
		if err := s.PutCHW(ctx, chw); err != nil {
			return nil, fmt.Errorf("updating chw %s assignments: %w", chw.ID, err)
		}
	}

	chwByID := make(map[string]*datatypes.CommunityHealthWorker, len(chws))
	for _, chw := range chws {
		chwByID[chw.ID] = chw
	}

	for i := 0; i < opts.Visits; i++ {
		p := patients[faker.IntRange(0, len(patients)-1)]
		visitDate := faker.DateRange(now.AddDate(0, -6, 0), now)
		v := &datatypes.HealthVisit{
			PatientID:     p.ID,
			CHWID:         p.CHWID,
			VisitDate:     visitDate,
			VisitType:     pickVisitType(faker),
			Notes:         faker.Sentence(8),
			IsOfflineSync: faker.Float64() > 0.4, // 60% captured offline
		}
		if err := s.PutVisit(ctx, v); err != nil {
			return nil, fmt.Errorf("seeding visit %d: %w", i, err)
		}
		if p.LastVisitDate == nil || visitDate.After(*p.LastVisitDate) {
			d := visitDate
			p.LastVisitDate = &d
		}
	}
	// Persist the last-visit dates accumulated above.
	for _, p := range patients {
		if p.LastVisitDate == nil {
			continue
		}
		if err := s.PutPatient(ctx, p); err != nil {
			return nil, fmt.Errorf("updating patient %s last visit: %w", p.ID, err)
		}
	}

	return &Result{CHWs: len(chws), Patients: len(patients), Visits: opts.Visits}, nil
}

// pickVisitType draws a visit type weighted 60% routine, 30% follow-up,
// 10% emergency, matching observed field distributions.
func pickVisitType(faker *gofakeit.Faker) string {
	r := faker.Float64()
	switch {
	case r < 0.6:
		return datatypes.VisitTypeRoutine
	case r < 0.9:
		return datatypes.VisitTypeFollowUp
	default:
		return datatypes.VisitTypeEmergency
	}
}
