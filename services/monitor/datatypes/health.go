// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the domain types for the CHW monitoring program:
// community health workers, the patients assigned to them, the visits they
// perform, and the users who operate the dashboard.
package datatypes

import (
	"fmt"
	"math"
	"time"
)

// Visit types recorded by CHWs in the field.
const (
	VisitTypeRoutine   = "routine"
	VisitTypeFollowUp  = "follow-up"
	VisitTypeEmergency = "emergency"
)

// ValidVisitType reports whether t is one of the recognized visit types.
func ValidVisitType(t string) bool {
	switch t {
	case VisitTypeRoutine, VisitTypeFollowUp, VisitTypeEmergency:
		return true
	}
	return false
}

// CommunityHealthWorker is a CHW enrolled in the program. CHWs are the
// program's front line: each one covers a single village and carries a list
// of assigned patient IDs.
type CommunityHealthWorker struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Village          string    `json:"village"`
	District         string    `json:"district"`
	Phone            string    `json:"phone"`
	IsActive         bool      `json:"is_active"`
	DateRegistered   time.Time `json:"date_registered"`
	PatientsAssigned []string  `json:"patients_assigned,omitempty"`
}

// YearsActive returns the CHW's years of service, rounded to one decimal.
func (c *CommunityHealthWorker) YearsActive() float64 {
	days := time.Since(c.DateRegistered).Hours() / 24
	return math.Round(days/365.25*10) / 10
}

// Patient is a program participant assigned to a CHW.
type Patient struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Age                 int        `json:"age"`
	Village             string     `json:"village"`
	CHWID               string     `json:"chw_id"`
	IsPregnant          bool       `json:"is_pregnant"`
	HasChronicCondition bool       `json:"has_chronic_condition"`
	LastVisitDate       *time.Time `json:"last_visit_date,omitempty"`
}

// NeedsVisit reports whether the patient is due for a follow-up visit.
// A patient who has never been visited always needs one.
func (p *Patient) NeedsVisit(thresholdDays int) bool {
	if p.LastVisitDate == nil {
		return true
	}
	days := time.Since(*p.LastVisitDate).Hours() / 24
	return days > float64(thresholdDays)
}

// HealthVisit is a single visit a CHW made to a patient. Visits captured
// without connectivity carry IsOfflineSync so adoption of offline data
// collection can be tracked.
type HealthVisit struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	CHWID         string    `json:"chw_id"`
	VisitDate     time.Time `json:"visit_date"`
	VisitType     string    `json:"visit_type"`
	Notes         string    `json:"notes"`
	LocationLat   *float64  `json:"location_lat,omitempty"`
	LocationLon   *float64  `json:"location_lon,omitempty"`
	IsOfflineSync bool      `json:"is_offline_sync"`
}

// Summary returns a one-line description of the visit for reports. Notes
// are truncated to 50 characters on a rune boundary.
func (v *HealthVisit) Summary() string {
	notes := v.Notes
	if runes := []rune(notes); len(runes) > 50 {
		notes = string(runes[:50])
	}
	return fmt.Sprintf("%s visit on %s: %s...", v.VisitType, v.VisitDate.Format("2006-01-02"), notes)
}
