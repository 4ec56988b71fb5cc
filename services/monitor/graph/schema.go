// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph exposes the monitoring data as a GraphQL API. GraphQL keeps
// payloads small for low-bandwidth clients: a field worker's app asks for
// exactly the fields it renders.
//
// The schema mirrors the program's reporting vocabulary: healthWorkers,
// patientsNeedingVisits, districtSummary and offlineSyncStatus, with nested
// resolvers for patients, visit history and per-CHW statistics.
package graph

import (
	"fmt"

	"github.com/graphql-go/graphql"
	gqlhandler "github.com/graphql-go/handler"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// NewSchema builds the query schema over the given store and report service.
func NewSchema(s *store.Store, r *reports.Service) (graphql.Schema, error) {
	b := &builder{store: s, reports: r}
	b.buildTypes()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"healthWorkers": &graphql.Field{
				Type:        graphql.NewList(b.chwType),
				Description: "Filter CHWs by district and active status",
				Args: graphql.FieldConfigArgument{
					"district": &graphql.ArgumentConfig{Type: graphql.String},
					"isActive": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: b.resolveHealthWorkers,
			},
			"patientsNeedingVisits": &graphql.Field{
				Type:        graphql.NewList(b.patientType),
				Description: "Patients without a visit inside the threshold window",
				Args: graphql.FieldConfigArgument{
					"daysThreshold": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: reports.DefaultVisitThresholdDays,
					},
				},
				Resolve: b.resolvePatientsNeedingVisits,
			},
			"districtSummary": &graphql.Field{
				Type:        b.districtSummaryType,
				Description: "High-level district metrics for government reporting",
				Args: graphql.FieldConfigArgument{
					"district": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: b.resolveDistrictSummary,
			},
			"offlineSyncStatus": &graphql.Field{
				Type:        b.offlineSyncType,
				Description: "Adoption of offline data collection across the program",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.reports.OfflineSyncStatus(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// NewHTTPHandler returns the /graphql handler with GraphiQL enabled.
func NewHTTPHandler(schema graphql.Schema) *gqlhandler.Handler {
	return gqlhandler.New(&gqlhandler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	})
}

// builder holds the object types while the circular fields are wired up.
type builder struct {
	store   *store.Store
	reports *reports.Service

	chwType             *graphql.Object
	patientType         *graphql.Object
	visitType           *graphql.Object
	visitStatsType      *graphql.Object
	districtSummaryType *graphql.Object
	offlineSyncType     *graphql.Object
}

func (b *builder) buildTypes() {
	b.visitStatsType = graphql.NewObject(graphql.ObjectConfig{
		Name: "VisitStats",
		Fields: graphql.Fields{
			"totalVisits":       scalarField(graphql.Int, func(v *reports.VisitStats) any { return v.TotalVisits }),
			"routineVisits":     scalarField(graphql.Int, func(v *reports.VisitStats) any { return v.RoutineVisits }),
			"emergencyVisits":   scalarField(graphql.Int, func(v *reports.VisitStats) any { return v.EmergencyVisits }),
			"offlineSyncVisits": scalarField(graphql.Int, func(v *reports.VisitStats) any { return v.OfflineSyncVisits }),
			"completionRate":    scalarField(graphql.Float, func(v *reports.VisitStats) any { return v.CompletionRate }),
		},
	})

	b.districtSummaryType = graphql.NewObject(graphql.ObjectConfig{
		Name: "DistrictSummary",
		Fields: graphql.Fields{
			"district":          scalarField(graphql.String, func(d *reports.DistrictSummary) any { return d.District }),
			"totalChws":         scalarField(graphql.Int, func(d *reports.DistrictSummary) any { return d.TotalCHWs }),
			"totalPatients":     scalarField(graphql.Int, func(d *reports.DistrictSummary) any { return d.TotalPatients }),
			"totalVisits":       scalarField(graphql.Int, func(d *reports.DistrictSummary) any { return d.TotalVisits }),
			"activeChws":        scalarField(graphql.Int, func(d *reports.DistrictSummary) any { return d.ActiveCHWs }),
			"patientToChwRatio": scalarField(graphql.Float, func(d *reports.DistrictSummary) any { return d.PatientToCHWRatio }),
		},
	})

	b.offlineSyncType = graphql.NewObject(graphql.ObjectConfig{
		Name: "OfflineSyncReport",
		Fields: graphql.Fields{
			"totalOfflineVisits":  scalarField(graphql.Int, func(o *reports.OfflineSyncReport) any { return o.TotalOfflineVisits }),
			"uniqueChwsOffline":   scalarField(graphql.Int, func(o *reports.OfflineSyncReport) any { return o.UniqueCHWsOffline }),
			"lastWeekOffline":     scalarField(graphql.Int, func(o *reports.OfflineSyncReport) any { return o.LastWeekOffline }),
			"offlineAdoptionRate": scalarField(graphql.Float, func(o *reports.OfflineSyncReport) any { return o.OfflineAdoptionRate }),
		},
	})

	b.chwType = graphql.NewObject(graphql.ObjectConfig{
		Name: "CommunityHealthWorker",
		Fields: graphql.Fields{
			"id":             scalarField(graphql.NewNonNull(graphql.ID), func(c *datatypes.CommunityHealthWorker) any { return c.ID }),
			"name":           scalarField(graphql.String, func(c *datatypes.CommunityHealthWorker) any { return c.Name }),
			"village":        scalarField(graphql.String, func(c *datatypes.CommunityHealthWorker) any { return c.Village }),
			"district":       scalarField(graphql.String, func(c *datatypes.CommunityHealthWorker) any { return c.District }),
			"phone":          scalarField(graphql.String, func(c *datatypes.CommunityHealthWorker) any { return c.Phone }),
			"isActive":       scalarField(graphql.Boolean, func(c *datatypes.CommunityHealthWorker) any { return c.IsActive }),
			"dateRegistered": scalarField(graphql.DateTime, func(c *datatypes.CommunityHealthWorker) any { return c.DateRegistered }),
			"yearsActive":    scalarField(graphql.Float, func(c *datatypes.CommunityHealthWorker) any { return c.YearsActive() }),
		},
	})

	b.patientType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Patient",
		Fields: graphql.Fields{
			"id":                  scalarField(graphql.NewNonNull(graphql.ID), func(p *datatypes.Patient) any { return p.ID }),
			"name":                scalarField(graphql.String, func(p *datatypes.Patient) any { return p.Name }),
			"age":                 scalarField(graphql.Int, func(p *datatypes.Patient) any { return p.Age }),
			"village":             scalarField(graphql.String, func(p *datatypes.Patient) any { return p.Village }),
			"isPregnant":          scalarField(graphql.Boolean, func(p *datatypes.Patient) any { return p.IsPregnant }),
			"hasChronicCondition": scalarField(graphql.Boolean, func(p *datatypes.Patient) any { return p.HasChronicCondition }),
			"lastVisitDate": scalarField(graphql.DateTime, func(p *datatypes.Patient) any {
				if p.LastVisitDate == nil {
					return nil
				}
				return *p.LastVisitDate
			}),
		},
	})

	b.visitType = graphql.NewObject(graphql.ObjectConfig{
		Name: "HealthVisit",
		Fields: graphql.Fields{
			"id":            scalarField(graphql.NewNonNull(graphql.ID), func(v *datatypes.HealthVisit) any { return v.ID }),
			"visitType":     scalarField(graphql.String, func(v *datatypes.HealthVisit) any { return v.VisitType }),
			"visitDate":     scalarField(graphql.DateTime, func(v *datatypes.HealthVisit) any { return v.VisitDate }),
			"notes":         scalarField(graphql.String, func(v *datatypes.HealthVisit) any { return v.Notes }),
			"isOfflineSync": scalarField(graphql.Boolean, func(v *datatypes.HealthVisit) any { return v.IsOfflineSync }),
		},
	})

	// Circular fields are attached after all object types exist.
	b.chwType.AddFieldConfig("patients", &graphql.Field{
		Type:        graphql.NewList(b.patientType),
		Description: "Patients assigned to this CHW",
		Resolve:     b.resolveCHWPatients,
	})
	b.chwType.AddFieldConfig("recentVisits", &graphql.Field{
		Type:        graphql.NewList(b.visitType),
		Description: "Visits from the last N days",
		Args: graphql.FieldConfigArgument{
			"days": &graphql.ArgumentConfig{
				Type:         graphql.Int,
				DefaultValue: reports.DefaultVisitThresholdDays,
			},
		},
		Resolve: b.resolveCHWRecentVisits,
	})
	b.chwType.AddFieldConfig("visitStats", &graphql.Field{
		Type:        b.visitStatsType,
		Description: "Aggregated visit statistics for dashboards",
		Resolve:     b.resolveCHWVisitStats,
	})
	b.patientType.AddFieldConfig("assignedChw", &graphql.Field{
		Type:        b.chwType,
		Description: "The CHW responsible for this patient",
		Resolve:     b.resolvePatientCHW,
	})
	b.patientType.AddFieldConfig("visitHistory", &graphql.Field{
		Type:        graphql.NewList(b.visitType),
		Description: "All visits recorded for this patient",
		Resolve:     b.resolvePatientVisits,
	})
	b.visitType.AddFieldConfig("patient", &graphql.Field{
		Type:    b.patientType,
		Resolve: b.resolveVisitPatient,
	})
	b.visitType.AddFieldConfig("chw", &graphql.Field{
		Type:    b.chwType,
		Resolve: b.resolveVisitCHW,
	})
}

// scalarField builds a field whose resolver projects one attribute of the
// source. The generic helper keeps the type registrations above flat.
func scalarField[T any](t graphql.Output, project func(*T) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			src, err := source[T](p)
			if err != nil {
				return nil, err
			}
			return project(src), nil
		},
	}
}

// source normalizes a resolver's Source, which is a value for list items
// and a pointer for single results.
func source[T any](p graphql.ResolveParams) (*T, error) {
	switch v := p.Source.(type) {
	case T:
		return &v, nil
	case *T:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected source type %T", p.Source)
	}
}
