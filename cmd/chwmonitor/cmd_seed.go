// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ict4d-health/chwmonitor/services/monitor/config"
	"github.com/ict4d-health/chwmonitor/services/monitor/seeder"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

// runSeed populates the configured data directory with demo data. Run it
// while the server is stopped: BadgerDB takes an exclusive directory lock.
func runSeed(cmd *cobra.Command, args []string) error {
	storeCfg := store.DefaultConfig(config.ExpandPath(config.Global.Storage.DataDir))
	storeCfg.Logger = slog.Default()
	s, err := store.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	result, err := seeder.Run(context.Background(), s, seeder.Options{
		CHWs:     seedCHWs,
		Patients: seedPatients,
		Visits:   seedVisits,
		Force:    seedForce,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d CHWs, %d patients, %d visits into %s\n",
		result.CHWs, result.Patients, result.Visits, storeCfg.Path)
	return nil
}
