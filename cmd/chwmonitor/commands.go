// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	seedCHWs     int
	seedPatients int
	seedVisits   int
	seedForce    bool

	rootCmd = &cobra.Command{
		Use:   "chwmonitor",
		Short: "A monitoring server for community health worker programs",
		Long: `chwmonitor tracks community health workers, their patients, and
field visits, and serves REST and GraphQL dashboards for district
health programs running in low-connectivity environments.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring server",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with generated demonstration data",
		RunE:  runSeed, // Defined in cmd_seed.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the chwmonitor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chwmonitor", Version)
		},
	}
)

func init() {
	seedCmd.Flags().IntVar(&seedCHWs, "chws", 30, "number of community health workers to generate")
	seedCmd.Flags().IntVar(&seedPatients, "patients", 150, "number of patients to generate")
	seedCmd.Flags().IntVar(&seedVisits, "visits", 300, "number of visits to generate")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "seed even if the store already contains data")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}
