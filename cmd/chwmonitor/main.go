// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"

	"github.com/ict4d-health/chwmonitor/pkg/logging"
	"github.com/ict4d-health/chwmonitor/services/monitor/config"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: "chwmonitor",
		JSON:    config.Global.Logging.JSON,
	})
	defer logger.Close()
	logger.SetAsDefault()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
