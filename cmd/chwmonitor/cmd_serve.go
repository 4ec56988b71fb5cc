// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	monitor "github.com/ict4d-health/chwmonitor/services/monitor"
	"github.com/ict4d-health/chwmonitor/services/monitor/config"
)

// runServe starts the monitor server and blocks until SIGINT/SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	if config.Global.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set; configure it in chwmonitor.yaml or CHWMONITOR_JWT_SECRET")
	}

	svc, err := monitor.New(config.Global)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return svc.Run(ctx)
}
