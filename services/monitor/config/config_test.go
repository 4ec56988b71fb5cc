// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("default data dir must be set")
	}
	if cfg.Auth.JWTSecret != "" {
		t.Error("defaults must not ship a JWT secret")
	}
	if cfg.Seed.CHWs != 30 || cfg.Seed.Patients != 150 || cfg.Seed.Visits != 300 {
		t.Errorf("default seed counts = %+v", cfg.Seed)
	}
}

func TestDefaultConfig_RoundTripsYAML(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var cfg MonitorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("round trip changed the config: %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHWMONITOR_PORT", "9090")
	t.Setenv("CHWMONITOR_DATA_DIR", "/srv/chw/data")
	t.Setenv("CHWMONITOR_JWT_SECRET", "env-secret")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/srv/chw/data" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Tracing.OTLPEndpoint != "collector:4317" {
		t.Errorf("otlp endpoint = %q", cfg.Tracing.OTLPEndpoint)
	}
}

func TestApplyEnvOverrides_InvalidPortIgnored(t *testing.T) {
	t.Setenv("CHWMONITOR_PORT", "not-a-number")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("invalid port override should be ignored, got %d", cfg.Server.Port)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in test environment")
	}
	if got, want := ExpandPath("~/data"), filepath.Join(home, "data"); got != want {
		t.Errorf("ExpandPath(~/data) = %q, want %q", got, want)
	}
	if got := ExpandPath("/absolute"); got != "/absolute" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}

func TestCreateDefault_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chwmonitor.yaml")
	if err := createDefault(path); err != nil {
		t.Fatalf("createDefault: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	var cfg MonitorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid yaml: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("written config port = %d, want 8080", cfg.Server.Port)
	}
}
