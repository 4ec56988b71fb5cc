// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration from a yaml file in the
// user's home directory, creating it with defaults on first run. A handful
// of environment variables override the file for container deployments.
package config

// MonitorConfig is the full service configuration.
type MonitorConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Seed    SeedConfig    `yaml:"seed"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Port the HTTP server listens on. Env override: CHWMONITOR_PORT.
	Port int `yaml:"port"`
}

// StorageConfig controls the embedded database.
type StorageConfig struct {
	// DataDir is the BadgerDB directory. Env override: CHWMONITOR_DATA_DIR.
	// Supports ~ for home directory expansion.
	DataDir string `yaml:"data_dir"`

	// InMemory runs the database without persistence. For testing only.
	InMemory bool `yaml:"in_memory"`
}

// AuthConfig controls tokens and credentials.
type AuthConfig struct {
	// JWTSecret signs all tokens. Env override: CHWMONITOR_JWT_SECRET.
	// The server refuses to start with an empty secret.
	JWTSecret string `yaml:"jwt_secret"`

	// AccessTokenTTL is the default access token lifetime, e.g. "1h".
	AccessTokenTTL string `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime, e.g. "720h".
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Dir enables file logging to the given directory when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON format.
	JSON bool `yaml:"json"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	// OTLPEndpoint is the OTLP/gRPC collector address. Empty disables
	// tracing. Env override: OTEL_EXPORTER_OTLP_ENDPOINT.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// SeedConfig controls demo data generation.
type SeedConfig struct {
	// OnStart seeds an empty store at startup.
	OnStart bool `yaml:"on_start"`

	CHWs     int `yaml:"chws"`
	Patients int `yaml:"patients"`
	Visits   int `yaml:"visits"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() MonitorConfig {
	return MonitorConfig{
		Server: ServerConfig{Port: 8080},
		Storage: StorageConfig{
			DataDir: "~/.chwmonitor/data",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  "1h",
			RefreshTokenTTL: "720h",
		},
		Logging: LoggingConfig{Level: "info"},
		Seed: SeedConfig{
			CHWs:     30,
			Patients: 150,
			Visits:   300,
		},
	}
}
