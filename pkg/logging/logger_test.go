// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_FileLogging(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  logDir,
		Service: "testsvc",
		Quiet:   true,
	})
	logger.Info("visit recorded", "visit_id", "VIS00001")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	filename := "testsvc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "visit recorded") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), "VIS00001") {
		t.Errorf("log file missing attribute, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"testsvc"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  logDir,
		Service: "testsvc",
		Quiet:   true,
	})
	logger.Info("below threshold")
	logger.Warn("at threshold")
	logger.Close()

	filename := "testsvc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "below threshold") {
		t.Error("Info record should have been filtered at Warn level")
	}
	if !strings.Contains(string(data), "at threshold") {
		t.Error("Warn record should have been written")
	}
}

func TestWith_ChildAttributes(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  logDir,
		Service: "testsvc",
		Quiet:   true,
	})
	child := logger.With("district", "Turkana")
	child.Info("summary computed")
	logger.Close()

	filename := "testsvc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "Turkana") {
		t.Errorf("child logger attribute missing, got: %s", data)
	}
}

func TestClose_NoFile(t *testing.T) {
	logger := New(Config{Level: LevelInfo, Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() without file should be nil, got: %v", err)
	}
}

func TestMultiHandler_FanOut(t *testing.T) {
	var bufA, bufB bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&bufA, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&bufB, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	logger := slog.New(h)
	logger.Info("info message")
	logger.Error("error message")

	if !strings.Contains(bufA.String(), "info message") {
		t.Error("first handler should receive Info records")
	}
	if strings.Contains(bufB.String(), "info message") {
		t.Error("second handler should filter Info records")
	}
	if !strings.Contains(bufB.String(), "error message") {
		t.Error("second handler should receive Error records")
	}
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled should be false below all handler thresholds")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled should be true at handler threshold")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory in test environment")
	}

	got := expandPath("~/logs")
	want := filepath.Join(home, "logs")
	if got != want {
		t.Errorf("expandPath(~/logs) = %q, want %q", got, want)
	}

	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}
