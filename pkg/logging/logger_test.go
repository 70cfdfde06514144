// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

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

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			got := tt.level.toSlogLevel()
			if got != tt.want {
				t.Errorf("toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_Constants(t *testing.T) {
	// Levels must be ordered by severity for filtering to work
	if !(LevelDebug < LevelInfo && LevelInfo < LevelWarn && LevelWarn < LevelError) {
		t.Error("Level constants are not ordered by severity")
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	defer logger.Close()

	if logger.slog == nil {
		t.Error("logger.slog is nil")
	}
}

func TestNew_AllLevels(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			logger := New(Config{Level: level, Quiet: true})
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			defer logger.Close()
		})
	}
}

func TestNew_WithLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	defer logger.Close()

	// Should have created a log file
	if logger.file == nil {
		t.Error("logger.file is nil when LogDir specified")
	}

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(files) == 0 {
		t.Error("No log file created in LogDir")
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir: tmpDir,
		Quiet:  true,
	})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	defer logger.Close()

	// Should use "tours" as default service name
	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	found := false
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "tours_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected log file with 'tours_' prefix")
	}
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	// Use a path that can't be created
	logger := New(Config{
		LogDir: "/proc/nonexistent/deep/path/that/should/fail",
		Quiet:  true,
	})
	if logger == nil {
		t.Fatal("New() returned nil even with invalid LogDir")
	}
	defer logger.Close()
	// Should still work, just without file logging
	if logger.file != nil {
		t.Error("logger.file should be nil for invalid path")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
	defer logger.Close()

	if logger.config.Level != LevelInfo {
		t.Errorf("Default level = %v, want LevelInfo", logger.config.Level)
	}
	if logger.config.Service != "tours" {
		t.Errorf("Default service = %v, want 'tours'", logger.config.Service)
	}
}

// =============================================================================
// Logging Method Tests
// =============================================================================

// newBufferLogger builds a Logger whose output lands in a bytes.Buffer,
// so tests can assert on what was written.
func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: level.toSlogLevel(),
	})
	return &Logger{slog: slog.New(handler)}, buf
}

func TestLogger_Debug(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Debug("test message", "key", "value")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Output missing message: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "DEBUG") {
		t.Errorf("Output missing level: %s", buf.String())
	}
}

func TestLogger_Info(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Info("run started", "run_id", "abc-123")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry["msg"] != "run started" {
		t.Errorf("msg = %v, want 'run started'", entry["msg"])
	}
	if entry["run_id"] != "abc-123" {
		t.Errorf("run_id = %v, want 'abc-123'", entry["run_id"])
	}
}

func TestLogger_Warn(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Warn("stale report ignored", "checkpoint_id", "cp-1")

	if !strings.Contains(buf.String(), "WARN") {
		t.Errorf("Output missing WARN level: %s", buf.String())
	}
}

func TestLogger_Error(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Error("sync failed", "error", "connection refused")

	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("Output missing ERROR level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("Output missing error attribute: %s", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)

	logger.Debug("filtered debug")
	logger.Info("filtered info")
	logger.Warn("passed warn")
	logger.Error("passed error")

	output := buf.String()
	if strings.Contains(output, "filtered debug") || strings.Contains(output, "filtered info") {
		t.Errorf("Messages below level were not filtered: %s", output)
	}
	if !strings.Contains(output, "passed warn") || !strings.Contains(output, "passed error") {
		t.Errorf("Messages at or above level were filtered: %s", output)
	}
}

func TestLogger_With(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	child := logger.With("run_id", "run-42")
	child.Info("progress merged")

	if !strings.Contains(buf.String(), "run-42") {
		t.Errorf("Child logger missing inherited attribute: %s", buf.String())
	}

	// Parent should not carry the child's attributes
	buf.Reset()
	logger.Info("plain message")
	if strings.Contains(buf.String(), "run-42") {
		t.Errorf("Parent logger picked up child attribute: %s", buf.String())
	}
}

func TestLogger_Slog(t *testing.T) {
	logger, _ := newBufferLogger(LevelInfo)
	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestLogger_Close_NoResources(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() with no resources returned error: %v", err)
	}
	// Close is safe to call twice
	if err := logger.Close(); err != nil {
		t.Errorf("Second Close() returned error: %v", err)
	}
}

func TestLogger_Close_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})

	logger.Info("before close")

	if err := logger.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if logger.file != nil {
		t.Error("logger.file not nil after Close()")
	}
}

func TestLogger_FileContent(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  tmpDir,
		Service: "guide",
		Quiet:   true,
	})

	logger.Info("version published", "route_id", "r-1", "version_no", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 log file, got %d", len(files))
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, files[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("Log file is not valid JSON: %v", err)
	}
	if entry["msg"] != "version published" {
		t.Errorf("msg = %v, want 'version published'", entry["msg"])
	}
	if entry["service"] != "guide" {
		t.Errorf("service = %v, want 'guide'", entry["service"])
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger, _ := newBufferLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				logger.Info("concurrent", "goroutine", n, "iteration", j)
			}
		}(i)
	}
	wg.Wait()
}

// =============================================================================
// MultiHandler Tests
// =============================================================================

func TestMultiHandler_Enabled(t *testing.T) {
	debugBuf := &bytes.Buffer{}
	warnBuf := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(Debug) = false, want true (one handler accepts Debug)")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(Error) = false, want true")
	}
}

func TestMultiHandler_Enabled_NoneEnabled(t *testing.T) {
	buf := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(Debug) = true, want false")
	}
}

func TestMultiHandler_Handle_LevelFiltering(t *testing.T) {
	debugBuf := &bytes.Buffer{}
	warnBuf := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	logger := slog.New(h)
	logger.Info("info message")

	if !strings.Contains(debugBuf.String(), "info message") {
		t.Error("Debug handler did not receive info message")
	}
	if strings.Contains(warnBuf.String(), "info message") {
		t.Error("Warn handler received info message below its level")
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(buf1, nil),
		slog.NewTextHandler(buf2, nil),
	}}

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("service", "guide")})
	logger := slog.New(withAttrs)
	logger.Info("test")

	for i, buf := range []*bytes.Buffer{buf1, buf2} {
		if !strings.Contains(buf.String(), "service=guide") {
			t.Errorf("Handler %d missing attribute: %s", i, buf.String())
		}
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(buf, nil),
	}}

	grouped := slog.New(h.WithGroup("request"))
	grouped.Info("test", "id", "r-1")

	if !strings.Contains(buf.String(), "request.id=r-1") {
		t.Errorf("Group not applied: %s", buf.String())
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("UserHomeDir unavailable: %v", err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"tilde only", "~", home},
		{"tilde with path", "~/.aleutiantours/logs", filepath.Join(home, ".aleutiantours/logs")},
		{"absolute path unchanged", "/var/log/tours", "/var/log/tours"},
		{"relative path unchanged", "logs/tours", "logs/tours"},
		{"empty path unchanged", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.path)
			if got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
