// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer logger.Close()

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept", "schema", "public")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low-severity records leaked: %s", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "schema=public") {
		t.Errorf("warn record missing attributes: %s", out)
	}
}

func TestServiceTag(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf, Service: "migrator"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello")
	if !strings.Contains(buf.String(), "service=migrator") {
		t.Errorf("missing service tag: %s", buf.String())
	}
}

func TestFileLoggingWritesJSON(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf, LogDir: dir, Service: "migrator"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	logger.Info("lock acquired", "schema", "public")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %d (err=%v)", len(entries), err)
	}
	if !strings.HasPrefix(entries[0].Name(), "migrator_") {
		t.Errorf("log file name = %q, want migrator_ prefix", entries[0].Name())
	}

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("log file is empty")
	}
	var record map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
		t.Fatalf("log file line is not JSON: %v", err)
	}
	if record["msg"] != "lock acquired" || record["schema"] != "public" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestFileSetupFailureStillLogs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf, LogDir: string([]byte{0})})
	if err == nil {
		t.Fatal("expected an error for an unusable log directory")
	}
	logger.Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Error("stderr logging lost after file setup failure")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nobody hears this")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestWithAddsContext(t *testing.T) {
	var buf bytes.Buffer
	base, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	child := base.With("schema", "tenant_a")
	child.Info("checking dependencies")
	if !strings.Contains(buf.String(), "schema=tenant_a") {
		t.Errorf("missing inherited attribute: %s", buf.String())
	}
}
