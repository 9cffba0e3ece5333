// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogFileConfig describes where a per-run log file should be created.
type LogFileConfig struct {
	Prefix    string
	LogDir    string
	DAGLogDir string
	DAGName   string
	RequestID string
}

// OpenLogFile creates (or appends to) the log file described by cfg,
// creating its directory if necessary.
func OpenLogFile(cfg LogFileConfig) (*os.File, error) {
	if cfg.DAGName == "" {
		return nil, fmt.Errorf("DAGName cannot be empty")
	}
	if cfg.LogDir == "" && cfg.DAGLogDir == "" {
		return nil, fmt.Errorf("either LogDir or DAGLogDir must be specified")
	}

	dir, err := prepareLogDirectory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup log directory: %w", err)
	}

	return openFile(filepath.Join(dir, generateLogFilename(cfg)))
}

func prepareLogDirectory(cfg LogFileConfig) (string, error) {
	base := cfg.LogDir
	if cfg.DAGLogDir != "" {
		base = cfg.DAGLogDir
	}

	dir := filepath.Join(base, safeName(cfg.DAGName))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

func generateLogFilename(cfg LogFileConfig) string {
	timestamp := time.Now().Format("20060102.15:04:05.000")
	return fmt.Sprintf("%s%s.%s.%s.log",
		cfg.Prefix,
		safeName(cfg.DAGName),
		timestamp,
		truncate(cfg.RequestID, 8),
	)
}

func openFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", path, err)
	}
	return f, nil
}

// safeName strips characters that are awkward in file paths.
func safeName(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
