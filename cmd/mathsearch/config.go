// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI defaults read from mathsearch.yaml. Every field
// is optional; flags override whatever the file sets.
type Config struct {
	// APIURL is the base URL of the running search API.
	APIURL string `yaml:"api_url"`

	// Year is the default contest year for scrape.
	Year int `yaml:"year"`

	// CacheDir is where scraped contest pages are kept.
	CacheDir string `yaml:"cache_dir"`

	// DataDir is where problem files are written.
	DataDir string `yaml:"data_dir"`

	// LogDir enables file logging for CLI runs when set.
	LogDir string `yaml:"log_dir"`

	Ollama struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"ollama"`
}

// defaultConfig returns the values used when no config file exists.
func defaultConfig() Config {
	var c Config
	c.APIURL = "http://localhost:8000"
	c.Year = time.Now().Year()
	c.CacheDir = "data/cache"
	c.DataDir = "data"
	c.Ollama.BaseURL = "http://localhost:11434"
	c.Ollama.Model = "qwen3:30b"
	return c
}

// loadConfig overlays the YAML file at path onto the defaults. A
// missing file is fine; a file that exists but will not parse is an
// error so a typo does not silently fall back to defaults.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, nil
}
