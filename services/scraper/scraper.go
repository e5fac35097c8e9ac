// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scraper downloads and parses CEMC Gauss contest pages into
// structured problems. Pages are cached on disk so that a blocked
// download can be replaced by a manually saved file and re-parsed.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaolin1/math-olympic-question-search/pkg/validation"
	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
)

const (
	contestURLTemplate  = "https://cemc.uwaterloo.ca/sites/default/files/documents/%d/%dGauss%dContest.html"
	solutionURLTemplate = "https://cemc.uwaterloo.ca/sites/default/files/documents/%d/%dGaussSolution.html"

	// browser-ish UA; the CEMC site serves error pages to obvious bots
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	minValidHTMLBytes = 500
)

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper fetches, caches, and parses Gauss contest pages for one or
// more years. Both directories are created on construction.
type Scraper struct {
	CacheDir  string
	OutputDir string

	client  HTTPClient
	limiter *rate.Limiter
}

// New builds a Scraper with a polite request rate (one request every
// two seconds) against the CEMC site.
func New(cacheDir, outputDir string) (*Scraper, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Scraper{
		CacheDir:  cacheDir,
		OutputDir: outputDir,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
	}, nil
}

// ContestURL returns the public page for one grade's contest.
func ContestURL(year, grade int) string {
	return fmt.Sprintf(contestURLTemplate, year, year, grade)
}

// SolutionURL returns the public answer-key page for a year.
func SolutionURL(year int) string {
	return fmt.Sprintf(solutionURLTemplate, year, year)
}

func (s *Scraper) contestCachePath(year, grade int) string {
	return filepath.Join(s.CacheDir, fmt.Sprintf("%dGauss%dContest.html", year, grade))
}

func (s *Scraper) solutionCachePath(year int) string {
	return filepath.Join(s.CacheDir, fmt.Sprintf("%dGaussSolution.html", year))
}

// isValidHTML rejects empty files and the site's block pages.
func isValidHTML(html string) bool {
	if len(html) < minValidHTMLBytes {
		return false
	}
	if strings.Contains(html, "Access denied") {
		return false
	}
	return true
}

// fetchPage downloads one page, honoring the rate limit.
func (s *Scraper) fetchPage(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch of %s returned status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	html := string(body)
	if !isValidHTML(html) {
		return "", fmt.Errorf("fetched page %s looks like a block page", url)
	}
	return html, nil
}

// fetchToCache downloads url into cachePath unless a valid copy is
// already cached. Returns whether a valid file is now in place.
func (s *Scraper) fetchToCache(ctx context.Context, url, cachePath string) bool {
	if data, err := os.ReadFile(cachePath); err == nil && isValidHTML(string(data)) {
		slog.Info("Using cached page", "path", cachePath)
		return true
	}

	slog.Info("Fetching page", "url", url)
	html, err := s.fetchPage(ctx, url)
	if err != nil {
		slog.Warn("Fetch failed; save the page manually into the cache",
			"url", url, "path", cachePath, "error", err)
		return false
	}
	if err := os.WriteFile(cachePath, []byte(html), 0o644); err != nil {
		slog.Error("Failed to write cache file", "path", cachePath, "error", err)
		return false
	}
	slog.Info("Cached page", "path", cachePath)
	return true
}

// FetchAndCache downloads both grade contests and the solution page
// for a year. The returned map reports per-file success under the keys
// grade_7, grade_8, and solutions. Failures are soft: a missing file
// can be saved by hand and parsed on the next run.
func (s *Scraper) FetchAndCache(ctx context.Context, year int) map[string]bool {
	status := make(map[string]bool)
	for _, grade := range []int{7, 8} {
		key := fmt.Sprintf("grade_%d", grade)
		status[key] = s.fetchToCache(ctx, ContestURL(year, grade), s.contestCachePath(year, grade))
	}
	status["solutions"] = s.fetchToCache(ctx, SolutionURL(year), s.solutionCachePath(year))
	return status
}

// ParseFromCache parses whatever contest pages are cached for a year
// and merges in answers from the cached solution page. Missing or
// invalid cache files are logged and skipped.
func (s *Scraper) ParseFromCache(year int) []datatypes.Problem {
	var all []datatypes.Problem

	for _, grade := range []int{7, 8} {
		cachePath := s.contestCachePath(year, grade)
		data, err := os.ReadFile(cachePath)
		if err != nil {
			slog.Warn("Missing cache file", "path", cachePath)
			continue
		}
		html := string(data)
		if !isValidHTML(html) {
			slog.Warn("Invalid HTML in cache", "path", cachePath)
			continue
		}
		problems := ParseContestPage(html, year, grade)
		slog.Info("Parsed contest page", "grade", grade, "problems", len(problems))
		all = append(all, problems...)
	}

	solutionPath := s.solutionCachePath(year)
	if data, err := os.ReadFile(solutionPath); err == nil && isValidHTML(string(data)) {
		answers := parseSolutionPage(string(data))
		applied := 0
		for i := range all {
			key := solutionKey{grade: all[i].Grade, number: all[i].ProblemNumber}
			if answer, ok := answers[key]; ok && answer != "" {
				all[i].Answer = answer
				applied++
			}
		}
		slog.Info("Applied answers from solution page", "applied", applied)
	}

	return all
}

// Run is the full workflow: fetch or reuse cached pages, then parse.
func (s *Scraper) Run(ctx context.Context, year int) []datatypes.Problem {
	s.FetchAndCache(ctx, year)
	return s.ParseFromCache(year)
}

// SaveProblems writes problems as pretty-printed JSON under the output
// directory and returns the file path.
func (s *Scraper) SaveProblems(problems []datatypes.Problem, filename string) (string, error) {
	ids := make([]string, len(problems))
	for i, p := range problems {
		ids[i] = p.ID
	}
	if err := validation.ValidateProblemIDs(ids); err != nil {
		slog.Warn("Parsed problems include malformed IDs", "error", err)
	}

	outputPath := filepath.Join(s.OutputDir, filename)
	data, err := json.MarshalIndent(problems, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal problems: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	slog.Info("Saved problems", "count", len(problems), "path", outputPath)
	return outputPath, nil
}

// ManualTarget pairs a contest URL with the cache file a browser-saved
// copy must be stored under.
type ManualTarget struct {
	URL      string
	SavePath string
}

// ManualTargets lists the pages a user must save by hand when the site
// blocks automated fetching.
func (s *Scraper) ManualTargets(year int) []ManualTarget {
	return []ManualTarget{
		{URL: ContestURL(year, 7), SavePath: s.contestCachePath(year, 7)},
		{URL: ContestURL(year, 8), SavePath: s.contestCachePath(year, 8)},
		{URL: SolutionURL(year), SavePath: s.solutionCachePath(year)},
	}
}
