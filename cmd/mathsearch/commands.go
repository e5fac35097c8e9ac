// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gaolin1/math-olympic-question-search/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath string
	verbose    bool
	quiet      bool

	scrapeYear     int
	scrapeCacheDir string
	scrapeOutDir   string
	scrapeURLsOnly bool

	tagInput     string
	tagOutput    string
	tagBatchSize int
	tagModel     string
	tagShowDist  bool

	analyzeModel string

	healthServer string
	healthJSON   bool

	sessionsServer string
	sessionsJSON   bool

	cliLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "mathsearch",
		Short: "A cli to manage the Gauss contest problem search stack",
		Long: `Mathsearch maintains the contest problem dataset and talks to the
running search API: scrape contest pages from the CEMC site, tag
problems with an LLM, and inspect rendering from the terminal.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			config, err = loadConfig(configPath)
			if err != nil {
				log.Fatalf("Error loading config: %v", err)
			}

			level := logging.LevelInfo
			if verbose {
				level = logging.LevelDebug
			}
			cliLogger = logging.New(logging.Config{
				Level:   level,
				LogDir:  config.LogDir,
				Service: "cli",
				Quiet:   quiet,
			})
			// Route the services' slog calls through the CLI logger too.
			slog.SetDefault(cliLogger.Slog())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliLogger != nil {
				_ = cliLogger.Close()
			}
		},
	}

	// --- Dataset ---
	scrapeCmd = &cobra.Command{
		Use:   "scrape",
		Short: "Download and parse Gauss contest pages into a problem file",
		Run:   runScrape, // Defined in cmd_scrape.go
	}

	tagCmd = &cobra.Command{
		Use:   "tag",
		Short: "Tag every problem in a file with taxonomy concepts via the LLM",
		Run:   runTag, // Defined in cmd_tag.go
	}

	// --- One-off tools ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [latex]",
		Short: "Suggest concept tags for a single expression",
		Args:  cobra.ExactArgs(1),
		Run:   runAnalyze, // Defined in cmd_analyze.go
	}

	renderCmd = &cobra.Command{
		Use:   "render [content]",
		Short: "Run mixed content through the renderer and print the units",
		Args:  cobra.ExactArgs(1),
		Run:   runRender, // Defined in cmd_render.go
	}

	// --- Server ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Report the health of the running search API",
		Run:   runHealth, // Defined in cmd_health.go
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored hint sessions on the running API",
	}
	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored hint sessions",
		Run:   runListSessions, // Defined in cmd_sessions.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a stored hint session",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_sessions.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mathsearch.yaml",
		"Path to the CLI config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress log output (file logging still applies when configured)")

	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().IntVar(&scrapeYear, "year", 0,
		"Contest year to scrape (defaults to the config year)")
	scrapeCmd.Flags().StringVar(&scrapeCacheDir, "cache", "",
		"Directory for cached contest pages (defaults to the config cache_dir)")
	scrapeCmd.Flags().StringVar(&scrapeOutDir, "output", "",
		"Directory the problem file is written to (defaults to the config data_dir)")
	scrapeCmd.Flags().BoolVar(&scrapeURLsOnly, "urls", false,
		"Print the manual-download URL table and exit without fetching")

	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().StringVar(&tagInput, "input", "",
		"Problem file to tag (defaults to <data_dir>/problems.json)")
	tagCmd.Flags().StringVar(&tagOutput, "output", "",
		"Where to write the tagged file (defaults to overwriting the input)")
	tagCmd.Flags().IntVar(&tagBatchSize, "batch-size", 5,
		"Concurrent tagging requests against the model")
	tagCmd.Flags().StringVar(&tagModel, "model", "",
		"Ollama model override for tagging")
	tagCmd.Flags().BoolVar(&tagShowDist, "distribution", true,
		"Print the tag distribution after tagging")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "",
		"Ollama model override for analysis")

	rootCmd.AddCommand(renderCmd)

	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVar(&healthServer, "server", "",
		"Base URL of the search API (defaults to the config api_url)")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false,
		"Output the raw health payload as JSON")

	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(listSessionsCmd)
	sessionsCmd.AddCommand(deleteSessionCmd)
	sessionsCmd.PersistentFlags().StringVar(&sessionsServer, "server", "",
		"Base URL of the search API (defaults to the config api_url)")
	listSessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false,
		"Output the session list as JSON")
}
