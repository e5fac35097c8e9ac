// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status         string `json:"status"`
	ProblemsLoaded int    `json:"problems_loaded"`
	LLMBackend     string `json:"llm_backend"`
	LLMURL         string `json:"llm_url"`
	Model          string `json:"model"`
}

// runHealth queries the API server's health endpoint and prints a
// short report. Exits non-zero when the server is unreachable or
// reports anything other than healthy, so scripts can gate on it.
func runHealth(cmd *cobra.Command, args []string) {
	server := healthServer
	if server == "" {
		server = config.APIURL
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(server + "/health")
	if err != nil {
		fmt.Printf("Server:  %s\nStatus:  %s\n", server, colorize(colorRed, "unreachable"))
		OutputError("connecting to the server", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read the health response: %v", err)
	}

	if healthJSON {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(pretty.String())
		if resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		return
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		log.Fatalf("Failed to parse the health response (status %d): %v", resp.StatusCode, err)
	}

	status := colorize(colorGreen, health.Status)
	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		status = colorize(colorRed, health.Status)
	}

	fmt.Printf("Server:   %s\n", server)
	fmt.Printf("Status:   %s\n", status)
	fmt.Printf("Problems: %d\n", health.ProblemsLoaded)
	fmt.Printf("Backend:  %s (%s)\n", health.LLMBackend, health.LLMURL)
	fmt.Printf("Model:    %s\n", health.Model)

	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		os.Exit(1)
	}
}
