// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type sessionInfo struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
}

func sessionsBaseURL() string {
	if sessionsServer != "" {
		return sessionsServer
	}
	return config.APIURL
}

func runListSessions(cmd *cobra.Command, args []string) {
	listURL := fmt.Sprintf("%s/api/sessions", sessionsBaseURL())

	resp, err := http.Get(listURL)
	if err != nil {
		log.Fatalf("Failed to connect to the API server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API server returned an error: %s", resp.Status)
	}

	var result struct {
		Sessions []sessionInfo `json:"sessions"`
		Count    int           `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("Failed to parse the response: %v", err)
	}

	if sessionsJSON {
		if err := OutputJSON(result); err != nil {
			log.Fatalf("Failed to encode the session list: %v", err)
		}
		return
	}

	if result.Count == 0 {
		fmt.Println("No hint sessions found.")
		return
	}

	fmt.Printf("Hint sessions (%d):\n", result.Count)
	fmt.Println("------------------------------------------------------------------")
	for _, s := range result.Sessions {
		fmt.Printf("ID:      %s\nProblem: %s\nTurns:   %d\nUpdated: %s\n\n",
			s.ID, s.ProblemID, s.Turns, s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func runDeleteSession(cmd *cobra.Command, args []string) {
	sessionID := args[0]
	deleteURL := fmt.Sprintf("%s/api/sessions/%s", sessionsBaseURL(), sessionID)

	req, err := http.NewRequest(http.MethodDelete, deleteURL, nil)
	if err != nil {
		log.Fatalf("Failed to create the delete request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Failed to connect to the API server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API server returned an error: %s", resp.Status)
	}

	fmt.Printf("Deleted session: %s\n", sessionID)
}
