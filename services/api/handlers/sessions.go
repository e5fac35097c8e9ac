// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
)

func HandleListSessions(hintSessions *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		metas, err := hintSessions.List()
		if err != nil {
			slog.Error("failed to list hint sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": metas, "count": len(metas)})
	}
}

func HandleSessionHistory(hintSessions *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		turns, err := hintSessions.History(sessionID)
		if err != nil {
			if errors.Is(err, sessions.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			slog.Error("failed to load session history", "error", err, "session_id", sessionID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "turns": turns})
	}
}

func HandleDeleteSession(hintSessions *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "session_id", sessionID)

		if err := hintSessions.Delete(sessionID); err != nil {
			if errors.Is(err, sessions.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			slog.Error("failed to delete session", "error", err, "session_id", sessionID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fully delete session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionID})
	}
}
