// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the API service.
//
// The service runs on localhost behind a browser frontend served from a
// different port, so CORS is required; beyond that there is only request
// instrumentation. There is no auth layer.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultOrigins are the frontend dev-server origins allowed when no
// override is configured.
func DefaultOrigins() []string {
	return []string{
		"http://localhost:5173",
		"http://localhost:3000",
		"http://127.0.0.1:5173",
	}
}

// CORS creates a middleware that answers preflight requests and attaches
// CORS headers for the given origins.
//
// Credentials are allowed, so the matched origin is echoed back rather
// than using a wildcard. Preflights from unlisted origins are rejected
// with 403; non-preflight requests pass through without CORS headers and
// the browser enforces the block.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if _, ok := allowed[origin]; !ok {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			requested := c.GetHeader("Access-Control-Request-Headers")
			if requested == "" {
				requested = "Content-Type"
			}
			header.Set("Access-Control-Allow-Headers", requested)
			header.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
