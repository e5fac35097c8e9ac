// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
	"github.com/gaolin1/math-olympic-question-search/services/api/handlers"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

func SetupRoutes(router *gin.Engine, problems *store.ProblemStore, hintSessions *sessions.Store,
	llmClient llm.LLMClient, renderer *render.Renderer, backend handlers.BackendInfo) {

	router.GET("/health", handlers.HandleHealth(problems, backend))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/tags", handlers.HandleListTags())
		api.POST("/analyze", handlers.HandleAnalyze(llmClient))
		api.GET("/problems", handlers.HandleListProblems(problems))
		api.GET("/problems/:problemId", handlers.HandleGetProblem(problems))
		api.GET("/problems/:problemId/render", handlers.HandleRenderProblem(problems, renderer))
		api.POST("/hint", handlers.HandleHint(problems, hintSessions, llmClient))
		api.GET("/hint/ws", handlers.HandleHintWebSocket(problems, hintSessions, llmClient))
		// Session administration routes
		sessionRoutes := api.Group("/sessions")
		{
			sessionRoutes.GET("", handlers.HandleListSessions(hintSessions))
			sessionRoutes.GET("/:sessionId/history", handlers.HandleSessionHistory(hintSessions))
			sessionRoutes.DELETE("/:sessionId", handlers.HandleDeleteSession(hintSessions))
		}
	}
}
