// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api exposes the grading engine over HTTP: grounding
// verification, duplicate clustering and filtering, and quality
// evaluation.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/dedupe"
	"github.com/AleutianAI/qaguard/services/grader/grounding"
	"github.com/AleutianAI/qaguard/services/grader/quality"
	"github.com/AleutianAI/qaguard/services/grader/store"
)

// Server wires the engine components to HTTP handlers. Store is
// optional: when present, evaluated reports are persisted and the
// filter endpoint can use the known-question set.
type Server struct {
	verifier  *grounding.Verifier
	detector  *dedupe.Detector
	evaluator *quality.Evaluator
	store     *store.Store
	log       *logging.Logger
}

// NewServer builds a Server; st and log may be nil.
func NewServer(
	verifier *grounding.Verifier,
	detector *dedupe.Detector,
	evaluator *quality.Evaluator,
	st *store.Store,
	log *logging.Logger,
) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		verifier:  verifier,
		detector:  detector,
		evaluator: evaluator,
		store:     st,
		log:       log,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/grounding/verify", s.handleVerify)
		v1.POST("/dedupe/cluster", s.handleCluster)
		v1.POST("/dedupe/filter", s.handleFilter)
		v1.POST("/quality/evaluate", s.handleEvaluate)
		v1.POST("/quality/summarize", s.handleSummarize)
		v1.GET("/reports", s.handleListReports)
	}
	return router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("serving grading API", "addr", addr)
	return s.Router().Run(addr)
}

// requestLogger assigns each request an ID and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
