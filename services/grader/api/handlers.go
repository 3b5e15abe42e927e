// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/qaguard/services/grader/dedupe"
	"github.com/AleutianAI/qaguard/services/grader/grounding"
	"github.com/AleutianAI/qaguard/services/grader/quality"
	"github.com/AleutianAI/qaguard/services/grader/record"
)

// ClusterRequest carries the questions to cluster. Threshold, method,
// and the exact-match short circuit default to the server's detector
// configuration when omitted.
type ClusterRequest struct {
	Questions         []string `json:"questions"`
	Threshold         float64  `json:"threshold,omitempty"`
	Method            string   `json:"method,omitempty"`
	DisableExactMatch bool     `json:"disable_exact_match,omitempty"`
}

// FilterRequest carries new questions and what to filter them against.
// DocumentID additionally pulls the persisted known-question set for
// that document and, on success, persists the accepted questions.
type FilterRequest struct {
	Existing   []string `json:"existing"`
	New        []string `json:"new"`
	DocumentID string   `json:"document_id,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
	Method     string   `json:"method,omitempty"`
}

// FilterResponse returns the questions that survived filtering.
type FilterResponse struct {
	Accepted []string `json:"accepted"`
}

// SummarizeRequest carries reports to roll up.
type SummarizeRequest struct {
	Reports []*quality.Report `json:"reports"`
}

func (s *Server) handleVerify(c *gin.Context) {
	var req grounding.Request
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Document == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document is required"})
		return
	}

	res, err := s.verifier.Verify(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, grounding.ErrUnknownMethod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("verification failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// requestDetector returns the server detector, or one derived from it
// when the request overrides threshold, method, or exact matching.
func (s *Server) requestDetector(threshold float64, method string, disableExact bool) (*dedupe.Detector, error) {
	if threshold == 0 && method == "" && !disableExact {
		return s.detector, nil
	}
	return s.detector.WithConfig(dedupe.Config{
		Threshold:         threshold,
		Method:            dedupe.Method(method),
		DisableExactMatch: disableExact,
	})
}

func (s *Server) handleCluster(c *gin.Context) {
	var req ClusterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	detector, err := s.requestDetector(req.Threshold, req.Method, req.DisableExactMatch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := detector.Cluster(c.Request.Context(), req.Questions)
	if err != nil {
		s.log.Error("clustering failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	detector, err := s.requestDetector(req.Threshold, req.Method, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing := req.Existing
	if req.DocumentID != "" && s.store != nil {
		known, err := s.store.KnownQuestions(req.DocumentID)
		if err != nil {
			s.log.Error("failed to load known questions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		existing = append(existing, known...)
	}

	accepted, err := detector.FilterNew(c.Request.Context(), existing, req.New)
	if err != nil {
		s.log.Error("filtering failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.DocumentID != "" && s.store != nil && len(accepted) > 0 {
		if err := s.store.AddKnownQuestions(req.DocumentID, accepted); err != nil {
			s.log.Error("failed to persist accepted questions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, FilterResponse{Accepted: accepted})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var doc record.Document
	if err := c.BindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report := s.evaluator.Evaluate(&doc)
	if s.store != nil {
		if err := s.store.SaveReport(report); err != nil {
			s.log.Error("failed to persist report", "report_id", report.ReportID, "error", err)
		}
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSummarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, quality.Summarize(req.Reports))
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no store configured"})
		return
	}
	reports, err := s.store.ListReports()
	if err != nil {
		s.log.Error("failed to list reports", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reports == nil {
		reports = []*quality.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
