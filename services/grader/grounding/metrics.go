// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for grounding operations. Method labels use the base
// strategy name, so degraded variants fold into their family.
var (
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaguard",
		Subsystem: "grounding",
		Name:      "verifications_total",
		Help:      "Grounding checks by strategy and outcome.",
	}, []string{"method", "grounded"})

	confidenceHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qaguard",
		Subsystem: "grounding",
		Name:      "confidence",
		Help:      "Confidence scores of completed checks.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	judgeRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qaguard",
		Subsystem: "grounding",
		Name:      "judge_retries_total",
		Help:      "Judge model calls that failed and were retried.",
	})

	judgeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qaguard",
		Subsystem: "grounding",
		Name:      "judge_failures_total",
		Help:      "Judge calls that exhausted retries and degraded to UNKNOWN.",
	})
)

func observeVerification(res *Result) {
	method := res.Method
	if i := strings.IndexByte(method, ' '); i > 0 {
		method = method[:i]
	}
	verificationsTotal.WithLabelValues(method, strconv.FormatBool(res.IsGrounded)).Inc()
	confidenceHistogram.Observe(res.Confidence)
}

func observeJudgeRetry()   { judgeRetriesTotal.Inc() }
func observeJudgeFailure() { judgeFailuresTotal.Inc() }
