package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "throp_questions_total",
		Help: "Questions answered by intent and domain",
	}, []string{"intent", "domain"})

	answerConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "throp_answer_confidence",
		Help:    "Confidence score of generated answers",
		Buckets: []float64{0.2, 0.5, 0.85, 1},
	})

	disambiguationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "throp_disambiguations_total",
		Help: "Answers that asked the user to pick between candidates",
	})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "throp_answer_fallbacks_total",
		Help: "Answers produced by the deterministic fallback path",
	})
)
