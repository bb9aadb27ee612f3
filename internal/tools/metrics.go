package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "throp_tool_calls_total",
		Help: "Evidence tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "throp_tool_cache_hits_total",
		Help: "Evidence tool results served from the query cache",
	}, []string{"tool"})
)
