package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "throp_platform_api_calls_total",
		Help: "Platform API calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	rateLimitShortCircuits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "throp_platform_rate_limit_short_circuits_total",
		Help: "Calls blocked locally because the endpoint budget was exhausted",
	})

	postsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "throp_platform_posts_total",
		Help: "Outbound posts by kind",
	}, []string{"kind"})
)
