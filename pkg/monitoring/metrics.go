package monitoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns a gin handler serving the prometheus metrics endpoint
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ServiceInfo registers a gauge carrying service name/version labels so
// dashboards can tell deployments apart.
func ServiceInfo(service, version string) {
	g := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "service_info",
		Help: "Service name and version",
	}, []string{"service", "version"})
	g.WithLabelValues(service, version).Set(1)
}
