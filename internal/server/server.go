// Package server exposes the HTTP boundary: a chat endpoint for talking to
// the bot directly, plus health and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"throp/internal/cache"
	"throp/internal/orchestrator"
	"throp/internal/platform"
	"throp/pkg/logging"
	"throp/pkg/monitoring"
)

// Answerer produces a reply for a chat message.
type Answerer interface {
	GenerateResponse(ctx context.Context, question, authorContext string, history []string) orchestrator.Response
}

// Trender returns current trending topics. Best effort by contract, so the
// endpoint never fails.
type Trender interface {
	GetTrendingTopics(ctx context.Context, region string) []platform.Trend
}

type Server struct {
	answerer    Answerer
	store       *cache.Store
	trender     Trender
	trendRegion string
	health      *monitoring.HealthChecker
	logger      logging.Logger
	engine      *gin.Engine
}

func New(answerer Answerer, store *cache.Store, trender Trender, trendRegion string, health *monitoring.HealthChecker, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		answerer:    answerer,
		store:       store,
		trender:     trender,
		trendRegion: trendRegion,
		health:      health,
		logger:      logger,
		engine:      gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health.Handler())
	s.engine.GET("/metrics", monitoring.MetricsHandler())
	v1 := s.engine.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/stats", s.handleStats)
	v1.GET("/trends", s.handleTrends)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.logger.WithField("addr", addr).Info("HTTP server listening")
	return s.engine.Run(addr)
}

type chatRequest struct {
	Message string   `json:"message" binding:"required"`
	Author  string   `json:"author"`
	History []string `json:"history"`
}

type chatResponse struct {
	Text        string   `json:"text"`
	Citations   []string `json:"citations,omitempty"`
	Confidence  float64  `json:"confidence"`
	ThreadParts []string `json:"thread_parts,omitempty"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	resp := s.answerer.GenerateResponse(c.Request.Context(), req.Message, req.Author, req.History)
	c.JSON(http.StatusOK, chatResponse{
		Text:        resp.Text,
		Citations:   resp.Citations,
		Confidence:  resp.Confidence,
		ThreadParts: resp.ThreadParts,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := gin.H{
		"store_connected": false,
	}
	if s.store != nil {
		stats["store_connected"] = s.store.Connected()
		stats["questions_answered"] = s.store.GetCounter(ctx, "questions_answered")
		stats["replies_sent"] = s.store.GetCounter(ctx, "replies_sent")
		stats["errors"] = s.store.GetCounter(ctx, "errors")
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTrends(c *gin.Context) {
	if s.trender == nil {
		c.JSON(http.StatusOK, gin.H{"trends": []platform.Trend{}})
		return
	}
	region := c.DefaultQuery("region", s.trendRegion)
	trends := s.trender.GetTrendingTopics(c.Request.Context(), region)
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}
