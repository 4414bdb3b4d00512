package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itemforge/matchbot/internal/agent"
	"github.com/itemforge/matchbot/internal/db"
	"github.com/itemforge/matchbot/internal/metrics"
	"github.com/itemforge/matchbot/internal/participation"
)

type APIHandler struct {
	host  *agent.Agent
	store *db.Store
	wsHub *Hub
}

// SetupRouter builds the status API. The store may be nil; blacklist routes
// then answer 503 and everything else keeps working.
func SetupRouter(host *agent.Agent, store *db.Store, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// CORS, configurable via ALLOWED_ORIGINS (comma-separated). Empty or
	// "*" allows every origin, for local dashboards.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{host: host, store: store, wsHub: wsHub}
	limiter := NewRateLimiter(120, 30)

	api := r.Group("/api/v1")
	api.Use(limiter.Middleware())
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)

		protected := api.Group("")
		protected.Use(AuthMiddleware())
		{
			protected.GET("/bots", handler.handleListBots)
			protected.GET("/bots/:name", handler.handleBotStatus)
			protected.POST("/bots/:name/match", handler.handleTriggerMatch)

			protected.GET("/blacklist", handler.handleListBlacklist)
			protected.POST("/blacklist", handler.handleAddBlacklisted)
			protected.DELETE("/blacklist/:steamid", handler.handleRemoveBlacklisted)
		}
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// handleHealth returns service status for discovery and probes.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"service":     "matchbot",
		"bots":        len(h.host.Bots()),
		"dbConnected": h.store != nil,
	})
}

// handleListBots returns every hosted bot's lifecycle snapshot.
func (h *APIHandler) handleListBots(c *gin.Context) {
	bots := h.host.Bots()
	statuses := make([]participation.Status, 0, len(bots))
	for _, b := range bots {
		statuses = append(statuses, b.Status())
	}
	c.JSON(http.StatusOK, gin.H{"bots": statuses})
}

func (h *APIHandler) handleBotStatus(c *gin.Context) {
	b, ok := h.host.Bot(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown bot"})
		return
	}
	c.JSON(http.StatusOK, b.Status())
}

// handleTriggerMatch launches one active-matching pass in the background.
// A pass already in flight makes the launch a silent no-op, same as the
// periodic trigger.
func (h *APIHandler) handleTriggerMatch(c *gin.Context) {
	b, ok := h.host.Bot(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown bot"})
		return
	}

	// The pass outlives the request, so it gets its own context.
	go b.Match(context.Background())

	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"bot":    b.Name(),
	})
}
