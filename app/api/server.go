package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Read endpoints
	r.GET("/articles", handler.ListArticles)
	r.GET("/articles/:id", handler.GetArticle)
	r.GET("/sources", handler.GetSources)
	r.GET("/feed.xml", handler.GetFeed)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/review", handler.APIListReview)
			api.POST("/review/outcome", handler.APISetOutcome)
			api.POST("/review/storygroup", handler.APISetStorygroup)
			api.POST("/review/sync", handler.APISyncReview)
			api.GET("/runs", handler.APIListRuns)
			api.POST("/runs", handler.APIStartRun)
			api.GET("/feeds", handler.APIListFeeds)
			api.POST("/feeds/active", handler.APISetFeedActive)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"articles": "/articles?source=&category=&topic=&parent_topic=&hours=&q=&limit=&page=",
			"article":  "/articles/<id>",
			"sources":  "/sources",
			"feed":     "/feed.xml?source=&category=&topic=&parent_topic=&hours=&q=",
			"health":   "/health",
			"stats":    "/stats?hours=",
		}

		// Add API endpoints if authentication is enabled
		if apiAccessKey != "" {
			endpoints["review"] = "/api/review (requires X-API-Key header)"
			endpoints["outcome"] = "/api/review/outcome (POST, requires X-API-Key header)"
			endpoints["storygroup"] = "/api/review/storygroup (POST, requires X-API-Key header)"
			endpoints["review_sync"] = "/api/review/sync (POST, requires X-API-Key header)"
			endpoints["runs"] = "/api/runs (GET/POST, requires X-API-Key header)"
			endpoints["feeds"] = "/api/feeds (requires X-API-Key header)"
			endpoints["feed_active"] = "/api/feeds/active (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "news-sieve",
			"version":     handler.version,
			"description": "RSS/Atom news ingestion with keyword classification and sentiment",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
