package api

import (
	"net/http" // HTTP status codes
	"time"     // CORS max age

	"vertex_games/internal/config"     // Configuration
	"vertex_games/internal/middleware" // Custom middleware
	"vertex_games/internal/service"    // Services
	"vertex_games/internal/storage"    // Upload limits

	"github.com/gin-contrib/cors" // CORS handling
	"github.com/gin-contrib/gzip" // Response compression
	"github.com/gin-gonic/gin"    // Gin web framework
	"gorm.io/gorm"                // GORM ORM library
)

// Server bundles what the router needs
type Server struct {
	Config  *config.Config          // Application configuration
	DB      *gorm.DB                // Store, used for role checks and health
	Auth    *service.AuthService    // Session issuer
	Catalog *service.CatalogService // Games
	Reviews *service.ReviewService  // Reviews
	Metrics *middleware.Metrics     // Prometheus collectors, optional
}

// NewRouter wires middleware and routes
func NewRouter(s Server) (*gin.Engine, error) {
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}
	r.MaxMultipartMemory = storage.MaxImageBytes // Larger uploads spill to temp files

	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware())
		r.GET("/metrics", s.Metrics.Handler())
	}
	if len(s.Config.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.Config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/uploads", "/metrics"})))

	// Uploaded images
	r.Static("/uploads", s.Config.UploadDir)

	r.GET("/healthz", HealthHandler(s.DB))

	jwtSecret := s.Config.JWTSecret

	// Auth routes, throttled per client IP
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.NewRateLimiter(s.Config.AuthRateLimit, s.Config.AuthRateBurst).Middleware())
	authGroup.POST("/login", LoginHandler(s.Auth))                                   // Login endpoint
	authGroup.POST("/register", RegisterHandler(s.Auth))                             // Registration endpoint
	authGroup.GET("/me", middleware.JWTAuthMiddleware(jwtSecret), MeHandler(s.Auth)) // Current identity

	// Public catalog reads
	games := r.Group("/games")
	games.GET("", ListGamesHandler(s.Catalog))              // All games
	games.GET("/featured", FeaturedGamesHandler(s.Catalog)) // Featured games
	games.GET("/:id", GetGameHandler(s.Catalog))            // One game

	// Catalog mutations (protected, admin only)
	adminGames := r.Group("/games")
	adminGames.Use(middleware.JWTAuthMiddleware(jwtSecret), middleware.AdminOnlyMiddleware(s.DB))
	adminGames.POST("", CreateGameHandler(s.Catalog))       // Create game
	adminGames.PATCH("/:id", UpdateGameHandler(s.Catalog))  // Partial update
	adminGames.DELETE("/:id", DeleteGameHandler(s.Catalog)) // Delete game and reviews

	// Reviews
	reviews := r.Group("/reviews")
	reviews.POST("", middleware.OptionalJWTMiddleware(jwtSecret), CreateReviewHandler(s.Reviews)) // Submit review
	reviews.GET("/game/:gameId", ListGameReviewsHandler(s.Reviews))                               // Reviews of a game
	reviews.GET("/game/:gameId/summary", ReviewSummaryHandler(s.Reviews))                         // Count and average
	reviews.GET("/:id", GetReviewHandler(s.Reviews))                                              // One review

	return r, nil
}

// HealthHandler reports whether the store is reachable
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
