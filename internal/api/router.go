package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmlink/farmlink/internal/cache"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/pkg/auth"
	"github.com/farmlink/farmlink/pkg/config"
	"github.com/farmlink/farmlink/pkg/logging"
	"github.com/farmlink/farmlink/pkg/telemetry"
)

// Router sets up API routes
type Router struct {
	db     *db.DB
	cache  *cache.Cache
	tokens *auth.TokenIssuer
	cfg    *config.Config
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, tokens *auth.TokenIssuer, cfg *config.Config) *Router {
	return &Router{
		db:     database,
		cache:  redisCache,
		tokens: tokens,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// traceRequests opens a span per request, named after the matched
// route, and threads it through the request context so repository
// calls join the same trace.
func traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Request.Method + " " + c.FullPath()
		ctx, span := telemetry.StartSpan(c.Request.Context(), name)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(traceRequests())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// Uploaded images
	engine.Static("/uploads", r.cfg.Uploads.Dir)

	repo := db.NewRepository(r.db.DB)
	users := db.NewUserRepository(repo)
	password := auth.DefaultPasswordPolicy(r.cfg.Auth.MinPasswordLength)

	requireAccess := RequireAuth(r.tokens, users, auth.TokenTypeAccess)
	requireRefresh := RequireAuth(r.tokens, users, auth.TokenTypeRefresh)

	authAPI := NewAuthAPI(repo, r.tokens, password)
	userAPI := NewUserAPI(repo, &r.cfg.Uploads)
	postAPI := NewPostAPI(repo, &r.cfg.Uploads)
	commentAPI := NewCommentAPI(repo)
	followAPI := NewFollowAPI(repo)
	messageAPI := NewMessageAPI(repo)
	communityAPI := NewCommunityAPI(repo, r.cache, &r.cfg.Uploads)

	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authAPI.Register)
	authGroup.POST("/login", authAPI.Login)
	authGroup.POST("/refresh", requireRefresh, authAPI.Refresh)
	authGroup.POST("/logout", requireAccess, authAPI.Logout)
	authGroup.GET("/me", requireAccess, authAPI.Me)

	userGroup := api.Group("/users")
	userGroup.GET("/search", userAPI.Search)
	userGroup.GET("/:id", userAPI.Get)
	userGroup.PUT("/profile", requireAccess, userAPI.UpdateProfile)

	postGroup := api.Group("/posts")
	postGroup.GET("", postAPI.List)
	postGroup.POST("", requireAccess, postAPI.Create)
	postGroup.GET("/:id", postAPI.Get)
	postGroup.PUT("/:id", requireAccess, postAPI.Update)
	postGroup.DELETE("/:id", requireAccess, postAPI.Delete)
	postGroup.POST("/:id/like", requireAccess, postAPI.ToggleLike)

	commentGroup := api.Group("/comments")
	commentGroup.GET("/post/:postID", commentAPI.ListByPost)
	commentGroup.POST("/post/:postID", requireAccess, commentAPI.Create)
	commentGroup.PUT("/:id", requireAccess, commentAPI.Update)
	commentGroup.DELETE("/:id", requireAccess, commentAPI.Delete)

	followGroup := api.Group("/follows", requireAccess)
	followGroup.POST("/:userID/follow", followAPI.Toggle)
	followGroup.GET("/following", followAPI.Following)
	followGroup.GET("/followers", followAPI.Followers)
	followGroup.GET("/check/:userID", followAPI.Check)

	communityGroup := api.Group("/communities")
	communityGroup.GET("", communityAPI.List)
	communityGroup.POST("", requireAccess, communityAPI.Create)
	communityGroup.GET("/:id", communityAPI.Get)
	communityGroup.POST("/:id/join", requireAccess, communityAPI.ToggleMembership)
	communityGroup.GET("/:id/members", communityAPI.Members)

	messageGroup := api.Group("/messages", requireAccess)
	messageGroup.GET("/conversations", messageAPI.Conversations)
	messageGroup.GET("/user/:userID", messageAPI.ListWithUser)
	messageGroup.POST("/send", messageAPI.Send)
	messageGroup.DELETE("/:id", messageAPI.Delete)
	messageGroup.GET("/unread/count", messageAPI.UnreadCount)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "farmlink-api",
	})
}
