package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/vidtube-api/internal/middleware"
	"github.com/noah-isme/vidtube-api/internal/service"
	"github.com/noah-isme/vidtube-api/pkg/config"
	"github.com/noah-isme/vidtube-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/vidtube-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/vidtube-api/pkg/middleware/requestid"
)

// RouterDeps collects what the HTTP layer needs.
type RouterDeps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Tokens    middleware.TokenValidator
	Auth      *AuthHandler
	Playlists *PlaylistHandler
	Ops       *MetricsHandler
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics"))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	if deps.Ops != nil {
		r.GET("/health", deps.Ops.Health)
		r.GET("/ready", deps.Ops.Ready)
		r.GET("/metrics", deps.Ops.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	secured := middleware.JWT(deps.Tokens)
	optional := middleware.OptionalJWT(deps.Tokens)

	users := api.Group("/users")
	users.POST("/register", deps.Auth.Register)
	users.POST("/login", deps.Auth.Login)
	users.POST("/refresh-token", deps.Auth.RefreshToken)
	users.POST("/logout", secured, deps.Auth.Logout)
	users.GET("/current-user", secured, deps.Auth.CurrentUser)

	playlists := api.Group("/playlists")
	playlists.POST("", secured, deps.Playlists.Create)
	playlists.GET("/user/:userId", optional, deps.Playlists.ListByUser)
	playlists.GET("/:playlistId", optional, deps.Playlists.Get)
	playlists.PATCH("/:playlistId", secured, deps.Playlists.Update)
	playlists.DELETE("/:playlistId", secured, deps.Playlists.Delete)
	playlists.PATCH("/:playlistId/add/:videoId", secured, deps.Playlists.AddVideo)
	playlists.PATCH("/:playlistId/remove/:videoId", secured, deps.Playlists.RemoveVideo)

	return r
}
