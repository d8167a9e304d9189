package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/mirelia/companion-backend/internal/handlers"
  "github.com/mirelia/companion-backend/internal/middleware"
)

type RouterConfig struct {
  AllowedOrigins     []string
  MediaDir           string
  AuthHandler        *handlers.AuthHandler
  AuthMiddleware     *middleware.AuthMiddleware
  UserHandler        *handlers.UserHandler
  AIModelHandler     *handlers.AIModelHandler
  ChatHandler        *handlers.ChatHandler
  SSEHandler         *handlers.SSEHandler
  ClaimHandler       *handlers.ClaimHandler
  ImageHandler       *handlers.ImageHandler
  HealthcheckHandler *handlers.HealthcheckHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  origins := cfg.AllowedOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000", "http://localhost:5173"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
  if dir := strings.TrimSpace(cfg.MediaDir); dir != "" {
    router.Static("/media", dir)
  }
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)
  // AI models
  protected.GET("/ai-models", cfg.AIModelHandler.List)
  protected.GET("/ai-models/mine", cfg.AIModelHandler.ListMine)
  protected.POST("/ai-models/queue", cfg.AIModelHandler.Enqueue)
  protected.GET("/ai-models/queue", cfg.AIModelHandler.Status)
  protected.GET("/ai-models/:id", cfg.AIModelHandler.Get)
  protected.DELETE("/ai-models/:id", cfg.AIModelHandler.Delete)
  protected.POST("/ai-models/:id/follow", cfg.AIModelHandler.Follow)
  protected.DELETE("/ai-models/:id/follow", cfg.AIModelHandler.Unfollow)
  // Chat
  protected.POST("/chat/rooms", cfg.ChatHandler.CreateRoom)
  protected.GET("/chat/rooms", cfg.ChatHandler.ListRooms)
  protected.GET("/chat/rooms/:id", cfg.ChatHandler.GetRoom)
  protected.GET("/chat/rooms/:id/messages", cfg.ChatHandler.ListMessages)
  protected.POST("/chat/rooms/:id/messages", cfg.ChatHandler.SendMessage)
  protected.POST("/chat/:id/messages", cfg.ChatHandler.SendMessage)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.StreamAll)
  protected.GET("/chat/rooms/subscribe", cfg.SSEHandler.StreamUser)
  protected.GET("/chat/:id/sse", cfg.SSEHandler.StreamRoom)
  protected.GET("/chat/:id/subscribe", cfg.SSEHandler.StreamRoom)
  // Token claims
  protected.GET("/claim", cfg.ClaimHandler.Get)
  protected.POST("/claim", cfg.ClaimHandler.Claim)
  protected.GET("/claims/:code", cfg.ClaimHandler.Get)
  protected.POST("/claims/:code", cfg.ClaimHandler.Claim)
  // Image generation
  protected.POST("/generate/image", cfg.ImageHandler.Generate)
  protected.POST("/images", cfg.ImageHandler.Generate)
  protected.GET("/images", cfg.ImageHandler.History)

  return router
}
