package main

import (
  "context"
  "fmt"
  "os"
  "strings"
  "time"

  "github.com/joho/godotenv"

  redisclients "github.com/mirelia/companion-backend/internal/clients/redis"
  "github.com/mirelia/companion-backend/internal/db"
  "github.com/mirelia/companion-backend/internal/handlers"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/middleware"
  "github.com/mirelia/companion-backend/internal/repos"
  "github.com/mirelia/companion-backend/internal/server"
  "github.com/mirelia/companion-backend/internal/services"
  "github.com/mirelia/companion-backend/internal/sse"
  "github.com/mirelia/companion-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  signupGrant := utils.GetEnvAsInt("SIGNUP_TOKEN_GRANT", 100, log)
  mediaDir := utils.GetEnv("MEDIA_DIR", "./media", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Fatal("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Redis
  rdb, err := redisclients.NewClient(log)
  if err != nil {
    log.Fatal("Redis init failed", "error", err)
  }

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  aiModelRepo := repos.NewAIModelRepo(thePG, log)
  chatRoomRepo := repos.NewChatRoomRepo(thePG, log)
  chatMessageRepo := repos.NewChatMessageRepo(thePG, log)
  generationRepo := repos.NewGenerationRepo(thePG, log)
  tokenClaimRepo := repos.NewTokenClaimRepo(thePG, log)
  followRepo := repos.NewFollowRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  sseBus, err := redisclients.NewSSEBus(log, rdb)
  if err != nil {
    log.Fatal("SSE bus init failed", "error", err)
  }
  emitter := services.NewHubEmitter(log, sseHub, sseBus)
  if err := emitter.StartForwarder(context.Background()); err != nil {
    log.Fatal("SSE forwarder init failed", "error", err)
  }
  chatNotifier := services.NewChatNotifier(emitter)

  // Services
  log.Info("Setting up Services from main...")
  aiClient, err := services.NewAIClient(log)
  if err != nil {
    log.Fatal("Could not init AIClient", "error", err)
  }
  avatarService, err := services.NewAvatarService(log)
  if err != nil {
    log.Fatal("Could not init AvatarService", "error", err)
  }
  authService := services.NewAuthService(
    thePG,
    log,
    userRepo,
    userTokenRepo,
    avatarService,
    jwtSecretKey,
    time.Duration(accessTokenTTL)*time.Second,
    time.Duration(refreshTokenTTL)*time.Second,
    signupGrant,
  )
  ledgerService := services.NewLedgerService(thePG, log, userRepo, generationRepo)
  modelService := services.NewModelService(thePG, log, aiModelRepo, followRepo)
  queueService := services.NewModelQueueService(log, rdb, ledgerService, aiModelRepo)
  chatService := services.NewChatService(thePG, log, chatRoomRepo, chatMessageRepo, aiModelRepo, generationRepo, ledgerService, aiClient, chatNotifier)
  claimService := services.NewClaimService(thePG, log, tokenClaimRepo, ledgerService)
  imageService := services.NewImageService(log, ledgerService, generationRepo, aiClient)

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userRepo)
  aiModelHandler := handlers.NewAIModelHandler(modelService, queueService)
  chatHandler := handlers.NewChatHandler(chatService)
  sseHandler := handlers.NewSSEHandler(sseHub, chatService)
  claimHandler := handlers.NewClaimHandler(claimService)
  imageHandler := handlers.NewImageHandler(imageService)
  healthcheckHandler := handlers.NewHealthcheckHandler()

  // Middleware
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  var origins []string
  if raw := utils.GetEnv("ALLOWED_ORIGINS", "", log); raw != "" {
    origins = strings.Split(raw, ",")
  }
  router := server.NewRouter(server.RouterConfig{
    AllowedOrigins:     origins,
    MediaDir:           mediaDir,
    AuthHandler:        authHandler,
    AuthMiddleware:     authMiddleware,
    UserHandler:        userHandler,
    AIModelHandler:     aiModelHandler,
    ChatHandler:        chatHandler,
    SSEHandler:         sseHandler,
    ClaimHandler:       claimHandler,
    ImageHandler:       imageHandler,
    HealthcheckHandler: healthcheckHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server failed", "error", err)
  }
}
