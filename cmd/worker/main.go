package main

import (
  "context"
  "fmt"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/joho/godotenv"

  redisclients "github.com/mirelia/companion-backend/internal/clients/redis"
  "github.com/mirelia/companion-backend/internal/db"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/repos"
  "github.com/mirelia/companion-backend/internal/services"
  "github.com/mirelia/companion-backend/internal/sse"
  "github.com/mirelia/companion-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

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

  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  thePG := postgresService.DB()

  rdb, err := redisclients.NewClient(log)
  if err != nil {
    log.Fatal("Redis init failed", "error", err)
  }

  userRepo := repos.NewUserRepo(thePG, log)
  generationRepo := repos.NewGenerationRepo(thePG, log)
  aiModelRepo := repos.NewAIModelRepo(thePG, log)

  // Worker emits through the bus only; the API instances forward bus
  // traffic to their local hubs.
  sseHub := sse.NewSSEHub(log)
  sseBus, err := redisclients.NewSSEBus(log, rdb)
  if err != nil {
    log.Fatal("SSE bus init failed", "error", err)
  }
  emitter := services.NewHubEmitter(log, sseHub, sseBus)
  modelNotifier := services.NewModelNotifier(emitter)

  aiClient, err := services.NewAIClient(log)
  if err != nil {
    log.Fatal("Could not init AIClient", "error", err)
  }
  avatarService, err := services.NewAvatarService(log)
  if err != nil {
    log.Fatal("Could not init AvatarService", "error", err)
  }
  ledgerService := services.NewLedgerService(thePG, log, userRepo, generationRepo)
  queueService := services.NewModelQueueService(log, rdb, ledgerService, aiModelRepo)

  maxJobs := utils.GetEnvAsInt("MAX_CONCURRENT_JOBS", 1, log)
  jobTimeout := utils.GetEnvAsInt("GEN_JOB_TIMEOUT", 120, log)

  worker := services.NewModelWorker(
    log,
    rdb,
    queueService,
    aiModelRepo,
    aiClient,
    avatarService,
    modelNotifier,
    maxJobs,
    time.Duration(jobTimeout)*time.Second,
  )

  ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
  defer stop()

  if err := worker.Run(ctx); err != nil {
    log.Fatal("Worker exited with error", "error", err)
  }
  log.Info("Worker stopped")
}
