package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

// ModelWorker drains the generation queue: it expands the custom prompt into
// a persona via the LLM, renders an avatar, and moves the persona row to its
// terminal status exactly once. The row is the ground truth; the job hash
// and status cache are rewritten after it.
type ModelWorker struct {
	log        *logger.Logger
	rdb        *goredis.Client
	queue      ModelQueueService
	modelRepo  repos.AIModelRepo
	ai         AIClient
	avatars    AvatarService
	notifier   ModelNotifier
	workers    int
	jobTimeout time.Duration
}

func NewModelWorker(
	log *logger.Logger,
	rdb *goredis.Client,
	queue ModelQueueService,
	modelRepo repos.AIModelRepo,
	ai AIClient,
	avatars AvatarService,
	notifier ModelNotifier,
	workers int,
	jobTimeout time.Duration,
) *ModelWorker {
	if workers <= 0 {
		workers = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &ModelWorker{
		log:        log.With("service", "ModelWorker"),
		rdb:        rdb,
		queue:      queue,
		modelRepo:  modelRepo,
		ai:         ai,
		avatars:    avatars,
		notifier:   notifier,
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Run blocks until ctx is cancelled. Transient Redis failures back off
// starting at 2s, growing 1.5x up to a 5s cap.
func (w *ModelWorker) Run(ctx context.Context) error {
	w.log.Info("Model worker starting", "workers", w.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			return w.consumeLoop(gctx)
		})
	}
	return g.Wait()
}

func (w *ModelWorker) consumeLoop(ctx context.Context) error {
	backoff := 2 * time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := w.rdb.BRPop(ctx, 5*time.Second, modelGenQueueKey).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				backoff = 2 * time.Second
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("Queue pop failed, backing off", "sleep", backoff.String(), "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * 1.5)
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			continue
		}
		backoff = 2 * time.Second
		if len(res) != 2 {
			continue
		}
		w.process(ctx, res[1])
	}
}

func (w *ModelWorker) process(ctx context.Context, jobID string) {
	log := w.log.With("job_id", jobID)

	vals, err := w.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil || len(vals) == 0 {
		log.Warn("Dropped job with missing hash", "error", err)
		return
	}
	modelID, err := uuid.Parse(vals["model_id"])
	if err != nil {
		log.Warn("Dropped job with bad model id", "model_id", vals["model_id"])
		return
	}
	userID, _ := uuid.Parse(vals["user_id"])
	prompt := vals["prompt"]

	if err := w.queue.MarkProcessing(ctx, jobID); err != nil {
		log.Warn("Failed to mark job processing", "error", err)
	}
	w.notifier.ModelStatusChanged(userID, nil, jobID, string(JobStateProcessing))

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	model, err := w.buildPersona(jobCtx, modelID, prompt)
	if err != nil {
		log.Error("Model generation failed", "model_id", modelID, "error", err)
		w.fail(ctx, jobID, modelID, userID, err)
		return
	}

	if err := w.queue.MarkCompleted(ctx, jobID); err != nil {
		log.Warn("Failed to mark job completed", "error", err)
	}
	w.notifier.ModelStatusChanged(userID, model, jobID, string(JobStateCompleted))
	log.Info("Model generation completed", "model_id", modelID)
}

func (w *ModelWorker) buildPersona(ctx context.Context, modelID uuid.UUID, prompt string) (*types.AIModel, error) {
	draft, err := w.ai.GeneratePersona(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("persona generation: %w", err)
	}

	avatarURL := ""
	if w.avatars != nil {
		if url, aErr := w.avatars.SaveAvatar(draft.Name); aErr != nil {
			w.log.Warn("Avatar generation failed, continuing without", "model_id", modelID, "error", aErr)
		} else {
			avatarURL = url
		}
	}

	updates := map[string]interface{}{
		"name":        draft.Name,
		"personality": draft.Personality,
		"appearance":  draft.Appearance,
		"backstory":   draft.Backstory,
		"hobbies":     draft.Hobbies,
		"likes":       draft.Likes,
		"dislikes":    draft.Dislikes,
		"status":      types.AIModelStatusCompleted,
	}
	if avatarURL != "" {
		updates["avatar_url"] = avatarURL
	}
	if err := w.modelRepo.UpdateFields(ctx, nil, modelID, updates); err != nil {
		return nil, fmt.Errorf("persisting persona: %w", err)
	}
	return w.modelRepo.GetByID(ctx, nil, modelID)
}

func (w *ModelWorker) fail(ctx context.Context, jobID string, modelID, userID uuid.UUID, cause error) {
	if err := w.modelRepo.UpdateFields(ctx, nil, modelID, map[string]interface{}{
		"status": types.AIModelStatusFailed,
	}); err != nil {
		w.log.Error("Failed to mark ai model failed", "model_id", modelID, "error", err)
	}
	if err := w.queue.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		w.log.Warn("Failed to mark job failed", "job_id", jobID, "error", err)
	}
	w.notifier.ModelStatusChanged(userID, nil, jobID, string(JobStateFailed))
}
