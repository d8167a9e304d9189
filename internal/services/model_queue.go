package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

const (
	modelGenQueueKey  = "model_gen_queue"
	modelGenJobPrefix = "model_gen_job:"
	modelGenStsPrefix = "model_gen_status:"

	// statusCacheTTL bounds staleness of the read-through cache. The AIModel
	// row is authoritative; the cache is repopulated from it on every miss
	// and rewritten by the worker on every transition.
	statusCacheTTL = 5 * time.Minute
)

var ErrJobNotFound = errors.New("job not found")

type JobState string

const (
	JobStateQueued     JobState = "QUEUED"
	JobStateProcessing JobState = "PROCESSING"
	JobStateCompleted  JobState = "COMPLETED"
	JobStateFailed     JobState = "FAILED"
)

type JobStatus struct {
	JobID     string    `json:"jobId"`
	ModelID   string    `json:"modelId"`
	UserID    string    `json:"userId"`
	Prompt    string    `json:"prompt"`
	Status    JobState  `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type EnqueueResult struct {
	ModelID uuid.UUID `json:"id"`
	JobID   string    `json:"jobId"`
}

type ModelQueueService interface {
	Enqueue(ctx context.Context, userID uuid.UUID, prompt string, isPrivate bool) (*EnqueueResult, error)
	GetStatus(ctx context.Context, jobID string) (*JobStatus, error)
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, errMsg string) error
}

type modelQueueService struct {
	log       *logger.Logger
	rdb       *goredis.Client
	ledger    LedgerService
	modelRepo repos.AIModelRepo
}

func NewModelQueueService(log *logger.Logger, rdb *goredis.Client, ledger LedgerService, modelRepo repos.AIModelRepo) ModelQueueService {
	return &modelQueueService{
		log:       log.With("service", "ModelQueueService"),
		rdb:       rdb,
		ledger:    ledger,
		modelRepo: modelRepo,
	}
}

func jobKey(jobID string) string    { return modelGenJobPrefix + jobID }
func statusKey(jobID string) string { return modelGenStsPrefix + jobID }

// Enqueue deducts the character price first, so an insufficient balance
// leaves no persona row behind. The PENDING row, the job hash, the queue
// push and the status cache entry are then written together, the Redis
// writes in a single pipeline.
func (s *modelQueueService) Enqueue(ctx context.Context, userID uuid.UUID, prompt string, isPrivate bool) (*EnqueueResult, error) {
	if _, err := s.ledger.Deduct(ctx, userID, types.GenerationTypeCharacter, prompt); err != nil {
		return nil, err
	}

	model := &types.AIModel{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "New companion",
		Status:    types.AIModelStatusPending,
		IsPrivate: isPrivate,
	}
	if _, err := s.modelRepo.Create(ctx, nil, []*types.AIModel{model}); err != nil {
		return nil, fmt.Errorf("Failed to create pending ai model: %w", err)
	}

	jobID := uuid.New().String()
	status := &JobStatus{
		JobID:     jobID,
		ModelID:   model.ID.String(),
		UserID:    userID.String(),
		Prompt:    prompt,
		Status:    JobStateQueued,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("Failed to encode job status: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, jobKey(jobID), map[string]interface{}{
		"model_id":   status.ModelID,
		"user_id":    status.UserID,
		"prompt":     prompt,
		"status":     string(JobStateQueued),
		"created_at": status.CreatedAt.Format(time.RFC3339Nano),
	})
	pipe.LPush(ctx, modelGenQueueKey, jobID)
	pipe.Set(ctx, statusKey(jobID), raw, statusCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		// the persona row exists but the job never made the queue; mark it
		// failed instead of leaving it PENDING forever
		if uErr := s.modelRepo.UpdateFields(ctx, nil, model.ID, map[string]interface{}{"status": types.AIModelStatusFailed}); uErr != nil {
			s.log.Error("Failed to mark orphaned model failed", "model_id", model.ID, "error", uErr)
		}
		return nil, fmt.Errorf("Failed to enqueue generation job: %w", err)
	}

	s.log.Info("Model generation job enqueued", "job_id", jobID, "model_id", model.ID)
	return &EnqueueResult{ModelID: model.ID, JobID: jobID}, nil
}

// GetStatus serves from the short-TTL cache; on a miss it rebuilds the
// status from the job hash reconciled against the authoritative persona row
// and repopulates the cache.
func (s *modelQueueService) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	raw, err := s.rdb.Get(ctx, statusKey(jobID)).Result()
	if err == nil {
		var status JobStatus
		if uErr := json.Unmarshal([]byte(raw), &status); uErr == nil {
			return &status, nil
		}
		s.log.Warn("Corrupt job status cache entry, rebuilding", "job_id", jobID)
	} else if !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("Failed to read job status cache: %w", err)
	}

	status, err := s.loadStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.writeStatusCache(ctx, status)
	return status, nil
}

func (s *modelQueueService) loadStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	vals, err := s.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("Failed to read job hash: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrJobNotFound
	}

	status := &JobStatus{
		JobID:   jobID,
		ModelID: vals["model_id"],
		UserID:  vals["user_id"],
		Prompt:  vals["prompt"],
		Status:  JobState(vals["status"]),
		Error:   vals["error"],
	}
	if ts, pErr := time.Parse(time.RFC3339Nano, vals["created_at"]); pErr == nil {
		status.CreatedAt = ts
	}

	// persona row is ground truth for terminal states
	if modelID, pErr := uuid.Parse(status.ModelID); pErr == nil {
		model, mErr := s.modelRepo.GetByID(ctx, nil, modelID)
		switch {
		case mErr == nil:
			switch model.Status {
			case types.AIModelStatusCompleted:
				status.Status = JobStateCompleted
			case types.AIModelStatusFailed:
				status.Status = JobStateFailed
			}
		case !errors.Is(mErr, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("Failed to reconcile job with ai model: %w", mErr)
		}
	}
	return status, nil
}

func (s *modelQueueService) MarkProcessing(ctx context.Context, jobID string) error {
	return s.transition(ctx, jobID, JobStateProcessing, "")
}

func (s *modelQueueService) MarkCompleted(ctx context.Context, jobID string) error {
	return s.transition(ctx, jobID, JobStateCompleted, "")
}

func (s *modelQueueService) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	return s.transition(ctx, jobID, JobStateFailed, errMsg)
}

func (s *modelQueueService) transition(ctx context.Context, jobID string, state JobState, errMsg string) error {
	fields := map[string]interface{}{"status": string(state)}
	if errMsg != "" {
		fields["error"] = errMsg
	}
	if err := s.rdb.HSet(ctx, jobKey(jobID), fields).Err(); err != nil {
		return fmt.Errorf("Failed to update job hash: %w", err)
	}
	status, err := s.loadStatus(ctx, jobID)
	if err != nil {
		return err
	}
	s.writeStatusCache(ctx, status)
	return nil
}

func (s *modelQueueService) writeStatusCache(ctx context.Context, status *JobStatus) {
	raw, err := json.Marshal(status)
	if err != nil {
		s.log.Warn("Failed to encode job status for cache", "job_id", status.JobID, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, statusKey(status.JobID), raw, statusCacheTTL).Err(); err != nil {
		s.log.Warn("Failed to write job status cache", "job_id", status.JobID, "error", err)
	}
}
