package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

var (
	ErrModelNotOwned   = errors.New("ai model not owned by user")
	ErrAlreadyFollowed = errors.New("ai model already followed")
	ErrNotFollowed     = errors.New("ai model not followed")
)

type ModelService interface {
	ListPublic(ctx context.Context, limit, offset int) ([]*types.AIModel, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]*types.AIModel, error)
	GetForUser(ctx context.Context, userID, modelID uuid.UUID) (*types.AIModel, error)
	DeleteOwned(ctx context.Context, userID, modelID uuid.UUID) error
	Follow(ctx context.Context, userID, modelID uuid.UUID) error
	Unfollow(ctx context.Context, userID, modelID uuid.UUID) error
}

type modelService struct {
	db         *gorm.DB
	log        *logger.Logger
	modelRepo  repos.AIModelRepo
	followRepo repos.FollowRepo
}

func NewModelService(db *gorm.DB, log *logger.Logger, modelRepo repos.AIModelRepo, followRepo repos.FollowRepo) ModelService {
	return &modelService{
		db:         db,
		log:        log.With("service", "ModelService"),
		modelRepo:  modelRepo,
		followRepo: followRepo,
	}
}

func (s *modelService) ListPublic(ctx context.Context, limit, offset int) ([]*types.AIModel, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.modelRepo.ListPublic(ctx, nil, limit, offset)
}

func (s *modelService) ListOwned(ctx context.Context, userID uuid.UUID) ([]*types.AIModel, error) {
	return s.modelRepo.ListByUser(ctx, nil, userID)
}

// GetForUser hides private personas from everyone but their creator. A
// hidden persona reads as not found so its existence does not leak.
func (s *modelService) GetForUser(ctx context.Context, userID, modelID uuid.UUID) (*types.AIModel, error) {
	model, err := s.modelRepo.GetByID(ctx, nil, modelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("Failed to load ai model: %w", err)
	}
	if model.IsPrivate && model.UserID != userID {
		return nil, ErrModelNotFound
	}
	return model, nil
}

func (s *modelService) DeleteOwned(ctx context.Context, userID, modelID uuid.UUID) error {
	model, err := s.modelRepo.GetByID(ctx, nil, modelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrModelNotFound
		}
		return fmt.Errorf("Failed to load ai model: %w", err)
	}
	if model.UserID != userID {
		return ErrModelNotOwned
	}
	if err := s.modelRepo.Delete(ctx, nil, modelID); err != nil {
		return fmt.Errorf("Failed to delete ai model: %w", err)
	}
	s.log.Info("AI model deleted", "model_id", modelID, "user_id", userID)
	return nil
}

func (s *modelService) Follow(ctx context.Context, userID, modelID uuid.UUID) error {
	if _, err := s.GetForUser(ctx, userID, modelID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.followRepo.Exists(ctx, tx, userID, modelID)
		if err != nil {
			return fmt.Errorf("Failed to check follow: %w", err)
		}
		if exists {
			return ErrAlreadyFollowed
		}
		if _, err := s.followRepo.Create(ctx, tx, []*types.Follow{{
			ID:        uuid.New(),
			UserID:    userID,
			AIModelID: modelID,
		}}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyFollowed
			}
			return fmt.Errorf("Failed to create follow: %w", err)
		}
		return s.modelRepo.IncrementFollowers(ctx, tx, modelID, 1)
	})
}

func (s *modelService) Unfollow(ctx context.Context, userID, modelID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := s.followRepo.Delete(ctx, tx, userID, modelID)
		if err != nil {
			return fmt.Errorf("Failed to delete follow: %w", err)
		}
		if !removed {
			return ErrNotFollowed
		}
		return s.modelRepo.IncrementFollowers(ctx, tx, modelID, -1)
	})
}
