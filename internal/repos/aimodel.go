package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type AIModelRepo interface {
  Create(ctx context.Context, tx *gorm.DB, models []*types.AIModel) ([]*types.AIModel, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AIModel, error)
  ListPublic(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.AIModel, error)
  ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.AIModel, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
  IncrementFollowers(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error
  IncrementMessageCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type aiModelRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAIModelRepo(db *gorm.DB, baseLog *logger.Logger) AIModelRepo {
  return &aiModelRepo{db: db, log: baseLog.With("repo", "AIModelRepo")}
}

func (r *aiModelRepo) Create(ctx context.Context, tx *gorm.DB, models []*types.AIModel) ([]*types.AIModel, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(models) == 0 {
    return []*types.AIModel{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&models).Error; err != nil {
    return nil, err
  }
  return models, nil
}

func (r *aiModelRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AIModel, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var model types.AIModel
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&model).Error; err != nil {
    return nil, err
  }
  return &model, nil
}

func (r *aiModelRepo) ListPublic(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.AIModel, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 100 {
    limit = 50
  }
  var out []*types.AIModel
  if err := transaction.WithContext(ctx).
    Where("is_private = ? AND status = ?", false, types.AIModelStatusCompleted).
    Order("followers_count DESC, created_at DESC").
    Limit(limit).
    Offset(offset).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *aiModelRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.AIModel, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.AIModel
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *aiModelRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(updates) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.AIModel{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *aiModelRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.AIModel{}).Error
}

func (r *aiModelRepo) IncrementFollowers(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Model(&types.AIModel{}).
    Where("id = ?", id).
    UpdateColumn("followers_count", gorm.Expr("followers_count + ?", delta)).Error
}

func (r *aiModelRepo) IncrementMessageCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Model(&types.AIModel{}).
    Where("id = ?", id).
    UpdateColumn("message_count", gorm.Expr("message_count + 1")).Error
}
