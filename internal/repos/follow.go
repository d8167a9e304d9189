package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type FollowRepo interface {
  Create(ctx context.Context, tx *gorm.DB, follows []*types.Follow) ([]*types.Follow, error)
  Delete(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (bool, error)
  Exists(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (bool, error)
}

type followRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFollowRepo(db *gorm.DB, baseLog *logger.Logger) FollowRepo {
  return &followRepo{db: db, log: baseLog.With("repo", "FollowRepo")}
}

func (r *followRepo) Create(ctx context.Context, tx *gorm.DB, follows []*types.Follow) ([]*types.Follow, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(follows) == 0 {
    return []*types.Follow{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&follows).Error; err != nil {
    return nil, err
  }
  return follows, nil
}

func (r *followRepo) Delete(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Where("user_id = ? AND ai_model_id = ?", userID, aiModelID).
    Delete(&types.Follow{})
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (r *followRepo) Exists(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Follow{}).
    Where("user_id = ? AND ai_model_id = ?", userID, aiModelID).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}
