package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type GenerationRepo interface {
  Create(ctx context.Context, tx *gorm.DB, generations []*types.Generation) ([]*types.Generation, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Generation, error)
  ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Generation, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type generationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
  return &generationRepo{db: db, log: baseLog.With("repo", "GenerationRepo")}
}

func (r *generationRepo) Create(ctx context.Context, tx *gorm.DB, generations []*types.Generation) ([]*types.Generation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(generations) == 0 {
    return []*types.Generation{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&generations).Error; err != nil {
    return nil, err
  }
  return generations, nil
}

func (r *generationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Generation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var gen types.Generation
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&gen).Error; err != nil {
    return nil, err
  }
  return &gen, nil
}

func (r *generationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Generation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 200 {
    limit = 50
  }
  var out []*types.Generation
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Limit(limit).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

func (r *generationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(updates) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Generation{}).
    Where("id = ?", id).
    Updates(updates).Error
}
