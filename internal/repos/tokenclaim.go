package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type TokenClaimRepo interface {
  Create(ctx context.Context, tx *gorm.DB, claims []*types.TokenClaim) ([]*types.TokenClaim, error)
  GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.TokenClaim, error)
  MarkClaimed(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (bool, error)
}

type tokenClaimRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTokenClaimRepo(db *gorm.DB, baseLog *logger.Logger) TokenClaimRepo {
  return &tokenClaimRepo{db: db, log: baseLog.With("repo", "TokenClaimRepo")}
}

func (r *tokenClaimRepo) Create(ctx context.Context, tx *gorm.DB, claims []*types.TokenClaim) ([]*types.TokenClaim, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(claims) == 0 {
    return []*types.TokenClaim{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&claims).Error; err != nil {
    return nil, err
  }
  return claims, nil
}

func (r *tokenClaimRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*types.TokenClaim, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var claim types.TokenClaim
  if err := transaction.WithContext(ctx).
    Where("code = ?", code).
    First(&claim).Error; err != nil {
    return nil, err
  }
  return &claim, nil
}

// MarkClaimed flips the claimed flag only when it is still unset; the guarded
// UPDATE is what makes a code single-use under concurrent claims.
func (r *tokenClaimRepo) MarkClaimed(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Model(&types.TokenClaim{}).
    Where("code = ? AND claimed = ?", code, false).
    Updates(map[string]interface{}{
      "claimed":       true,
      "claimed_by_id": userID,
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}
