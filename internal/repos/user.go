package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type UserRepo interface {
  Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
  GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
  GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
  EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
  AddTokenBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) error
  DeductTokenBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) (bool, error)
}

type userRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
  return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  if len(users) == 0 {
    return []*types.User{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
    return nil, err
  }
  return users, nil
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  var user types.User
  if err := transaction.WithContext(ctx).
    Where("id = ?", userID).
    First(&user).Error; err != nil {
    return nil, err
  }
  return &user, nil
}

func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  var user types.User
  if err := transaction.WithContext(ctx).
    Where("email = ?", email).
    First(&user).Error; err != nil {
    return nil, err
  }
  return &user, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("email = ?", email).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (ur *userRepo) AddTokenBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) error {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  return transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("id = ?", userID).
    UpdateColumn("token_balance", gorm.Expr("token_balance + ?", amount)).Error
}

// DeductTokenBalance is the guarded decrement behind the credit ledger: the
// WHERE clause re-checks the balance so a concurrent deduction can never
// drive it negative. Returns false when the balance was insufficient.
func (ur *userRepo) DeductTokenBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = ur.db
  }
  res := transaction.WithContext(ctx).
    Model(&types.User{}).
    Where("id = ? AND token_balance >= ?", userID, amount).
    UpdateColumn("token_balance", gorm.Expr("token_balance - ?", amount))
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}
