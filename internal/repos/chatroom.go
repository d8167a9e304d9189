package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type ChatRoomRepo interface {
  Create(ctx context.Context, tx *gorm.DB, rooms []*types.ChatRoom) ([]*types.ChatRoom, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatRoom, error)
  GetByMemberAndModel(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (*types.ChatRoom, error)
  ListByMember(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ChatRoom, error)
}

type chatRoomRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChatRoomRepo(db *gorm.DB, baseLog *logger.Logger) ChatRoomRepo {
  return &chatRoomRepo{db: db, log: baseLog.With("repo", "ChatRoomRepo")}
}

func (r *chatRoomRepo) Create(ctx context.Context, tx *gorm.DB, rooms []*types.ChatRoom) ([]*types.ChatRoom, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(rooms) == 0 {
    return []*types.ChatRoom{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&rooms).Error; err != nil {
    return nil, err
  }
  return rooms, nil
}

func (r *chatRoomRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ChatRoom, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var room types.ChatRoom
  if err := transaction.WithContext(ctx).
    Preload("AIModel").
    Where("id = ?", id).
    First(&room).Error; err != nil {
    return nil, err
  }
  return &room, nil
}

func (r *chatRoomRepo) GetByMemberAndModel(ctx context.Context, tx *gorm.DB, userID, aiModelID uuid.UUID) (*types.ChatRoom, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var room types.ChatRoom
  if err := transaction.WithContext(ctx).
    Preload("AIModel").
    Where("created_by_id = ? AND ai_model_id = ?", userID, aiModelID).
    First(&room).Error; err != nil {
    return nil, err
  }
  return &room, nil
}

func (r *chatRoomRepo) ListByMember(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ChatRoom, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ChatRoom
  if err := transaction.WithContext(ctx).
    Preload("AIModel").
    Where("created_by_id = ?", userID).
    Order("updated_at DESC").
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}
