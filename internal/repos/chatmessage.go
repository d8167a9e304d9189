package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/types"
)

type ChatMessageRepo interface {
  Create(ctx context.Context, tx *gorm.DB, messages []*types.ChatMessage) ([]*types.ChatMessage, error)
  ListByRoom(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error)
  ListRecentByRoom(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error)
  CountDuplicatesSince(ctx context.Context, tx *gorm.DB, roomID, userID uuid.UUID, content string, since time.Time) (int64, error)
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type chatMessageRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
  return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.ChatMessage) ([]*types.ChatMessage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(messages) == 0 {
    return []*types.ChatMessage{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
    return nil, err
  }
  return messages, nil
}

func (r *chatMessageRepo) ListByRoom(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 500 {
    limit = 100
  }
  var out []*types.ChatMessage
  if err := transaction.WithContext(ctx).
    Where("chat_room_id = ?", roomID).
    Order("created_at ASC").
    Limit(limit).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

// ListRecentByRoom returns the newest messages first; callers reverse when
// they need chronological order for an LLM context window.
func (r *chatMessageRepo) ListRecentByRoom(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 || limit > 100 {
    limit = 20
  }
  var out []*types.ChatMessage
  if err := transaction.WithContext(ctx).
    Where("chat_room_id = ?", roomID).
    Order("created_at DESC").
    Limit(limit).
    Find(&out).Error; err != nil {
    return nil, err
  }
  return out, nil
}

// CountDuplicatesSince backs the double-submit guard: an identical
// (room, user, content) row created after `since` counts as a duplicate.
func (r *chatMessageRepo) CountDuplicatesSince(ctx context.Context, tx *gorm.DB, roomID, userID uuid.UUID, content string, since time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.ChatMessage{}).
    Where("chat_room_id = ? AND user_id = ? AND content = ? AND is_ai_message = ? AND created_at > ?", roomID, userID, content, false, since).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (r *chatMessageRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.ChatMessage{}).Error
}
