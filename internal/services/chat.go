package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

var (
	ErrRoomNotFound     = errors.New("chat room not found")
	ErrNotRoomMember    = errors.New("not a member of this chat room")
	ErrModelNotFound    = errors.New("ai model not found")
	ErrDuplicateMessage = errors.New("duplicate message")
)

// duplicateWindow bounds the double-submit guard: an identical
// (room, user, content) triple inside this window is rejected with 409.
const duplicateWindow = 5 * time.Second

type SendMessageResult struct {
	UserMessage *types.ChatMessage `json:"userMessage"`
	AIMessage   *types.ChatMessage `json:"aiMessage"`
}

type ChatService interface {
	FindOrCreateRoom(ctx context.Context, userID, aiModelID uuid.UUID) (*types.ChatRoom, error)
	ListRooms(ctx context.Context, userID uuid.UUID) ([]*types.ChatRoom, error)
	GetRoomForMember(ctx context.Context, userID, roomID uuid.UUID) (*types.ChatRoom, error)
	ListMessages(ctx context.Context, userID, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	SendMessage(ctx context.Context, userID, roomID uuid.UUID, content string) (*SendMessageResult, error)
}

type chatService struct {
	db             *gorm.DB
	log            *logger.Logger
	roomRepo       repos.ChatRoomRepo
	messageRepo    repos.ChatMessageRepo
	modelRepo      repos.AIModelRepo
	generationRepo repos.GenerationRepo
	ledger         LedgerService
	ai             AIClient
	notifier       ChatNotifier
	historyWindow  int
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	roomRepo repos.ChatRoomRepo,
	messageRepo repos.ChatMessageRepo,
	modelRepo repos.AIModelRepo,
	generationRepo repos.GenerationRepo,
	ledger LedgerService,
	ai AIClient,
	notifier ChatNotifier,
) ChatService {
	return &chatService{
		db:             db,
		log:            log.With("service", "ChatService"),
		roomRepo:       roomRepo,
		messageRepo:    messageRepo,
		modelRepo:      modelRepo,
		generationRepo: generationRepo,
		ledger:         ledger,
		ai:             ai,
		notifier:       notifier,
		historyWindow:  20,
	}
}

// FindOrCreateRoom relies on the (created_by_id, ai_model_id) unique index:
// the loser of a concurrent first-time create gets a duplicate-key error and
// re-reads the winner's row.
func (cs *chatService) FindOrCreateRoom(ctx context.Context, userID, aiModelID uuid.UUID) (*types.ChatRoom, error) {
	model, err := cs.modelRepo.GetByID(ctx, nil, aiModelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("Failed to load ai model: %w", err)
	}
	if model.IsPrivate && model.UserID != userID {
		return nil, ErrModelNotFound
	}

	room, err := cs.roomRepo.GetByMemberAndModel(ctx, nil, userID, aiModelID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("Failed to look up chat room: %w", err)
	}

	created, cErr := cs.roomRepo.Create(ctx, nil, []*types.ChatRoom{{
		ID:          uuid.New(),
		AIModelID:   aiModelID,
		CreatedByID: userID,
	}})
	if cErr != nil {
		if errors.Is(cErr, gorm.ErrDuplicatedKey) {
			return cs.roomRepo.GetByMemberAndModel(ctx, nil, userID, aiModelID)
		}
		return nil, fmt.Errorf("Failed to create chat room: %w", cErr)
	}
	return created[0], nil
}

func (cs *chatService) ListRooms(ctx context.Context, userID uuid.UUID) ([]*types.ChatRoom, error) {
	return cs.roomRepo.ListByMember(ctx, nil, userID)
}

func (cs *chatService) GetRoomForMember(ctx context.Context, userID, roomID uuid.UUID) (*types.ChatRoom, error) {
	room, err := cs.roomRepo.GetByID(ctx, nil, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("Failed to load chat room: %w", err)
	}
	if room.CreatedByID != userID {
		return nil, ErrNotRoomMember
	}
	return room, nil
}

func (cs *chatService) ListMessages(ctx context.Context, userID, roomID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	if _, err := cs.GetRoomForMember(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return cs.messageRepo.ListByRoom(ctx, nil, roomID, limit)
}

// SendMessage is the token-metered chat pipeline: duplicate guard, ledger
// deduction, durable write, then publish. Persistence happens-before the
// notifier publish; delivery to each subscriber is fire-and-forget.
func (cs *chatService) SendMessage(ctx context.Context, userID, roomID uuid.UUID, content string) (*SendMessageResult, error) {
	room, err := cs.GetRoomForMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if room.AIModel == nil {
		return nil, fmt.Errorf("chat room %s has no persona attached", roomID)
	}

	dupCount, err := cs.messageRepo.CountDuplicatesSince(ctx, nil, roomID, userID, content, time.Now().Add(-duplicateWindow))
	if err != nil {
		return nil, fmt.Errorf("Failed to run duplicate check: %w", err)
	}
	if dupCount > 0 {
		return nil, ErrDuplicateMessage
	}

	gen, err := cs.ledger.Deduct(ctx, userID, types.GenerationTypeChat, content)
	if err != nil {
		return nil, err
	}

	authorID := userID
	userMsg := &types.ChatMessage{
		ID:         uuid.New(),
		ChatRoomID: roomID,
		UserID:     &authorID,
		Content:    content,
		Metadata:   datatypes.JSON([]byte(`{"type":"text"}`)),
	}
	if _, err := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{userMsg}); err != nil {
		return nil, fmt.Errorf("Failed to persist user message: %w", err)
	}
	cs.notifier.MessageCreated(roomID, userID, userMsg)

	history, err := cs.messageRepo.ListRecentByRoom(ctx, nil, roomID, cs.historyWindow)
	if err != nil {
		cs.log.Warn("Failed to load chat history, replying without it", "room_id", roomID, "error", err)
		history = nil
	}
	// newest-first from the repo; the LLM wants chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	reply, err := cs.ai.CompanionReply(ctx, room.AIModel, history, content)
	if err != nil {
		cs.markGeneration(ctx, gen.ID, types.GenerationStatusFailed, "")
		return nil, fmt.Errorf("Companion reply failed: %w", err)
	}

	aiMsg := &types.ChatMessage{
		ID:          uuid.New(),
		ChatRoomID:  roomID,
		IsAIMessage: true,
		Content:     reply,
		Metadata:    datatypes.JSON([]byte(`{"type":"text"}`)),
	}
	if _, err := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{aiMsg}); err != nil {
		cs.markGeneration(ctx, gen.ID, types.GenerationStatusFailed, "")
		return nil, fmt.Errorf("Failed to persist ai message: %w", err)
	}
	if err := cs.modelRepo.IncrementMessageCount(ctx, nil, room.AIModelID); err != nil {
		cs.log.Warn("Failed to bump persona message count", "model_id", room.AIModelID, "error", err)
	}
	cs.notifier.MessageCreated(roomID, userID, aiMsg)

	cs.markGeneration(ctx, gen.ID, types.GenerationStatusCompleted, truncate(reply, 500))

	return &SendMessageResult{UserMessage: userMsg, AIMessage: aiMsg}, nil
}

func (cs *chatService) markGeneration(ctx context.Context, genID uuid.UUID, status types.GenerationStatus, result string) {
	updates := map[string]interface{}{"status": status}
	if result != "" {
		updates["result"] = result
	}
	if err := cs.generationRepo.UpdateFields(ctx, nil, genID, updates); err != nil {
		cs.log.Warn("Failed to update generation record", "generation_id", genID, "error", err)
	}
}

// truncate cuts on a rune boundary so a multi-byte character is never
// split mid-sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
