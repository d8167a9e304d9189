package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/mirelia/companion-backend/internal/sse"
	"github.com/mirelia/companion-backend/internal/types"
)

// =========================
// Chat notifier
// =========================

type ChatNotifier interface {
	MessageCreated(roomID uuid.UUID, memberID uuid.UUID, msg *types.ChatMessage)
	RoomActivity(memberID uuid.UUID, roomID uuid.UUID, msg *types.ChatMessage)
}

type chatNotifier struct {
	emit SSEEmitter
}

func NewChatNotifier(emit SSEEmitter) ChatNotifier {
	return &chatNotifier{emit: emit}
}

func (n *chatNotifier) MessageCreated(roomID uuid.UUID, memberID uuid.UUID, msg *types.ChatMessage) {
	if n == nil || n.emit == nil || roomID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.ChatChannel(roomID),
		Event:   sse.SSEEventChatMessageCreated,
		Data:    map[string]any{"room_id": roomID, "message": msg},
	})
	n.RoomActivity(memberID, roomID, msg)
}

func (n *chatNotifier) RoomActivity(memberID uuid.UUID, roomID uuid.UUID, msg *types.ChatMessage) {
	if n == nil || n.emit == nil || memberID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.UserChannel(memberID),
		Event:   sse.SSEEventChatRoomActivity,
		Data:    map[string]any{"room_id": roomID, "message": msg},
	})
}

// =========================
// Model notifier
// =========================

type ModelNotifier interface {
	ModelStatusChanged(userID uuid.UUID, model *types.AIModel, jobID string, status string)
}

type modelNotifier struct {
	emit SSEEmitter
}

func NewModelNotifier(emit SSEEmitter) ModelNotifier {
	return &modelNotifier{emit: emit}
}

func (n *modelNotifier) ModelStatusChanged(userID uuid.UUID, model *types.AIModel, jobID string, status string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: sse.UserChannel(userID),
		Event:   sse.SSEEventModelStatusChanged,
		Data: map[string]any{
			"job_id": jobID,
			"status": status,
			"model":  model,
		},
	})
}
