package handlers

import (
  "errors"
  "net/http"
  "strconv"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/services"
)

type ChatHandler struct {
  chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
  return &ChatHandler{chatService: chatService}
}

// CreateRoom is find-or-create: posting the same ai_model_id twice
// returns the same room.
func (ch *ChatHandler) CreateRoom(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  var req struct {
    AIModelID string `json:"ai_model_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  aiModelID, err := uuid.Parse(req.AIModelID)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid ai_model_id")
    return
  }
  room, err := ch.chatService.FindOrCreateRoom(c.Request.Context(), rd.UserID, aiModelID)
  if err != nil {
    if errors.Is(err, services.ErrModelNotFound) {
      RespondError(c, http.StatusNotFound, "ai model not found")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to create chat room")
    return
  }
  RespondOK(c, room)
}

func (ch *ChatHandler) ListRooms(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  rooms, err := ch.chatService.ListRooms(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "failed to list chat rooms")
    return
  }
  RespondOK(c, rooms)
}

func (ch *ChatHandler) GetRoom(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  roomID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid room id")
    return
  }
  room, err := ch.chatService.GetRoomForMember(c.Request.Context(), rd.UserID, roomID)
  if err != nil {
    respondRoomError(c, err)
    return
  }
  RespondOK(c, room)
}

func (ch *ChatHandler) ListMessages(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  roomID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid room id")
    return
  }
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  messages, err := ch.chatService.ListMessages(c.Request.Context(), rd.UserID, roomID, limit)
  if err != nil {
    respondRoomError(c, err)
    return
  }
  RespondOK(c, messages)
}

// SendMessage returns both sides of the exchange: the persisted user
// message and the companion reply.
func (ch *ChatHandler) SendMessage(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  roomID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid room id")
    return
  }
  var req struct {
    Content string `json:"content"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
    RespondError(c, http.StatusBadRequest, "content is required")
    return
  }
  result, err := ch.chatService.SendMessage(c.Request.Context(), rd.UserID, roomID, req.Content)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrInsufficientTokens):
      RespondPaymentRequired(c)
    case errors.Is(err, services.ErrDuplicateMessage):
      RespondError(c, http.StatusConflict, "duplicate message")
    case errors.Is(err, services.ErrRoomNotFound), errors.Is(err, services.ErrNotRoomMember):
      respondRoomError(c, err)
    default:
      RespondError(c, http.StatusInternalServerError, "failed to send message")
    }
    return
  }
  RespondOK(c, gin.H{
    "userMessage": result.UserMessage,
    "aiMessage":   result.AIMessage,
  })
}

// Membership failures read as not-found so room ids do not leak.
func respondRoomError(c *gin.Context, err error) {
  if errors.Is(err, services.ErrRoomNotFound) || errors.Is(err, services.ErrNotRoomMember) {
    RespondError(c, http.StatusNotFound, "chat room not found")
    return
  }
  RespondError(c, http.StatusInternalServerError, "failed to load chat room")
}
