package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/services"
  "github.com/mirelia/companion-backend/internal/sse"
)

type SSEHandler struct {
  hub         *sse.SSEHub
  chatService services.ChatService
}

func NewSSEHandler(hub *sse.SSEHub, chatService services.ChatService) *SSEHandler {
  return &SSEHandler{hub: hub, chatService: chatService}
}

// StreamRoom streams events for a single chat room. Membership is checked
// before subscribing so a room id alone is not enough to listen in.
func (sh *SSEHandler) StreamRoom(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  roomID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid room id")
    return
  }
  if _, err := sh.chatService.GetRoomForMember(c.Request.Context(), rd.UserID, roomID); err != nil {
    respondRoomError(c, err)
    return
  }
  client := sh.hub.NewSSEClient(rd.UserID)
  sh.hub.AddChannel(client, sse.ChatChannel(roomID))
  defer sh.hub.CloseClient(client)
  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}

// StreamUser streams the per-user channel: room activity across all of the
// user's rooms plus persona generation status changes.
func (sh *SSEHandler) StreamUser(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  client := sh.hub.NewSSEClient(rd.UserID)
  sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))
  defer sh.hub.CloseClient(client)
  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}

// StreamAll combines the user channel with every room the user is in, for
// clients that want one connection instead of one per room.
func (sh *SSEHandler) StreamAll(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  rooms, err := sh.chatService.ListRooms(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "failed to list chat rooms")
    return
  }
  client := sh.hub.NewSSEClient(rd.UserID)
  sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))
  for _, room := range rooms {
    sh.hub.AddChannel(client, sse.ChatChannel(room.ID))
  }
  defer sh.hub.CloseClient(client)
  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}
