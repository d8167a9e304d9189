package server

import (
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/stretchr/testify/assert"
)

func routeSet(router *gin.Engine) map[string]bool {
  set := make(map[string]bool)
  for _, r := range router.Routes() {
    set[r.Method+" "+r.Path] = true
  }
  return set
}

func TestRouterRegistersAPIRoutes(t *testing.T) {
  gin.SetMode(gin.TestMode)
  router := NewRouter(RouterConfig{})
  routes := routeSet(router)

  expected := []string{
    "POST /api/register",
    "POST /api/login",
    "POST /api/refresh",
    "POST /api/logout",
    "GET /api/user",
    "GET /api/ai-models",
    "GET /api/ai-models/mine",
    "POST /api/ai-models/queue",
    "GET /api/ai-models/queue",
    "GET /api/ai-models/:id",
    "DELETE /api/ai-models/:id",
    "POST /api/ai-models/:id/follow",
    "DELETE /api/ai-models/:id/follow",
    "POST /api/chat/rooms",
    "GET /api/chat/rooms",
    "GET /api/chat/rooms/:id",
    "GET /api/chat/rooms/:id/messages",
    "POST /api/chat/rooms/:id/messages",
    "POST /api/chat/:id/messages",
    "GET /api/chat/:id/sse",
    "GET /api/chat/:id/subscribe",
    "GET /api/chat/rooms/subscribe",
    "GET /api/sse/stream",
    "GET /api/claim",
    "POST /api/claim",
    "GET /api/claims/:code",
    "POST /api/claims/:code",
    "POST /api/generate/image",
    "POST /api/images",
    "GET /api/images",
    "GET /healthcheck",
  }
  for _, route := range expected {
    assert.True(t, routes[route], "missing route %s", route)
  }
}
