package handlers

import (
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/mirelia/companion-backend/internal/services"
  "github.com/mirelia/companion-backend/internal/types"
)

type stubClaimService struct {
  claim    *types.TokenClaim
  claimErr error
  gotCode  string
}

func (s *stubClaimService) GetByCode(ctx context.Context, code string) (*types.TokenClaim, error) {
  s.gotCode = code
  return s.claim, s.claimErr
}

func (s *stubClaimService) Claim(ctx context.Context, code string, userID uuid.UUID) (*types.TokenClaim, error) {
  s.gotCode = code
  return s.claim, s.claimErr
}

func newClaimRouter(svc services.ClaimService) *gin.Engine {
  gin.SetMode(gin.TestMode)
  router := gin.New()
  handler := NewClaimHandler(svc)
  authed := router.Group("/api")
  authed.Use(fakeAuth(uuid.New()))
  authed.GET("/claim", handler.Get)
  authed.POST("/claim", handler.Claim)
  authed.POST("/claims/:code", handler.Claim)
  return router
}

func TestClaimWithBodyCode(t *testing.T) {
  svc := &stubClaimService{claim: &types.TokenClaim{Code: "WELCOME50", Amount: 50}}
  router := newClaimRouter(svc)

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/claim", strings.NewReader(`{"code":"WELCOME50"}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusOK, w.Code)
  assert.Equal(t, "WELCOME50", svc.gotCode)
  var body map[string]any
  require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
  assert.Equal(t, true, body["success"])
}

func TestClaimWithPathCode(t *testing.T) {
  svc := &stubClaimService{claim: &types.TokenClaim{Code: "WELCOME50", Amount: 50}}
  router := newClaimRouter(svc)

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/claims/WELCOME50", nil)
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusOK, w.Code)
  assert.Equal(t, "WELCOME50", svc.gotCode)
}

func TestClaimInvalidCode(t *testing.T) {
  svc := &stubClaimService{claimErr: services.ErrClaimInvalid}
  router := newClaimRouter(svc)

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/claim", strings.NewReader(`{"code":"NOPE"}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusBadRequest, w.Code)
}
