package handlers

import (
  "context"
  "encoding/json"
  "errors"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/services"
)

type stubQueueService struct {
  enqueueResult *services.EnqueueResult
  enqueueErr    error
  status        *services.JobStatus
  statusErr     error
}

func (s *stubQueueService) Enqueue(ctx context.Context, userID uuid.UUID, prompt string, isPrivate bool) (*services.EnqueueResult, error) {
  return s.enqueueResult, s.enqueueErr
}

func (s *stubQueueService) GetStatus(ctx context.Context, jobID string) (*services.JobStatus, error) {
  return s.status, s.statusErr
}

func (s *stubQueueService) MarkProcessing(ctx context.Context, jobID string) error { return nil }
func (s *stubQueueService) MarkCompleted(ctx context.Context, jobID string) error  { return nil }
func (s *stubQueueService) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
  return nil
}

func fakeAuth(userID uuid.UUID) gin.HandlerFunc {
  return func(c *gin.Context) {
    rd := &requestdata.RequestData{UserID: userID}
    c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
    c.Next()
  }
}

func newQueueRouter(queue services.ModelQueueService) *gin.Engine {
  gin.SetMode(gin.TestMode)
  router := gin.New()
  handler := NewAIModelHandler(nil, queue)
  authed := router.Group("/api")
  authed.Use(fakeAuth(uuid.New()))
  authed.POST("/ai-models/queue", handler.Enqueue)
  authed.GET("/ai-models/queue", handler.Status)
  return router
}

func TestEnqueueResponseContract(t *testing.T) {
  modelID := uuid.New()
  queue := &stubQueueService{
    enqueueResult: &services.EnqueueResult{ModelID: modelID, JobID: uuid.NewString()},
  }
  router := newQueueRouter(queue)

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/ai-models/queue", strings.NewReader(`{"customPrompt":"a shy librarian"}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusOK, w.Code)
  var body map[string]any
  require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
  assert.Equal(t, modelID.String(), body["id"])
  assert.NotEmpty(t, body["jobId"])
  assert.NotEmpty(t, body["message"])
}

func TestEnqueueInsufficientTokensShape(t *testing.T) {
  queue := &stubQueueService{enqueueErr: services.ErrInsufficientTokens}
  router := newQueueRouter(queue)

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/ai-models/queue", strings.NewReader(`{"customPrompt":"test"}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusPaymentRequired, w.Code)
  var body map[string]any
  require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
  assert.Equal(t, "Insufficient tokens", body["error"])
  assert.Equal(t, "PURCHASE_TOKENS", body["action"])
}

func TestEnqueueEmptyPrompt(t *testing.T) {
  router := newQueueRouter(&stubQueueService{})

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/ai-models/queue", strings.NewReader(`{"customPrompt":"  "}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusRequiresJobID(t *testing.T) {
  router := newQueueRouter(&stubQueueService{})

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodGet, "/api/ai-models/queue", nil)
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusUnknownJob(t *testing.T) {
  router := newQueueRouter(&stubQueueService{statusErr: services.ErrJobNotFound})

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodGet, "/api/ai-models/queue?jobId="+uuid.NewString(), nil)
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusReturnsJob(t *testing.T) {
  jobID := uuid.NewString()
  router := newQueueRouter(&stubQueueService{
    status: &services.JobStatus{JobID: jobID, Status: services.JobStateProcessing},
  })

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodGet, "/api/ai-models/queue?jobId="+jobID, nil)
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusOK, w.Code)
  var body map[string]any
  require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
  assert.Equal(t, jobID, body["jobId"])
  assert.Equal(t, "PROCESSING", body["status"])
}

func TestEnqueueUnexpectedError(t *testing.T) {
  router := newQueueRouter(&stubQueueService{enqueueErr: errors.New("redis down")})

  w := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodPost, "/api/ai-models/queue", strings.NewReader(`{"customPrompt":"a knight"}`))
  req.Header.Set("Content-Type", "application/json")
  router.ServeHTTP(w, req)

  assert.Equal(t, http.StatusInternalServerError, w.Code)
}
