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

type AIModelHandler struct {
  modelService services.ModelService
  queueService services.ModelQueueService
}

func NewAIModelHandler(modelService services.ModelService, queueService services.ModelQueueService) *AIModelHandler {
  return &AIModelHandler{modelService: modelService, queueService: queueService}
}

func (mh *AIModelHandler) List(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
  models, err := mh.modelService.ListPublic(c.Request.Context(), limit, offset)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "failed to list ai models")
    return
  }
  RespondOK(c, models)
}

func (mh *AIModelHandler) ListMine(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  models, err := mh.modelService.ListOwned(c.Request.Context(), rd.UserID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "failed to list ai models")
    return
  }
  RespondOK(c, models)
}

func (mh *AIModelHandler) Get(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  modelID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid ai model id")
    return
  }
  model, err := mh.modelService.GetForUser(c.Request.Context(), rd.UserID, modelID)
  if err != nil {
    if errors.Is(err, services.ErrModelNotFound) {
      RespondError(c, http.StatusNotFound, "ai model not found")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to load ai model")
    return
  }
  RespondOK(c, model)
}

func (mh *AIModelHandler) Delete(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  modelID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid ai model id")
    return
  }
  if err := mh.modelService.DeleteOwned(c.Request.Context(), rd.UserID, modelID); err != nil {
    switch {
    case errors.Is(err, services.ErrModelNotFound):
      RespondError(c, http.StatusNotFound, "ai model not found")
    case errors.Is(err, services.ErrModelNotOwned):
      RespondError(c, http.StatusForbidden, "not your ai model")
    default:
      RespondError(c, http.StatusInternalServerError, "failed to delete ai model")
    }
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}

func (mh *AIModelHandler) Follow(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  modelID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid ai model id")
    return
  }
  if err := mh.modelService.Follow(c.Request.Context(), rd.UserID, modelID); err != nil {
    switch {
    case errors.Is(err, services.ErrModelNotFound):
      RespondError(c, http.StatusNotFound, "ai model not found")
    case errors.Is(err, services.ErrAlreadyFollowed):
      RespondError(c, http.StatusConflict, "already following")
    default:
      RespondError(c, http.StatusInternalServerError, "failed to follow ai model")
    }
    return
  }
  RespondOK(c, gin.H{"following": true})
}

func (mh *AIModelHandler) Unfollow(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  modelID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid ai model id")
    return
  }
  if err := mh.modelService.Unfollow(c.Request.Context(), rd.UserID, modelID); err != nil {
    if errors.Is(err, services.ErrNotFollowed) {
      RespondError(c, http.StatusConflict, "not following")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to unfollow ai model")
    return
  }
  RespondOK(c, gin.H{"following": false})
}

// Enqueue starts asynchronous custom persona generation. Clients poll
// Status with the returned jobId.
func (mh *AIModelHandler) Enqueue(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  var req struct {
    CustomPrompt string `json:"customPrompt"`
    IsPrivate    bool   `json:"isPrivate"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CustomPrompt) == "" {
    RespondError(c, http.StatusBadRequest, "customPrompt is required")
    return
  }
  result, err := mh.queueService.Enqueue(c.Request.Context(), rd.UserID, req.CustomPrompt, req.IsPrivate)
  if err != nil {
    if errors.Is(err, services.ErrInsufficientTokens) {
      RespondPaymentRequired(c)
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to enqueue generation")
    return
  }
  RespondOK(c, gin.H{
    "id":      result.ModelID,
    "jobId":   result.JobID,
    "message": "Model generation started",
  })
}

func (mh *AIModelHandler) Status(c *gin.Context) {
  jobID := c.Query("jobId")
  if jobID == "" {
    RespondError(c, http.StatusBadRequest, "jobId is required")
    return
  }
  status, err := mh.queueService.GetStatus(c.Request.Context(), jobID)
  if err != nil {
    if errors.Is(err, services.ErrJobNotFound) {
      RespondError(c, http.StatusNotFound, "job not found")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to load job status")
    return
  }
  RespondOK(c, status)
}
