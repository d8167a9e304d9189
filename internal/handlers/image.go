package handlers

import (
  "errors"
  "net/http"
  "strconv"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/services"
)

type ImageHandler struct {
  imageService services.ImageService
}

func NewImageHandler(imageService services.ImageService) *ImageHandler {
  return &ImageHandler{imageService: imageService}
}

func (ih *ImageHandler) Generate(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  var req struct {
    Prompt string `json:"prompt"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
    RespondError(c, http.StatusBadRequest, "prompt is required")
    return
  }
  gen, err := ih.imageService.Generate(c.Request.Context(), rd.UserID, req.Prompt)
  if err != nil {
    if errors.Is(err, services.ErrInsufficientTokens) {
      RespondPaymentRequired(c)
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to generate image")
    return
  }
  RespondOK(c, gen)
}

func (ih *ImageHandler) History(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  gens, err := ih.imageService.ListHistory(c.Request.Context(), rd.UserID, limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "failed to list generations")
    return
  }
  RespondOK(c, gens)
}
