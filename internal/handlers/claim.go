package handlers

import (
  "errors"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/services"
)

type ClaimHandler struct {
  claimService services.ClaimService
}

func NewClaimHandler(claimService services.ClaimService) *ClaimHandler {
  return &ClaimHandler{claimService: claimService}
}

// claimCode accepts the code as a path param, a query param, or a JSON
// body field, so both route shapes serve the same handler.
func claimCode(c *gin.Context) string {
  if code := strings.TrimSpace(c.Param("code")); code != "" {
    return code
  }
  if code := strings.TrimSpace(c.Query("code")); code != "" {
    return code
  }
  var body struct {
    Code string `json:"code"`
  }
  if err := c.ShouldBindJSON(&body); err == nil {
    return strings.TrimSpace(body.Code)
  }
  return ""
}

// Get previews a code without redeeming it.
func (clh *ClaimHandler) Get(c *gin.Context) {
  claim, err := clh.claimService.GetByCode(c.Request.Context(), claimCode(c))
  if err != nil {
    if errors.Is(err, services.ErrClaimInvalid) {
      RespondError(c, http.StatusBadRequest, "Invalid or already used code")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to load claim")
    return
  }
  RespondOK(c, claim)
}

func (clh *ClaimHandler) Claim(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  _, err := clh.claimService.Claim(c.Request.Context(), claimCode(c), rd.UserID)
  if err != nil {
    if errors.Is(err, services.ErrClaimInvalid) {
      RespondError(c, http.StatusBadRequest, "Invalid or already used code")
      return
    }
    RespondError(c, http.StatusInternalServerError, "failed to redeem claim")
    return
  }
  RespondOK(c, gin.H{"success": true})
}
