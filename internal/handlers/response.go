package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
)

func RespondError(c *gin.Context, status int, message string) {
  c.JSON(status, gin.H{"error": message})
}

// RespondPaymentRequired is the one error shape clients branch on: the
// action field tells the frontend to open the purchase flow.
func RespondPaymentRequired(c *gin.Context) {
  c.JSON(http.StatusPaymentRequired, gin.H{
    "error":  "Insufficient tokens",
    "action": "PURCHASE_TOKENS",
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}
