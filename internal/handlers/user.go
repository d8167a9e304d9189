package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/mirelia/companion-backend/internal/repos"
  "github.com/mirelia/companion-backend/internal/requestdata"
)

type UserHandler struct {
  userRepo repos.UserRepo
}

func NewUserHandler(userRepo repos.UserRepo) *UserHandler {
  return &UserHandler{userRepo: userRepo}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized")
    return
  }
  user, err := uh.userRepo.GetByID(c.Request.Context(), nil, rd.UserID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "user not found")
    return
  }
  RespondOK(c, user)
}
