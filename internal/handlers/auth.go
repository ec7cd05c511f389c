// internal/handlers/auth.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/myecomstore/backend/internal/services"
	"github.com/myecomstore/backend/internal/utils"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.auth.Register(&req)
	if err != nil {
		if verrs := utils.GetValidationErrors(err); len(verrs) > 0 {
			utils.ValidationErrorResponse(c, verrs)
			return
		}
		if errors.Is(err, services.ErrEmailTaken) {
			utils.ConflictResponse(c, "EMAIL_TAKEN", "Email is already registered")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.CreatedResponse(c, resp)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	resp, err := h.auth.Login(&req)
	if err != nil {
		if verrs := utils.GetValidationErrors(err); len(verrs) > 0 {
			utils.ValidationErrorResponse(c, verrs)
			return
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.UnauthorizedResponse(c, "Invalid email or password")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, resp)
}
