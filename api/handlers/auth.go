package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/genomerx/api/middleware"
	"github.com/OldStager01/genomerx/internal/auth"
	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/pkg/database/queries"
	"github.com/OldStager01/genomerx/pkg/models"
)

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type AuthHandler struct {
	users        UserLookup
	authService  *auth.Service
	cookieSecure bool
}

func NewAuthHandler(users UserLookup, authService *auth.Service, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		authService:  authService,
		cookieSecure: cookieSecure,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

// Login godoc
// @Summary  Exchange operator credentials for a JWT
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body  body  LoginRequest  true  "Credentials"
// @Success  200  {object}  LoginResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, queries.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		logger.FromContext(ctx).WithError(err).Error("user lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to generate token"})
		return
	}

	maxAge := int(h.authService.Duration().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookie, token, maxAge, "/", "", h.cookieSecure, true)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: maxAge,
		Username:  user.Username,
	})
}

// Logout clears the auth cookie. Bearer tokens stay valid until expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", h.cookieSecure, true)
	c.Status(http.StatusNoContent)
}
