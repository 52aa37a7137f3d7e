package http

import (
	"net/http"
	"strings"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accounts *usecase.Accounts
}

func NewAccountHandler(accounts *usecase.Accounts) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type registerReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// POST /v1/auth/register
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role := domain.RoleCustomer
	if req.Role != "" {
		role = domain.Role(strings.ToUpper(req.Role))
	}
	u, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	logging.From(c).Info("user registered", "user_id", u.ID, "role", u.Role)
	c.JSON(http.StatusCreated, toUserResp(u))
}

// POST /v1/auth/token (form or JSON)
// Accepts: email, password
func (h *AccountHandler) IssueToken(c *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}

	tok, u, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(tok.ExpiresIn.Seconds()),
		"user":         toUserResp(u),
	})
}

// GET /v1/profile
func (h *AccountHandler) Profile(c *gin.Context) {
	u, err := h.accounts.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResp(u))
}

// PATCH /v1/profile
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), req.Name, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResp(u))
}

// GET /v1/admin/users
func (h *AccountHandler) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]userResp, 0, len(users))
	for i := range users {
		out = append(out, toUserResp(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// DELETE /v1/admin/users/:id
func (h *AccountHandler) DeleteUser(c *gin.Context) {
	if err := h.accounts.DeleteUser(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	logging.From(c).Info("user deleted", "deleted_id", c.Param("id"))
	c.Status(http.StatusNoContent)
}
