package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"broadoak/internal/model"
)

// CreateUserRequest 新增用户请求
type CreateUserRequest struct {
	Name string `json:"name"`
}

// ListUsers 用户目录
// GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.directory.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if users == nil {
		users = []model.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// CreateUser 新增用户
// POST /api/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	user, err := h.directory.CreateUser(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListShifts 按日期范围查询班次
// GET /api/shifts?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListShifts(c *gin.Context) {
	from, err := model.ParseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := model.ParseDate(c.DefaultQuery("to", c.Query("from")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}

	shifts, err := h.directory.ListShiftsInRange(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if shifts == nil {
		shifts = []model.Shift{}
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts, "total": len(shifts)})
}
