package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/pairly/pairly-backend/internal/errors"
)

const defaultChatPageSize = 20

type banRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Hours  int    `json:"hours" binding:"required,min=1"`
	Reason string `json:"reason" binding:"required"`
}

// handleStats implements GET /api/admin/stats.
func (s *Service) handleStats(c *gin.Context) {
	stats, err := s.Stats(c.Request.Context())
	if err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleChats implements GET /api/admin/chats with cursor pagination.
func (s *Service) handleChats(c *gin.Context) {
	var pageToken *string
	if token := c.Query("page_token"); token != "" {
		pageToken = &token
	}

	limit := defaultChatPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			svcErr.AbortWith(c, svcErr.InvalidArgument("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	chats, nextToken, err := s.Chats(c.Request.Context(), pageToken, limit)
	if err != nil {
		svcErr.AbortWith(c, err)
		return
	}

	resp := gin.H{"chats": chats}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

// handleBan implements POST /api/admin/bans.
func (s *Service) handleBan(c *gin.Context) {
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument(err.Error()))
		return
	}

	if err := s.Ban(c.Request.Context(), req.UserID, req.Hours, req.Reason); err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "banned"})
}

// handleUnban implements DELETE /api/admin/bans/:user_id.
func (s *Service) handleUnban(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument("user_id must be a valid uint64"))
		return
	}

	if err := s.Unban(c.Request.Context(), userID); err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unbanned"})
}
