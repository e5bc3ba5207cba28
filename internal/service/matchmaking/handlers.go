package matchmaking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/pairly/pairly-backend/internal/errors"
)

type joinRequest struct {
	UserID           uint64  `json:"user_id" binding:"required"`
	Gender           string  `json:"gender" binding:"required,oneof=male female"`
	GenderPreference *string `json:"gender_preference" binding:"omitempty,oneof=male female any"`
}

type leaveRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

type matchRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

type rateRequest struct {
	RaterID uint64 `json:"rater_id" binding:"required"`
	RatedID uint64 `json:"rated_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
}

type matchResponse struct {
	Status    string  `json:"status"`
	ChatID    *uint64 `json:"chat_id,omitempty"`
	PartnerID *uint64 `json:"partner_id,omitempty"`
}

func toMatchResponse(res *MatchResult) matchResponse {
	resp := matchResponse{Status: string(res.Outcome)}
	if res.Outcome == OutcomeMatched {
		resp.ChatID = &res.ChatID
		resp.PartnerID = &res.PartnerID
	}
	return resp
}

// handleJoin implements POST /api/pool/join.
func (s *Service) handleJoin(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument(err.Error()))
		return
	}

	res, err := s.JoinPool(c.Request.Context(), JoinParams{
		UserID:           req.UserID,
		Gender:           req.Gender,
		GenderPreference: req.GenderPreference,
	})
	if err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, toMatchResponse(res))
}

// handleLeave implements POST /api/pool/leave. Always succeeds for a valid
// body: leaving twice or after being matched is a no-op.
func (s *Service) handleLeave(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument(err.Error()))
		return
	}

	if err := s.LeavePool(c.Request.Context(), req.UserID); err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// handleMatch implements POST /api/match for users already in the pool.
func (s *Service) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument(err.Error()))
		return
	}

	res, err := s.FindAndMatch(c.Request.Context(), req.UserID)
	if err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, toMatchResponse(res))
}

// handleActiveChat implements GET /api/chats/:user_id.
func (s *Service) handleActiveChat(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument("user_id must be a valid uint64"))
		return
	}

	chat, err := s.ActiveChat(c.Request.Context(), userID)
	if err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	if chat == nil {
		svcErr.AbortWith(c, svcErr.NotFound("no active chat"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chat_id":    chat.ChatID,
		"user_a":     chat.UserA,
		"user_b":     chat.UserB,
		"started_at": chat.StartedAt,
	})
}

// handleEndChat implements POST /api/chats/:chat_id/end.
func (s *Service) handleEndChat(c *gin.Context) {
	chatID, err := strconv.ParseUint(c.Param("chat_id"), 10, 64)
	if err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument("chat_id must be a valid uint64"))
		return
	}

	if err := s.EndChat(c.Request.Context(), chatID); err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// handleRate implements POST /api/ratings.
func (s *Service) handleRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		svcErr.AbortWith(c, svcErr.InvalidArgument(err.Error()))
		return
	}

	if err := s.Rate(c.Request.Context(), req.RaterID, req.RatedID, req.Rating); err != nil {
		svcErr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rated"})
}
