package matchmaking

import (
	"github.com/gin-gonic/gin"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

// Registrar ties the matchmaking service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
	mod    *moderation.Service
}

// NewRegistrar creates a new Registrar for the matchmaking service
func NewRegistrar(appCtx *app.AppContext, mod *moderation.Service) *Registrar {
	return &Registrar{appCtx: appCtx, mod: mod}
}

// Register attaches the matchmaking routes to the engine
func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx, r.mod)

	api := e.Group("/api")
	api.POST("/pool/join", svc.handleJoin)
	api.POST("/pool/leave", svc.handleLeave)
	api.POST("/match", svc.handleMatch)
	api.GET("/chats/:user_id", svc.handleActiveChat)
	api.POST("/chats/:chat_id/end", svc.handleEndChat)
	api.POST("/ratings", svc.handleRate)
}
