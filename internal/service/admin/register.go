package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/server"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

// Registrar ties the admin service into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
	mod    *moderation.Service
}

// NewRegistrar creates a new Registrar for the admin service
func NewRegistrar(appCtx *app.AppContext, mod *moderation.Service) *Registrar {
	return &Registrar{appCtx: appCtx, mod: mod}
}

// Register attaches the token-guarded admin routes to the engine
func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx, r.mod)

	grp := e.Group("/api/admin", server.AdminAuth(r.appCtx.Config.App.AdminToken))
	grp.GET("/stats", svc.handleStats)
	grp.GET("/chats", svc.handleChats)
	grp.POST("/bans", svc.handleBan)
	grp.DELETE("/bans/:user_id", svc.handleUnban)
}
