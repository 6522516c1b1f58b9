package httpserver

import (
	"net/http"

	"farmsmart/internal/workspace"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionCookie   = "farmsmart_sid"
	workspaceCtxKey = "workspace"
	loggerCtxKey    = "logger"
	cookieMaxAge    = 30 * 24 * 60 * 60
)

// workspaceMiddleware resolves the browser's workspace from its cookie and
// (re)issues the cookie when a new workspace id was assigned.
func workspaceMiddleware(reg *workspace.Registry, secure bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		ws := reg.Resolve(c.Request.Context(), id)
		if ws.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, ws.ID, cookieMaxAge, "/", "", secure, true)
		}
		c.Set(workspaceCtxKey, ws)
		c.Set(loggerCtxKey, logger.With(zap.String("sid", ws.ID)))
		c.Next()
	}
}

func currentWorkspace(c *gin.Context) *workspace.Workspace {
	return c.MustGet(workspaceCtxKey).(*workspace.Workspace)
}

func logFor(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(loggerCtxKey); ok {
		return l.(*zap.Logger)
	}
	return zap.NewNop()
}

func requireAuth(c *gin.Context) {
	if !currentWorkspace(c).Session.Current().Authenticated {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}
