package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Assertion string `json:"assertion"`
}

func sessionHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	c.JSON(http.StatusOK, gin.H{
		"session": ws.Session.Current(),
		"status":  ws.Session.Status(),
	})
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	// An empty body is allowed; the provider picks the identity.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid payload")
			return
		}
	}
	ws := currentWorkspace(c)
	sess, err := ws.Session.Login(c.Request.Context(), req.Assertion)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "status": ws.Session.Status()})
}

func logoutHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	if err := ws.Session.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func notificationsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": currentWorkspace(c).Toasts.Drain()})
}
