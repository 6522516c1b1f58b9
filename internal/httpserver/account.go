package httpserver

import (
	"net/http"

	"farmsmart/internal/domain"
	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role string `json:"role"`
}

func profileHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	p, err := ws.Profile.Profile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	onboarding, err := ws.Profile.NeedsOnboarding(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "needsOnboarding": onboarding})
}

func saveProfileHandler(c *gin.Context) {
	var p domain.UserProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := currentWorkspace(c).Profile.Save(c.Request.Context(), p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func roleHandler(c *gin.Context) {
	role, err := currentWorkspace(c).Profile.Role(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func assignRoleHandler(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if _, err := domain.ParseUserRole(req.Role); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := currentWorkspace(c).Profile.AssignRole(c.Request.Context(), c.Param("user"), req.Role); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ordersHandler(c *gin.Context) {
	orders, err := currentWorkspace(c).Orders.History(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders})
}
