package httpserver

import (
	"net/http"

	"farmsmart/internal/domain"
	"farmsmart/internal/service/store"
	"farmsmart/internal/workspace"
	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ItemID string `json:"itemId"`
}

type updateCartItemRequest struct {
	Delta int `json:"delta"`
}

func cartView(ws *workspace.Workspace) gin.H {
	return gin.H{
		"lines": ws.Cart.Lines(),
		"total": ws.Cart.Total(),
		"count": ws.Cart.Count(),
	}
}

func cartHandler(c *gin.Context) {
	c.JSON(http.StatusOK, cartView(currentWorkspace(c)))
}

func addCartItemHandler(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == "" {
		badRequest(c, "itemId is required")
		return
	}
	item, err := store.Lookup(req.ItemID)
	if err != nil {
		writeError(c, err)
		return
	}
	ws := currentWorkspace(c)
	if err := ws.Cart.Add(domain.LineFromStoreItem(item)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(ws))
}

func updateCartItemHandler(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	ws := currentWorkspace(c)
	if err := ws.Cart.UpdateQuantity(c.Param("itemId"), req.Delta); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(ws))
}

func removeCartItemHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	ws.Cart.Remove(c.Param("itemId"))
	c.JSON(http.StatusOK, cartView(ws))
}

func clearCartHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	ws.Cart.Clear()
	c.JSON(http.StatusOK, cartView(ws))
}
