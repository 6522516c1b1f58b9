package httpserver

import (
	"context"
	"net/http"

	"farmsmart/internal/domain"
	"farmsmart/internal/service/checkout"
	"farmsmart/internal/workspace"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type openCheckoutRequest struct {
	Source string `json:"source"`
	ItemID string `json:"itemId"`
}

func checkoutViewHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentWorkspace(c).Checkout.View())
}

// openCheckoutHandler opens the payment form for the cart or for a single
// marketplace product or crop listing.
func openCheckoutHandler(c *gin.Context) {
	var req openCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	ws := currentWorkspace(c)
	ctx := c.Request.Context()

	var err error
	switch checkout.Source(req.Source) {
	case checkout.SourceCart, "":
		err = ws.Checkout.OpenCart()
	case checkout.SourceProduct:
		var line domain.CartLine
		if line, err = productLine(ctx, ws, req.ItemID); err == nil {
			err = ws.Checkout.Open(checkout.SourceProduct, []domain.CartLine{line})
		}
	case checkout.SourceListing:
		var line domain.CartLine
		if line, err = listingLine(ctx, ws, req.ItemID); err == nil {
			err = ws.Checkout.Open(checkout.SourceListing, []domain.CartLine{line})
		}
	default:
		badRequest(c, "unknown source")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Checkout.View())
}

func productLine(ctx context.Context, ws *workspace.Workspace, id string) (domain.CartLine, error) {
	all, err := ws.Listings.Products(ctx, "")
	if err != nil {
		return domain.CartLine{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return p.Line(), nil
		}
	}
	return domain.CartLine{}, domain.ErrNotFound
}

func listingLine(ctx context.Context, ws *workspace.Workspace, id string) (domain.CartLine, error) {
	all, err := ws.Listings.Listings(ctx, "")
	if err != nil {
		return domain.CartLine{}, err
	}
	for _, l := range all {
		if l.ID == id {
			return l.Line(), nil
		}
	}
	return domain.CartLine{}, domain.ErrNotFound
}

func submitCheckoutHandler(c *gin.Context) {
	var details domain.PaymentDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	ws := currentWorkspace(c)
	conf, err := ws.Checkout.Submit(c.Request.Context(), details)
	if err != nil {
		logFor(c).Info("checkout not completed", zap.String("state", ws.Checkout.State().String()), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"confirmationNumber": conf.Number,
		"total":              conf.Total,
		"displayTotal":       conf.DisplayTotal(),
	})
}

func closeCheckoutHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	if err := ws.Checkout.Close(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Checkout.View())
}
