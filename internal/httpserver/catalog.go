package httpserver

import (
	"net/http"

	"farmsmart/internal/domain"
	"farmsmart/internal/service/listing"
	"farmsmart/internal/service/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func storeItemsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": store.Items()})
}

// productsHandler degrades to an empty list when the backend fails, so the
// marketplace still renders.
func productsHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	all, err := ws.Listings.Products(c.Request.Context(), c.Query("location"))
	if err != nil {
		logFor(c).Warn("products unavailable", zap.Error(err))
		all = nil
	}
	results := listing.SearchProducts(all, c.Query("q"))
	if results == nil {
		results = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "degraded": err != nil})
}

func myProductsHandler(c *gin.Context) {
	mine, err := currentWorkspace(c).Listings.MyProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": mine})
}

func addProductHandler(c *gin.Context) {
	var form listing.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	id, err := currentWorkspace(c).Listings.SubmitProduct(c.Request.Context(), form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func listingsHandler(c *gin.Context) {
	ws := currentWorkspace(c)
	all, err := ws.Listings.Listings(c.Request.Context(), c.Query("location"))
	if err != nil {
		logFor(c).Warn("crop listings unavailable", zap.Error(err))
		all = nil
	}
	results := listing.SearchListings(all, c.Query("q"))
	if results == nil {
		results = []domain.CropListing{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "degraded": err != nil})
}

func myListingsHandler(c *gin.Context) {
	mine, err := currentWorkspace(c).Listings.MyListings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": mine})
}

func addListingHandler(c *gin.Context) {
	var form listing.ListingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	id, err := currentWorkspace(c).Listings.SubmitListing(c.Request.Context(), form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
