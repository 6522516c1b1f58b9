package httpserver

import (
	"errors"
	"net/http"
	"time"

	"farmsmart/internal/workspace"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps holds what the routes need.
type Deps struct {
	Workspaces    *workspace.Registry
	CORSOrigins   []string
	SecureCookies bool
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Workspaces == nil {
		return nil, errors.New("workspace registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger.Named("http")).Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api", workspaceMiddleware(deps.Workspaces, deps.SecureCookies, logger))

	api.GET("/session", sessionHandler)
	api.POST("/session/login", loginHandler)
	api.POST("/session/logout", logoutHandler)
	api.GET("/notifications", notificationsHandler)

	api.GET("/profile", profileHandler)
	api.PUT("/profile", saveProfileHandler)
	api.GET("/role", roleHandler)
	api.PUT("/users/:user/role", requireAuth, assignRoleHandler)

	api.POST("/soil-analysis", soilAnalysisHandler)
	api.POST("/advisory", advisoryHandler)

	api.GET("/store/items", storeItemsHandler)
	api.GET("/products", productsHandler)
	api.GET("/products/mine", requireAuth, myProductsHandler)
	api.POST("/products", requireAuth, addProductHandler)
	api.GET("/crop-listings", listingsHandler)
	api.GET("/crop-listings/mine", requireAuth, myListingsHandler)
	api.POST("/crop-listings", requireAuth, addListingHandler)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", cartHandler)
	cart.POST("/items", addCartItemHandler)
	cart.PATCH("/items/:itemId", updateCartItemHandler)
	cart.DELETE("/items/:itemId", removeCartItemHandler)
	cart.DELETE("", clearCartHandler)

	checkout := api.Group("/checkout", requireAuth)
	checkout.GET("", checkoutViewHandler)
	checkout.POST("/open", openCheckoutHandler)
	checkout.POST("/submit", submitCheckoutHandler)
	checkout.POST("/close", closeCheckoutHandler)

	api.GET("/orders", requireAuth, ordersHandler)

	return router, nil
}
