package httpserver

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildRouter wires routes for the storefront API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = deps.AllowedOrigins
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	withSession := sessionMiddleware(deps.Sessions)

	api := router.Group("/api", withSession)
	{
		api.GET("/products", listProducts(deps))

		api.GET("/cart", getCart(deps))
		api.POST("/cart/items", addCartItem(deps))
		api.PATCH("/cart/items/:lineId", updateCartItem())
		api.DELETE("/cart/items/:lineId", removeCartItem())
		api.POST("/cart/clear", clearCart())
		api.POST("/cart/toggle", toggleCart())
		api.POST("/cart/currency", updateCartCurrency())
		api.POST("/cart/refresh", refreshCartRates())

		api.GET("/checkout", checkoutState())
		api.POST("/checkout/begin", beginCheckout())
		api.POST("/checkout/submit", submitCheckout())
		api.POST("/checkout/payment", completeEmbeddedPayment())
		api.POST("/checkout/back", checkoutBack())
		api.POST("/checkout/cancel", cancelCheckout())
	}

	// The redirect provider sends the shopper back here with its return
	// token in the query string.
	router.GET("/checkout/return", withSession, checkoutReturn(deps))

	return router
}
