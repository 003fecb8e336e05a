package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/money"
)

type cartLineResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	Name             string          `json:"name,omitempty"`
	Quantity         int             `json:"quantity"`
	OriginalPrice    decimal.Decimal `json:"originalPrice"`
	OriginalCurrency string          `json:"originalCurrency"`
	DisplayPrice     decimal.Decimal `json:"displayPrice"`
	DisplayCurrency  string          `json:"displayCurrency"`
	FormattedPrice   string          `json:"formattedPrice"`
}

type cartResponse struct {
	Items            []cartLineResponse `json:"items"`
	ItemsCount       int                `json:"itemsCount"`
	OriginalTotal    decimal.Decimal    `json:"originalTotal"`
	DisplayTotal     decimal.Decimal    `json:"displayTotal"`
	OriginalCurrency string             `json:"originalCurrency"`
	DisplayCurrency  string             `json:"displayCurrency"`
	FormattedTotal   string             `json:"formattedTotal"`
	IsOpen           bool               `json:"isOpen"`
	IsConverting     bool               `json:"isConverting"`
}

func toCartResponse(st domain.CartState) cartResponse {
	items := make([]cartLineResponse, 0, len(st.Items))
	for _, line := range st.Items {
		items = append(items, cartLineResponse{
			ID:               line.ID,
			ProductID:        line.ProductID,
			Name:             line.Name,
			Quantity:         line.Quantity,
			OriginalPrice:    line.OriginalPrice,
			OriginalCurrency: line.OriginalCurrency,
			DisplayPrice:     line.DisplayPrice,
			DisplayCurrency:  line.DisplayCurrency,
			FormattedPrice:   money.Format(line.DisplayPrice, line.DisplayCurrency),
		})
	}
	return cartResponse{
		Items:            items,
		ItemsCount:       st.ItemsCount,
		OriginalTotal:    st.OriginalTotal,
		DisplayTotal:     st.DisplayTotal,
		OriginalCurrency: st.OriginalCurrency,
		DisplayCurrency:  st.DisplayCurrency,
		FormattedTotal:   money.Format(st.DisplayTotal, st.DisplayCurrency),
		IsOpen:           st.IsOpen,
		IsConverting:     st.IsConverting,
	}
}

func listProducts(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := deps.ProductRepo.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
			return
		}
		if products == nil {
			products = []domain.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// getCart also feeds the shopper's detected currency into the sync
// controller, best-effort; a failed lookup just keeps the current
// display currency.
func getCart(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)

		if deps.Geo != nil {
			if loc, err := deps.Geo.Lookup(c.Request.Context(), c.ClientIP()); err == nil {
				sess.Cart.SetInitialCurrency(loc.Currency)
				sess.Sync.Sync(c.Request.Context(), loc.Currency)
			}
		}

		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func addCartItem(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "productId required"})
			return
		}

		product, err := deps.ProductRepo.GetByID(c.Request.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
			return
		}

		sess := currentSession(c)
		sess.Cart.Add(c.Request.Context(), *product)
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func updateCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity required"})
			return
		}

		sess := currentSession(c)
		sess.Cart.UpdateQuantity(c.Request.Context(), c.Param("lineId"), req.Quantity)
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

func removeCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Cart.Remove(c.Request.Context(), c.Param("lineId"))
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

func clearCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Cart.Clear(c.Request.Context())
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

func toggleCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Cart.ToggleVisibility()
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

type updateCurrencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

func updateCartCurrency() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCurrencyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "currency required"})
			return
		}

		sess := currentSession(c)
		sess.Cart.UpdateCurrency(c.Request.Context(), req.Currency)
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}

func refreshCartRates() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Cart.Refresh(c.Request.Context())
		c.JSON(http.StatusOK, toCartResponse(sess.Cart.State()))
	}
}
