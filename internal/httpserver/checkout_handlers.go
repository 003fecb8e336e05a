package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/domespa/digital-store-sub001/internal/checkout"
	"github.com/domespa/digital-store-sub001/internal/domain"
)

type checkoutStateResponse struct {
	Step         string              `json:"step"`
	Form         domain.CheckoutForm `json:"form"`
	ClientSecret string              `json:"clientSecret,omitempty"`
	Order        *domain.Order       `json:"order,omitempty"`
	Error        string              `json:"error,omitempty"`
	Submitting   bool                `json:"submitting"`
}

func toCheckoutState(st checkout.FlowState) checkoutStateResponse {
	return checkoutStateResponse{
		Step:         st.Step.String(),
		Form:         st.Form,
		ClientSecret: st.ClientSecret,
		Order:        st.Order,
		Error:        st.Error,
		Submitting:   st.Submitting,
	}
}

func checkoutState() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		c.JSON(http.StatusOK, toCheckoutState(sess.Flow.State()))
	}
}

func beginCheckout() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if err := sess.Flow.Begin(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toCheckoutState(sess.Flow.State()))
	}
}

type submitCheckoutRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Provider  string `json:"paymentProvider"`
}

type submitCheckoutResponse struct {
	Type         string        `json:"type"`
	ClientSecret string        `json:"clientSecret,omitempty"`
	ApprovalURL  string        `json:"approvalUrl,omitempty"`
	Order        *domain.Order `json:"order,omitempty"`
}

func submitCheckout() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		provider := domain.PaymentProvider(req.Provider)
		if !provider.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment provider"})
			return
		}

		sess := currentSession(c)
		res, err := sess.Flow.Submit(c.Request.Context(), domain.CheckoutForm{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Provider:  provider,
		})
		if err != nil {
			status := http.StatusBadGateway
			switch {
			case errors.Is(err, checkout.ErrContactRequired),
				errors.Is(err, checkout.ErrInvalidEmail),
				errors.Is(err, checkout.ErrEmptyCart):
				status = http.StatusBadRequest
			case errors.Is(err, checkout.ErrNotInForm),
				errors.Is(err, checkout.ErrSubmitting):
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": sess.Flow.State().Error})
			return
		}

		resp := submitCheckoutResponse{Type: string(res.Kind)}
		switch res.Kind {
		case checkout.ResultEmbeddedPayment:
			resp.ClientSecret = res.ClientSecret
		case checkout.ResultRedirectPending:
			resp.ApprovalURL = res.ApprovalURL
		case checkout.ResultCompleted:
			order := res.Order
			resp.Order = &order
		}
		c.JSON(http.StatusOK, resp)
	}
}

type paymentResultRequest struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func completeEmbeddedPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentResultRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		sess := currentSession(c)
		if err := sess.Flow.CompleteEmbedded(c.Request.Context(), req.Success, req.Message); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, toCheckoutState(sess.Flow.State()))
	}
}

func checkoutBack() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Flow.Back()
		c.JSON(http.StatusOK, toCheckoutState(sess.Flow.State()))
	}
}

func cancelCheckout() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		sess.Flow.Cancel()
		c.JSON(http.StatusOK, toCheckoutState(sess.Flow.State()))
	}
}

// checkoutReturn consumes the redirect provider's return token and sends
// the shopper back to the clean URL, which is what scrubs the token from
// the address bar.
func checkoutReturn(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		token := c.Query(deps.ReturnTokenParam)
		sess.Flow.Resume(c.Request.Context(), token)
		c.Redirect(http.StatusFound, "/")
	}
}
