package httpserver

import (
	"context"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/domespa/digital-store-sub001/internal/cart"
	"github.com/domespa/digital-store-sub001/internal/checkout"
	"github.com/domespa/digital-store-sub001/internal/currencysync"
	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/orders"
	"github.com/domespa/digital-store-sub001/internal/storage"
)

const (
	sessionCookie = "sid"
	sessionMaxAge = 30 * 24 * 60 * 60
	sessionCtxKey = "session"
)

// Submitter is what the checkout flow submits orders through.
type Submitter interface {
	Submit(ctx context.Context, form domain.CheckoutForm, state domain.CartState) (*checkout.Result, error)
}

// Capturer finalizes redirect-provider orders on resumption.
type Capturer interface {
	CaptureOrder(ctx context.Context, orderID string) (*orders.CaptureResponse, error)
}

// Session bundles the per-shopper state holders: one cart store, one
// checkout flow and one currency sync guard.
type Session struct {
	ID   string
	Cart *cart.Store
	Flow *checkout.Flow
	Sync *currencysync.Controller
}

// SessionManager builds and caches sessions keyed by the session cookie.
// The cart store restores itself from durable storage on first access,
// which is what carries a cart across page reloads.
type SessionManager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	kv        storage.KV
	converter cart.Converter
	submitter Submitter
	capturer  Capturer
	logger    *log.Logger
}

func NewSessionManager(kv storage.KV, converter cart.Converter, submitter Submitter, capturer Capturer, logger *log.Logger) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		kv:        kv,
		converter: converter,
		submitter: submitter,
		capturer:  capturer,
		logger:    logger,
	}
}

func (m *SessionManager) Get(ctx context.Context, id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess
	}

	store := cart.New(ctx, m.kv, m.converter, m.logger, "cart:"+id)
	sess := &Session{
		ID:   id,
		Cart: store,
		Flow: checkout.NewFlow(store, m.submitter, m.capturer, m.kv, m.logger, id),
		Sync: currencysync.New(store, m.logger),
	}
	m.sessions[id] = sess
	return sess
}

// sessionMiddleware assigns a session cookie on first contact and puts
// the session on the request context.
func sessionMiddleware(manager *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(sessionCookie, id, sessionMaxAge, "/", "", false, true)
		}
		c.Set(sessionCtxKey, manager.Get(c.Request.Context(), id))
		c.Next()
	}
}

func currentSession(c *gin.Context) *Session {
	return c.MustGet(sessionCtxKey).(*Session)
}
