package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/orders"
	"github.com/domespa/digital-store-sub001/internal/storage"
)

// Step is the checkout UI position. cart is the initial state; success
// and cart are where every path eventually lands.
type Step string

const (
	StepCart            Step = "cart"
	StepForm            Step = "form"
	StepEmbeddedPayment Step = "embedded-payment"
	StepRedirectWait    Step = "redirect-wait"
	StepSuccess         Step = "success"
)

func (s Step) String() string {
	return string(s)
}

var (
	ErrCartConverting = errors.New("cart is being re-priced, try again")
	ErrNotInForm      = errors.New("no checkout form in progress")
	ErrSubmitting     = errors.New("checkout already in progress")
)

type cartControl interface {
	State() domain.CartState
	Clear(ctx context.Context)
}

type submitter interface {
	Submit(ctx context.Context, form domain.CheckoutForm, state domain.CartState) (*Result, error)
}

type orderCapturer interface {
	CaptureOrder(ctx context.Context, orderID string) (*orders.CaptureResponse, error)
}

// Flow drives one session's checkout through the steps. It is the only
// writer of the redirect snapshot keys.
type Flow struct {
	mu       sync.Mutex
	cart     cartControl
	orch     submitter
	capturer orderCapturer
	kv       storage.KV
	logger   *log.Logger

	orderKey string
	formKey  string

	step         Step
	form         domain.CheckoutForm
	clientSecret string
	pendingOrder *domain.Order
	order        *domain.Order
	lastError    string
	submitting   bool
}

// FlowState is a read-only snapshot for handlers and tests.
type FlowState struct {
	Step         Step
	Form         domain.CheckoutForm
	ClientSecret string
	Order        *domain.Order
	Error        string
	Submitting   bool
}

func NewFlow(cart cartControl, orch submitter, capturer orderCapturer, kv storage.KV, logger *log.Logger, sessionID string) *Flow {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Flow{
		cart:     cart,
		orch:     orch,
		capturer: capturer,
		kv:       kv,
		logger:   logger,
		orderKey: "checkout:pending-order:" + sessionID,
		formKey:  "checkout:pending-form:" + sessionID,
		step:     StepCart,
	}
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FlowState{
		Step:         f.step,
		Form:         f.form,
		ClientSecret: f.clientSecret,
		Error:        f.lastError,
		Submitting:   f.submitting,
	}
	if f.order != nil {
		o := *f.order
		st.Order = &o
	}
	return st
}

// Begin moves cart -> form. Guarded by a non-empty cart and by the cart
// not being mid-conversion.
func (f *Flow) Begin() error {
	st := f.cart.State()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(st.Items) == 0 {
		return ErrEmptyCart
	}
	if st.IsConverting {
		return ErrCartConverting
	}
	f.step = StepForm
	f.lastError = ""
	return nil
}

// Submit runs the orchestrator and advances the step on success. On a
// redirect result the pending order id and form snapshot are written to
// durable storage before the approval URL is handed back, so the flow
// can resume when the browser returns.
func (f *Flow) Submit(ctx context.Context, form domain.CheckoutForm) (*Result, error) {
	f.mu.Lock()
	if f.step != StepForm {
		f.mu.Unlock()
		return nil, ErrNotInForm
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.submitting = true
	f.form = form
	f.mu.Unlock()

	res, err := f.orch.Submit(ctx, form, f.cart.State())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false

	if err != nil {
		f.lastError = userMessage(err)
		return nil, err
	}
	f.lastError = ""

	switch res.Kind {
	case ResultEmbeddedPayment:
		f.clientSecret = res.ClientSecret
		order := res.Order
		f.pendingOrder = &order
		f.step = StepEmbeddedPayment
	case ResultRedirectPending:
		f.saveRedirectSnapshot(ctx, res.Order.ID, form)
		f.step = StepRedirectWait
	case ResultCompleted:
		order := res.Order
		f.order = &order
		f.cart.Clear(ctx)
		f.step = StepSuccess
	}
	return res, nil
}

// CompleteEmbedded reports the inline provider's outcome. Success clears
// the cart and finishes; failure keeps the payment step so the shopper
// can retry.
func (f *Flow) CompleteEmbedded(ctx context.Context, success bool, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepEmbeddedPayment {
		return errors.New("no embedded payment in progress")
	}
	if !success {
		if message == "" {
			message = "payment failed, please try again"
		}
		f.lastError = message
		return nil
	}
	f.order = f.pendingOrder
	f.pendingOrder = nil
	f.clientSecret = ""
	f.lastError = ""
	f.cart.Clear(ctx)
	f.step = StepSuccess
	return nil
}

// Back returns from the embedded payment step to the form, keeping the
// entered contact data.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepEmbeddedPayment {
		f.step = StepForm
		f.clientSecret = ""
		f.pendingOrder = nil
	}
}

// Cancel resets to the cart step from anywhere, discarding all transient
// checkout data. Cart contents are untouched.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Flow) reset() {
	f.step = StepCart
	f.form = domain.CheckoutForm{}
	f.clientSecret = ""
	f.pendingOrder = nil
	f.order = nil
	f.lastError = ""
}

// Resume handles a page load carrying the redirect provider's return
// token. It reports whether a resumption was consumed. The snapshot keys
// are erased exactly once on every outcome, including capture failure,
// so a stale resume can never replay.
func (f *Flow) Resume(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	orderID, err := f.kv.Get(ctx, f.orderKey)
	if err != nil || orderID == "" {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			f.logger.Printf("checkout: read pending order error=%v", err)
		}
		f.clearRedirectSnapshot(ctx)
		return false
	}

	f.step = StepRedirectWait
	if raw, err := f.kv.Get(ctx, f.formKey); err == nil {
		var form domain.CheckoutForm
		if err := json.Unmarshal([]byte(raw), &form); err == nil {
			f.form = form
		}
	}

	resp, err := f.capturer.CaptureOrder(ctx, orderID)
	f.clearRedirectSnapshot(ctx)

	if err != nil || !resp.Success {
		f.logger.Printf("checkout: capture order=%s failed err=%v", orderID, err)
		f.reset()
		return true
	}

	order := resp.Order
	f.order = &order
	f.cart.Clear(ctx)
	f.step = StepSuccess
	return true
}

func (f *Flow) saveRedirectSnapshot(ctx context.Context, orderID string, form domain.CheckoutForm) {
	if err := f.kv.Set(ctx, f.orderKey, orderID); err != nil {
		f.logger.Printf("checkout: persist pending order=%s error=%v", orderID, err)
	}
	raw, err := json.Marshal(form)
	if err != nil {
		f.logger.Printf("checkout: marshal form snapshot error=%v", err)
		return
	}
	if err := f.kv.Set(ctx, f.formKey, string(raw)); err != nil {
		f.logger.Printf("checkout: persist form snapshot error=%v", err)
	}
}

func (f *Flow) clearRedirectSnapshot(ctx context.Context) {
	if err := f.kv.Delete(ctx, f.orderKey); err != nil {
		f.logger.Printf("checkout: erase pending order key error=%v", err)
	}
	if err := f.kv.Delete(ctx, f.formKey); err != nil {
		f.logger.Printf("checkout: erase form snapshot key error=%v", err)
	}
}

// userMessage maps an error to what the shopper sees. Validation errors
// read as-is; anything else becomes a generic retryable message.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrContactRequired),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrEmptyCart):
		return err.Error()
	default:
		return "checkout failed, please try again"
	}
}
