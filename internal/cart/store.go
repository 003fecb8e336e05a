// Package cart owns the shopper's cart state: line items, the two
// parallel totals (charged currency vs displayed currency) and the
// persistence of both across page loads. All mutations go through the
// Store; everything else reads snapshots.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/money"
	"github.com/domespa/digital-store-sub001/internal/rates"
	"github.com/domespa/digital-store-sub001/internal/storage"
)

// Converter re-prices a single amount into another currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*rates.Conversion, error)
}

const defaultCurrency = "USD"

// Store holds one cart. Each public operation is an atomic transition on
// the in-memory state followed by a best-effort write to durable storage.
type Store struct {
	mu        sync.Mutex
	state     domain.CartState
	kv        storage.KV
	converter Converter
	logger    *log.Logger
	key       string

	// convGen tags the in-flight conversion pass; a pass whose generation
	// is no longer current discards its results instead of applying them.
	convGen uint64
}

// snapshot is the persisted shape. The legacy format was a bare line
// array; restore migrates it once, it is not a general versioning scheme.
type snapshot struct {
	Items            []domain.CartLine `json:"items"`
	OriginalCurrency string            `json:"originalCurrency"`
	DisplayCurrency  string            `json:"displayCurrency"`
	Timestamp        time.Time         `json:"timestamp"`
}

// New builds a Store restored from durable storage when a non-empty
// snapshot exists under key, otherwise empty.
func New(ctx context.Context, kv storage.KV, converter Converter, logger *log.Logger, key string) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{
		kv:        kv,
		converter: converter,
		logger:    logger,
		key:       key,
		state: domain.CartState{
			OriginalCurrency: defaultCurrency,
			DisplayCurrency:  defaultCurrency,
		},
	}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("cart: restore key=%s error=%v", s.key, err)
		}
		return
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		// Legacy format: a bare line array with no currency envelope.
		var lines []domain.CartLine
		if err := json.Unmarshal([]byte(trimmed), &lines); err != nil {
			s.logger.Printf("cart: migrate legacy snapshot key=%s error=%v", s.key, err)
			return
		}
		for i := range lines {
			if lines[i].OriginalCurrency == "" {
				lines[i].OriginalCurrency = defaultCurrency
			}
			if lines[i].DisplayCurrency == "" {
				lines[i].DisplayCurrency = defaultCurrency
				lines[i].DisplayPrice = lines[i].OriginalPrice
			}
		}
		if len(lines) == 0 {
			return
		}
		s.state.Items = lines
		s.state.OriginalCurrency = defaultCurrency
		s.state.DisplayCurrency = defaultCurrency
		s.recompute()
		return
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(trimmed), &snap); err != nil {
		s.logger.Printf("cart: decode snapshot key=%s error=%v", s.key, err)
		return
	}
	if len(snap.Items) == 0 {
		return
	}
	s.state.Items = snap.Items
	if snap.OriginalCurrency != "" {
		s.state.OriginalCurrency = snap.OriginalCurrency
	}
	if snap.DisplayCurrency != "" {
		s.state.DisplayCurrency = snap.DisplayCurrency
	}
	s.recompute()
}

// State returns a copy safe to read without further locking.
func (s *Store) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateCopy()
}

func (s *Store) stateCopy() domain.CartState {
	out := s.state
	out.Items = make([]domain.CartLine, len(s.state.Items))
	copy(out.Items, s.state.Items)
	return out
}

// Add puts one unit of product in the cart, merging into an existing line
// for the same product, and opens the cart.
func (s *Store) Add(ctx context.Context, p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Items) == 0 {
		s.state.OriginalCurrency = p.Currency
		s.state.DisplayCurrency = p.Currency
	}

	merged := false
	for i := range s.state.Items {
		if s.state.Items[i].ProductID == p.ID {
			s.state.Items[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		s.state.Items = append(s.state.Items, domain.CartLine{
			ID:               uuid.NewString(),
			ProductID:        p.ID,
			Name:             p.Name,
			Quantity:         1,
			OriginalPrice:    p.Price,
			OriginalCurrency: p.Currency,
			DisplayPrice:     p.Price,
			DisplayCurrency:  p.Currency,
			ConversionRate:   decimal.NewFromInt(1),
			ConversionTime:   time.Now().UTC(),
		})
	}

	s.state.IsOpen = true
	s.recompute()
	s.persist(ctx)
}

// Remove deletes the line. A missing id is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, lineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {
		if s.state.Items[i].ID == lineID {
			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
			s.recompute()
			s.persist(ctx)
			return
		}
	}
}

// UpdateQuantity sets the line's quantity. Negative values clamp to zero
// and zero removes the line; a zero-quantity line is never kept.
func (s *Store) UpdateQuantity(ctx context.Context, lineID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	if quantity == 0 {
		s.Remove(ctx, lineID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {
		if s.state.Items[i].ID == lineID {
			s.state.Items[i].Quantity = quantity
			s.recompute()
			s.persist(ctx)
			return
		}
	}
}

// Clear resets the cart to empty and erases the persisted snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Items = nil
	s.recompute()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Printf("cart: clear storage key=%s error=%v", s.key, err)
	}
}

// ToggleVisibility flips whether the cart UI is open and reports the new
// value. No other side effects.
func (s *Store) ToggleVisibility() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsOpen = !s.state.IsOpen
	return s.state.IsOpen
}

// SetInitialCurrency seeds the display currency before anything is in the
// cart, so a shopper whose detected currency matches never pays for a
// conversion round trip. It does nothing once the cart has contents.
func (s *Store) SetInitialCurrency(currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Items) > 0 || currency == "" {
		return
	}
	s.state.DisplayCurrency = currency
}

// UpdateCurrency re-prices every line into target. A line whose
// conversion fails keeps its previous display price; the pass never
// aborts because one line failed. If no line could be re-priced at all
// the cart keeps its prior display currency entirely.
func (s *Store) UpdateCurrency(ctx context.Context, target string) {
	s.convert(ctx, target, false)
}

// Refresh re-applies the current display currency against fresh rates.
// Manual only; any periodic refresh is the caller's loop.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	target := s.state.DisplayCurrency
	s.mu.Unlock()
	s.convert(ctx, target, true)
}

type repriced struct {
	lineID string
	conv   rates.Conversion
}

func (s *Store) convert(ctx context.Context, target string, force bool) {
	s.mu.Lock()
	if target == "" || len(s.state.Items) == 0 || (!force && target == s.state.DisplayCurrency) {
		s.mu.Unlock()
		return
	}
	s.convGen++
	gen := s.convGen
	s.state.IsConverting = true
	lines := make([]domain.CartLine, len(s.state.Items))
	copy(lines, s.state.Items)
	s.mu.Unlock()

	// Conversions run without the lock; a later convert call supersedes
	// this pass and its results are discarded below.
	results := make([]repriced, 0, len(lines))
	for _, line := range lines {
		if line.OriginalCurrency == target {
			results = append(results, repriced{
				lineID: line.ID,
				conv: rates.Conversion{
					Amount:    line.OriginalPrice,
					Rate:      decimal.NewFromInt(1),
					Timestamp: time.Now().UTC(),
				},
			})
			continue
		}
		conv, err := s.converter.Convert(ctx, line.OriginalPrice, line.OriginalCurrency, target)
		if err != nil {
			s.logger.Printf("cart: convert line=%s %s->%s error=%v", line.ID, line.OriginalCurrency, target, err)
			continue
		}
		results = append(results, repriced{lineID: line.ID, conv: *conv})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.convGen != gen {
		// A newer conversion pass owns the state now.
		return
	}
	s.state.IsConverting = false

	if len(results) == 0 {
		// Every line failed: keep the prior currency and prices.
		return
	}

	for _, r := range results {
		for i := range s.state.Items {
			if s.state.Items[i].ID != r.lineID {
				continue
			}
			s.state.Items[i].DisplayPrice = money.Round(r.conv.Amount)
			s.state.Items[i].DisplayCurrency = target
			s.state.Items[i].ConversionRate = r.conv.Rate
			s.state.Items[i].ConversionTime = r.conv.Timestamp
			break
		}
	}
	s.state.DisplayCurrency = target
	s.recompute()
	s.persist(ctx)
}

// recompute derives totals and item count from the lines. Callers hold
// the lock.
func (s *Store) recompute() {
	originalTotal := decimal.Zero
	displayTotal := decimal.Zero
	count := 0
	for _, line := range s.state.Items {
		qty := decimal.NewFromInt(int64(line.Quantity))
		originalTotal = originalTotal.Add(line.OriginalPrice.Mul(qty))
		displayTotal = displayTotal.Add(line.DisplayPrice.Mul(qty))
		count += line.Quantity
	}
	s.state.OriginalTotal = money.Round(originalTotal)
	s.state.DisplayTotal = money.Round(displayTotal)
	s.state.ItemsCount = count
}

// persist writes the snapshot. Storage failures are logged and swallowed;
// the in-memory state is already committed. Callers hold the lock.
func (s *Store) persist(ctx context.Context) {
	raw, err := json.Marshal(snapshot{
		Items:            s.state.Items,
		OriginalCurrency: s.state.OriginalCurrency,
		DisplayCurrency:  s.state.DisplayCurrency,
		Timestamp:        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Printf("cart: marshal snapshot key=%s error=%v", s.key, err)
		return
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		s.logger.Printf("cart: persist key=%s error=%v", s.key, err)
	}
}
