package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime"
	"github.com/Jenaru0/dela-storefront/internal/realtime/bus"
	"github.com/Jenaru0/dela-storefront/internal/stock"
)

// API is the remote cart. storefront.CartAPI implements it over the request gate.
type API interface {
	Get(ctx context.Context) (types.Cart, error)
	Add(ctx context.Context, productID string, qty int) error
	Update(ctx context.Context, productID string, qty int) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

type Authenticator interface {
	IsAuthenticated() bool
}

type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

type Options struct {
	SyncDelay time.Duration
	AfterFunc AfterFunc
}

const (
	reasonNotAuthenticated = "sign in to use the cart"
	reasonSessionExpired   = "your session has expired, please sign in again"
	reasonUnexpected       = "the cart could not be updated, please try again"
)

// Synchronizer owns the local mirror of the remote cart.
//
// Mutations apply to the mirror first and then go to the server. Reconciliation
// replaces the mirror with the server's cart; each one takes a sequence number,
// and a result is applied only when it is newer than both the last applied
// reconciliation and the last local mutation.
type Synchronizer struct {
	log       *logger.Logger
	api       API
	auth      Authenticator
	syncDelay time.Duration
	afterFunc AfterFunc

	mu           sync.Mutex
	lines        []types.CartLine
	issued       uint64
	applied      uint64
	lastMutation uint64
	pendingSync  Timer
	listeners    []func([]types.CartLine)
	unsubscribe  func()
	closed       bool
}

func New(log *logger.Logger, api API, auth Authenticator, opts Options) *Synchronizer {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = 1500 * time.Millisecond
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return &Synchronizer{
		log:       logger.OrNop(log).With("component", "CartSynchronizer"),
		api:       api,
		auth:      auth,
		syncDelay: opts.SyncDelay,
		afterFunc: opts.AfterFunc,
	}
}

// AddToCart adds qty units of p, checked against p's stock figures.
func (s *Synchronizer) AddToCart(ctx context.Context, p types.Product, qty int) types.Result {
	if qty <= 0 {
		return types.Failed("", apierr.Validation("", apierr.ErrInvalidQuantity))
	}
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	idx := s.indexLocked(p.ID)
	current := 0
	if idx >= 0 {
		current = s.lines[idx].Quantity
	}
	if err := stock.CheckAdd(p.Name, current, qty, p.Stock, p.ReserveMinimum); err != nil {
		s.mu.Unlock()
		return types.Failed("", err)
	}
	if idx >= 0 {
		l := &s.lines[idx]
		l.Quantity += qty
		l.AvailableStock = p.Stock
		l.ReserveMinimum = p.ReserveMinimum
	} else {
		s.lines = append(s.lines, types.LineFromProduct(p, qty))
	}
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "add to cart", s.api.Add(ctx, p.ID, qty))
}

func (s *Synchronizer) IncreaseQty(ctx context.Context, productID string) types.Result {
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return types.Failed("", apierr.ErrProductNotInCart)
	}
	l := &s.lines[idx]
	if err := stock.CheckAdd(l.Name, l.Quantity, 1, l.AvailableStock, l.ReserveMinimum); err != nil {
		s.mu.Unlock()
		return types.Failed("", err)
	}
	l.Quantity++
	qty := l.Quantity
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "increase quantity", s.api.Update(ctx, productID, qty))
}

// DecreaseQty removes the line instead of leaving it at zero.
func (s *Synchronizer) DecreaseQty(ctx context.Context, productID string) types.Result {
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return types.Failed("", apierr.ErrProductNotInCart)
	}
	if s.lines[idx].Quantity <= 1 {
		s.mu.Unlock()
		return s.RemoveFromCart(ctx, productID)
	}
	s.lines[idx].Quantity--
	qty := s.lines[idx].Quantity
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "decrease quantity", s.api.Update(ctx, productID, qty))
}

// SetQty sets an absolute quantity; qty <= 0 removes the line.
func (s *Synchronizer) SetQty(ctx context.Context, productID string, qty int) types.Result {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return types.Failed("", apierr.ErrProductNotInCart)
	}
	l := &s.lines[idx]
	if err := stock.Check(l.Name, qty, l.AvailableStock, l.ReserveMinimum); err != nil {
		s.mu.Unlock()
		return types.Failed("", err)
	}
	l.Quantity = qty
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "set quantity", s.api.Update(ctx, productID, qty))
}

func (s *Synchronizer) RemoveFromCart(ctx context.Context, productID string) types.Result {
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return types.Failed("", apierr.ErrProductNotInCart)
	}
	s.lines = append(s.lines[:idx:idx], s.lines[idx+1:]...)
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "remove from cart", s.api.Remove(ctx, productID))
}

// ClearCart empties the cart. Clearing an empty cart still confirms with the server.
func (s *Synchronizer) ClearCart(ctx context.Context) types.Result {
	if res, ok := s.requireSession(); !ok {
		return res
	}

	s.mu.Lock()
	s.lines = nil
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.settle(ctx, "clear cart", s.api.Clear(ctx))
}

// RefreshCart replaces the mirror with the server's cart. A result that was
// overtaken by a newer reconciliation or a later local mutation is dropped.
func (s *Synchronizer) RefreshCart(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return apierr.Auth(apierr.ErrNotAuthenticated)
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	remote, err := s.api.Get(ctx)
	if err != nil {
		return fmt.Errorf("refresh cart: %w", err)
	}

	s.mu.Lock()
	if seq <= s.applied || seq < s.lastMutation {
		s.mu.Unlock()
		s.log.Debug("dropping superseded cart reconciliation", "seq", seq)
		return nil
	}
	s.applied = seq
	s.lines = normalize(remote.Lines)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

// SyncCartInBackground is RefreshCart for callers that do not wait on it.
// Failures are logged and never returned.
func (s *Synchronizer) SyncCartInBackground(ctx context.Context) {
	if !s.auth.IsAuthenticated() {
		return
	}
	if err := s.RefreshCart(ctx); err != nil {
		s.log.Warn("background cart sync failed", "error", err)
	}
}

// Reset drops the mirror without calling the server, e.g. once the session is gone.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.stopSyncLocked()
	hadLines := len(s.lines) > 0
	s.lines = nil
	snapshot := s.mutatedLocked()
	s.mu.Unlock()
	if hadLines {
		s.notify(snapshot)
	}
}

// WatchExpiry resets the mirror whenever the session expiry signal is seen.
func (s *Synchronizer) WatchExpiry(ctx context.Context, b bus.Bus) error {
	stop, err := b.Subscribe(ctx, realtime.ChannelSession, func(m realtime.Message) {
		if m.Event == realtime.EventSessionExpired {
			s.log.Info("session expired, dropping cart mirror")
			s.Reset()
		}
	})
	if err != nil {
		return fmt.Errorf("watch session expiry: %w", err)
	}
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = stop
	s.mu.Unlock()
	return nil
}

// OnChange registers fn to receive a copy of the lines after every change.
func (s *Synchronizer) OnChange(fn func([]types.CartLine)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Synchronizer) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) Line(productID string) (types.CartLine, bool) {
	return types.Cart{Lines: s.Lines()}.Find(productID)
}

func (s *Synchronizer) ItemCount() int { return types.Cart{Lines: s.Lines()}.ItemCount() }

func (s *Synchronizer) Subtotal() float64 { return types.Cart{Lines: s.Lines()}.Subtotal() }

func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopSyncLocked()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// settle turns the remote half of a mutation into a result. Business failures
// come back with their own reason; anything unexpected triggers a full
// reconciliation before a generic failure is returned.
func (s *Synchronizer) settle(ctx context.Context, op string, err error) types.Result {
	switch {
	case err == nil:
		s.scheduleSync()
		return types.Succeeded()
	case apierr.IsBusiness(err):
		s.log.Info("cart change rejected", "op", op, "error", err)
		s.reconcile(ctx, op)
		return types.Failed("", err)
	case apierr.IsAuth(err):
		s.Reset()
		return types.Failed(reasonSessionExpired, err)
	default:
		s.log.Warn("cart change failed, reconciling", "op", op, "error", err)
		s.reconcile(ctx, op)
		return types.Failed(reasonUnexpected, err)
	}
}

func (s *Synchronizer) reconcile(ctx context.Context, op string) {
	if err := s.RefreshCart(ctx); err != nil && !errors.Is(err, apierr.ErrNotAuthenticated) {
		s.log.Warn("cart reconciliation failed", "op", op, "error", err)
	}
}

func (s *Synchronizer) scheduleSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopSyncLocked()
	s.pendingSync = s.afterFunc(s.syncDelay, func() {
		s.SyncCartInBackground(context.Background())
	})
}

func (s *Synchronizer) stopSyncLocked() {
	if s.pendingSync != nil {
		s.pendingSync.Stop()
		s.pendingSync = nil
	}
}

func (s *Synchronizer) requireSession() (types.Result, bool) {
	if s.auth.IsAuthenticated() {
		return types.Result{}, true
	}
	return types.Failed(reasonNotAuthenticated, apierr.Auth(apierr.ErrNotAuthenticated)), false
}

// mutatedLocked records a local mutation so that reconciliations already in
// flight cannot overwrite it, and returns the new snapshot.
func (s *Synchronizer) mutatedLocked() []types.CartLine {
	s.issued++
	s.lastMutation = s.issued
	return s.snapshotLocked()
}

func (s *Synchronizer) indexLocked(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) snapshotLocked() []types.CartLine {
	return append([]types.CartLine(nil), s.lines...)
}

func (s *Synchronizer) notify(lines []types.CartLine) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(append([]types.CartLine(nil), lines...))
	}
}

// normalize drops empty lines and keeps the first line per product.
func normalize(lines []types.CartLine) []types.CartLine {
	out := make([]types.CartLine, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == "" || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		out = append(out, l)
	}
	return out
}
