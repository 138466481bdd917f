package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/stock"
)

// fakeServer is an in-memory remote cart that enforces stock like the real one.
type fakeServer struct {
	mu       sync.Mutex
	products map[string]types.Product
	order    []string
	qty      map[string]int

	failNext error
	getHook  func()
	calls    map[string]int
}

func newFakeServer(products ...types.Product) *fakeServer {
	f := &fakeServer{products: map[string]types.Product{}, qty: map[string]int{}, calls: map[string]int{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeServer) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeServer) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeServer) setStock(id string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Stock = stock
	f.products[id] = p
}

func (f *fakeServer) failWith(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

func (f *fakeServer) enter(op string) error {
	f.calls[op]++
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	return nil
}

func (f *fakeServer) Get(context.Context) (types.Cart, error) {
	f.mu.Lock()
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("get"); err != nil {
		return types.Cart{}, err
	}
	return f.cartLocked(), nil
}

func (f *fakeServer) cartLocked() types.Cart {
	var out types.Cart
	for _, id := range f.order {
		if q := f.qty[id]; q > 0 {
			out.Lines = append(out.Lines, types.LineFromProduct(f.products[id], q))
		}
	}
	return out
}

func (f *fakeServer) snapshot() types.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartLocked()
}

func (f *fakeServer) setLocked(id string, q int) error {
	p, ok := f.products[id]
	if !ok {
		return apierr.New(404, apierr.CodeProductNotFound, errors.New("product not found"))
	}
	if err := stock.Check(p.Name, q, p.Stock, p.ReserveMinimum); err != nil {
		return err
	}
	if _, seen := f.qty[id]; !seen || f.qty[id] == 0 {
		f.order = append(f.order, id)
	}
	f.qty[id] = q
	return nil
}

func (f *fakeServer) Add(_ context.Context, id string, q int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("add"); err != nil {
		return err
	}
	if p, ok := f.products[id]; ok {
		if err := stock.CheckAdd(p.Name, f.qty[id], q, p.Stock, p.ReserveMinimum); err != nil {
			return err
		}
	}
	return f.setLocked(id, f.qty[id]+q)
}

func (f *fakeServer) Update(_ context.Context, id string, q int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("update"); err != nil {
		return err
	}
	return f.setLocked(id, q)
}

func (f *fakeServer) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("remove"); err != nil {
		return err
	}
	f.dropLocked(id)
	return nil
}

func (f *fakeServer) dropLocked(id string) {
	delete(f.qty, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fakeServer) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("clear"); err != nil {
		return err
	}
	f.qty = map[string]int{}
	f.order = nil
	return nil
}

type authFlag struct {
	mu sync.Mutex
	ok bool
}

func (a *authFlag) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ok
}

func (a *authFlag) set(ok bool) {
	a.mu.Lock()
	a.ok = ok
	a.mu.Unlock()
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped
	t.stopped = true
	return active
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) last() *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.timers) == 0 {
		return nil
	}
	return ft.timers[len(ft.timers)-1]
}

// assertAtRest checks the invariants every line must satisfy between operations.
func assertAtRest(t *testing.T, s *Synchronizer) {
	t.Helper()
	seen := map[string]bool{}
	for _, l := range s.Lines() {
		if l.Quantity < 1 {
			t.Fatalf("line %s has quantity %d", l.ProductID, l.Quantity)
		}
		if l.Quantity > stock.Sellable(l.AvailableStock, l.ReserveMinimum) {
			t.Fatalf("line %s quantity %d exceeds sellable %d", l.ProductID, l.Quantity, stock.Sellable(l.AvailableStock, l.ReserveMinimum))
		}
		if seen[l.ProductID] {
			t.Fatalf("duplicate line for %s", l.ProductID)
		}
		seen[l.ProductID] = true
	}
}
