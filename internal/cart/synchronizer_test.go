package cart

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime"
)

var (
	productX = types.Product{ID: "x", Name: "Pisco", UnitPrice: 40, Stock: 5}
	productY = types.Product{ID: "y", Name: "Quinoa", UnitPrice: 12.5, Stock: 10, ReserveMinimum: 2}
)

type fixture struct {
	sync   *Synchronizer
	server *fakeServer
	auth   *authFlag
	timers *fakeTimers
}

func newFixture(t *testing.T, products ...types.Product) *fixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	if len(products) == 0 {
		products = []types.Product{productX, productY}
	}
	server := newFakeServer(products...)
	auth := &authFlag{ok: true}
	timers := &fakeTimers{}
	s := New(log, server, auth, Options{SyncDelay: 1500 * time.Millisecond, AfterFunc: timers.AfterFunc})
	t.Cleanup(s.Close)
	return &fixture{sync: s, server: server, auth: auth, timers: timers}
}

func TestAddBeyondSellableStockIsRejectedLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if res := f.sync.AddToCart(ctx, productX, 3); !res.OK {
		t.Fatalf("first add: %+v", res)
	}
	if l, _ := f.sync.Line("x"); l.Quantity != 3 {
		t.Fatalf("quantity after first add: %d", l.Quantity)
	}

	before := f.server.totalCalls()
	res := f.sync.AddToCart(ctx, productX, 3)
	if res.OK || !apierr.IsStockConflict(res.Err) || res.Reason == "" {
		t.Fatalf("second add: %+v", res)
	}
	if l, _ := f.sync.Line("x"); l.Quantity != 3 {
		t.Fatalf("quantity changed by rejected add: %d", l.Quantity)
	}
	if f.server.totalCalls() != before {
		t.Fatalf("rejected add reached the server")
	}
	assertAtRest(t, f.sync)
}

func TestDecreaseAtOneRemovesLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productY, 1)

	if res := f.sync.DecreaseQty(ctx, "y"); !res.OK {
		t.Fatalf("DecreaseQty: %+v", res)
	}
	if _, ok := f.sync.Line("y"); ok {
		t.Fatalf("line should be gone")
	}
	if f.server.count("remove") != 1 || f.server.count("update") != 0 {
		t.Fatalf("remote calls: remove=%d update=%d", f.server.count("remove"), f.server.count("update"))
	}
	if len(f.server.snapshot().Lines) != 0 {
		t.Fatalf("server still has the line")
	}
}

func TestHugeAddIsRejectedWithoutWrapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if res := f.sync.AddToCart(ctx, productX, 3); !res.OK {
		t.Fatalf("first add: %+v", res)
	}

	before := f.server.totalCalls()
	res := f.sync.AddToCart(ctx, productX, math.MaxInt)
	if res.OK || !apierr.IsStockConflict(res.Err) {
		t.Fatalf("max int add: %+v", res)
	}
	if l, _ := f.sync.Line("x"); l.Quantity != 3 {
		t.Fatalf("quantity changed by rejected add: %d", l.Quantity)
	}
	if f.server.totalCalls() != before {
		t.Fatalf("rejected add reached the server")
	}
	assertAtRest(t, f.sync)
}

func TestIncreaseAndSetRespectReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productY, 7)

	if res := f.sync.IncreaseQty(ctx, "y"); !res.OK {
		t.Fatalf("increase to 8: %+v", res)
	}
	before := f.server.totalCalls()
	if res := f.sync.IncreaseQty(ctx, "y"); res.OK || !apierr.IsStockConflict(res.Err) {
		t.Fatalf("increase past sellable: %+v", res)
	}
	if res := f.sync.SetQty(ctx, "y", 9); res.OK {
		t.Fatalf("set past sellable: %+v", res)
	}
	if f.server.totalCalls() != before {
		t.Fatalf("rejected changes reached the server")
	}
	if res := f.sync.SetQty(ctx, "y", 4); !res.OK {
		t.Fatalf("set to 4: %+v", res)
	}
	if l, _ := f.sync.Line("y"); l.Quantity != 4 {
		t.Fatalf("quantity: %d", l.Quantity)
	}
	if res := f.sync.SetQty(ctx, "y", 0); !res.OK {
		t.Fatalf("set to 0: %+v", res)
	}
	if _, ok := f.sync.Line("y"); ok {
		t.Fatalf("set to 0 should remove the line")
	}
	assertAtRest(t, f.sync)
}

func TestUnknownLineIsAFailedResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for name, res := range map[string]types.Result{
		"increase": f.sync.IncreaseQty(ctx, "nope"),
		"decrease": f.sync.DecreaseQty(ctx, "nope"),
		"set":      f.sync.SetQty(ctx, "nope", 2),
		"remove":   f.sync.RemoveFromCart(ctx, "nope"),
	} {
		if res.OK || !errors.Is(res.Err, apierr.ErrProductNotInCart) {
			t.Fatalf("%s: %+v", name, res)
		}
	}
	if f.server.totalCalls() != 0 {
		t.Fatalf("server called for unknown lines")
	}
}

func TestClearCartTwiceLeavesItEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 2)
	_ = f.sync.AddToCart(ctx, productY, 1)

	for i := 0; i < 2; i++ {
		if res := f.sync.ClearCart(ctx); !res.OK {
			t.Fatalf("clear %d: %+v", i, res)
		}
		if n := len(f.sync.Lines()); n != 0 {
			t.Fatalf("clear %d left %d lines", i, n)
		}
	}
	if len(f.server.snapshot().Lines) != 0 {
		t.Fatalf("server cart not empty")
	}
}

func TestRefreshConvergesToServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 2)
	_ = f.sync.AddToCart(ctx, productY, 3)
	_ = f.sync.IncreaseQty(ctx, "x")
	_ = f.sync.DecreaseQty(ctx, "y")

	// another device changes the cart and stock moves underneath
	_ = f.server.Remove(ctx, "x")
	f.server.setStock("y", 8)

	if err := f.sync.RefreshCart(ctx); err != nil {
		t.Fatalf("RefreshCart: %v", err)
	}
	want := f.server.snapshot().Lines
	got := f.sync.Lines()
	if len(got) != len(want) {
		t.Fatalf("lines: want=%+v got=%+v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: want=%+v got=%+v", i, want[i], got[i])
		}
	}
	assertAtRest(t, f.sync)
}

func TestServerStockConflictIsReportedAndReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.server.setStock("x", 2)

	// the caller still believes five units exist
	res := f.sync.AddToCart(ctx, productX, 3)
	if res.OK || !apierr.IsStockConflict(res.Err) {
		t.Fatalf("AddToCart: %+v", res)
	}
	if _, ok := f.sync.Line("x"); ok {
		t.Fatalf("rejected optimistic line survived reconciliation")
	}
	if f.server.count("get") != 1 {
		t.Fatalf("expected one reconciliation, got %d", f.server.count("get"))
	}
	assertAtRest(t, f.sync)
}

func TestTransportFailureRefreshesThenFailsGenerically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 1)

	f.server.failWith(apierr.Transport(errors.New("connection reset")))
	res := f.sync.IncreaseQty(ctx, "x")
	if res.OK || res.Reason != reasonUnexpected || !apierr.IsTransport(res.Err) {
		t.Fatalf("IncreaseQty: %+v", res)
	}
	if f.server.count("get") != 1 {
		t.Fatalf("expected a full reconciliation, got %d gets", f.server.count("get"))
	}
	if l, _ := f.sync.Line("x"); l.Quantity != 1 {
		t.Fatalf("mirror should match server after reconciliation, got %d", l.Quantity)
	}
}

func TestSuccessSchedulesBackgroundSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 1)

	first := f.timers.last()
	if first == nil || first.delay != 1500*time.Millisecond {
		t.Fatalf("no background sync scheduled")
	}
	_ = f.sync.AddToCart(ctx, productX, 1)
	if !first.stopped {
		t.Fatalf("older background sync should be replaced")
	}

	// the server gained a line from elsewhere; the background sync picks it up
	_ = f.server.Add(ctx, "y", 2)
	f.timers.last().fn()
	if l, ok := f.sync.Line("y"); !ok || l.Quantity != 2 {
		t.Fatalf("background sync did not reconcile: %+v ok=%v", l, ok)
	}
}

func TestBackgroundSyncSwallowsErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 1)

	f.server.failWith(apierr.Transport(errors.New("timeout")))
	f.sync.SyncCartInBackground(ctx)
	if l, _ := f.sync.Line("x"); l.Quantity != 1 {
		t.Fatalf("failed background sync changed the mirror")
	}
}

func TestReconciliationStartedBeforeMutationIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.server.mu.Lock()
	f.server.getHook = func() {
		close(entered)
		<-release
	}
	f.server.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- f.sync.RefreshCart(ctx) }()
	<-entered

	f.server.mu.Lock()
	f.server.getHook = nil
	f.server.mu.Unlock()
	if res := f.sync.AddToCart(ctx, productX, 2); !res.OK {
		t.Fatalf("AddToCart: %+v", res)
	}
	// the held read now answers without the line
	_ = f.server.Remove(ctx, "x")
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("RefreshCart: %v", err)
	}
	if l, ok := f.sync.Line("x"); !ok || l.Quantity != 2 {
		t.Fatalf("superseded reconciliation overwrote the mutation: %+v ok=%v", l, ok)
	}

	// a reconciliation started afterwards wins
	if err := f.sync.RefreshCart(ctx); err != nil {
		t.Fatalf("RefreshCart: %v", err)
	}
	if _, ok := f.sync.Line("x"); ok {
		t.Fatalf("later reconciliation should apply")
	}
}

func TestNotAuthenticatedFailsWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	f.auth.set(false)
	ctx := context.Background()

	res := f.sync.AddToCart(ctx, productX, 1)
	if res.OK || res.Reason != reasonNotAuthenticated || !apierr.IsAuth(res.Err) {
		t.Fatalf("AddToCart: %+v", res)
	}
	if res := f.sync.ClearCart(ctx); res.OK {
		t.Fatalf("ClearCart while signed out: %+v", res)
	}
	if err := f.sync.RefreshCart(ctx); !apierr.IsAuth(err) {
		t.Fatalf("RefreshCart: %v", err)
	}
	if f.server.totalCalls() != 0 {
		t.Fatalf("server called while signed out")
	}
}

func TestExpirySignalDropsMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hub := realtime.NewHub(nil)
	t.Cleanup(func() { _ = hub.Close() })
	if err := f.sync.WatchExpiry(ctx, hub); err != nil {
		t.Fatalf("WatchExpiry: %v", err)
	}
	_ = f.sync.AddToCart(ctx, productX, 2)

	changed := make(chan []types.CartLine, 1)
	f.sync.OnChange(func(lines []types.CartLine) { changed <- lines })

	if err := hub.Publish(ctx, realtime.Message{Channel: realtime.ChannelSession, Event: realtime.EventSessionExpired}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case lines := <-changed:
		if len(lines) != 0 {
			t.Fatalf("mirror not emptied: %+v", lines)
		}
	case <-time.After(time.Second):
		t.Fatalf("expiry did not reset the cart")
	}
	if f.sync.ItemCount() != 0 {
		t.Fatalf("item count: %d", f.sync.ItemCount())
	}
}

func TestTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.sync.AddToCart(ctx, productX, 2)
	_ = f.sync.AddToCart(ctx, productY, 2)
	if got := f.sync.ItemCount(); got != 4 {
		t.Fatalf("ItemCount: %d", got)
	}
	if got := f.sync.Subtotal(); got != 105 {
		t.Fatalf("Subtotal: %v", got)
	}
}

func TestChangeListenersGetTheirOwnCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var first, second [][]types.CartLine
	f.sync.OnChange(func(lines []types.CartLine) {
		first = append(first, lines)
		if len(lines) > 0 {
			lines[0].Quantity = 99
		}
		// registering from inside a callback must not deadlock
		f.sync.OnChange(func([]types.CartLine) {})
	})
	f.sync.OnChange(func(lines []types.CartLine) { second = append(second, lines) })

	if res := f.sync.AddToCart(ctx, productX, 2); !res.OK {
		t.Fatalf("add: %+v", res)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("notifications: first=%d second=%d", len(first), len(second))
	}
	if second[0][0].Quantity != 2 {
		t.Fatalf("listener saw another listener's edit: %+v", second[0])
	}
	if l, _ := f.sync.Line("x"); l.Quantity != 2 {
		t.Fatalf("mirror changed through a listener: %d", l.Quantity)
	}
}
