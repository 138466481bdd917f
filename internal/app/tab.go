package app

import (
	"context"
	"fmt"

	"github.com/Jenaru0/dela-storefront/internal/cart"
	"github.com/Jenaru0/dela-storefront/internal/clients/storefront"
	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/gate"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/session"
	"github.com/Jenaru0/dela-storefront/internal/storage"
)

// Tab is one browsing context: its own view of the shared storage, its own
// session state machine and its own cart mirror.
type Tab struct {
	log     *logger.Logger
	app     *App
	View    *storage.View
	Session *session.Controller
	Gate    *gate.Gate
	Cart    *cart.Synchronizer
}

// OpenTab wires a new browsing context on the shared storage area.
func (a *App) OpenTab() *Tab {
	view := a.Area.Open()
	log := a.Log.With("origin", view.Origin())

	ctrl := session.NewController(log, session.NewStore(log, view), a.Client, a.Bus, session.Options{
		Origin:        view.Origin(),
		RecheckDelay:  a.Cfg.Session.RecheckDelay.Duration,
		VerifyTimeout: a.Cfg.Session.VerifyTimeout.Duration,
	})
	g := gate.New(log, ctrl, ctrl, a.Client)
	cartSync := cart.New(log, storefront.NewCartAPI(g), ctrl, cart.Options{
		SyncDelay: a.Cfg.Cart.SyncDelay.Duration,
	})

	// a logout or a cleared session never leaves a stale cart behind
	ctrl.OnStateChange(func(from, to types.State) {
		if to == types.StateAnonymous {
			cartSync.Reset()
		}
	})

	return &Tab{log: log, app: a, View: view, Session: ctrl, Gate: g, Cart: cartSync}
}

// Start begins mirroring other contexts, restores the session and loads the
// cart when signed in.
func (t *Tab) Start(ctx context.Context) error {
	if err := t.Session.Watch(ctx, t.View); err != nil {
		return err
	}
	if err := t.Cart.WatchExpiry(ctx, t.app.Bus); err != nil {
		return err
	}
	if err := t.Session.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	if t.Session.IsAuthenticated() {
		if err := t.Cart.RefreshCart(ctx); err != nil {
			t.log.Warn("initial cart load failed", "error", err)
		}
	}
	return nil
}

func (t *Tab) Close() {
	t.Cart.Close()
	t.Session.Close()
}
