package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime"
	"github.com/Jenaru0/dela-storefront/internal/realtime/bus"
	"github.com/Jenaru0/dela-storefront/internal/storage"
)

type Options struct {
	// Origin tags expiry signals with the browsing context that emitted them.
	Origin        string
	RecheckDelay  time.Duration
	VerifyTimeout time.Duration
	AfterFunc     AfterFunc
}

// Controller owns the session state machine of one browsing context.
//
// Every change of the cached session bumps epoch. Work that started under an
// older epoch (a verify, a renewal, the deferred re-check) is dropped when it
// completes, so a logout in another context is never undone by a late reply.
type Controller struct {
	log   *logger.Logger
	store *Store
	api   AuthAPI
	bus   bus.Bus

	origin        string
	recheckDelay  time.Duration
	verifyTimeout time.Duration
	afterFunc     AfterFunc

	renewals singleflight.Group

	mu        sync.Mutex
	state     types.State
	session   types.Session
	epoch     uint64
	recheck   Timer
	listeners []func(from, to types.State)
	unwatch   func()
}

func NewController(log *logger.Logger, store *Store, api AuthAPI, b bus.Bus, opts Options) *Controller {
	if opts.RecheckDelay <= 0 {
		opts.RecheckDelay = 30 * time.Second
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &Controller{
		log:           logger.OrNop(log).With("component", "SessionController"),
		store:         store,
		api:           api,
		bus:           b,
		origin:        opts.Origin,
		recheckDelay:  opts.RecheckDelay,
		verifyTimeout: opts.VerifyTimeout,
		afterFunc:     opts.AfterFunc,
		state:         types.StateUninitialized,
	}
}

func (c *Controller) State() types.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Session() types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// IsAuthenticated is true in AUTHENTICATED and while a renewal is in flight.
func (c *Controller) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == types.StateAuthenticated || c.state == types.StateRenewing
}

func (c *Controller) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.AccessToken
}

// OnStateChange registers fn for every transition. fn runs without the
// controller's lock held.
func (c *Controller) OnStateChange(fn func(from, to types.State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Initialize hydrates the session from storage and verifies it with the server.
func (c *Controller) Initialize(ctx context.Context) error {
	sess := c.store.Get(ctx)
	if !sess.Authenticated() {
		var err error
		if !sess.Empty() {
			err = c.store.Clear(ctx)
		}
		c.replace(types.Session{}, types.StateAnonymous)
		return err
	}

	epoch := c.replace(sess, types.StateVerifying)
	c.verify(ctx, epoch, sess, true)
	return nil
}

// verify runs the verification path. On the first attempt a transport failure
// keeps the cached session provisionally and schedules one re-check; on the
// re-check any failure takes the rejection path.
func (c *Controller) verify(ctx context.Context, epoch uint64, sess types.Session, first bool) {
	vctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	valid, err := c.api.Verify(vctx, sess.AccessToken)
	cancel()

	switch {
	case err == nil && valid:
		c.setStateIf(epoch, types.StateAuthenticated)
		return
	case err != nil && first:
		c.log.Warn("session verify unavailable, keeping cached session", "error", err)
		if c.setStateIf(epoch, types.StateAuthenticated) {
			c.scheduleRecheck(epoch)
		}
		return
	case err != nil:
		c.log.Warn("session re-check failed", "error", err)
	default:
		c.log.Info("cached session rejected, renewing")
	}

	if !c.setStateIf(epoch, types.StateRenewing) {
		return
	}
	if _, err := c.Renew(ctx); err != nil {
		c.log.Info("session renewal after rejection failed", "error", err)
	}
}

func (c *Controller) scheduleRecheck(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.recheck != nil {
		return
	}
	c.recheck = c.afterFunc(c.recheckDelay, func() { c.runRecheck(epoch) })
}

func (c *Controller) runRecheck(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.recheck = nil
	sess := c.session
	c.mu.Unlock()

	c.verify(context.Background(), epoch, sess, false)
}

// Login stores the session returned by the server. Rejected credentials and
// unreachable servers are failed results.
func (c *Controller) Login(ctx context.Context, creds types.Credentials) types.Result {
	sess, err := c.api.Login(ctx, creds)
	if err != nil {
		switch {
		case apierr.IsAuth(err):
			return types.Failed("invalid email or password", err)
		case apierr.IsValidation(err):
			return types.Failed("", err)
		default:
			c.log.Warn("login failed", "error", err)
			return types.Failed("could not reach the store, please try again", err)
		}
	}
	if !sess.Authenticated() {
		return types.Failed("the store returned an incomplete session", errors.New("incomplete login response"))
	}
	if err := c.store.Set(ctx, sess); err != nil {
		c.log.Error("persist session failed", "error", err)
		return types.Failed("could not save the session", err)
	}
	c.replace(sess, types.StateAuthenticated)
	return types.Succeeded()
}

// Register creates an account. It does not sign in.
func (c *Controller) Register(ctx context.Context, reg types.Registration) types.Result {
	if err := c.api.Register(ctx, reg); err != nil {
		if apierr.IsValidation(err) {
			return types.Failed("", err)
		}
		c.log.Warn("register failed", "error", err)
		return types.Failed("could not reach the store, please try again", err)
	}
	return types.Succeeded()
}

// Logout tells the server on a best-effort basis, then always clears locally.
func (c *Controller) Logout(ctx context.Context) error {
	sess := c.Session()
	if sess.AccessToken != "" || sess.RenewalToken != "" {
		if err := c.api.Logout(ctx, sess.AccessToken, sess.RenewalToken); err != nil {
			c.log.Warn("remote logout failed, clearing local session anyway", "error", err)
		}
	}
	err := c.store.Clear(ctx)
	c.replace(types.Session{}, types.StateAnonymous)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Renew exchanges the renewal token for a new pair. Concurrent callers share one
// exchange. Any failure tears the session down and broadcasts expiry.
func (c *Controller) Renew(ctx context.Context) (types.Session, error) {
	v, err, _ := c.renewals.Do("renew", func() (interface{}, error) {
		return c.renew(ctx)
	})
	if err != nil {
		return types.Session{}, err
	}
	return v.(types.Session), nil
}

func (c *Controller) renew(ctx context.Context) (types.Session, error) {
	c.mu.Lock()
	sess, epoch := c.session, c.epoch
	c.mu.Unlock()
	c.setStateIf(epoch, types.StateRenewing)

	if sess.RenewalToken == "" {
		c.Expire(ctx)
		return types.Session{}, apierr.Auth(apierr.ErrNoRenewalToken)
	}

	pair, err := c.api.Renew(ctx, sess.RenewalToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("renewal returned no access token")
	}
	if err != nil {
		c.log.Warn("session renewal failed", "error", err)
		if c.currentEpoch() == epoch {
			c.Expire(ctx)
		}
		return types.Session{}, fmt.Errorf("renew session: %w", err)
	}

	renewed := sess.WithTokens(pair)
	if c.currentEpoch() != epoch {
		return types.Session{}, apierr.Auth(errors.New("session changed during renewal"))
	}
	if err := c.store.Set(ctx, renewed); err != nil {
		c.log.Error("persist renewed session failed", "error", err)
		c.Expire(ctx)
		return types.Session{}, fmt.Errorf("persist renewed session: %w", err)
	}
	c.replace(renewed, types.StateAuthenticated)
	return renewed, nil
}

// Expire tears the session down after an authorization failure and broadcasts
// the expiry signal.
func (c *Controller) Expire(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("clear expired session failed", "error", err)
	}
	c.replace(types.Session{}, types.StateAnonymous)

	if c.bus == nil {
		return
	}
	msg := realtime.Message{Channel: realtime.ChannelSession, Event: realtime.EventSessionExpired, Origin: c.origin}
	if err := c.bus.Publish(context.WithoutCancel(ctx), msg); err != nil {
		c.log.Warn("session expiry not broadcast", "error", err)
	}
}

// HandleExternalChange mirrors a write another browsing context made to the
// shared storage. It never calls the server.
func (c *Controller) HandleExternalChange(ctx context.Context, ch storage.Change) {
	if ch.Key != KeyAccessToken {
		return
	}
	if !ch.Present {
		if c.State() != types.StateAnonymous {
			c.log.Info("access token cleared by another context")
		}
		c.replace(types.Session{}, types.StateAnonymous)
		return
	}

	sess := c.store.Get(ctx)
	if !sess.Authenticated() {
		c.log.Debug("ignoring partial external session write")
		return
	}
	if sess.AccessToken == c.AccessToken() {
		return
	}
	c.log.Info("adopting session written by another context")
	c.replace(sess, types.StateAuthenticated)
}

// Watch starts mirroring changes made through other views of the same storage.
func (c *Controller) Watch(ctx context.Context, w Watcher) error {
	stop, err := w.Watch(ctx, func(ch storage.Change) { c.HandleExternalChange(ctx, ch) })
	if err != nil {
		return fmt.Errorf("watch session storage: %w", err)
	}
	c.mu.Lock()
	if c.unwatch != nil {
		c.unwatch()
	}
	c.unwatch = stop
	c.mu.Unlock()
	return nil
}

// Close stops the storage watch and any pending re-check.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	c.stopRecheckLocked()
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// replace swaps the cached session, moves to state and returns the new epoch.
func (c *Controller) replace(sess types.Session, state types.State) uint64 {
	c.mu.Lock()
	c.epoch++
	c.stopRecheckLocked()
	c.session = sess
	from := c.state
	c.state = state
	epoch := c.epoch
	listeners := c.listenersLocked(from, state)
	c.mu.Unlock()

	c.fire(listeners, from, state)
	return epoch
}

// setStateIf moves to state only if the session has not changed since epoch.
func (c *Controller) setStateIf(epoch uint64, state types.State) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	from := c.state
	c.state = state
	listeners := c.listenersLocked(from, state)
	c.mu.Unlock()

	c.fire(listeners, from, state)
	return true
}

func (c *Controller) listenersLocked(from, to types.State) []func(from, to types.State) {
	if from == to || len(c.listeners) == 0 {
		return nil
	}
	return slices.Clone(c.listeners)
}

func (c *Controller) fire(listeners []func(from, to types.State), from, to types.State) {
	if from != to {
		c.log.Debug("session state", "from", from.String(), "to", to.String())
	}
	for _, fn := range listeners {
		fn(from, to)
	}
}

func (c *Controller) stopRecheckLocked() {
	if c.recheck != nil {
		c.recheck.Stop()
		c.recheck = nil
	}
}
