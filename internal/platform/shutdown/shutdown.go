package shutdown

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// OnDone blocks until ctx is done, then runs stop with its own deadline of
// timeout so that cleanup is not cut short by the cancelled parent.
func OnDone(ctx context.Context, timeout time.Duration, stop func(context.Context) error) error {
	<-ctx.Done()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return stop(stopCtx)
}
