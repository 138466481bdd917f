package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOnDoneRunsStopWithLiveContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	want := errors.New("stopped")
	err := OnDone(ctx, time.Second, func(stopCtx context.Context) error {
		if stopCtx.Err() != nil {
			t.Fatalf("stop context already done: %v", stopCtx.Err())
		}
		if _, ok := stopCtx.Deadline(); !ok {
			t.Fatalf("stop context has no deadline")
		}
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("OnDone: %v", err)
	}
}
