package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime"
	"github.com/Jenaru0/dela-storefront/internal/realtime/bus"
)

// Change describes a write made through some view. Views only ever see changes
// made by other views.
type Change struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
}

// Area is one storage space plus the bus that announces writes to it.
type Area struct {
	backend Backend
	bus     bus.Bus
	log     *logger.Logger
}

func NewArea(log *logger.Logger, backend Backend, b bus.Bus) *Area {
	return &Area{
		backend: backend,
		bus:     b,
		log:     logger.OrNop(log).With("component", "StorageArea"),
	}
}

// Open returns a view for one browsing context.
func (a *Area) Open() *View {
	return &View{area: a, origin: uuid.NewString()}
}

type View struct {
	area   *Area
	origin string
}

func (v *View) Origin() string { return v.origin }

func (v *View) Get(ctx context.Context, key string) (string, bool, error) {
	return v.area.backend.Get(ctx, key)
}

func (v *View) Set(ctx context.Context, key, value string) error {
	if err := v.area.backend.Set(ctx, key, value); err != nil {
		return err
	}
	v.announce(ctx, Change{Key: key, Present: true})
	return nil
}

func (v *View) Delete(ctx context.Context, key string) error {
	if err := v.area.backend.Delete(ctx, key); err != nil {
		return err
	}
	v.announce(ctx, Change{Key: key, Present: false})
	return nil
}

// Watch calls fn for changes made by other views of the same area.
func (v *View) Watch(ctx context.Context, fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, errors.New("callback required")
	}
	if v.area.bus == nil {
		return func() {}, nil
	}
	return v.area.bus.Subscribe(ctx, realtime.ChannelStorage, func(m realtime.Message) {
		if m.Event != realtime.EventStorageChanged || m.Origin == v.origin {
			return
		}
		var ch Change
		if err := m.Decode(&ch); err != nil {
			v.area.log.Warn("bad storage change payload", "error", err)
			return
		}
		fn(ch)
	})
}

func (v *View) announce(ctx context.Context, ch Change) {
	if v.area.bus == nil {
		return
	}
	msg, err := realtime.NewMessage(realtime.ChannelStorage, realtime.EventStorageChanged, v.origin, ch)
	if err == nil {
		err = v.area.bus.Publish(ctx, msg)
	}
	if err != nil {
		v.area.log.Warn("storage change not announced", "key", ch.Key, "error", err)
	}
}
