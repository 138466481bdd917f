package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jenaru0/dela-storefront/internal/clients/storefront"
	"github.com/Jenaru0/dela-storefront/internal/config"
	"github.com/Jenaru0/dela-storefront/internal/observability"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime/bus"
	"github.com/Jenaru0/dela-storefront/internal/storage"
)

// App holds what every browsing context of one process shares: the persisted
// storage, the signal bus and the API client.
type App struct {
	Log    *logger.Logger
	Cfg    *config.Config
	Client *storefront.Client
	Bus    bus.Bus
	Area   *storage.Area

	backend      storage.Backend
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	log = logger.OrNop(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})

	client, err := storefront.New(storefront.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("init storefront client: %w", err)
	}

	backend, err := openBackend(log, cfg.Storage)
	if err != nil {
		return nil, err
	}
	b, err := openBus(log, cfg.Bus)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	log.Info("storefront client ready",
		"api", client.BaseURL(),
		"storage_driver", cfg.Storage.Driver,
		"bus_driver", cfg.Bus.Driver,
	)
	return &App{
		Log:          log,
		Cfg:          cfg,
		Client:       client,
		Bus:          b,
		Area:         storage.NewArea(log, backend, b),
		backend:      backend,
		otelShutdown: otelShutdown,
	}, nil
}

// Close releases the bus, the storage backend and the tracer provider.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(ctx))
	}
	a.Log.Sync()
	return errors.Join(errs...)
}
