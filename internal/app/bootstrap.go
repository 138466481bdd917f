package app

import (
	"fmt"

	"github.com/Jenaru0/dela-storefront/internal/config"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/realtime"
	"github.com/Jenaru0/dela-storefront/internal/realtime/bus"
	"github.com/Jenaru0/dela-storefront/internal/storage"
)

type BootstrapErrorCode string

const (
	BootstrapErrorUnknownDriver BootstrapErrorCode = "unknown_driver"
	BootstrapErrorConnectFailed BootstrapErrorCode = "connect_failed"
)

// BootstrapError reports which provider could not be brought up.
type BootstrapError struct {
	Code      BootstrapErrorCode
	Component string
	Driver    string
	Cause     error
}

func (e *BootstrapError) Error() string {
	if e == nil {
		return "bootstrap failed"
	}
	return fmt.Sprintf("%s bootstrap failed (code=%s driver=%q): %v", e.Component, e.Code, e.Driver, e.Cause)
}

func (e *BootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func openBackend(log *logger.Logger, cfg config.StorageConfig) (storage.Backend, error) {
	fail := func(code BootstrapErrorCode, cause error) error {
		err := &BootstrapError{Code: code, Component: "storage", Driver: cfg.Driver, Cause: cause}
		log.Error("storage provider selection failed", "driver", cfg.Driver, "error_code", code, "error", cause)
		return err
	}

	switch cfg.Driver {
	case config.DriverMemory, "":
		return storage.NewMemoryBackend(), nil
	case config.DriverSQLite, config.DriverPostgres:
		b, err := storage.OpenGorm(log, cfg.Driver, cfg.DSN, cfg.KeyPrefix)
		if err != nil {
			return nil, fail(BootstrapErrorConnectFailed, err)
		}
		return b, nil
	case config.DriverRedis:
		b, err := storage.OpenRedis(cfg.RedisAddr, cfg.KeyPrefix)
		if err != nil {
			return nil, fail(BootstrapErrorConnectFailed, err)
		}
		return b, nil
	default:
		return nil, fail(BootstrapErrorUnknownDriver, fmt.Errorf("unsupported storage driver %q", cfg.Driver))
	}
}

func openBus(log *logger.Logger, cfg config.BusConfig) (bus.Bus, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return realtime.NewHub(log), nil
	case config.DriverRedis:
		b, err := bus.NewRedisBus(log, cfg.RedisAddr, cfg.Channel)
		if err != nil {
			log.Error("bus provider selection failed", "driver", cfg.Driver, "error", err)
			return nil, &BootstrapError{Code: BootstrapErrorConnectFailed, Component: "bus", Driver: cfg.Driver, Cause: err}
		}
		return b, nil
	default:
		return nil, &BootstrapError{Code: BootstrapErrorUnknownDriver, Component: "bus", Driver: cfg.Driver, Cause: fmt.Errorf("unsupported bus driver %q", cfg.Driver)}
	}
}
