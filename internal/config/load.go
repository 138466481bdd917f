package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jenaru0/dela-storefront/internal/platform/envutil"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	s := strings.TrimSpace(n.Value)
	if s == "" || n.Tag == "!!null" {
		d.Duration = 0
		return nil
	}
	if n.Tag == "!!int" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
		}
		d.Duration = time.Duration(v)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env:         "development",
		ServiceName: "dela-storefront",
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: Duration{Duration: 15 * time.Second},
		},
		Storage: StorageConfig{
			Driver:    DriverMemory,
			KeyPrefix: "dela",
		},
		Bus: BusConfig{
			Driver:  DriverMemory,
			Channel: "dela",
		},
		Session: SessionConfig{
			RecheckDelay:  Duration{Duration: 30 * time.Second},
			VerifyTimeout: Duration{Duration: 10 * time.Second},
		},
		Cart: CartConfig{
			SyncDelay: Duration{Duration: 1500 * time.Millisecond},
		},
		DevServer: DevServerConfig{
			Addr:            ":8080",
			AccessTTL:       Duration{Duration: 15 * time.Minute},
			RefreshTTL:      Duration{Duration: 7 * 24 * time.Hour},
			ShutdownTimeout: Duration{Duration: 10 * time.Second},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("STOREFRONT_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "storefront.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw YAML on top of the defaults and validates the result.
// Environment overrides are not applied.
func Parse(raw []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.Version = envutil.String("STOREFRONT_VERSION", cfg.Version)

	cfg.API.BaseURL = envutil.String("STOREFRONT_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout.Duration = envutil.Seconds("STOREFRONT_API_TIMEOUT_SECONDS", cfg.API.Timeout.Duration)

	cfg.Storage.Driver = envutil.String("STOREFRONT_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = envutil.String("STOREFRONT_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Storage.RedisAddr = envutil.String("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.KeyPrefix = envutil.String("STOREFRONT_STORAGE_PREFIX", cfg.Storage.KeyPrefix)

	cfg.Bus.Driver = envutil.String("STOREFRONT_BUS_DRIVER", cfg.Bus.Driver)
	cfg.Bus.RedisAddr = envutil.String("REDIS_ADDR", cfg.Bus.RedisAddr)
	cfg.Bus.Channel = envutil.String("REDIS_CHANNEL", cfg.Bus.Channel)

	cfg.Session.RecheckDelay.Duration = envutil.Seconds("STOREFRONT_SESSION_RECHECK_SECONDS", cfg.Session.RecheckDelay.Duration)
	cfg.Cart.SyncDelay.Duration = envutil.Millis("STOREFRONT_CART_SYNC_MS", cfg.Cart.SyncDelay.Duration)

	cfg.DevServer.Addr = envutil.String("DEVSERVER_ADDR", cfg.DevServer.Addr)
	cfg.DevServer.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.DevServer.JWTSecret)
	cfg.DevServer.AccessTTL.Duration = envutil.Seconds("ACCESS_TOKEN_TTL", cfg.DevServer.AccessTTL.Duration)
	cfg.DevServer.RefreshTTL.Duration = envutil.Seconds("REFRESH_TOKEN_TTL", cfg.DevServer.RefreshTTL.Duration)
}

func (cfg *Config) normalize() error {
	def := defaultConfig()

	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = def.Env
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = def.ServiceName
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if cfg.API.Timeout.Duration <= 0 {
		cfg.API.Timeout = def.API.Timeout
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "":
		cfg.Storage.Driver = DriverMemory
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", cfg.Storage.Driver)
		}
	case DriverRedis:
		if strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
			return errors.New("storage.redis_addr is required for driver \"redis\"")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	if strings.TrimSpace(cfg.Storage.KeyPrefix) == "" {
		cfg.Storage.KeyPrefix = def.Storage.KeyPrefix
	}

	cfg.Bus.Driver = strings.ToLower(strings.TrimSpace(cfg.Bus.Driver))
	switch cfg.Bus.Driver {
	case "":
		cfg.Bus.Driver = DriverMemory
	case DriverMemory:
	case DriverRedis:
		if strings.TrimSpace(cfg.Bus.RedisAddr) == "" {
			return errors.New("bus.redis_addr is required for driver \"redis\"")
		}
	default:
		return fmt.Errorf("unknown bus.driver %q", cfg.Bus.Driver)
	}
	if strings.TrimSpace(cfg.Bus.Channel) == "" {
		cfg.Bus.Channel = def.Bus.Channel
	}

	if cfg.Session.RecheckDelay.Duration <= 0 {
		cfg.Session.RecheckDelay = def.Session.RecheckDelay
	}
	if cfg.Session.VerifyTimeout.Duration <= 0 {
		cfg.Session.VerifyTimeout = def.Session.VerifyTimeout
	}
	if cfg.Cart.SyncDelay.Duration <= 0 {
		cfg.Cart.SyncDelay = def.Cart.SyncDelay
	}

	if strings.TrimSpace(cfg.DevServer.Addr) == "" {
		cfg.DevServer.Addr = def.DevServer.Addr
	}
	if cfg.DevServer.AccessTTL.Duration <= 0 {
		cfg.DevServer.AccessTTL = def.DevServer.AccessTTL
	}
	if cfg.DevServer.RefreshTTL.Duration <= 0 {
		cfg.DevServer.RefreshTTL = def.DevServer.RefreshTTL
	}
	if cfg.DevServer.ShutdownTimeout.Duration <= 0 {
		cfg.DevServer.ShutdownTimeout = def.DevServer.ShutdownTimeout
	}
	for i := range cfg.DevServer.Products {
		p := &cfg.DevServer.Products[i]
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("devserver.products[%d] missing id", i)
		}
		if p.Stock < 0 || p.ReserveMinimum < 0 {
			return fmt.Errorf("devserver product %q has negative stock figures", p.ID)
		}
	}
	return nil
}
