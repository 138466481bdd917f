package config

import "time"

type Duration struct {
	time.Duration
}

type Config struct {
	Env         string `yaml:"env"`
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`

	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Bus       BusConfig       `yaml:"bus"`
	Session   SessionConfig   `yaml:"session"`
	Cart      CartConfig      `yaml:"cart"`
	DevServer DevServerConfig `yaml:"devserver"`
}

type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// StorageConfig selects where the client-persisted session keys live.
// Driver is one of memory, sqlite, postgres or redis.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redis_addr"`
	KeyPrefix string `yaml:"key_prefix"`
}

// BusConfig selects how storage and session signals reach other browsing contexts.
// Driver is memory (same process) or redis.
type BusConfig struct {
	Driver    string `yaml:"driver"`
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

type SessionConfig struct {
	RecheckDelay  Duration `yaml:"recheck_delay"`
	VerifyTimeout Duration `yaml:"verify_timeout"`
}

type CartConfig struct {
	SyncDelay Duration `yaml:"sync_delay"`
}

type DevServerConfig struct {
	Addr            string          `yaml:"addr"`
	JWTSecret       string          `yaml:"jwt_secret"`
	AccessTTL       Duration        `yaml:"access_ttl"`
	RefreshTTL      Duration        `yaml:"refresh_ttl"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"`
	Products        []ProductConfig `yaml:"products"`
}

type ProductConfig struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	UnitPrice      float64 `yaml:"unit_price"`
	Stock          int     `yaml:"stock"`
	ReserveMinimum int     `yaml:"reserve_minimum"`
	Category       string  `yaml:"category"`
	Image          string  `yaml:"image"`
}
