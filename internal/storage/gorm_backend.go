package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

type entry struct {
	Prefix    string    `gorm:"column:prefix;primaryKey;size:64"`
	Key       string    `gorm:"column:entry_key;primaryKey;size:128"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (entry) TableName() string { return "client_storage" }

// GormBackend keeps entries in the client_storage table, scoped by prefix so
// several storefronts can share one database file.
type GormBackend struct {
	db     *gorm.DB
	log    *logger.Logger
	prefix string
}

// OpenGorm opens a sqlite or postgres database and migrates the storage table.
func OpenGorm(log *logger.Logger, driver, dsn, prefix string) (*GormBackend, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	return NewGormBackend(log, db, prefix)
}

func NewGormBackend(log *logger.Logger, db *gorm.DB, prefix string) (*GormBackend, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate client_storage: %w", err)
	}
	return &GormBackend{
		db:     db,
		log:    logger.OrNop(log).With("service", "GormStorage"),
		prefix: prefix,
	}, nil
}

func (g *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var row entry
	err := g.db.WithContext(ctx).
		Where("prefix = ? AND entry_key = ?", g.prefix, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (g *GormBackend) Set(ctx context.Context, key, value string) error {
	row := entry{Prefix: g.prefix, Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (g *GormBackend) Delete(ctx context.Context, key string) error {
	err := g.db.WithContext(ctx).
		Where("prefix = ? AND entry_key = ?", g.prefix, key).
		Delete(&entry{}).Error
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (g *GormBackend) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
