package persistence

import (
	"fmt"
	"time"

	"github.com/erp/jointenant/internal/infrastructure/config"
	"github.com/erp/jointenant/internal/infrastructure/logger"
	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"github.com/erp/jointenant/internal/infrastructure/persistence/models"
	"github.com/erp/jointenant/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database holds the database connection, the join tenant registry installed
// on it and the declared model associations.
type Database struct {
	DB        *gorm.DB
	Registry  *association.Registry
	Relations *models.Associations
}

type openOptions struct {
	logger        *zap.Logger
	tracing       telemetry.DBTracingConfig
	augmentorOpts []association.AugmentorOption
	skipPing      bool
}

// Option configures Open and NewDatabase.
type Option func(*openOptions)

// WithLogger routes gorm and guard logging through l.
func WithLogger(l *zap.Logger) Option {
	return func(o *openOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracing installs the otelgorm tracing plugin configured by cfg.
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *openOptions) {
		o.tracing = cfg
	}
}

// WithAugmentorOptions passes extra options to the Augmentor that declares
// the model associations.
func WithAugmentorOptions(opts ...association.AugmentorOption) Option {
	return func(o *openOptions) {
		o.augmentorOpts = append(o.augmentorOpts, opts...)
	}
}

// WithoutPing skips the connectivity check, for dialectors backed by mocks.
func WithoutPing() Option {
	return func(o *openOptions) {
		o.skipPing = true
	}
}

// NewDatabase opens the database selected by cfg.Driver.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return Open(Dialector(cfg), cfg, opts...)
}

// Dialector returns the gorm dialector for cfg.Driver.
func Dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "sqlite" {
		return sqlite.Open(cfg.Path)
	}
	return postgres.Open(cfg.DSN())
}

// Open connects through dialector, installs the join tenant registry and
// tracing, and declares every model association. Declarations precede any
// migration so join tables carry their tenant columns.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	gormLogger := logger.NewGormLogger(o.logger, logger.MapGormLogLevel(cfg.LogLevel))
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" && cfg.Path == ":memory:" {
		// every connection to :memory: is a separate database, so keep exactly one
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if !o.skipPing {
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	registry := association.NewRegistry()
	if err := db.Use(registry); err != nil {
		return nil, fmt.Errorf("failed to install join tenant registry: %w", err)
	}
	if err := db.Use(telemetry.NewDBTracingPlugin(o.tracing, o.logger)); err != nil {
		return nil, fmt.Errorf("failed to install database tracing: %w", err)
	}

	augOpts := append(models.TenantTypes(), association.WithLogger(o.logger))
	augOpts = append(augOpts, o.augmentorOpts...)
	relations, err := models.DeclareAssociations(
		association.NewAugmentor(association.NewGormDeclarer(db, registry), augOpts...),
	)
	if err != nil {
		return nil, err
	}

	return &Database{DB: db, Registry: registry, Relations: relations}, nil
}

// AutoMigrate creates or updates the schema of every model.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes fn within a database transaction. Join rows created
// inside it are guarded like any other.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}

// Articles returns an article repository bound to this database.
func (d *Database) Articles() *GormArticleRepository {
	return NewGormArticleRepository(d.DB, d.Relations)
}

// Users returns a user repository bound to this database.
func (d *Database) Users() *GormUserRepository {
	return NewGormUserRepository(d.DB, d.Relations)
}
