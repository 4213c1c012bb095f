package application

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"
)

// MigrationManager applies the goose migrations registered by modules.
// Every schema keeps its own version table so modules migrate independently.
type MigrationManager interface {
	RegisterSchema(name string, fsys fs.FS)
	Run(ctx context.Context) error
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
}

type schema struct {
	name string
	fsys fs.FS
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []schema
}

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

func (m *migrationManager) RegisterSchema(name string, fsys fs.FS) {
	m.schemas = append(m.schemas, schema{name: name, fsys: fsys})
}

func (m *migrationManager) providers() ([]*goose.Provider, func() error, error) {
	if m.pool == nil {
		return nil, nil, fmt.Errorf("migrations need a database pool")
	}
	db := stdlib.OpenDBFromPool(m.pool)
	providers := make([]*goose.Provider, 0, len(m.schemas))
	for _, s := range m.schemas {
		p, err := newProvider(db, s)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		providers = append(providers, p)
	}
	return providers, db.Close, nil
}

func newProvider(db *sql.DB, s schema) (*goose.Provider, error) {
	store, err := database.NewStore(database.DialectPostgres, "goose_"+s.name+"_version")
	if err != nil {
		return nil, fmt.Errorf("migration store %s: %w", s.name, err)
	}
	p, err := goose.NewProvider("", db, s.fsys, goose.WithStore(store), goose.WithDisableGlobalRegistry(true))
	if err != nil {
		return nil, fmt.Errorf("migration provider %s: %w", s.name, err)
	}
	return p, nil
}

func (m *migrationManager) Run(ctx context.Context) error {
	providers, closeDB, err := m.providers()
	if err != nil {
		return err
	}
	defer closeDB()
	for i, p := range providers {
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", m.schemas[i].name, err)
		}
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"schema":   m.schemas[i].name,
				"version":  r.Source.Version,
				"duration": r.Duration,
			}).Info("migration applied")
		}
	}
	return nil
}

// Rollback undoes the last migration of every schema, newest schema first.
func (m *migrationManager) Rollback(ctx context.Context) error {
	providers, closeDB, err := m.providers()
	if err != nil {
		return err
	}
	defer closeDB()
	for i := len(providers) - 1; i >= 0; i-- {
		r, err := providers[i].Down(ctx)
		if err != nil {
			return fmt.Errorf("rollback %s: %w", m.schemas[i].name, err)
		}
		m.logger.WithFields(logrus.Fields{
			"schema":  m.schemas[i].name,
			"version": r.Source.Version,
		}).Info("migration rolled back")
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	providers, closeDB, err := m.providers()
	if err != nil {
		return nil, err
	}
	defer closeDB()
	var out []*goose.MigrationStatus
	for i, p := range providers {
		st, err := p.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("status %s: %w", m.schemas[i].name, err)
		}
		out = append(out, st...)
	}
	return out, nil
}
