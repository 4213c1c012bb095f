package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/infrastructure/persistence"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/configuration"
)

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, configuration.Use().Database.Opts)
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("db connect failed: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("db ping failed: %w", err))
	}
	return pool, nil
}

// withStore connects to the database and hands fn a context carrying the
// pool, the configured logger and the postgres backed services.
func withStore(ctx context.Context, fn func(ctx context.Context, svc *services.StructureService, versions *services.VersionService) error) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	conf := configuration.Use()
	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, conf.Logger().WithField("entrypoint", "structure-cli"))
	repo := persistence.NewStructureRepository()
	svc := services.NewStructureService(repo, nil, structure.ServiceOptions(conf.Structure))
	return fn(ctx, svc, services.NewVersionService(repo, nil))
}
