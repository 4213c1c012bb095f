package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/repo"
)

// StructureRepository stores dataset structures in Postgres. Every method
// runs on the transaction carried by ctx, or on the pool when there is none.
type StructureRepository struct{}

var _ structure.Repository = (*StructureRepository)(nil)

func NewStructureRepository() *StructureRepository {
	return &StructureRepository{}
}

func (r *StructureRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return composables.InTx(ctx, fn)
}

// LockDataset takes a transaction scoped advisory lock keyed by the dataset id.
func (r *StructureRepository) LockDataset(ctx context.Context, id int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
		return errors.Wrapf(err, "lock dataset %d", id)
	}
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func asUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func asTime(v pgtype.Timestamptz) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

// notFound maps a missing row to the domain sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return structure.ErrNotFound
	}
	return errors.Wrap(err, what)
}

// dropOwner removes everything attached to owner through the generic relation.
func dropOwner(ctx context.Context, tx repo.Tx, owner structure.Owner) error {
	for _, q := range []string{
		`DELETE FROM structure_metadata WHERE content_type = $1 AND object_id = $2`,
		`DELETE FROM property_lists WHERE content_type = $1 AND object_id = $2`,
		`DELETE FROM comments WHERE content_type = $1 AND object_id = $2`,
	} {
		if _, err := tx.Exec(ctx, q, string(owner.Kind), owner.ID); err != nil {
			return errors.Wrapf(err, "drop %s", owner)
		}
	}
	return nil
}

// deleteOwned deletes the record with id from table, then what hangs off it.
func deleteOwned(ctx context.Context, table string, owner structure.Owner) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, owner.ID); err != nil {
		return errors.Wrapf(err, "delete %s", owner)
	}
	return dropOwner(ctx, tx, owner)
}

// updated reports ErrNotFound when an UPDATE touched no row.
func updated(ctx context.Context, what, sql string, args ...any) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrapf(err, "update %s", what)
	}
	if tag.RowsAffected() == 0 {
		return structure.ErrNotFound
	}
	return nil
}
