package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

func (r *StructureRepository) ListVersions(ctx context.Context, datasetID int64) ([]*structure.Version, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, name, description, created_at
		FROM versions
		WHERE dataset_id = $1
		ORDER BY id`, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list versions")
	}
	defer rows.Close()

	var out []*structure.Version
	for rows.Next() {
		var (
			v         structure.Version
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.DatasetID, &v.Name, &v.Description, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan version")
		}
		v.CreatedAt = asTime(createdAt)
		out = append(out, &v)
	}
	return out, errors.Wrap(rows.Err(), "list versions")
}

func (r *StructureRepository) CreateVersion(ctx context.Context, v *structure.Version) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
		INSERT INTO versions (dataset_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		v.DatasetID, v.Name, v.Description,
	).Scan(&v.ID, &createdAt)
	if err != nil {
		return errors.Wrap(err, "create version")
	}
	v.CreatedAt = asTime(createdAt)
	return nil
}

func (r *StructureRepository) CreateMetadataVersion(ctx context.Context, mv *structure.MetadataVersion) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO metadata_versions (version_id, metadata_id, version, name, type, ref, source,
			prepare, level_given, access, base)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		mv.VersionID, mv.MetadataID, mv.Version, mv.Name, mv.Type, mv.Ref, mv.Source,
		mv.Prepare, mv.LevelGiven, mv.Access, mv.Base,
	).Scan(&mv.ID)
	return errors.Wrap(err, "create metadata version")
}
