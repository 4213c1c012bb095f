package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

func (r *StructureRepository) GetDataset(ctx context.Context, id int64) (*structure.Dataset, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var (
		d         structure.Dataset
		createdAt pgtype.Timestamptz
	)
	err = tx.QueryRow(ctx, `SELECT id, name, created_at FROM datasets WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &createdAt)
	if err != nil {
		return nil, notFound(err, "get dataset")
	}
	d.CreatedAt = asTime(createdAt)
	return &d, nil
}

func (r *StructureRepository) CreateDataset(ctx context.Context, d *structure.Dataset) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt pgtype.Timestamptz
	if err := tx.QueryRow(ctx, `INSERT INTO datasets (name) VALUES ($1) RETURNING id, created_at`, d.Name).
		Scan(&d.ID, &createdAt); err != nil {
		return errors.Wrap(err, "create dataset")
	}
	d.CreatedAt = asTime(createdAt)
	return nil
}

func (r *StructureRepository) GetStructure(ctx context.Context, datasetID int64) (*structure.Structure, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var (
		s                    structure.Structure
		createdAt, updatedAt pgtype.Timestamptz
	)
	err = tx.QueryRow(ctx, `
		SELECT id, dataset_id, filename, format, content, created_at, updated_at
		FROM dataset_structures
		WHERE dataset_id = $1`, datasetID).
		Scan(&s.ID, &s.DatasetID, &s.Filename, &s.Format, &s.Content, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "get structure")
	}
	s.CreatedAt, s.UpdatedAt = asTime(createdAt), asTime(updatedAt)
	return &s, nil
}

// SaveStructure keeps one structure per dataset, replacing the file of an existing one.
func (r *StructureRepository) SaveStructure(ctx context.Context, s *structure.Structure) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt, updatedAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
		INSERT INTO dataset_structures (dataset_id, filename, format, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dataset_id) DO UPDATE
			SET filename = EXCLUDED.filename, format = EXCLUDED.format,
				content = EXCLUDED.content, updated_at = now()
		RETURNING id, created_at, updated_at`,
		s.DatasetID, s.Filename, s.Format, s.Content,
	).Scan(&s.ID, &createdAt, &updatedAt)
	if err != nil {
		return errors.Wrap(err, "save structure")
	}
	s.CreatedAt, s.UpdatedAt = asTime(createdAt), asTime(updatedAt)
	return nil
}

func (r *StructureRepository) ListDistributions(ctx context.Context, datasetID int64) ([]*structure.Distribution, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, title, download_url, type, format
		FROM distributions
		WHERE dataset_id = $1
		ORDER BY id`, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list distributions")
	}
	defer rows.Close()

	var out []*structure.Distribution
	for rows.Next() {
		var d structure.Distribution
		if err := rows.Scan(&d.ID, &d.DatasetID, &d.Title, &d.DownloadURL, &d.Type, &d.Format); err != nil {
			return nil, errors.Wrap(err, "scan distribution")
		}
		out = append(out, &d)
	}
	return out, errors.Wrap(rows.Err(), "list distributions")
}

func (r *StructureRepository) CreateDistribution(ctx context.Context, d *structure.Distribution) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO distributions (dataset_id, title, download_url, type, format)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.DatasetID, d.Title, d.DownloadURL, d.Type, d.Format,
	).Scan(&d.ID)
	return errors.Wrap(err, "create distribution")
}
