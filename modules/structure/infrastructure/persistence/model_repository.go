package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

func (r *StructureRepository) ListModels(ctx context.Context, datasetID int64) ([]*structure.Model, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, base_id, distribution_id
		FROM models
		WHERE dataset_id = $1
		ORDER BY id`, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	defer rows.Close()

	var out []*structure.Model
	for rows.Next() {
		var m structure.Model
		if err := rows.Scan(&m.ID, &m.DatasetID, &m.BaseID, &m.DistributionID); err != nil {
			return nil, errors.Wrap(err, "scan model")
		}
		out = append(out, &m)
	}
	return out, errors.Wrap(rows.Err(), "list models")
}

func (r *StructureRepository) CreateModel(ctx context.Context, m *structure.Model) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO models (dataset_id, base_id, distribution_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		m.DatasetID, m.BaseID, m.DistributionID,
	).Scan(&m.ID)
	return errors.Wrap(err, "create model")
}

func (r *StructureRepository) UpdateModel(ctx context.Context, m *structure.Model) error {
	return updated(ctx, "model",
		`UPDATE models SET base_id = $2, distribution_id = $3 WHERE id = $1`,
		m.ID, m.BaseID, m.DistributionID)
}

func (r *StructureRepository) DeleteModel(ctx context.Context, id int64) error {
	return deleteOwned(ctx, "models", structure.Owner{Kind: structure.KindModel, ID: id})
}

func (r *StructureRepository) ListProperties(ctx context.Context, modelID int64) ([]*structure.Property, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, model_id, ref_model_id, parent_id, given
		FROM properties
		WHERE model_id = $1
		ORDER BY id`, modelID)
	if err != nil {
		return nil, errors.Wrap(err, "list properties")
	}
	defer rows.Close()

	var out []*structure.Property
	for rows.Next() {
		var p structure.Property
		if err := rows.Scan(&p.ID, &p.ModelID, &p.RefModelID, &p.ParentID, &p.Given); err != nil {
			return nil, errors.Wrap(err, "scan property")
		}
		out = append(out, &p)
	}
	return out, errors.Wrap(rows.Err(), "list properties")
}

func (r *StructureRepository) CreateProperty(ctx context.Context, p *structure.Property) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO properties (model_id, ref_model_id, parent_id, given)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		p.ModelID, p.RefModelID, p.ParentID, p.Given,
	).Scan(&p.ID)
	return errors.Wrap(err, "create property")
}

func (r *StructureRepository) UpdateProperty(ctx context.Context, p *structure.Property) error {
	return updated(ctx, "property",
		`UPDATE properties SET ref_model_id = $2, parent_id = $3, given = $4 WHERE id = $1`,
		p.ID, p.RefModelID, p.ParentID, p.Given)
}

func (r *StructureRepository) DeleteProperty(ctx context.Context, id int64) error {
	return deleteOwned(ctx, "properties", structure.Owner{Kind: structure.KindProperty, ID: id})
}

func (r *StructureRepository) ListBases(ctx context.Context, datasetID int64) ([]*structure.Base, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, model_id
		FROM bases
		WHERE dataset_id = $1
		ORDER BY id`, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list bases")
	}
	defer rows.Close()

	var out []*structure.Base
	for rows.Next() {
		var b structure.Base
		if err := rows.Scan(&b.ID, &b.DatasetID, &b.ModelID); err != nil {
			return nil, errors.Wrap(err, "scan base")
		}
		out = append(out, &b)
	}
	return out, errors.Wrap(rows.Err(), "list bases")
}

func (r *StructureRepository) CreateBase(ctx context.Context, b *structure.Base) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO bases (dataset_id, model_id)
		VALUES ($1, $2)
		RETURNING id`,
		b.DatasetID, b.ModelID,
	).Scan(&b.ID)
	return errors.Wrap(err, "create base")
}

func (r *StructureRepository) UpdateBase(ctx context.Context, b *structure.Base) error {
	return updated(ctx, "base", `UPDATE bases SET model_id = $2 WHERE id = $1`, b.ID, b.ModelID)
}

func (r *StructureRepository) DeleteBase(ctx context.Context, id int64) error {
	return deleteOwned(ctx, "bases", structure.Owner{Kind: structure.KindBase, ID: id})
}
