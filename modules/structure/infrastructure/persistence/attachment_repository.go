package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

func (r *StructureRepository) ListPrefixes(ctx context.Context, datasetID int64) ([]*structure.Prefix, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT id, dataset_id FROM prefixes WHERE dataset_id = $1 ORDER BY id`, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list prefixes")
	}
	defer rows.Close()

	var out []*structure.Prefix
	for rows.Next() {
		var p structure.Prefix
		if err := rows.Scan(&p.ID, &p.DatasetID); err != nil {
			return nil, errors.Wrap(err, "scan prefix")
		}
		out = append(out, &p)
	}
	return out, errors.Wrap(rows.Err(), "list prefixes")
}

func (r *StructureRepository) CreatePrefix(ctx context.Context, p *structure.Prefix) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `INSERT INTO prefixes (dataset_id) VALUES ($1) RETURNING id`, p.DatasetID).Scan(&p.ID)
	return errors.Wrap(err, "create prefix")
}

func (r *StructureRepository) DeletePrefix(ctx context.Context, id int64) error {
	return deleteOwned(ctx, "prefixes", structure.Owner{Kind: structure.KindPrefix, ID: id})
}

func (r *StructureRepository) ListGroups(ctx context.Context, parent structure.Owner, kind structure.Kind) ([]*structure.Group, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, kind, parent_type, parent_id, name
		FROM structure_groups
		WHERE parent_type = $1 AND parent_id = $2 AND kind = $3
		ORDER BY id`, string(parent.Kind), parent.ID, string(kind))
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	defer rows.Close()

	var out []*structure.Group
	for rows.Next() {
		var (
			g                    structure.Group
			groupKind, parentKind string
		)
		if err := rows.Scan(&g.ID, &g.DatasetID, &groupKind, &parentKind, &g.Parent.ID, &g.Name); err != nil {
			return nil, errors.Wrap(err, "scan group")
		}
		g.Kind, g.Parent.Kind = structure.Kind(groupKind), structure.Kind(parentKind)
		out = append(out, &g)
	}
	return out, errors.Wrap(rows.Err(), "list groups")
}

func (r *StructureRepository) CreateGroup(ctx context.Context, g *structure.Group) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO structure_groups (dataset_id, kind, parent_type, parent_id, name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		g.DatasetID, string(g.Kind), string(g.Parent.Kind), g.Parent.ID, g.Name,
	).Scan(&g.ID)
	return errors.Wrap(err, "create group")
}

func (r *StructureRepository) DeleteGroup(ctx context.Context, g *structure.Group) error {
	return deleteOwned(ctx, "structure_groups", g.Owner())
}

func (r *StructureRepository) ListItems(ctx context.Context, g *structure.Group) ([]*structure.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, kind, group_id
		FROM structure_items
		WHERE group_id = $1
		ORDER BY id`, g.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	defer rows.Close()

	var out []*structure.Item
	for rows.Next() {
		var (
			it   structure.Item
			kind string
		)
		if err := rows.Scan(&it.ID, &it.DatasetID, &kind, &it.GroupID); err != nil {
			return nil, errors.Wrap(err, "scan item")
		}
		it.Kind = structure.Kind(kind)
		out = append(out, &it)
	}
	return out, errors.Wrap(rows.Err(), "list items")
}

func (r *StructureRepository) CreateItem(ctx context.Context, it *structure.Item) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO structure_items (dataset_id, kind, group_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		it.DatasetID, string(it.Kind), it.GroupID,
	).Scan(&it.ID)
	return errors.Wrap(err, "create item")
}

func (r *StructureRepository) DeleteItem(ctx context.Context, it *structure.Item) error {
	return deleteOwned(ctx, "structure_items", it.Owner())
}

func (r *StructureRepository) GetPropertyList(ctx context.Context, owner structure.Owner) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT property_id
		FROM property_lists
		WHERE content_type = $1 AND object_id = $2
		ORDER BY position`, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, errors.Wrap(err, "get property list")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan property list")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "get property list")
}

// SetPropertyList replaces the ordered list of owner. An empty list removes it.
func (r *StructureRepository) SetPropertyList(ctx context.Context, owner structure.Owner, ids []int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM property_lists WHERE content_type = $1 AND object_id = $2`,
		string(owner.Kind), owner.ID); err != nil {
		return errors.Wrap(err, "clear property list")
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{string(owner.Kind), owner.ID, i, id}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"property_lists"},
		[]string{"content_type", "object_id", "position", "property_id"},
		pgx.CopyFromRows(rows),
	)
	return errors.Wrap(err, "write property list")
}
