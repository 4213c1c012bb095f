package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

const metadataColumns = `id, dataset_id, content_type, object_id, uuid, name, type, ref, source,
	prepare, prepare_ast, level, level_given, average_level, access, uri, title, description,
	version, "order", draft, created_at, updated_at`

const uniqueViolation = "23505"

func buildMetadataFilters(f structure.MetadataFilter) ([]string, []any) {
	where := []string{"TRUE"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.DatasetID != 0 {
		add("dataset_id = $%d", f.DatasetID)
	}
	if f.Kind != "" {
		add("content_type = $%d", string(f.Kind))
	}
	if f.Owner != nil {
		add("content_type = $%d", string(f.Owner.Kind))
		add("object_id = $%d", f.Owner.ID)
	}
	if f.UUID != nil {
		add("uuid = $%d", pgUUID(*f.UUID))
	}
	if f.Name != nil {
		add("name = $%d", *f.Name)
	}
	if f.DraftOnly {
		where = append(where, "draft")
	}
	return where, args
}

func (r *StructureRepository) FindMetadata(ctx context.Context, f structure.MetadataFilter) ([]*structure.Metadata, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildMetadataFilters(f)
	rows, err := tx.Query(ctx, `SELECT `+metadataColumns+`
		FROM structure_metadata
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "find metadata")
	}
	defer rows.Close()

	var out []*structure.Metadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "find metadata")
	}
	return out, nil
}

func scanMetadata(row pgx.Row) (*structure.Metadata, error) {
	var (
		m         structure.Metadata
		kind      string
		id        pgtype.UUID
		ast       []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&m.ID, &m.DatasetID, &kind, &m.Owner.ID, &id, &m.Name, &m.Type, &m.Ref, &m.Source,
		&m.Prepare, &ast, &m.Level, &m.LevelGiven, &m.AverageLevel, &m.Access, &m.URI, &m.Title, &m.Description,
		&m.Version, &m.Order, &m.Draft, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan metadata")
	}
	m.Owner.Kind = structure.Kind(kind)
	m.UUID = asUUID(id)
	if len(ast) > 0 {
		m.PrepareAST = json.RawMessage(ast)
	}
	m.CreatedAt, m.UpdatedAt = asTime(createdAt), asTime(updatedAt)
	return &m, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (r *StructureRepository) CreateMetadata(ctx context.Context, m *structure.Metadata) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt, updatedAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
		INSERT INTO structure_metadata (dataset_id, content_type, object_id, uuid, name, type, ref, source,
			prepare, prepare_ast, level, level_given, average_level, access, uri, title, description,
			version, "order", draft)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`,
		m.DatasetID, string(m.Owner.Kind), m.Owner.ID, pgUUID(m.UUID), m.Name, m.Type, m.Ref, m.Source,
		m.Prepare, nullableJSON(m.PrepareAST), m.Level, m.LevelGiven, m.AverageLevel, m.Access, m.URI, m.Title, m.Description,
		m.Version, m.Order, m.Draft,
	).Scan(&m.ID, &createdAt, &updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return structure.ErrMetadataExists
		}
		return errors.Wrap(err, "create metadata")
	}
	m.CreatedAt, m.UpdatedAt = asTime(createdAt), asTime(updatedAt)
	return nil
}

func (r *StructureRepository) UpdateMetadata(ctx context.Context, m *structure.Metadata) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var updatedAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
		UPDATE structure_metadata SET uuid = $2, name = $3, type = $4, ref = $5, source = $6,
			prepare = $7, prepare_ast = $8, level = $9, level_given = $10, average_level = $11,
			access = $12, uri = $13, title = $14, description = $15, version = $16, "order" = $17,
			draft = $18, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, pgUUID(m.UUID), m.Name, m.Type, m.Ref, m.Source,
		m.Prepare, nullableJSON(m.PrepareAST), m.Level, m.LevelGiven, m.AverageLevel,
		m.Access, m.URI, m.Title, m.Description, m.Version, m.Order, m.Draft,
	).Scan(&updatedAt)
	if err != nil {
		return notFound(err, "update metadata")
	}
	m.UpdatedAt = asTime(updatedAt)
	return nil
}
