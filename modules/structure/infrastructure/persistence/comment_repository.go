package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
)

func (r *StructureRepository) ListComments(ctx context.Context, owner structure.Owner) ([]*structure.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, dataset_id, type, body, user_name, created_at
		FROM comments
		WHERE content_type = $1 AND object_id = $2
		ORDER BY id`, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	defer rows.Close()

	var out []*structure.Comment
	for rows.Next() {
		var (
			c         = structure.Comment{Owner: owner}
			typ       string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&c.ID, &c.DatasetID, &typ, &c.Body, &c.User, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		c.Type = structure.CommentType(typ)
		c.CreatedAt = asTime(createdAt)
		out = append(out, &c)
	}
	return out, errors.Wrap(rows.Err(), "list comments")
}

func (r *StructureRepository) CreateComment(ctx context.Context, c *structure.Comment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdAt pgtype.Timestamptz
	err = tx.QueryRow(ctx, `
		INSERT INTO comments (dataset_id, content_type, object_id, type, body, user_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		c.DatasetID, string(c.Owner.Kind), c.Owner.ID, string(c.Type), c.Body, c.User,
	).Scan(&c.ID, &createdAt)
	if err != nil {
		return errors.Wrap(err, "create comment")
	}
	c.CreatedAt = asTime(createdAt)
	return nil
}

func (r *StructureRepository) DeleteComments(ctx context.Context, owner structure.Owner, typ structure.CommentType) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM comments WHERE content_type = $1 AND object_id = $2 AND type = $3`,
		string(owner.Kind), owner.ID, string(typ))
	return errors.Wrap(err, "delete comments")
}
