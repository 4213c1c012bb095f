package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/constants"
)

func withTx(tx *stubTx) context.Context {
	return context.WithValue(context.Background(), constants.TxKey, tx)
}

func TestFindMetadata_BuildsFiltersAndMapsRows(t *testing.T) {
	id := uuid.New()
	name := "ds/City"
	level := 4
	avg := 3.5
	now := time.Now()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM structure_metadata")
			require.Contains(t, sql, "dataset_id = $1")
			require.Contains(t, sql, "content_type = $2")
			require.Contains(t, sql, "name = $3")
			require.Contains(t, sql, "AND draft")
			require.Equal(t, []any{int64(7), "model", name}, args)
			return &stubRows{data: [][]any{{
				int64(11), int64(7), "model", int64(3), pgtype.UUID{Bytes: id, Valid: true},
				name, "", "", "", "", []byte(`{"name":"upper","args":[]}`), &level, nil, &avg,
				"open", "", "City", "", 2, 1, true,
				pgtype.Timestamptz{Time: now, Valid: true}, pgtype.Timestamptz{Time: now, Valid: true},
			}}}, nil
		},
	}

	rows, err := NewStructureRepository().FindMetadata(withTx(tx), structure.MetadataFilter{
		DatasetID: 7,
		Kind:      structure.KindModel,
		Name:      &name,
		DraftOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	m := rows[0]
	require.Equal(t, structure.Owner{Kind: structure.KindModel, ID: 3}, m.Owner)
	require.Equal(t, id, m.UUID)
	require.JSONEq(t, `{"name":"upper","args":[]}`, string(m.PrepareAST))
	require.Equal(t, 4, *m.Level)
	require.Nil(t, m.LevelGiven)
	require.InDelta(t, 3.5, *m.AverageLevel, 0.0001)
	require.Equal(t, 2, m.Version)
	require.True(t, m.Draft)
	require.Equal(t, now, m.CreatedAt)
}

func TestFindMetadata_OwnerAndUUIDFilters(t *testing.T) {
	id := uuid.New()
	owner := structure.Owner{Kind: structure.KindProperty, ID: 9}
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "object_id = $2")
			require.Contains(t, sql, "uuid = $3")
			require.Equal(t, "property", args[0])
			require.Equal(t, pgtype.UUID{Bytes: id, Valid: true}, args[2])
			return &stubRows{}, nil
		},
	}

	rows, err := NewStructureRepository().FindMetadata(withTx(tx), structure.MetadataFilter{Owner: &owner, UUID: &id})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCreateMetadata_FillsIDAndTimestamps(t *testing.T) {
	now := time.Now()
	m := &structure.Metadata{
		DatasetID:  1,
		Owner:      structure.Owner{Kind: structure.KindModel, ID: 2},
		UUID:       uuid.New(),
		Name:       "ds/City",
		PrepareAST: json.RawMessage(`{"name":"bind","args":["x"]}`),
		Version:    1,
		Draft:      true,
	}
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO structure_metadata")
			require.Len(t, args, 20)
			require.Equal(t, "model", args[1])
			require.Equal(t, []byte(`{"name":"bind","args":["x"]}`), args[9])
			return rowOf(int64(5), pgtype.Timestamptz{Time: now, Valid: true}, pgtype.Timestamptz{Time: now, Valid: true})
		},
	}

	require.NoError(t, NewStructureRepository().CreateMetadata(withTx(tx), m))
	require.Equal(t, int64(5), m.ID)
	require.Equal(t, now, m.CreatedAt)
}

func TestCreateMetadata_UniqueViolation(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Nil(t, args[9])
			return stubRow{scan: func(dest ...any) error {
				return &pgconn.PgError{Code: "23505", ConstraintName: "structure_metadata_content_type_object_id_key"}
			}}
		},
	}

	err := NewStructureRepository().CreateMetadata(withTx(tx), &structure.Metadata{Owner: structure.Owner{Kind: structure.KindModel, ID: 1}})
	require.ErrorIs(t, err, structure.ErrMetadataExists)
}

func TestUpdateMetadata_MissingRow(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "UPDATE structure_metadata")
			return stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	err := NewStructureRepository().UpdateMetadata(withTx(tx), &structure.Metadata{ID: 99})
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestGetDataset_NotFound(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "FROM datasets")
			require.Equal(t, int64(3), args[0])
			return stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	_, err := NewStructureRepository().GetDataset(withTx(tx), 3)
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestSaveStructure_Upserts(t *testing.T) {
	now := time.Now()
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "ON CONFLICT (dataset_id) DO UPDATE")
			require.Equal(t, []any{int64(1), "a.csv", "csv", []byte("id")}, args)
			return rowOf(int64(4), pgtype.Timestamptz{Time: now, Valid: true}, pgtype.Timestamptz{Time: now, Valid: true})
		},
	}

	st := &structure.Structure{DatasetID: 1, Filename: "a.csv", Format: "csv", Content: []byte("id")}
	require.NoError(t, NewStructureRepository().SaveStructure(withTx(tx), st))
	require.Equal(t, int64(4), st.ID)
	require.Equal(t, now, st.UpdatedAt)
}

func TestListModels_MapsNullableLinks(t *testing.T) {
	baseID := int64(8)
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM models")
			return &stubRows{data: [][]any{
				{int64(1), int64(2), &baseID, nil},
				{int64(3), int64(2), nil, nil},
			}}, nil
		},
	}

	models, err := NewStructureRepository().ListModels(withTx(tx), 2)
	require.NoError(t, err)
	require.Len(t, models, 2)
	require.Equal(t, int64(8), *models[0].BaseID)
	require.Nil(t, models[0].DistributionID)
	require.Nil(t, models[1].BaseID)
}

func TestUpdateModel_NoRowsIsNotFound(t *testing.T) {
	tx := &stubTx{execTag: "UPDATE 0"}
	err := NewStructureRepository().UpdateModel(withTx(tx), &structure.Model{ID: 1})
	require.ErrorIs(t, err, structure.ErrNotFound)
	require.Len(t, tx.execs, 1)
	require.Contains(t, tx.execs[0].sql, "UPDATE models")
}

func TestDeleteProperty_DropsOwnedRows(t *testing.T) {
	tx := &stubTx{}
	require.NoError(t, NewStructureRepository().DeleteProperty(withTx(tx), 6))

	require.Len(t, tx.execs, 4)
	require.Contains(t, tx.execs[0].sql, "DELETE FROM properties")
	require.Contains(t, tx.execs[1].sql, "DELETE FROM structure_metadata")
	require.Contains(t, tx.execs[2].sql, "DELETE FROM property_lists")
	require.Contains(t, tx.execs[3].sql, "DELETE FROM comments")
	for _, e := range tx.execs[1:] {
		require.Equal(t, []any{"property", int64(6)}, e.args)
	}
}

func TestSetPropertyList_CopiesPositions(t *testing.T) {
	owner := structure.Owner{Kind: structure.KindBase, ID: 2}
	tx := &stubTx{}
	require.NoError(t, NewStructureRepository().SetPropertyList(withTx(tx), owner, []int64{30, 10}))

	require.Len(t, tx.execs, 1)
	require.Contains(t, tx.execs[0].sql, "DELETE FROM property_lists")
	require.Len(t, tx.copies, 1)
	require.Equal(t, pgx.Identifier{"property_lists"}, tx.copies[0].table)
	require.Equal(t, [][]any{
		{"base", int64(2), 0, int64(30)},
		{"base", int64(2), 1, int64(10)},
	}, tx.copies[0].rows)
}

func TestSetPropertyList_EmptyOnlyClears(t *testing.T) {
	tx := &stubTx{}
	require.NoError(t, NewStructureRepository().SetPropertyList(withTx(tx), structure.Owner{Kind: structure.KindModel, ID: 1}, nil))
	require.Len(t, tx.execs, 1)
	require.Empty(t, tx.copies)
}

func TestListGroups_MapsKinds(t *testing.T) {
	parent := structure.Owner{Kind: structure.KindProperty, ID: 4}
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Equal(t, []any{"property", int64(4), "enum"}, args)
			return &stubRows{data: [][]any{{int64(12), int64(1), "enum", "property", int64(4), "status"}}}, nil
		},
	}

	groups, err := NewStructureRepository().ListGroups(withTx(tx), parent, structure.KindEnum)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, structure.KindEnum, groups[0].Kind)
	require.Equal(t, parent, groups[0].Parent)
	require.Equal(t, structure.KindEnumItem, groups[0].ItemKind())
}

func TestDeleteComments_ByType(t *testing.T) {
	tx := &stubTx{}
	owner := structure.Owner{Kind: structure.KindModel, ID: 3}
	require.NoError(t, NewStructureRepository().DeleteComments(withTx(tx), owner, structure.CommentStructureError))
	require.Len(t, tx.execs, 1)
	require.Equal(t, []any{"model", int64(3), "STRUCTURE_ERROR"}, tx.execs[0].args)
}

func TestLockDataset_UsesAdvisoryLock(t *testing.T) {
	tx := &stubTx{}
	require.NoError(t, NewStructureRepository().LockDataset(withTx(tx), 42))
	require.Len(t, tx.execs, 1)
	require.Contains(t, tx.execs[0].sql, "pg_advisory_xact_lock")
	require.Equal(t, []any{int64(42)}, tx.execs[0].args)
}

func TestRepository_NoPoolInContext(t *testing.T) {
	_, err := NewStructureRepository().ListModels(context.Background(), 1)
	require.Error(t, err)
}
