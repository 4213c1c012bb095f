package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/infrastructure/memory"
)

const dsName = "datasets/gov/example"

// Stable ids let a manifest be imported more than once.
const (
	countryID = "8c1c3e0a-4a57-4f3e-9a53-2f0f5d8f6b11"
	cityID    = "0f4a6a63-7a9c-4c1e-b3d4-6e1d0b9a2c22"
	placeID   = "5b2d9e14-1c3f-4e8a-a7b6-9d0c3e4f5a33"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *StructureService
	ds    *structure.Dataset
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.APIHost == "" {
		opts.APIHost = "get.data.gov.lt"
	}
	store := memory.NewStore()
	svc := NewStructureService(store, nil, opts)
	ctx := context.Background()
	ds, err := svc.CreateDataset(ctx, dsName)
	require.NoError(t, err)
	return &fixture{t: t, ctx: ctx, store: store, svc: svc, ds: ds}
}

func csvOf(t *testing.T, rows ...manifest.Row) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, manifest.WriteCSV(&buf, rows))
	return buf.Bytes()
}

func (f *fixture) importRows(rows ...manifest.Row) *ImportResult {
	f.t.Helper()
	res, err := f.svc.Import(f.ctx, ImportInput{DatasetID: f.ds.ID, Filename: "manifest.csv", Content: csvOf(f.t, rows...)})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) metadata(kind structure.Kind, name string) *structure.Metadata {
	f.t.Helper()
	rows, err := f.store.FindMetadata(f.ctx, structure.MetadataFilter{DatasetID: f.ds.ID, Kind: kind, Name: &name})
	require.NoError(f.t, err)
	require.Len(f.t, rows, 1, "%s %q", kind, name)
	return rows[0]
}

func (f *fixture) errorComments(owner structure.Owner) []string {
	f.t.Helper()
	comments, err := f.store.ListComments(f.ctx, owner)
	require.NoError(f.t, err)
	var out []string
	for _, c := range comments {
		if c.Type == structure.CommentStructureError {
			out = append(out, c.Body)
		}
	}
	return out
}

func basicManifest() []manifest.Row {
	return []manifest.Row{
		{Dataset: dsName},
		{Resource: "db", Type: "sql", Source: "postgresql://localhost/db"},
		{ID: countryID, Model: "Country", Ref: "code"},
		{Property: "code", Type: "string"},
		{Property: "name", Type: "string"},
		{ID: cityID, Model: "City"},
		{Property: "name", Type: "string"},
		{Property: "country", Type: "ref", Ref: "Country"},
	}
}

func TestImport_CreatesStructure(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(basicManifest()...)

	require.Empty(t, res.Errors)
	require.Equal(t, 8, res.Created)
	require.Zero(t, res.Updated)
	require.Zero(t, res.Deleted)
	counts := f.store.Counts()
	require.Equal(t, 2, counts["models"])
	require.Equal(t, 4, counts["properties"])
	require.Equal(t, 1, counts["distributions"])

	country := f.metadata(structure.KindModel, dsName+"/Country")
	require.Equal(t, 1, country.Version)
	require.True(t, country.Draft)
	require.NotEqual(t, uuid.Nil, country.UUID)

	keys, err := f.store.GetPropertyList(f.ctx, country.Owner)
	require.NoError(t, err)
	code := f.metadata(structure.KindProperty, "code")
	require.Equal(t, []int64{code.Owner.ID}, keys)

	props, err := f.store.ListProperties(f.ctx, f.metadata(structure.KindModel, dsName+"/City").Owner.ID)
	require.NoError(t, err)
	var ref *structure.Property
	for _, p := range props {
		if p.ID == f.metadata(structure.KindProperty, "country").Owner.ID {
			ref = p
		}
	}
	require.NotNil(t, ref)
	require.NotNil(t, ref.RefModelID)
	require.Equal(t, country.Owner.ID, *ref.RefModelID)

	st, err := f.svc.StructureFile(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Equal(t, "manifest.csv", st.Filename)
	require.Equal(t, string(manifest.FormatCSV), st.Format)
}

func TestImport_SameManifestIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(basicManifest()...)
	res := f.importRows(basicManifest()...)

	require.Empty(t, res.Errors)
	require.Zero(t, res.Created)
	require.Zero(t, res.Updated)
	require.Zero(t, res.Deleted)
	require.Equal(t, 8, res.Unchanged)
	require.Equal(t, 1, f.metadata(structure.KindModel, dsName+"/Country").Version)
}

func TestImport_RenameByIDBumpsVersion(t *testing.T) {
	f := newFixture(t, Options{})
	id := uuid.NewString()
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: id, Model: "Country"},
		manifest.Row{Property: "name", Type: "string"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: id, Model: "Nation"},
		manifest.Row{Property: "name", Type: "string"},
	)

	require.Empty(t, res.Errors)
	require.Equal(t, 1, res.Updated)
	require.Zero(t, res.Created)
	require.Zero(t, res.Deleted)
	updated := res.Of(ActionUpdated)
	require.Contains(t, updated[0].Patch.String(), "/name")

	m := f.metadata(structure.KindModel, dsName+"/Nation")
	require.Equal(t, id, m.UUID.String())
	require.Equal(t, 2, m.Version)
	require.True(t, m.Draft)
	require.Equal(t, 1, f.store.Counts()["models"])
}

func TestImport_DeletesOmittedNodes(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(basicManifest()...)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Resource: "db", Type: "sql", Source: "postgresql://localhost/db"},
		manifest.Row{ID: countryID, Model: "Country", Ref: "code"},
		manifest.Row{Property: "code", Type: "string"},
	)

	require.Empty(t, res.Errors)
	// City with its two properties and Country.name.
	require.Equal(t, 4, res.Deleted)
	counts := f.store.Counts()
	require.Equal(t, 1, counts["models"])
	require.Equal(t, 1, counts["properties"])
}

func TestImport_ConflictKeepsExistingRow(t *testing.T) {
	f := newFixture(t, Options{})
	original := uuid.NewString()
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: original, Model: "Country", Title: "Original"},
		manifest.Row{Property: "name", Type: "string"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: uuid.NewString(), Model: "Country", Title: "Intruder"},
		manifest.Row{Property: "code", Type: "string"},
	)

	msg := `Model "` + dsName + `/Country" already exists.`
	require.Equal(t, 1, res.Rejected)
	require.Contains(t, res.ErrorsOf(f.ds.Owner()), msg)
	require.Contains(t, f.errorComments(f.ds.Owner()), msg)

	m := f.metadata(structure.KindModel, dsName+"/Country")
	require.Equal(t, original, m.UUID.String())
	require.Equal(t, "Original", m.Title)
	require.Equal(t, 1, m.Version)
	counts := f.store.Counts()
	require.Equal(t, 1, counts["models"])
	require.Equal(t, 1, counts["properties"])
}

func TestImport_BlankIDNameCollisionIsRejected(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country", Title: "Original"},
		manifest.Row{Property: "name", Type: "string"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country", Title: "Intruder"},
		manifest.Row{Property: "code", Type: "string"},
	)

	msg := `Model "` + dsName + `/Country" already exists.`
	require.Equal(t, 1, res.Rejected)
	require.Zero(t, res.Updated)
	require.Zero(t, res.Deleted)
	require.Contains(t, res.ErrorsOf(f.ds.Owner()), msg)

	m := f.metadata(structure.KindModel, dsName+"/Country")
	require.Equal(t, countryID, m.UUID.String())
	require.Equal(t, "Original", m.Title)
	require.Equal(t, 1, m.Version)
	f.metadata(structure.KindProperty, "name")
	require.Equal(t, 1, f.store.Counts()["properties"])
}

func TestImport_BlankIDPrefixCollisionIsRejected(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Type: "prefix", Ref: "dct", URI: "http://purl.org/dc/terms/"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Type: "prefix", Ref: "dct", URI: "http://example.com/other/"},
	)

	require.Contains(t, res.ErrorsOf(f.ds.Owner()), `Prefix "dct" already exists.`)
	require.Equal(t, "http://purl.org/dc/terms/", f.metadata(structure.KindPrefix, "dct").URI)
}

func TestImport_RejectedModelKeepsNestedErrors(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "invalidName"},
		manifest.Row{Property: "BadProp", Type: "string"},
		manifest.Row{Property: "ok", Type: "string", Prepare: "upper("},
	)

	errs := res.ErrorsOf(f.ds.Owner())
	require.Len(t, errs, 3)
	require.Contains(t, errs[0], `Model name "invalidName" must start with an uppercase letter.`)
	require.Equal(t, `Property name "BadProp" must not contain uppercase letters.`, errs[1])
	require.Contains(t, errs[2], `Formula "upper(" has a syntax error`)
	require.ElementsMatch(t, errs, f.errorComments(f.ds.Owner()))
	require.Zero(t, f.store.Counts()["models"])
	require.Zero(t, f.store.Counts()["properties"])
}

func TestImport_PrefixConflictsOnNameAlone(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: uuid.NewString(), Type: "prefix", Ref: "dct", URI: "http://purl.org/dc/terms/"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: uuid.NewString(), Type: "prefix", Ref: "dct", URI: "http://example.com/other/"},
	)

	require.Contains(t, res.ErrorsOf(f.ds.Owner()), `Prefix "dct" already exists.`)
	require.Equal(t, "http://purl.org/dc/terms/", f.metadata(structure.KindPrefix, "dct").URI)
}

// Items conflict on name and prepare together, so a same-named item with
// another prepare is a new item while other scopes conflict on name alone.
func TestImport_ItemsConflictOnNameAndPrepare(t *testing.T) {
	f := newFixture(t, Options{})
	one, two := uuid.NewString(), uuid.NewString()
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "kind", Type: "integer"},
		manifest.Row{ID: one, Type: "enum", Source: "A", Prepare: "1"},
		manifest.Row{ID: two, Source: "B", Prepare: "2"},
	)
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "kind", Type: "integer"},
		manifest.Row{ID: one, Type: "enum", Source: "A", Prepare: "1"},
		manifest.Row{ID: uuid.NewString(), Source: "B2", Prepare: "2"},
		manifest.Row{ID: uuid.NewString(), Source: "C", Prepare: "3"},
	)

	require.Equal(t, 1, res.Rejected)
	require.Equal(t, 1, res.Created)
	var messages []string
	for _, e := range res.Errors {
		messages = append(messages, e.Message)
	}
	require.Contains(t, messages, `Enum item "2" already exists.`)

	items, err := f.store.FindMetadata(f.ctx, structure.MetadataFilter{DatasetID: f.ds.ID, Kind: structure.KindEnumItem})
	require.NoError(t, err)
	sources := map[string]string{}
	for _, it := range items {
		sources[it.Prepare] = it.Source
	}
	require.Equal(t, map[string]string{"1": "A", "2": "B", "3": "C"}, sources)
}

func TestImport_DenormalizedChain(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "code", Type: "string"},
		manifest.Row{Property: "address.city.name", Type: "string"},
	)

	leaf := f.metadata(structure.KindProperty, "address.city.name")
	city := f.metadata(structure.KindProperty, "address.city")
	address := f.metadata(structure.KindProperty, "address")
	model := f.metadata(structure.KindModel, dsName+"/Country")
	props, err := f.store.ListProperties(f.ctx, model.Owner.ID)
	require.NoError(t, err)
	byID := map[int64]*structure.Property{}
	for _, p := range props {
		byID[p.ID] = p
	}
	require.Len(t, byID, 4)
	require.True(t, byID[leaf.Owner.ID].Given)
	require.Equal(t, city.Owner.ID, *byID[leaf.Owner.ID].ParentID)
	require.False(t, byID[city.Owner.ID].Given)
	require.Equal(t, address.Owner.ID, *byID[city.Owner.ID].ParentID)
	require.False(t, byID[address.Owner.ID].Given)
	require.Nil(t, byID[address.Owner.ID].ParentID)

	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "code", Type: "string"},
	)
	require.Equal(t, 1, res.Deleted)
	require.Equal(t, 1, f.store.Counts()["properties"])
}

func TestImport_GivenPropertyAdoptsSyntheticParent(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "address.street", Type: "string"},
	)
	synthetic := f.metadata(structure.KindProperty, "address")

	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "address", Type: "object"},
		manifest.Row{Property: "address.street", Type: "string"},
	)
	require.Empty(t, res.Errors)
	adopted := f.metadata(structure.KindProperty, "address")
	require.Equal(t, synthetic.Owner, adopted.Owner)
	require.Equal(t, "object", adopted.Type)
	require.Equal(t, 2, f.store.Counts()["properties"])
}

func TestImport_DenormDepthLimit(t *testing.T) {
	f := newFixture(t, Options{MaxDenormDepth: 2})
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country"},
		manifest.Row{Property: "a.b.c", Type: "string"},
	)
	leaf := f.metadata(structure.KindProperty, "a.b.c")
	require.Equal(t, []string{`Property "a.b.c" is nested 3 levels deep, at most 2 are allowed.`}, res.ErrorsOf(leaf.Owner))
	require.Equal(t, 1, f.store.Counts()["properties"])
}

func TestImport_BaseLinking(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: placeID, Model: "Place", Ref: "id"},
		manifest.Row{Property: "id", Type: "integer"},
		manifest.Row{Base: "Place", Ref: "id"},
		manifest.Row{ID: countryID, Model: "Country", Ref: "id"},
		manifest.Row{Property: "id", Type: "integer"},
	)
	require.Empty(t, res.Errors)

	place := f.metadata(structure.KindModel, dsName+"/Place")
	base := f.metadata(structure.KindBase, dsName+"/Place")
	bases, err := f.store.ListBases(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Len(t, bases, 1)
	require.Equal(t, place.Owner.ID, bases[0].ModelID)

	models, err := f.store.ListModels(f.ctx, f.ds.ID)
	require.NoError(t, err)
	country := f.metadata(structure.KindModel, dsName+"/Country")
	for _, m := range models {
		if m.ID == country.Owner.ID {
			require.NotNil(t, m.BaseID)
			require.Equal(t, base.Owner.ID, *m.BaseID)
		}
	}
	keys, err := f.store.GetPropertyList(f.ctx, base.Owner)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	res = f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: placeID, Model: "Place", Ref: "id"},
		manifest.Row{Property: "id", Type: "integer"},
		manifest.Row{ID: countryID, Model: "Country", Ref: "id"},
		manifest.Row{Property: "id", Type: "integer"},
	)
	require.Equal(t, 1, res.Deleted)
	require.Zero(t, f.store.Counts()["bases"])
}

func TestImport_MissingReference(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "City"},
		manifest.Row{Property: "country", Type: "ref", Ref: "Country"},
	)
	prop := f.metadata(structure.KindProperty, "country")
	require.Equal(t, []string{`Referenced model "` + dsName + `/Country" not found.`}, res.ErrorsOf(prop.Owner))
}

func TestImport_CanonicalDistribution(t *testing.T) {
	f := newFixture(t, Options{APIHost: "data.example.com"})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country"},
	)
	dists, err := f.store.ListDistributions(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Len(t, dists, 1)
	require.Equal(t, "https://data.example.com/"+dsName+"/Country/:ns", dists[0].DownloadURL)
	require.Equal(t, structure.DistributionFormatAPI, dists[0].Format)
	require.Equal(t, structure.DistributionTypeURL, dists[0].Type)

	models, err := f.store.ListModels(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Equal(t, dists[0].ID, *models[0].DistributionID)
}

func TestImport_AverageLevels(t *testing.T) {
	f := newFixture(t, Options{})
	f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country", Ref: "code"},
		manifest.Row{Property: "code", Type: "string"},
		manifest.Row{Property: "name", Type: "string"},
	)
	// The model infers 4 from its ref, the properties 3 each.
	model := f.metadata(structure.KindModel, dsName+"/Country")
	require.NotNil(t, model.AverageLevel)
	require.Equal(t, 3.3, *model.AverageLevel)
	require.Equal(t, 1, model.Version)

	ds := f.metadata(structure.KindDataset, dsName)
	require.NotNil(t, ds.AverageLevel)
	require.Equal(t, 3.3, *ds.AverageLevel)
}

func TestImport_NodeErrorsBecomeComments(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "name", Type: "string", Prepare: "upper("},
	)
	model := f.metadata(structure.KindModel, dsName+"/Country")
	require.Len(t, res.ErrorsOf(model.Owner), 1)
	require.Contains(t, res.ErrorsOf(model.Owner)[0], `Formula "upper(" has a syntax error`)
	require.Len(t, f.errorComments(model.Owner), 1)
	require.Zero(t, f.store.Counts()["properties"])

	res = f.importRows(
		manifest.Row{Dataset: dsName},
		manifest.Row{ID: countryID, Model: "Country"},
		manifest.Row{Property: "name", Type: "string", Prepare: "upper()"},
	)
	require.Empty(t, res.Errors)
	require.Empty(t, f.errorComments(model.Owner))
	prop := f.metadata(structure.KindProperty, "name")
	require.JSONEq(t, `{"name":"upper","args":[]}`, string(prop.PrepareAST))
}

func TestImport_FileErrors(t *testing.T) {
	f := newFixture(t, Options{})
	res, err := f.svc.Import(f.ctx, ImportInput{DatasetID: f.ds.ID, Filename: "manifest.csv", Content: []byte("id;dataset;model\n")})
	require.NoError(t, err)
	require.Equal(t, []string{`Columns must be separated by commas (","), but semicolons (";") were found.`}, res.FileErrors)

	st, err := f.svc.StructureFile(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Equal(t, res.FileErrors, f.errorComments(st.Owner()))
	require.Zero(t, f.store.Counts()["models"])
}

func TestImport_StrictRollsBack(t *testing.T) {
	f := newFixture(t, Options{Strict: true})
	_, err := f.svc.Import(f.ctx, ImportInput{DatasetID: f.ds.ID, Filename: "manifest.csv", Content: csvOf(t,
		manifest.Row{Model: "Orphan"},
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country"},
	)})
	require.ErrorIs(t, err, structure.ErrStrictImport)
	require.Zero(t, f.store.Counts()["models"])
	_, err = f.svc.StructureFile(f.ctx, f.ds.ID)
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestImport_ManifestErrorsGoToStructureFile(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(
		manifest.Row{Model: "Orphan"},
		manifest.Row{Dataset: dsName},
		manifest.Row{Model: "Country"},
	)
	st, err := f.svc.StructureFile(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Contains(t, res.ErrorsOf(st.Owner()), `Line 2: model "Orphan" is not inside a dataset.`)
	require.Equal(t, 1, f.store.Counts()["models"])
}

func TestImport_UnknownDataset(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Import(f.ctx, ImportInput{DatasetID: 999, Filename: "manifest.csv", Content: csvOf(t, basicManifest()...)})
	require.ErrorIs(t, err, structure.ErrNotFound)
}

func TestImport_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Import(f.ctx, ImportInput{Filename: "manifest.csv", Content: []byte("x")})
	require.Error(t, err)
	_, err = f.svc.Import(f.ctx, ImportInput{DatasetID: f.ds.ID, Format: "ods", Content: []byte("x")})
	require.Error(t, err)
}

func roundTripManifest() []manifest.Row {
	return []manifest.Row{
		{Dataset: dsName, Title: "Example"},
		{Type: "prefix", Ref: "dct", URI: "http://purl.org/dc/terms/"},
		{Type: "comment", Source: "jonas", Description: "first draft"},
		{Resource: "db", Type: "sql", Source: "postgresql://localhost/db"},
		{Model: "Place", Ref: "id", Source: "places"},
		{Property: "id", Type: "integer", Source: "id"},
		{Base: "Place", Ref: "id"},
		{Model: "Country", Ref: "id", Source: "countries", Level: "4"},
		{Property: "id", Type: "integer", Source: "id"},
		{Property: "continent", Type: "string", Source: "cont"},
		{Type: "enum", Source: "EU", Prepare: `"eu"`},
		{Source: "AF", Prepare: `"af"`},
		{Property: "capital", Type: "ref", Ref: "City"},
		{Property: "address.street", Type: "string"},
		{Base: "/"},
		{Model: "City", Ref: "id"},
		{Property: "id", Type: "integer"},
	}
}

func TestExport_RoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	res := f.importRows(roundTripManifest()...)
	require.Empty(t, res.Errors)

	rows, err := f.svc.ExportRows(f.ctx, f.ds.ID)
	require.NoError(t, err)
	for _, row := range rows {
		if row.Property == "address" {
			t.Fatal("denormalized parents must not be exported")
		}
	}
	res = f.importRows(rows...)
	require.Empty(t, res.Errors)
	require.Zero(t, res.Created)
	require.Zero(t, res.Updated)
	require.Zero(t, res.Deleted)
	require.Zero(t, res.Rejected)

	again, err := f.svc.ExportRows(f.ctx, f.ds.ID)
	require.NoError(t, err)
	require.Equal(t, rows, again)

	data, err := f.svc.Export(f.ctx, f.ds.ID, manifest.FormatXLSX)
	require.NoError(t, err)
	require.Equal(t, manifest.FormatXLSX, manifest.DetectFormat(data, ""))

	comments, err := f.svc.Comments(f.ctx, f.metadata(structure.KindPrefix, "dct").Owner)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "first draft", comments[0].Body)
	require.Equal(t, "jonas", comments[0].User)
}
