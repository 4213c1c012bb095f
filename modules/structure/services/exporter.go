package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
)

// exporter writes a stored structure back as manifest rows. Reading the
// rows again yields the same structure.
type exporter struct {
	ctx  context.Context
	repo structure.Repository
	ds   *structure.Dataset
	name string
	meta map[structure.Owner]*structure.Metadata
	rows []manifest.Row

	base      structure.Owner
	openKind  structure.Kind
	openGroup int64
}

func newExporter(ctx context.Context, repo structure.Repository, ds *structure.Dataset) (*exporter, error) {
	rows, err := repo.FindMetadata(ctx, structure.MetadataFilter{DatasetID: ds.ID})
	if err != nil {
		return nil, errors.Wrap(err, "load metadata")
	}
	e := &exporter{ctx: ctx, repo: repo, ds: ds, name: ds.Name, meta: make(map[structure.Owner]*structure.Metadata, len(rows))}
	for _, m := range rows {
		e.meta[m.Owner] = m
	}
	if m := e.meta[ds.Owner()]; m != nil && m.Name != "" {
		e.name = m.Name
	}
	return e, nil
}

func byOrder[T interface{ Owner() structure.Owner }](meta map[structure.Owner]*structure.Metadata, records []T) []T {
	order := func(o structure.Owner) int {
		if m := meta[o]; m != nil {
			return m.Order
		}
		return int(^uint(0) >> 1)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return order(records[i].Owner()) < order(records[j].Owner())
	})
	return records
}

func (e *exporter) emit(row manifest.Row) {
	e.rows = append(e.rows, row)
	e.openKind, e.openGroup = "", 0
}

func rowOf(m *structure.Metadata) manifest.Row {
	row := manifest.Row{
		ID:          m.UUID.String(),
		Type:        m.Type,
		Ref:         m.Ref,
		Source:      m.Source,
		Prepare:     m.Prepare,
		Access:      m.Access,
		URI:         m.URI,
		Title:       m.Title,
		Description: m.Description,
	}
	if m.LevelGiven != nil {
		row.Level = strconv.Itoa(*m.LevelGiven)
	}
	return row
}

// relative returns a model name as written inside the dataset.
func (e *exporter) relative(name string) string {
	if rest, ok := strings.CutPrefix(name, e.name+"/"); ok {
		return rest
	}
	return "/" + name
}

func (e *exporter) export() error {
	if st, err := e.repo.GetStructure(e.ctx, e.ds.ID); err == nil {
		if err := e.comments(st.Owner()); err != nil {
			return err
		}
	} else if !errors.Is(err, structure.ErrNotFound) {
		return errors.Wrap(err, "get structure")
	}

	owner := e.ds.Owner()
	row := manifest.Row{Dataset: e.name}
	if m := e.meta[owner]; m != nil {
		row = rowOf(m)
		row.Dataset = e.name
	}
	e.emit(row)
	if err := e.comments(owner); err != nil {
		return err
	}
	if err := e.prefixes(); err != nil {
		return err
	}
	if err := e.groups(owner, structure.KindEnum); err != nil {
		return err
	}
	if err := e.groups(owner, structure.KindParam); err != nil {
		return err
	}
	return e.models()
}

func (e *exporter) comments(owner structure.Owner) error {
	comments, err := e.repo.ListComments(e.ctx, owner)
	if err != nil {
		return errors.Wrap(err, "list comments")
	}
	for _, c := range comments {
		if c.Type != structure.CommentStructure {
			continue
		}
		e.emit(manifest.Row{Type: string(manifest.DimComment), Source: c.User, Description: c.Body})
	}
	return nil
}

func (e *exporter) prefixes() error {
	prefixes, err := e.repo.ListPrefixes(e.ctx, e.ds.ID)
	if err != nil {
		return errors.Wrap(err, "list prefixes")
	}
	for _, p := range byOrder(e.meta, prefixes) {
		m := e.meta[p.Owner()]
		if m == nil {
			continue
		}
		row := rowOf(m)
		row.Type = string(manifest.DimPrefix)
		row.Ref = m.Name
		e.emit(row)
		if err := e.comments(p.Owner()); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) groups(parent structure.Owner, kind structure.Kind) error {
	groups, err := e.repo.ListGroups(e.ctx, parent, kind)
	if err != nil {
		return errors.Wrapf(err, "list %s groups", kind)
	}
	for _, g := range byOrder(e.meta, groups) {
		items, err := e.repo.ListItems(e.ctx, g)
		if err != nil {
			return errors.Wrap(err, "list items")
		}
		for _, it := range byOrder(e.meta, items) {
			m := e.meta[it.Owner()]
			if m == nil {
				continue
			}
			row := rowOf(m)
			if row.Type == "" && e.openKind != kind {
				row.Type = string(kind)
			}
			if row.Ref == "" && e.openGroup != g.ID {
				row.Ref = g.Name
			}
			e.emit(row)
			e.openKind, e.openGroup = kind, g.ID
			if err := e.comments(it.Owner()); err != nil {
				return err
			}
		}
	}
	return nil
}

// models writes the models without a resource first, then every resource
// followed by its models.
func (e *exporter) models() error {
	models, err := e.repo.ListModels(e.ctx, e.ds.ID)
	if err != nil {
		return errors.Wrap(err, "list models")
	}
	dists, err := e.repo.ListDistributions(e.ctx, e.ds.ID)
	if err != nil {
		return errors.Wrap(err, "list distributions")
	}
	resources := map[int64]bool{}
	var resourceDists []*structure.Distribution
	for _, d := range dists {
		if m := e.meta[d.Owner()]; m != nil && m.Source != "" {
			resources[d.ID] = true
			resourceDists = append(resourceDists, d)
		}
	}

	byDist := map[int64][]*structure.Model{}
	var free []*structure.Model
	for _, m := range byOrder(e.meta, models) {
		if m.DistributionID != nil && resources[*m.DistributionID] {
			byDist[*m.DistributionID] = append(byDist[*m.DistributionID], m)
			continue
		}
		free = append(free, m)
	}

	for _, m := range free {
		if err := e.model(m); err != nil {
			return err
		}
	}
	for _, d := range byOrder(e.meta, resourceDists) {
		m := e.meta[d.Owner()]
		row := rowOf(m)
		row.Resource = m.Name
		e.emit(row)
		e.base = structure.Owner{}
		if err := e.comments(d.Owner()); err != nil {
			return err
		}
		if err := e.groups(d.Owner(), structure.KindParam); err != nil {
			return err
		}
		for _, model := range byDist[d.ID] {
			if err := e.model(model); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) model(model *structure.Model) error {
	m := e.meta[model.Owner()]
	if m == nil {
		return nil
	}
	base := structure.Owner{}
	if model.BaseID != nil {
		base = structure.Owner{Kind: structure.KindBase, ID: *model.BaseID}
	}
	if base != e.base {
		if err := e.baseRow(base); err != nil {
			return err
		}
	}

	row := rowOf(m)
	row.Model = e.relative(m.Name)
	e.emit(row)
	if err := e.comments(model.Owner()); err != nil {
		return err
	}
	if err := e.groups(model.Owner(), structure.KindParam); err != nil {
		return err
	}

	props, err := e.repo.ListProperties(e.ctx, model.ID)
	if err != nil {
		return errors.Wrap(err, "list properties")
	}
	for _, p := range byOrder(e.meta, props) {
		pm := e.meta[p.Owner()]
		if !p.Given || pm == nil {
			continue
		}
		row := rowOf(pm)
		row.Property = pm.Name
		e.emit(row)
		if err := e.comments(p.Owner()); err != nil {
			return err
		}
		if err := e.groups(p.Owner(), structure.KindEnum); err != nil {
			return err
		}
		if err := e.groups(p.Owner(), structure.KindParam); err != nil {
			return err
		}
	}
	return nil
}

// baseRow opens base for the following models, or closes the open base
// when base is zero.
func (e *exporter) baseRow(base structure.Owner) error {
	e.base = base
	m := e.meta[base]
	if base.IsZero() || m == nil {
		e.emit(manifest.Row{Base: "/"})
		return nil
	}
	row := rowOf(m)
	row.Base = e.relative(m.Name)
	e.emit(row)
	return e.comments(base)
}
