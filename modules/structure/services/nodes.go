package services

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/pkg/formula"
)

func (r *run) reconcileDataset(ds *manifest.Dataset) error {
	owner := r.dataset.Owner()
	sc := &scope{kind: structure.KindDataset, parent: r.file, owner: owner}
	if _, _, err := r.upsert(ds, sc, fieldsOf(&ds.Meta), ds.Name, nil); err != nil {
		return err
	}

	prefixes, err := r.prefixes(ds)
	if err != nil {
		return err
	}
	if err := r.groups(owner, structure.KindEnum, ds.Enums); err != nil {
		return err
	}
	if err := r.groups(owner, structure.KindParam, ds.Params); err != nil {
		return err
	}
	if err := r.resourceNodes(ds); err != nil {
		return err
	}
	bases, err := r.baseNodes(ds)
	if err != nil {
		return err
	}
	models, err := r.modelNodes(ds)
	if err != nil {
		return err
	}

	if err := r.removeUnseen(models, func(o structure.Owner) error { return r.deleteModel(o.ID) }); err != nil {
		return err
	}
	if err := r.removeUnseen(prefixes, func(o structure.Owner) error {
		if err := r.repo.DeletePrefix(r.ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete prefix")
		}
		r.deleted(o)
		return nil
	}); err != nil {
		return err
	}

	if err := r.link(); err != nil {
		return err
	}
	if err := r.removeBases(bases); err != nil {
		return err
	}
	return r.levels()
}

func (r *run) prefixes(ds *manifest.Dataset) (*scope, error) {
	existing, err := r.repo.ListPrefixes(r.ctx, r.dataset.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list prefixes")
	}
	sc := &scope{kind: structure.KindPrefix, parent: r.dataset.Owner(), owners: owners(existing)}
	for _, p := range ds.Prefixes {
		_, _, err := r.upsert(p, sc, fieldsOf(&p.Meta), p.Name, func() (structure.Owner, error) {
			rec := &structure.Prefix{DatasetID: r.dataset.ID}
			if err := r.repo.CreatePrefix(r.ctx, rec); err != nil {
				return structure.Owner{}, errors.Wrap(err, "create prefix")
			}
			return rec.Owner(), nil
		})
		if err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// groups merges the enums or params attached to parent. Groups are matched
// by name; their items by name and prepare.
func (r *run) groups(parent structure.Owner, kind structure.Kind, groups []*manifest.Group) error {
	existing, err := r.repo.ListGroups(r.ctx, parent, kind)
	if err != nil {
		return errors.Wrapf(err, "list %s groups", kind)
	}
	byName := make(map[string]*structure.Group, len(existing))
	for _, g := range existing {
		if _, ok := byName[g.Name]; !ok {
			byName[g.Name] = g
		}
	}
	kept := map[int64]bool{}
	for _, g := range groups {
		rec := byName[g.Name]
		if rec == nil {
			rec = &structure.Group{DatasetID: r.dataset.ID, Kind: kind, Parent: parent, Name: g.Name}
			if err := r.repo.CreateGroup(r.ctx, rec); err != nil {
				return errors.Wrapf(err, "create %s", kind)
			}
			byName[g.Name] = rec
		}
		kept[rec.ID] = true
		order := 0
		if len(g.Items) > 0 {
			order = g.Items[0].Order
		}
		if err := r.ensureMetadata(rec.Owner(), structure.Fields{Name: g.Name}, order); err != nil {
			return err
		}
		if err := r.items(rec, g); err != nil {
			return err
		}
	}
	for _, rec := range existing {
		if !kept[rec.ID] {
			if err := r.deleteGroup(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) items(rec *structure.Group, g *manifest.Group) error {
	existing, err := r.repo.ListItems(r.ctx, rec)
	if err != nil {
		return errors.Wrap(err, "list items")
	}
	sc := &scope{kind: rec.ItemKind(), parent: rec.Owner(), owners: owners(existing), key: itemKey}
	for _, it := range g.Items {
		label := it.Key()
		if label == "" {
			label = it.Name
		}
		_, _, err := r.upsert(it, sc, fieldsOf(&it.Meta), label, func() (structure.Owner, error) {
			item := &structure.Item{DatasetID: r.dataset.ID, Kind: rec.ItemKind(), GroupID: rec.ID}
			if err := r.repo.CreateItem(r.ctx, item); err != nil {
				return structure.Owner{}, errors.Wrap(err, "create item")
			}
			return item.Owner(), nil
		})
		if err != nil {
			return err
		}
	}
	return r.removeUnseen(sc, func(o structure.Owner) error {
		if err := r.repo.DeleteItem(r.ctx, &structure.Item{ID: o.ID, Kind: o.Kind, GroupID: rec.ID}); err != nil {
			return errors.Wrap(err, "delete item")
		}
		r.deleted(o)
		return nil
	})
}

func (r *run) resourceNodes(ds *manifest.Dataset) error {
	for _, res := range ds.Resources {
		if res.Source == "" {
			if len(res.Params) > 0 {
				r.addError(r.dataset.Owner(), fmt.Sprintf("Resource %q has no source, its params were not imported.", res.Name))
			}
			continue
		}
		format := strings.ToUpper(res.Type)
		if format == "" {
			format = structure.DistributionFormatAPI
		}
		dist, err := r.distribution(res.Source, res.Name, format)
		if err != nil {
			return err
		}
		sc := &scope{kind: structure.KindDistribution, parent: r.dataset.Owner(), owner: dist.Owner()}
		owner, ok, err := r.upsert(res, sc, fieldsOf(&res.Meta), res.Name, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		r.resources[res] = dist
		if err := r.groups(owner, structure.KindParam, res.Params); err != nil {
			return err
		}
	}
	return nil
}

// distribution finds the dataset distribution published at url or creates it.
func (r *run) distribution(url, title, format string) (*structure.Distribution, error) {
	for _, d := range r.distributions {
		if d.DownloadURL == url {
			return d, nil
		}
	}
	d := &structure.Distribution{
		DatasetID:   r.dataset.ID,
		Title:       title,
		DownloadURL: url,
		Type:        structure.DistributionTypeURL,
		Format:      format,
	}
	if err := r.repo.CreateDistribution(r.ctx, d); err != nil {
		return nil, errors.Wrap(err, "create distribution")
	}
	r.distributions = append(r.distributions, d)
	return d, nil
}

// modelDistribution returns the distribution a model's data is served from.
func (r *run) modelDistribution(m *manifest.Model) (*structure.Distribution, error) {
	if m.Resource != nil {
		if d, ok := r.resources[m.Resource]; ok {
			return d, nil
		}
	}
	url := fmt.Sprintf("https://%s/%s/:ns", r.opts.APIHost, m.Name)
	d, err := r.distribution(url, m.Name, structure.DistributionFormatAPI)
	if err != nil {
		return nil, err
	}
	if err := r.ensureMetadata(d.Owner(), structure.Fields{Name: m.Name}, m.Order); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *run) baseNodes(ds *manifest.Dataset) (*scope, error) {
	existing, err := r.repo.ListBases(r.ctx, r.dataset.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list bases")
	}
	records := make(map[int64]*structure.Base, len(existing))
	for _, b := range existing {
		records[b.ID] = b
	}
	sc := &scope{kind: structure.KindBase, parent: r.dataset.Owner(), owners: owners(existing)}
	for _, bn := range ds.Bases {
		if _, ok := r.baseByModel[bn.Model]; ok {
			continue
		}
		fields := fieldsOf(&bn.Meta)
		fields.Name = bn.Model
		owner, ok, err := r.upsert(bn, sc, fields, bn.Model, func() (structure.Owner, error) {
			rec := &structure.Base{DatasetID: r.dataset.ID}
			if err := r.repo.CreateBase(r.ctx, rec); err != nil {
				return structure.Owner{}, errors.Wrap(err, "create base")
			}
			records[rec.ID] = rec
			return rec.Owner(), nil
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		link := &baseLink{node: bn, record: records[owner.ID]}
		r.bases = append(r.bases, link)
		r.baseByModel[bn.Model] = link
	}
	return sc, nil
}

func (r *run) modelNodes(ds *manifest.Dataset) (*scope, error) {
	existing, err := r.repo.ListModels(r.ctx, r.dataset.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	records := make(map[int64]*structure.Model, len(existing))
	for _, m := range existing {
		records[m.ID] = m
	}
	sc := &scope{kind: structure.KindModel, parent: r.dataset.Owner(), owners: owners(existing)}
	for _, mn := range ds.Models {
		owner, ok, err := r.upsert(mn, sc, fieldsOf(&mn.Meta), mn.Name, func() (structure.Owner, error) {
			rec := &structure.Model{DatasetID: r.dataset.ID}
			if err := r.repo.CreateModel(r.ctx, rec); err != nil {
				return structure.Owner{}, errors.Wrap(err, "create model")
			}
			records[rec.ID] = rec
			return rec.Owner(), nil
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			r.addError(r.rejectedModelOwner(mn), nestedErrors(mn)...)
			continue
		}
		link := &modelLink{node: mn, record: records[owner.ID]}
		r.models = append(r.models, link)
		r.modelByName[mn.Name] = link

		dist, err := r.modelDistribution(mn)
		if err != nil {
			return nil, err
		}
		if !equalID(link.record.DistributionID, &dist.ID) {
			link.record.DistributionID = &dist.ID
			if err := r.repo.UpdateModel(r.ctx, link.record); err != nil {
				return nil, errors.Wrap(err, "link model distribution")
			}
		}
		if err := r.groups(owner, structure.KindParam, mn.Params); err != nil {
			return nil, err
		}
		if err := r.propertyNodes(link); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// rejectedModelOwner is the stored model a rejected node was matched to by
// id, or the dataset.
func (r *run) rejectedModelOwner(mn *manifest.Model) structure.Owner {
	if id, err := uuid.Parse(mn.ID); err == nil {
		if owner, ok := r.byUUID[id]; ok && owner.Kind == structure.KindModel {
			return owner
		}
	}
	return r.dataset.Owner()
}

// nestedErrors collects the node errors below a model that is not stored.
func nestedErrors(mn *manifest.Model) []string {
	var errs []string
	collect := func(meta *manifest.Meta) {
		errs = append(errs, meta.Errors...)
		if _, err := formula.ParseJSON(meta.Prepare); err != nil {
			errs = append(errs, formulaError(meta.Prepare, err))
		}
	}
	items := func(groups []*manifest.Group) {
		for _, g := range groups {
			for _, it := range g.Items {
				collect(&it.Meta)
			}
		}
	}
	items(mn.Params)
	for _, pn := range mn.Properties {
		collect(&pn.Meta)
		items(pn.Enums)
		items(pn.Params)
	}
	return errs
}

func (r *run) propertyNodes(link *modelLink) error {
	model := link.record
	existing, err := r.repo.ListProperties(r.ctx, model.ID)
	if err != nil {
		return errors.Wrap(err, "list properties")
	}
	records := make(map[int64]*structure.Property, len(existing))
	index := make(map[string]*structure.Property, len(existing))
	for _, p := range existing {
		records[p.ID] = p
		if name := r.name(p.Owner()); name != "" {
			index[name] = p
		}
	}
	r.properties[model.ID] = index

	sc := &scope{kind: structure.KindProperty, parent: model.Owner(), owners: owners(existing), noConflict: true}
	for _, pn := range link.node.Properties {
		owner, ok, err := r.upsert(pn, sc, fieldsOf(&pn.Meta), pn.Name, func() (structure.Owner, error) {
			rec := &structure.Property{ModelID: model.ID, Given: true}
			if err := r.repo.CreateProperty(r.ctx, rec); err != nil {
				return structure.Owner{}, errors.Wrap(err, "create property")
			}
			records[rec.ID] = rec
			return rec.Owner(), nil
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := records[owner.ID]
		if !rec.Given {
			rec.Given = true
			if err := r.repo.UpdateProperty(r.ctx, rec); err != nil {
				return errors.Wrap(err, "adopt property")
			}
		}
		for name, p := range index {
			if p.ID == rec.ID && name != pn.Name {
				delete(index, name)
			}
		}
		index[pn.Name] = rec
		link.props = append(link.props, &propertyLink{node: pn, record: rec})

		if err := r.groups(owner, structure.KindEnum, pn.Enums); err != nil {
			return err
		}
		if err := r.groups(owner, structure.KindParam, pn.Params); err != nil {
			return err
		}
	}

	return r.removeUnseen(sc, func(o structure.Owner) error {
		rec := records[o.ID]
		if rec == nil || !rec.Given {
			return nil
		}
		delete(index, r.name(o))
		return r.deleteProperty(rec)
	})
}

func (r *run) deleteGroup(g *structure.Group) error {
	items, err := r.repo.ListItems(r.ctx, g)
	if err != nil {
		return errors.Wrap(err, "list items")
	}
	for _, it := range items {
		if err := r.repo.DeleteItem(r.ctx, it); err != nil {
			return errors.Wrap(err, "delete item")
		}
		r.deleted(it.Owner())
	}
	if err := r.repo.DeleteGroup(r.ctx, g); err != nil {
		return errors.Wrapf(err, "delete %s", g.Kind)
	}
	r.forget(g.Owner())
	return nil
}

func (r *run) deleteGroupsOf(owner structure.Owner, kinds ...structure.Kind) error {
	for _, kind := range kinds {
		groups, err := r.repo.ListGroups(r.ctx, owner, kind)
		if err != nil {
			return errors.Wrapf(err, "list %s groups", kind)
		}
		for _, g := range groups {
			if err := r.deleteGroup(g); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) deleteProperty(p *structure.Property) error {
	if err := r.deleteGroupsOf(p.Owner(), structure.KindEnum, structure.KindParam); err != nil {
		return err
	}
	if err := r.repo.DeleteProperty(r.ctx, p.ID); err != nil {
		return errors.Wrap(err, "delete property")
	}
	if p.Given {
		r.deleted(p.Owner())
	} else {
		r.forget(p.Owner())
	}
	return nil
}

// deleteModel removes a model with its properties and params.
func (r *run) deleteModel(id int64) error {
	props, err := r.repo.ListProperties(r.ctx, id)
	if err != nil {
		return errors.Wrap(err, "list properties")
	}
	for _, p := range props {
		if err := r.deleteProperty(p); err != nil {
			return err
		}
	}
	owner := structure.Owner{Kind: structure.KindModel, ID: id}
	if err := r.deleteGroupsOf(owner, structure.KindParam); err != nil {
		return err
	}
	if err := r.repo.DeleteModel(r.ctx, id); err != nil {
		return errors.Wrap(err, "delete model")
	}
	r.deleted(owner)
	return nil
}

func equalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
