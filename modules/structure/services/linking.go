package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

// link resolves names into references once every model of the dataset
// has been stored.
func (r *run) link() error {
	for _, b := range r.bases {
		if err := r.linkBase(b); err != nil {
			return err
		}
	}
	for _, m := range r.models {
		if err := r.linkModel(m); err != nil {
			return err
		}
	}
	for _, m := range r.models {
		for _, p := range m.props {
			if err := r.linkProperty(m, p); err != nil {
				return err
			}
		}
		if err := r.denormalize(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) linkBase(b *baseLink) error {
	owner := b.record.Owner()
	target, ok, err := r.resolveModel(b.node.Model)
	if err != nil {
		return err
	}
	if !ok {
		r.addError(owner, fmt.Sprintf("Base model %q not found.", b.node.Model))
		return r.setPropertyList(owner, nil)
	}
	if b.record.ModelID != target {
		b.record.ModelID = target
		if err := r.repo.UpdateBase(r.ctx, b.record); err != nil {
			return errors.Wrap(err, "link base model")
		}
	}
	ids, err := r.propertyIDs(owner, target, b.node.Model, b.node.RefProps)
	if err != nil {
		return err
	}
	return r.setPropertyList(owner, ids)
}

func (r *run) linkModel(m *modelLink) error {
	baseID := m.record.BaseID
	switch {
	case m.node.Base == nil:
		baseID = nil
	case r.baseByModel[m.node.Base.Model] != nil:
		baseID = &r.baseByModel[m.node.Base.Model].record.ID
	}
	if !equalID(m.record.BaseID, baseID) {
		m.record.BaseID = baseID
		if err := r.repo.UpdateModel(r.ctx, m.record); err != nil {
			return errors.Wrap(err, "link model base")
		}
	}
	ids, err := r.propertyIDs(m.record.Owner(), m.record.ID, m.node.Name, m.node.RefProps)
	if err != nil {
		return err
	}
	return r.setPropertyList(m.record.Owner(), ids)
}

func (r *run) linkProperty(m *modelLink, p *propertyLink) error {
	owner := p.record.Owner()
	var refID *int64
	var ids []int64
	if p.node.IsRef() && p.node.RefModel != "" {
		target, ok, err := r.resolveModel(p.node.RefModel)
		if err != nil {
			return err
		}
		if ok {
			refID = &target
			if ids, err = r.propertyIDs(owner, target, p.node.RefModel, p.node.RefProps); err != nil {
				return err
			}
		} else {
			r.addError(owner, fmt.Sprintf("Referenced model %q not found.", p.node.RefModel))
		}
	}
	if !equalID(p.record.RefModelID, refID) {
		p.record.RefModelID = refID
		if err := r.repo.UpdateProperty(r.ctx, p.record); err != nil {
			return errors.Wrap(err, "link property ref")
		}
	}
	return r.setPropertyList(owner, ids)
}

// denormalize links dotted property names to their parents. Missing
// parents are created as properties that were not given in the manifest.
func (r *run) denormalize(m *modelLink) error {
	index := r.properties[m.record.ID]
	used := map[int64]bool{}
	for _, p := range m.props {
		name := p.node.Name
		if depth := strings.Count(name, ".") + 1; depth > r.opts.MaxDenormDepth {
			r.addError(p.record.Owner(), fmt.Sprintf("Property %q is nested %d levels deep, at most %d are allowed.", name, depth, r.opts.MaxDenormDepth))
			if err := r.setParent(p.record, nil); err != nil {
				return err
			}
			continue
		}
		if err := r.chain(m, index, used, p.record, name, p.node.Order); err != nil {
			return err
		}
	}
	for _, p := range index {
		if !p.Given && !used[p.ID] {
			delete(index, r.name(p.Owner()))
			if err := r.deleteProperty(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) chain(m *modelLink, index map[string]*structure.Property, used map[int64]bool, prop *structure.Property, name string, order int) error {
	for {
		i := strings.LastIndex(name, ".")
		if i < 0 {
			return r.setParent(prop, nil)
		}
		parentName := name[:i]
		parent := index[parentName]
		if parent == nil {
			var err error
			if parent, err = r.syntheticProperty(m, parentName, order); err != nil {
				return err
			}
			index[parentName] = parent
		}
		if err := r.setParent(prop, &parent.ID); err != nil {
			return err
		}
		if parent.Given || used[parent.ID] {
			return nil
		}
		used[parent.ID] = true
		prop, name = parent, parentName
	}
}

func (r *run) syntheticProperty(m *modelLink, name string, order int) (*structure.Property, error) {
	p := &structure.Property{ModelID: m.record.ID}
	if err := r.repo.CreateProperty(r.ctx, p); err != nil {
		return nil, errors.Wrap(err, "create denormalized parent")
	}
	meta := &structure.Metadata{
		DatasetID: r.dataset.ID,
		Owner:     p.Owner(),
		UUID:      uuid.New(),
		Name:      name,
		Version:   1,
		Order:     order,
		Draft:     true,
	}
	if err := r.repo.CreateMetadata(r.ctx, meta); err != nil {
		return nil, errors.Wrap(err, "create denormalized parent metadata")
	}
	r.remember(meta)
	return p, nil
}

func (r *run) setParent(p *structure.Property, parentID *int64) error {
	if equalID(p.ParentID, parentID) {
		return nil
	}
	p.ParentID = parentID
	if err := r.repo.UpdateProperty(r.ctx, p); err != nil {
		return errors.Wrap(err, "link property parent")
	}
	return nil
}

// resolveModel finds a model by absolute name, first among the models of
// this import and then among every stored model.
func (r *run) resolveModel(name string) (int64, bool, error) {
	if m, ok := r.modelByName[name]; ok {
		return m.record.ID, true, nil
	}
	rows, err := r.repo.FindMetadata(r.ctx, structure.MetadataFilter{Kind: structure.KindModel, Name: &name})
	if err != nil {
		return 0, false, errors.Wrap(err, "find model")
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Owner.ID, true, nil
}

// propertyIDs resolves names to property ids of model. Unknown names are
// reported on owner and left out.
func (r *run) propertyIDs(owner structure.Owner, modelID int64, modelName string, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	index, err := r.propertyIndex(modelID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		p, ok := index[name]
		if !ok {
			r.addError(owner, fmt.Sprintf("Property %q not found in model %q.", name, modelName))
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *run) propertyIndex(modelID int64) (map[string]*structure.Property, error) {
	if index, ok := r.properties[modelID]; ok {
		return index, nil
	}
	props, err := r.repo.ListProperties(r.ctx, modelID)
	if err != nil {
		return nil, errors.Wrap(err, "list properties")
	}
	index := make(map[string]*structure.Property, len(props))
	for _, p := range props {
		owner := p.Owner()
		rows, err := r.repo.FindMetadata(r.ctx, structure.MetadataFilter{Owner: &owner})
		if err != nil {
			return nil, errors.Wrap(err, "find property metadata")
		}
		if len(rows) > 0 {
			index[rows[0].Name] = p
		}
	}
	r.properties[modelID] = index
	return index, nil
}

func (r *run) setPropertyList(owner structure.Owner, ids []int64) error {
	current, err := r.repo.GetPropertyList(r.ctx, owner)
	if err != nil {
		return errors.Wrap(err, "get property list")
	}
	if slices.Equal(current, ids) {
		return nil
	}
	if err := r.repo.SetPropertyList(r.ctx, owner, ids); err != nil {
		return errors.Wrap(err, "set property list")
	}
	return nil
}

// removeBases deletes bases that are gone from the manifest or that no
// model inherits from anymore.
func (r *run) removeBases(sc *scope) error {
	models, err := r.repo.ListModels(r.ctx, r.dataset.ID)
	if err != nil {
		return errors.Wrap(err, "list models")
	}
	referenced := map[int64]bool{}
	for _, m := range models {
		if m.BaseID != nil {
			referenced[*m.BaseID] = true
		}
	}
	removed := map[int64]bool{}
	for _, o := range sc.owners {
		if r.seen[o] && referenced[o.ID] {
			continue
		}
		if err := r.repo.DeleteBase(r.ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete base")
		}
		removed[o.ID] = true
		r.deleted(o)
	}
	for _, m := range models {
		if m.BaseID != nil && removed[*m.BaseID] {
			m.BaseID = nil
			if err := r.repo.UpdateModel(r.ctx, m); err != nil {
				return errors.Wrap(err, "unlink model base")
			}
		}
	}
	return nil
}
