package manifest

import (
	"fmt"
	"strings"
)

func (st *parserState) readDataset(m Meta) Node {
	if m.Name == "/" {
		return nil
	}
	ds := &Dataset{Meta: m, resources: map[string]*Resource{}}
	ds.Errors = append(ds.Errors, checkDatasetName(ds.Name)...)
	if _, ok := st.manifest.datasets[ds.Name]; ok {
		ds.addError(fmt.Sprintf("Dataset %q already exists.", ds.Name))
	} else {
		st.manifest.datasets[ds.Name] = ds
	}
	st.manifest.Datasets = append(st.manifest.Datasets, ds)
	return ds
}

func (st *parserState) readResource(m Meta) Node {
	res := &Resource{Meta: m, Dataset: st.dataset()}
	res.Errors = append(res.Errors, checkResourceName(res.Name)...)
	if res.Dataset == nil {
		st.homeless = append(st.homeless, res)
		return res
	}
	if _, ok := res.Dataset.resources[res.Name]; ok {
		res.addError(fmt.Sprintf("Resource %q already exists.", res.Name))
	} else {
		res.Dataset.resources[res.Name] = res
	}
	res.Dataset.Resources = append(res.Dataset.Resources, res)
	return res
}

func (st *parserState) readBase(m Meta) Node {
	if m.Name == "/" {
		return nil
	}
	base := &Base{Meta: m, Dataset: st.dataset(), RefProps: splitList(m.Ref)}
	dsName := ""
	if base.Dataset != nil {
		dsName = base.Dataset.Name
	}
	base.Model = absoluteName(dsName, base.Name)
	base.Errors = append(base.Errors, checkModelName(localName(base.Model))...)
	if base.Dataset == nil {
		st.homeless = append(st.homeless, base)
		return base
	}
	base.Dataset.Bases = append(base.Dataset.Bases, base)
	return base
}

func (st *parserState) readModel(m Meta) Node {
	model := &Model{Meta: m, Dataset: st.dataset(), properties: map[string]*Property{}}
	model.Resource, _ = st.nearest(DimResource).(*Resource)
	model.Base, _ = st.nearest(DimBase).(*Base)
	model.RefProps = splitList(m.Ref)

	dsName := ""
	if model.Dataset != nil {
		dsName = model.Dataset.Name
	}
	model.Name = absoluteName(dsName, m.Name)
	model.LocalName = localName(model.Name)
	model.Errors = append(model.Errors, checkModelName(model.LocalName)...)

	if _, ok := st.manifest.models[model.Name]; ok {
		model.addError(fmt.Sprintf("Model %q already exists.", model.Name))
	} else {
		st.manifest.models[model.Name] = model
	}
	st.manifest.Models = append(st.manifest.Models, model)
	if model.Dataset == nil {
		st.homeless = append(st.homeless, model)
		return model
	}
	model.Dataset.Models = append(model.Dataset.Models, model)
	return model
}

func (st *parserState) readProperty(m Meta) Node {
	prop := &Property{Meta: m}
	prop.Errors = append(prop.Errors, checkPropertyName(prop.Name)...)

	pt, errs := ParseType(m.Type)
	prop.DataType, prop.TypeArgs, prop.Required, prop.Unique = pt.Base, pt.Args, pt.Required, pt.Unique
	prop.Errors = append(prop.Errors, errs...)

	model, _ := st.nearest(DimModel).(*Model)
	if prop.IsRef() {
		switch ref, props, ok := ParseRef(m.Ref); {
		case !ok:
			prop.addError(fmt.Sprintf("Reference %q has unbalanced brackets.", m.Ref))
		case ref == "":
			prop.addError(fmt.Sprintf("Property %q of type %q must reference a model.", prop.Name, prop.DataType))
		default:
			dsName := ""
			if model != nil && model.Dataset != nil {
				dsName = model.Dataset.Name
			}
			prop.RefModel = absoluteName(dsName, ref)
			prop.RefProps = props
		}
	}

	if model == nil {
		st.homeless = append(st.homeless, prop)
		return prop
	}
	prop.Model = model
	if _, ok := model.properties[prop.Name]; ok {
		prop.addError(fmt.Sprintf("Property %q already exists.", prop.Name))
	} else {
		model.properties[prop.Name] = prop
	}
	model.Properties = append(model.Properties, prop)
	return prop
}

func (st *parserState) readComment(m Meta) Node {
	c := &Comment{Meta: m, Parent: st.parentFor(DimComment)}
	if c.Parent == nil {
		st.manifest.Comments = append(st.manifest.Comments, c)
		return c
	}
	meta := c.Parent.Metadata()
	meta.Comments = append(meta.Comments, c)
	return c
}

func (st *parserState) readPrefix(m Meta) Node {
	p := &Prefix{Meta: m}
	if p.Name == "" {
		p.addError("Prefix name must be given in the ref column.")
	}
	p.Dataset, _ = st.parentFor(DimPrefix).(*Dataset)
	if p.Dataset == nil {
		st.manifest.Prefixes = append(st.manifest.Prefixes, p)
		return p
	}
	p.Dataset.Prefixes = append(p.Dataset.Prefixes, p)
	return p
}

// readItem reads one enum or param row. Rows with the same name under the
// same parent form one group.
func (st *parserState) readItem(dim Dim, m Meta) Node {
	parent := st.parentFor(dim)
	groups := groupsOf(parent, dim)
	if groups == nil {
		st.noParent(dim, m)
		return nil
	}

	var group *Group
	for _, g := range *groups {
		if g.Name == m.Name {
			group = g
			break
		}
	}
	if group == nil {
		group = &Group{Kind: dim, Name: m.Name, Parent: parent}
		*groups = append(*groups, group)
	}

	item := &Item{Meta: m, Group: group}
	if key := item.Key(); key != "" {
		for _, other := range group.Items {
			if other.Key() == key {
				item.addError(fmt.Sprintf("%s %q item %q is duplicated.", title(dim), group.Name, key))
				break
			}
		}
	}
	group.Items = append(group.Items, item)
	return item
}

func groupsOf(n Node, dim Dim) *[]*Group {
	switch v := n.(type) {
	case *Dataset:
		if dim == DimEnum {
			return &v.Enums
		}
		return &v.Params
	case *Resource:
		if dim == DimParam {
			return &v.Params
		}
	case *Model:
		if dim == DimParam {
			return &v.Params
		}
	case *Property:
		if dim == DimEnum {
			return &v.Enums
		}
		return &v.Params
	}
	return nil
}

func (st *parserState) readLang(m Meta) Node {
	parent := st.parentFor(DimLang)
	if parent == nil {
		st.noParent(DimLang, m)
		return nil
	}
	l := &Lang{Meta: m, Parent: parent}
	meta := parent.Metadata()
	meta.Langs = append(meta.Langs, l)
	return l
}

func title(d Dim) string {
	if d == DimNone {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
