package manifest

import (
	"fmt"
	"strings"
)

// RowKind decides which dimension a row opens. open is the dimension of
// the innermost open node. The deepest non-blank primary column wins; the
// type column selects a secondary dimension; otherwise a non-blank row
// continues an open secondary node. DimNone means the row cannot be placed.
// primaries lists every primary column that was set.
func RowKind(row Row, open Dim) (dim Dim, primaries []Dim) {
	for _, d := range PrimaryDims {
		if row.primary(d) != "" {
			primaries = append(primaries, d)
		}
	}
	if len(primaries) > 0 {
		return primaries[len(primaries)-1], primaries
	}
	if d := Dim(strings.ToLower(row.Type)); d.IsSecondary() {
		return d, nil
	}
	if !row.IsBlank() && open.IsSecondary() {
		return open, nil
	}
	return DimNone, nil
}

// parserState is owned by a single Read call.
type parserState struct {
	manifest *Manifest
	stack    []Node
	// homeless collects nodes that could not be attached to a dataset.
	homeless []Node
}

// Read builds the manifest tree from rows that follow Header. Rows are
// expected to have passed DetectReadErrors.
func Read(rows []Row) *Manifest {
	st := &parserState{manifest: newManifest()}
	for i, row := range rows {
		st.readRow(i, row.trimmed())
	}
	st.finish()
	return st.manifest
}

func (st *parserState) top() Node {
	if len(st.stack) == 0 {
		return nil
	}
	return st.stack[len(st.stack)-1]
}

func (st *parserState) openDim() Dim {
	if n := st.top(); n != nil {
		return n.Dim()
	}
	return DimNone
}

func (st *parserState) readRow(i int, row Row) {
	if row.IsBlank() {
		return
	}
	dim, primaries := RowKind(row, st.openDim())
	if dim == DimNone {
		st.manifest.Errors = append(st.manifest.Errors,
			fmt.Sprintf("Line %d: cannot tell which node this row belongs to.", i+2))
		return
	}

	meta := st.newMeta(i, row, dim)
	if len(primaries) > 1 {
		names := make([]string, len(primaries))
		for j, d := range primaries {
			names[j] = string(d)
		}
		meta.addError(fmt.Sprintf("Only one of dataset, resource, base, model, property may be set, got %s.", strings.Join(names, ", ")))
	}

	st.clean(dim)
	if node := st.build(dim, meta); node != nil {
		st.stack = append(st.stack, node)
	}
}

// clean closes every open node that cannot be an ancestor of dim. Nodes of
// the same dimension are closed too, so siblings never nest.
func (st *parserState) clean(dim Dim) {
	for len(st.stack) > 0 {
		top := st.top().Dim()
		if top != dim && Precedes(top, dim) {
			return
		}
		st.stack = st.stack[:len(st.stack)-1]
	}
}

func (st *parserState) name(row Row, dim Dim) string {
	if dim.IsPrimary() {
		return row.primary(dim)
	}
	if row.Ref != "" {
		return row.Ref
	}
	if dim == DimEnum || dim == DimParam {
		if item, ok := st.top().(*Item); ok && item.Dim() == dim {
			return item.Group.Name
		}
	}
	return ""
}

func (st *parserState) newMeta(i int, row Row, dim Dim) Meta {
	m := Meta{
		ID:          row.ID,
		Name:        st.name(row, dim),
		Type:        row.Type,
		Ref:         row.Ref,
		Source:      row.Source,
		Prepare:     row.Prepare,
		URI:         row.URI,
		Title:       row.Title,
		Description: row.Description,
		Order:       i,
		Line:        i + 2,
	}
	if msg := checkID(row.ID); msg != "" {
		m.addError(msg)
	}
	given, msg := parseLevel(row.Level)
	if msg != "" {
		m.addError(msg)
	}
	m.LevelGiven = given
	if dim.IsPrimary() {
		m.Level = inferLevel(given, row.Ref, row.URI)
	} else if given != nil {
		v := *given
		m.Level = &v
	}
	access, msg := parseAccess(row.Access)
	if msg != "" {
		m.addError(msg)
	}
	m.Access = access
	return m
}

func (st *parserState) build(dim Dim, m Meta) Node {
	switch dim {
	case DimDataset:
		return st.readDataset(m)
	case DimResource:
		return st.readResource(m)
	case DimBase:
		return st.readBase(m)
	case DimModel:
		return st.readModel(m)
	case DimProperty:
		return st.readProperty(m)
	case DimComment:
		return st.readComment(m)
	case DimPrefix:
		return st.readPrefix(m)
	case DimEnum, DimParam:
		return st.readItem(dim, m)
	case DimLang:
		return st.readLang(m)
	}
	return nil
}

// nearest returns the innermost open node of the given dimension.
func (st *parserState) nearest(dim Dim) Node {
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i].Dim() == dim {
			return st.stack[i]
		}
	}
	return nil
}

func (st *parserState) dataset() *Dataset {
	ds, _ := st.nearest(DimDataset).(*Dataset)
	return ds
}

// parentFor returns the innermost open node a secondary node can attach to.
func (st *parserState) parentFor(dim Dim) Node {
	for i := len(st.stack) - 1; i >= 0; i-- {
		if canAttach(dim, st.stack[i].Dim()) {
			return st.stack[i]
		}
	}
	return nil
}

func (st *parserState) noParent(dim Dim, m Meta) {
	st.manifest.Errors = append(st.manifest.Errors,
		fmt.Sprintf("Line %d: %s %q has no parent it can belong to.", m.Line, dim, m.Name))
}

func (st *parserState) finish() {
	for _, n := range st.homeless {
		meta := n.Metadata()
		st.manifest.Errors = append(st.manifest.Errors,
			fmt.Sprintf("Line %d: %s %q is not inside a dataset.", meta.Line, n.Dim(), meta.Name))
		st.collectErrors(n)
	}
	for _, c := range st.manifest.Comments {
		st.collectErrors(c)
	}
	for _, p := range st.manifest.Prefixes {
		st.collectErrors(p)
	}
}

// collectErrors moves the errors of n and its children into manifest errors.
func (st *parserState) collectErrors(n Node) {
	meta := n.Metadata()
	for _, msg := range meta.Errors {
		st.manifest.Errors = append(st.manifest.Errors, fmt.Sprintf("Line %d: %s", meta.Line, msg))
	}
	if model, ok := n.(*Model); ok {
		for _, p := range model.Properties {
			st.collectErrors(p)
		}
	}
}
