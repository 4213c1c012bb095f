package manifest

import "strings"

// Header is the fixed column order of a manifest.
var Header = []string{
	"id", "dataset", "resource", "base", "model", "property", "type", "ref",
	"source", "prepare", "level", "access", "uri", "title", "description",
}

// Row is one manifest record.
type Row struct {
	ID          string
	Dataset     string
	Resource    string
	Base        string
	Model       string
	Property    string
	Type        string
	Ref         string
	Source      string
	Prepare     string
	Level       string
	Access      string
	URI         string
	Title       string
	Description string
}

// RowFromValues maps values positionally onto Header. Missing trailing
// values are blank and extra values are ignored.
func RowFromValues(values []string) Row {
	get := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	return Row{
		ID:          get(0),
		Dataset:     get(1),
		Resource:    get(2),
		Base:        get(3),
		Model:       get(4),
		Property:    get(5),
		Type:        get(6),
		Ref:         get(7),
		Source:      get(8),
		Prepare:     get(9),
		Level:       get(10),
		Access:      get(11),
		URI:         get(12),
		Title:       get(13),
		Description: get(14),
	}
}

func (r Row) Values() []string {
	return []string{
		r.ID, r.Dataset, r.Resource, r.Base, r.Model, r.Property, r.Type, r.Ref,
		r.Source, r.Prepare, r.Level, r.Access, r.URI, r.Title, r.Description,
	}
}

func (r Row) primary(d Dim) string {
	switch d {
	case DimDataset:
		return r.Dataset
	case DimResource:
		return r.Resource
	case DimBase:
		return r.Base
	case DimModel:
		return r.Model
	case DimProperty:
		return r.Property
	}
	return ""
}

func (r Row) IsBlank() bool {
	for _, v := range r.Values() {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// trimmed returns a copy with surrounding whitespace removed from every cell.
func (r Row) trimmed() Row {
	vals := r.Values()
	for i := range vals {
		vals[i] = strings.TrimSpace(vals[i])
	}
	return RowFromValues(vals)
}
