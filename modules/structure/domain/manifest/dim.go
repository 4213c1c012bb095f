package manifest

// Dim names the kind of node a manifest row opens.
type Dim string

const (
	DimNone     Dim = ""
	DimDataset  Dim = "dataset"
	DimResource Dim = "resource"
	DimBase     Dim = "base"
	DimModel    Dim = "model"
	DimProperty Dim = "property"
	DimComment  Dim = "comment"
	DimPrefix   Dim = "prefix"
	DimEnum     Dim = "enum"
	DimParam    Dim = "param"
	DimLang     Dim = "lang"
)

// PrimaryDims are the structural columns in column order.
var PrimaryDims = []Dim{DimDataset, DimResource, DimBase, DimModel, DimProperty}

// SecondaryDims attach to an open node and are selected by the type column.
var SecondaryDims = []Dim{DimComment, DimPrefix, DimEnum, DimParam, DimLang}

// AllDims lists every dimension, primary first.
var AllDims = append(append([]Dim{}, PrimaryDims...), SecondaryDims...)

var primaryIndex = map[Dim]int{
	DimDataset:  0,
	DimResource: 1,
	DimBase:     2,
	DimModel:    3,
	DimProperty: 4,
}

// parents lists, for each secondary dimension, the dimensions it can attach to.
var parents = map[Dim][]Dim{
	DimComment: {DimDataset, DimResource, DimBase, DimModel, DimProperty, DimEnum, DimPrefix},
	DimPrefix:  {DimDataset},
	DimEnum:    {DimDataset, DimProperty},
	DimParam:   {DimDataset, DimResource, DimModel, DimProperty},
	DimLang:    {DimDataset, DimResource, DimBase, DimModel, DimProperty, DimEnum, DimParam, DimPrefix, DimComment},
}

func (d Dim) IsPrimary() bool {
	_, ok := primaryIndex[d]
	return ok
}

func (d Dim) IsSecondary() bool {
	_, ok := parents[d]
	return ok
}

// Precedes reports whether an open node of dimension a may stay open while
// a row of dimension b is read, i.e. whether a can be an ancestor of b.
func Precedes(a, b Dim) bool {
	if a == b {
		return true
	}
	ai, aPrimary := primaryIndex[a]
	bi, bPrimary := primaryIndex[b]
	switch {
	case aPrimary && bPrimary:
		return ai < bi
	case aPrimary:
		return true
	case bPrimary:
		return false
	}
	return canAttach(b, a)
}

// canAttach reports whether a node of dimension child attaches under parent.
func canAttach(child, parent Dim) bool {
	for _, p := range parents[child] {
		if p == parent {
			return true
		}
	}
	return false
}
