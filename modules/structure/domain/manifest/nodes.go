package manifest

// Access levels accepted in the access column.
const (
	AccessUndefined = ""
	AccessPrivate   = "private"
	AccessProtected = "protected"
	AccessPublic    = "public"
	AccessOpen      = "open"
)

var accessValues = map[string]bool{
	AccessUndefined: true,
	AccessPrivate:   true,
	AccessProtected: true,
	AccessPublic:    true,
	AccessOpen:      true,
}

// Node is any element of the parsed tree.
type Node interface {
	Dim() Dim
	Metadata() *Meta
}

// Meta holds the columns every node carries.
type Meta struct {
	ID          string `yaml:"id,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Ref         string `yaml:"ref,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Prepare     string `yaml:"prepare,omitempty"`
	Level       *int   `yaml:"level,omitempty"`
	LevelGiven  *int   `yaml:"level_given,omitempty"`
	Access      string `yaml:"access,omitempty"`
	URI         string `yaml:"uri,omitempty"`
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Order is the zero based position of the row among data rows.
	Order int `yaml:"-"`
	// Line is the 1 based line in the file, header included.
	Line int `yaml:"-"`

	Comments []*Comment `yaml:"comments,omitempty"`
	Langs    []*Lang    `yaml:"langs,omitempty"`
	Errors   []string   `yaml:"errors,omitempty"`
}

func (m *Meta) Metadata() *Meta { return m }

func (m *Meta) addError(msg string) { m.Errors = append(m.Errors, msg) }

func (m *Meta) HasErrors() bool { return len(m.Errors) > 0 }

type Dataset struct {
	Meta      `yaml:",inline"`
	Resources []*Resource `yaml:"resources,omitempty"`
	Bases     []*Base     `yaml:"bases,omitempty"`
	Models    []*Model    `yaml:"models,omitempty"`
	Prefixes  []*Prefix   `yaml:"prefixes,omitempty"`
	Enums     []*Group    `yaml:"enums,omitempty"`
	Params    []*Group    `yaml:"params,omitempty"`

	resources map[string]*Resource
}

func (*Dataset) Dim() Dim { return DimDataset }

// Resource returns the dataset resource with the given name.
func (d *Dataset) Resource(name string) *Resource {
	return d.resources[name]
}

type Resource struct {
	Meta    `yaml:",inline"`
	Dataset *Dataset `yaml:"-"`
	Params  []*Group `yaml:"params,omitempty"`
}

func (*Resource) Dim() Dim { return DimResource }

// Base makes the models under it inherit the identity of another model.
// Name is the base model name and Ref the comma separated key properties.
type Base struct {
	Meta    `yaml:",inline"`
	Dataset *Dataset `yaml:"-"`
	// Model is the absolute name of the base model.
	Model    string   `yaml:"model"`
	RefProps []string `yaml:"ref_props,omitempty"`
}

func (*Base) Dim() Dim { return DimBase }

type Model struct {
	Meta `yaml:",inline"`
	// LocalName is the model name without the dataset prefix.
	LocalName  string      `yaml:"-"`
	Dataset    *Dataset    `yaml:"-"`
	Resource   *Resource   `yaml:"-"`
	Base       *Base       `yaml:"-"`
	RefProps   []string    `yaml:"ref_props,omitempty"`
	Properties []*Property `yaml:"properties,omitempty"`
	Params     []*Group    `yaml:"params,omitempty"`

	properties map[string]*Property
}

func (*Model) Dim() Dim { return DimModel }

// Property returns the first property declared with name.
func (m *Model) Property(name string) *Property {
	return m.properties[name]
}

type Property struct {
	Meta  `yaml:",inline"`
	Model *Model `yaml:"-"`
	// DataType is the type without arguments or flags.
	DataType string   `yaml:"data_type,omitempty"`
	TypeArgs []string `yaml:"type_args,omitempty"`
	Required bool     `yaml:"required,omitempty"`
	Unique   bool     `yaml:"unique,omitempty"`
	// RefModel is the absolute name of the referenced model for ref types.
	RefModel string   `yaml:"ref_model,omitempty"`
	RefProps []string `yaml:"ref_props,omitempty"`
	Enums    []*Group `yaml:"enums,omitempty"`
	Params   []*Group `yaml:"params,omitempty"`
}

func (*Property) Dim() Dim { return DimProperty }

// IsRef reports whether the property points at another model.
func (p *Property) IsRef() bool {
	return isRefType(p.DataType)
}

type Comment struct {
	Meta   `yaml:",inline"`
	Parent Node `yaml:"-"`
}

func (*Comment) Dim() Dim { return DimComment }

// Body is the comment text, kept in the description column.
func (c *Comment) Body() string { return c.Description }

// Author is the comment author, kept in the source column.
func (c *Comment) Author() string { return c.Source }

type Prefix struct {
	Meta    `yaml:",inline"`
	Dataset *Dataset `yaml:"-"`
}

func (*Prefix) Dim() Dim { return DimPrefix }

// Group collects same-named enum or param rows under one parent.
type Group struct {
	Kind   Dim     `yaml:"-"`
	Name   string  `yaml:"name,omitempty"`
	Parent Node    `yaml:"-"`
	Items  []*Item `yaml:"items"`
}

// Item is one enum value or param source.
type Item struct {
	Meta  `yaml:",inline"`
	Group *Group `yaml:"-"`
}

func (i *Item) Dim() Dim { return i.Group.Kind }

// Key is the value that identifies an item within its group.
func (i *Item) Key() string {
	if i.Prepare != "" {
		return i.Prepare
	}
	return i.Source
}

// Lang carries a translation of the parent title and description. Ref is
// the language code.
type Lang struct {
	Meta   `yaml:",inline"`
	Parent Node `yaml:"-"`
}

func (*Lang) Dim() Dim { return DimLang }

// Manifest is the root of a parsed tree.
type Manifest struct {
	Datasets []*Dataset `yaml:"datasets,omitempty"`
	// Models holds every model in read order, including the ones without a dataset.
	Models   []*Model   `yaml:"-"`
	Comments []*Comment `yaml:"comments,omitempty"`
	Prefixes []*Prefix  `yaml:"prefixes,omitempty"`
	Errors   []string   `yaml:"errors,omitempty"`

	datasets map[string]*Dataset
	models   map[string]*Model
}

func newManifest() *Manifest {
	return &Manifest{
		datasets: map[string]*Dataset{},
		models:   map[string]*Model{},
	}
}

func (m *Manifest) Dataset(name string) *Dataset { return m.datasets[name] }

// Model looks a model up by absolute name.
func (m *Manifest) Model(name string) *Model { return m.models[name] }

// State is the outcome of reading a manifest. Errors are file level
// problems that prevented reading; Manifest is nil when it is non-empty.
type State struct {
	Manifest *Manifest `yaml:"manifest,omitempty"`
	Errors   []string  `yaml:"errors,omitempty"`
}

func (s State) OK() bool { return len(s.Errors) == 0 }
