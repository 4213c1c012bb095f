package structure

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the content type half of a generic relation.
type Kind string

const (
	KindDataset      Kind = "dataset"
	KindStructure    Kind = "structure"
	KindDistribution Kind = "distribution"
	KindModel        Kind = "model"
	KindProperty     Kind = "property"
	KindBase         Kind = "base"
	KindPrefix       Kind = "prefix"
	KindEnum         Kind = "enum"
	KindEnumItem     Kind = "enum_item"
	KindParam        Kind = "param"
	KindParamItem    Kind = "param_item"
)

// Label is the human readable kind used in messages.
func (k Kind) Label() string {
	switch k {
	case KindEnumItem:
		return "Enum item"
	case KindParamItem:
		return "Param item"
	case "":
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Owner points at any structural object.
type Owner struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func (o Owner) String() string { return fmt.Sprintf("%s:%d", o.Kind, o.ID) }

func (o Owner) IsZero() bool { return o.Kind == "" && o.ID == 0 }

type Dataset struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

func (d *Dataset) Owner() Owner { return Owner{Kind: KindDataset, ID: d.ID} }

// Structure is the manifest file uploaded for a dataset.
type Structure struct {
	ID        int64
	DatasetID int64
	Filename  string
	Format    string
	Content   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Structure) Owner() Owner { return Owner{Kind: KindStructure, ID: s.ID} }

const (
	DistributionTypeURL   = "URL"
	DistributionFormatAPI = "API"
)

type Distribution struct {
	ID          int64
	DatasetID   int64
	Title       string
	DownloadURL string
	Type        string
	Format      string
}

func (d *Distribution) Owner() Owner { return Owner{Kind: KindDistribution, ID: d.ID} }

type Model struct {
	ID             int64
	DatasetID      int64
	BaseID         *int64
	DistributionID *int64
}

func (m *Model) Owner() Owner { return Owner{Kind: KindModel, ID: m.ID} }

type Property struct {
	ID         int64
	ModelID    int64
	RefModelID *int64
	// ParentID links a denormalized property to the property its name extends.
	ParentID *int64
	// Given is false for parents synthesized from dotted names.
	Given bool
}

func (p *Property) Owner() Owner { return Owner{Kind: KindProperty, ID: p.ID} }

// Base records that models inherit identity from ModelID.
type Base struct {
	ID        int64
	DatasetID int64
	ModelID   int64
}

func (b *Base) Owner() Owner { return Owner{Kind: KindBase, ID: b.ID} }

type Prefix struct {
	ID        int64
	DatasetID int64
}

func (p *Prefix) Owner() Owner { return Owner{Kind: KindPrefix, ID: p.ID} }

// Group is an enum or a param attached to Parent.
type Group struct {
	ID        int64
	DatasetID int64
	Kind      Kind
	Parent    Owner
	Name      string
}

func (g *Group) Owner() Owner { return Owner{Kind: g.Kind, ID: g.ID} }

// ItemKind returns the kind of the items the group holds.
func (g *Group) ItemKind() Kind {
	if g.Kind == KindEnum {
		return KindEnumItem
	}
	return KindParamItem
}

type Item struct {
	ID        int64
	DatasetID int64
	Kind      Kind
	GroupID   int64
}

func (i *Item) Owner() Owner { return Owner{Kind: i.Kind, ID: i.ID} }

type CommentType string

const (
	CommentStructure      CommentType = "STRUCTURE"
	CommentStructureError CommentType = "STRUCTURE_ERROR"
)

type Comment struct {
	ID        int64
	DatasetID int64
	Owner     Owner
	Type      CommentType
	Body      string
	User      string
	CreatedAt time.Time
}

type Version struct {
	ID          int64
	DatasetID   int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// MetadataVersion freezes the versioned fields of one metadata row.
type MetadataVersion struct {
	ID         int64
	VersionID  int64
	MetadataID int64
	Version    int
	Name       string
	Type       string
	Ref        string
	Source     string
	Prepare    string
	LevelGiven *int
	Access     string
	// Base is the base model name, set for models only.
	Base string
}
