package structure

import "context"

type MetadataRepository interface {
	FindMetadata(ctx context.Context, filter MetadataFilter) ([]*Metadata, error)
	CreateMetadata(ctx context.Context, m *Metadata) error
	UpdateMetadata(ctx context.Context, m *Metadata) error
}

type DatasetRepository interface {
	GetDataset(ctx context.Context, id int64) (*Dataset, error)
	CreateDataset(ctx context.Context, d *Dataset) error
	// LockDataset serializes imports of one dataset until the transaction ends.
	LockDataset(ctx context.Context, id int64) error
	GetStructure(ctx context.Context, datasetID int64) (*Structure, error)
	SaveStructure(ctx context.Context, s *Structure) error
	ListDistributions(ctx context.Context, datasetID int64) ([]*Distribution, error)
	CreateDistribution(ctx context.Context, d *Distribution) error
}

// ModelRepository deletes remove the record together with its metadata,
// property list and comments. Child records are deleted by the caller.
type ModelRepository interface {
	ListModels(ctx context.Context, datasetID int64) ([]*Model, error)
	CreateModel(ctx context.Context, m *Model) error
	UpdateModel(ctx context.Context, m *Model) error
	DeleteModel(ctx context.Context, id int64) error

	ListProperties(ctx context.Context, modelID int64) ([]*Property, error)
	CreateProperty(ctx context.Context, p *Property) error
	UpdateProperty(ctx context.Context, p *Property) error
	DeleteProperty(ctx context.Context, id int64) error

	ListBases(ctx context.Context, datasetID int64) ([]*Base, error)
	CreateBase(ctx context.Context, b *Base) error
	UpdateBase(ctx context.Context, b *Base) error
	DeleteBase(ctx context.Context, id int64) error
}

type AttachmentRepository interface {
	ListPrefixes(ctx context.Context, datasetID int64) ([]*Prefix, error)
	CreatePrefix(ctx context.Context, p *Prefix) error
	DeletePrefix(ctx context.Context, id int64) error

	ListGroups(ctx context.Context, parent Owner, kind Kind) ([]*Group, error)
	CreateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, g *Group) error

	ListItems(ctx context.Context, group *Group) ([]*Item, error)
	CreateItem(ctx context.Context, i *Item) error
	DeleteItem(ctx context.Context, i *Item) error

	GetPropertyList(ctx context.Context, owner Owner) ([]int64, error)
	SetPropertyList(ctx context.Context, owner Owner, propertyIDs []int64) error
}

type CommentRepository interface {
	ListComments(ctx context.Context, owner Owner) ([]*Comment, error)
	CreateComment(ctx context.Context, c *Comment) error
	DeleteComments(ctx context.Context, owner Owner, typ CommentType) error
}

type VersionRepository interface {
	ListVersions(ctx context.Context, datasetID int64) ([]*Version, error)
	CreateVersion(ctx context.Context, v *Version) error
	CreateMetadataVersion(ctx context.Context, mv *MetadataVersion) error
}

// Transactor runs fn atomically. Repositories called with the context
// passed to fn take part in the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository interface {
	Transactor
	MetadataRepository
	DatasetRepository
	ModelRepository
	AttachmentRepository
	CommentRepository
	VersionRepository
}
