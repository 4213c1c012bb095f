package memory

import (
	"context"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

func (s *Store) ListPrefixes(_ context.Context, datasetID int64) ([]*structure.Prefix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.prefixes, func(p structure.Prefix) bool {
		return p.DatasetID == datasetID
	})), nil
}

func (s *Store) CreatePrefix(_ context.Context, p *structure.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.state.prefixes[p.ID] = *p
	return nil
}

func (s *Store) DeletePrefix(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.prefixes, id)
	s.dropOwner(structure.Owner{Kind: structure.KindPrefix, ID: id})
	return nil
}

func (s *Store) ListGroups(_ context.Context, parent structure.Owner, kind structure.Kind) ([]*structure.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.groups, func(g structure.Group) bool {
		return g.Parent == parent && g.Kind == kind
	})), nil
}

func (s *Store) CreateGroup(_ context.Context, g *structure.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextID()
	s.state.groups[g.ID] = *g
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, g *structure.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.groups, g.ID)
	s.dropOwner(g.Owner())
	return nil
}

func (s *Store) ListItems(_ context.Context, g *structure.Group) ([]*structure.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.items, func(i structure.Item) bool {
		return i.GroupID == g.ID
	})), nil
}

func (s *Store) CreateItem(_ context.Context, i *structure.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.nextID()
	s.state.items[i.ID] = *i
	return nil
}

func (s *Store) DeleteItem(_ context.Context, i *structure.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.items, i.ID)
	s.dropOwner(i.Owner())
	return nil
}

func (s *Store) GetPropertyList(_ context.Context, owner structure.Owner) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.state.propertyLists[owner]...), nil
}

func (s *Store) SetPropertyList(_ context.Context, owner structure.Owner, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		delete(s.state.propertyLists, owner)
		return nil
	}
	s.state.propertyLists[owner] = append([]int64(nil), ids...)
	return nil
}

func (s *Store) ListComments(_ context.Context, owner structure.Owner) ([]*structure.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.comments, func(c structure.Comment) bool {
		return c.Owner == owner
	})), nil
}

func (s *Store) CreateComment(_ context.Context, c *structure.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	c.CreatedAt = s.nowFn()
	s.state.comments[c.ID] = *c
	return nil
}

func (s *Store) DeleteComments(_ context.Context, owner structure.Owner, typ structure.CommentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.state.comments {
		if c.Owner == owner && c.Type == typ {
			delete(s.state.comments, id)
		}
	}
	return nil
}

func (s *Store) ListVersions(_ context.Context, datasetID int64) ([]*structure.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.versions, func(v structure.Version) bool {
		return v.DatasetID == datasetID
	})), nil
}

func (s *Store) CreateVersion(_ context.Context, v *structure.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID()
	v.CreatedAt = s.nowFn()
	s.state.versions[v.ID] = *v
	return nil
}

func (s *Store) CreateMetadataVersion(_ context.Context, mv *structure.MetadataVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mv.ID = s.nextID()
	s.state.metaVersions[mv.ID] = *mv
	return nil
}

// MetadataVersions returns the frozen rows of a version.
func (s *Store) MetadataVersions(versionID int64) []*structure.MetadataVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.metaVersions, func(mv structure.MetadataVersion) bool {
		return mv.VersionID == versionID
	}))
}

// Counts reports how many rows each table holds.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"metadata":       len(s.state.metadata),
		"models":         len(s.state.models),
		"properties":     len(s.state.properties),
		"bases":          len(s.state.bases),
		"prefixes":       len(s.state.prefixes),
		"groups":         len(s.state.groups),
		"items":          len(s.state.items),
		"distributions":  len(s.state.distributions),
		"property_lists": len(s.state.propertyLists),
	}
}
