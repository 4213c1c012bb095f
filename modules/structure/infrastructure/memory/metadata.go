package memory

import (
	"context"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

func (s *Store) FindMetadata(_ context.Context, f structure.MetadataFilter) ([]*structure.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.metadata, func(m structure.Metadata) bool {
		switch {
		case f.DatasetID != 0 && m.DatasetID != f.DatasetID:
			return false
		case f.Kind != "" && m.Owner.Kind != f.Kind:
			return false
		case f.Owner != nil && m.Owner != *f.Owner:
			return false
		case f.UUID != nil && m.UUID != *f.UUID:
			return false
		case f.Name != nil && m.Name != *f.Name:
			return false
		case f.DraftOnly && !m.Draft:
			return false
		}
		return true
	})), nil
}

func (s *Store) CreateMetadata(_ context.Context, m *structure.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.state.metadata {
		if other.Owner == m.Owner {
			return structure.ErrMetadataExists
		}
	}
	m.ID = s.nextID()
	m.CreatedAt = s.nowFn()
	m.UpdatedAt = m.CreatedAt
	s.state.metadata[m.ID] = *m
	return nil
}

func (s *Store) UpdateMetadata(_ context.Context, m *structure.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.metadata[m.ID]; !ok {
		return structure.ErrNotFound
	}
	m.UpdatedAt = s.nowFn()
	s.state.metadata[m.ID] = *m
	return nil
}
