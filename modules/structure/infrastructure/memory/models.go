package memory

import (
	"context"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

func (s *Store) ListModels(_ context.Context, datasetID int64) ([]*structure.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.models, func(m structure.Model) bool {
		return m.DatasetID == datasetID
	})), nil
}

func (s *Store) CreateModel(_ context.Context, m *structure.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID()
	s.state.models[m.ID] = *m
	return nil
}

func (s *Store) UpdateModel(_ context.Context, m *structure.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.models[m.ID]; !ok {
		return structure.ErrNotFound
	}
	s.state.models[m.ID] = *m
	return nil
}

func (s *Store) DeleteModel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.models, id)
	s.dropOwner(structure.Owner{Kind: structure.KindModel, ID: id})
	return nil
}

func (s *Store) ListProperties(_ context.Context, modelID int64) ([]*structure.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.properties, func(p structure.Property) bool {
		return p.ModelID == modelID
	})), nil
}

func (s *Store) CreateProperty(_ context.Context, p *structure.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.state.properties[p.ID] = *p
	return nil
}

func (s *Store) UpdateProperty(_ context.Context, p *structure.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.properties[p.ID]; !ok {
		return structure.ErrNotFound
	}
	s.state.properties[p.ID] = *p
	return nil
}

func (s *Store) DeleteProperty(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.properties, id)
	s.dropOwner(structure.Owner{Kind: structure.KindProperty, ID: id})
	return nil
}

func (s *Store) ListBases(_ context.Context, datasetID int64) ([]*structure.Base, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.bases, func(b structure.Base) bool {
		return b.DatasetID == datasetID
	})), nil
}

func (s *Store) CreateBase(_ context.Context, b *structure.Base) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID()
	s.state.bases[b.ID] = *b
	return nil
}

func (s *Store) UpdateBase(_ context.Context, b *structure.Base) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.bases[b.ID]; !ok {
		return structure.ErrNotFound
	}
	s.state.bases[b.ID] = *b
	return nil
}

func (s *Store) DeleteBase(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.bases, id)
	s.dropOwner(structure.Owner{Kind: structure.KindBase, ID: id})
	return nil
}
