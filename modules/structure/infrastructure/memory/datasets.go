package memory

import (
	"context"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

func (s *Store) GetDataset(_ context.Context, id int64) (*structure.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.datasets[id]
	if !ok {
		return nil, structure.ErrNotFound
	}
	return &d, nil
}

func (s *Store) CreateDataset(_ context.Context, d *structure.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID()
	d.CreatedAt = s.nowFn()
	s.state.datasets[d.ID] = *d
	return nil
}

func (s *Store) GetStructure(_ context.Context, datasetID int64) (*structure.Structure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.state.structures {
		if st.DatasetID == datasetID {
			return &st, nil
		}
	}
	return nil, structure.ErrNotFound
}

// SaveStructure keeps one structure per dataset, replacing the file of an existing one.
func (s *Store) SaveStructure(_ context.Context, st *structure.Structure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	for id, existing := range s.state.structures {
		if existing.DatasetID == st.DatasetID {
			st.ID, st.CreatedAt, st.UpdatedAt = id, existing.CreatedAt, now
			s.state.structures[id] = *st
			return nil
		}
	}
	st.ID = s.nextID()
	st.CreatedAt, st.UpdatedAt = now, now
	s.state.structures[st.ID] = *st
	return nil
}

func (s *Store) ListDistributions(_ context.Context, datasetID int64) ([]*structure.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pointers(sortedValues(s.state.distributions, func(d structure.Distribution) bool {
		return d.DatasetID == datasetID
	})), nil
}

func (s *Store) CreateDistribution(_ context.Context, d *structure.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID()
	s.state.distributions[d.ID] = *d
	return nil
}
