// Package memory keeps structures in process memory. It backs dry runs of
// the structure CLI and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

type state struct {
	seq           int64
	datasets      map[int64]structure.Dataset
	structures    map[int64]structure.Structure
	distributions map[int64]structure.Distribution
	metadata      map[int64]structure.Metadata
	models        map[int64]structure.Model
	properties    map[int64]structure.Property
	bases         map[int64]structure.Base
	prefixes      map[int64]structure.Prefix
	groups        map[int64]structure.Group
	items         map[int64]structure.Item
	propertyLists map[structure.Owner][]int64
	comments      map[int64]structure.Comment
	versions      map[int64]structure.Version
	metaVersions  map[int64]structure.MetadataVersion
}

func newState() state {
	return state{
		datasets:      map[int64]structure.Dataset{},
		structures:    map[int64]structure.Structure{},
		distributions: map[int64]structure.Distribution{},
		metadata:      map[int64]structure.Metadata{},
		models:        map[int64]structure.Model{},
		properties:    map[int64]structure.Property{},
		bases:         map[int64]structure.Base{},
		prefixes:      map[int64]structure.Prefix{},
		groups:        map[int64]structure.Group{},
		items:         map[int64]structure.Item{},
		propertyLists: map[structure.Owner][]int64{},
		comments:      map[int64]structure.Comment{},
		versions:      map[int64]structure.Version{},
		metaVersions:  map[int64]structure.MetadataVersion{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) clone() state {
	lists := make(map[structure.Owner][]int64, len(s.propertyLists))
	for k, v := range s.propertyLists {
		lists[k] = append([]int64(nil), v...)
	}
	return state{
		seq:           s.seq,
		datasets:      cloneMap(s.datasets),
		structures:    cloneMap(s.structures),
		distributions: cloneMap(s.distributions),
		metadata:      cloneMap(s.metadata),
		models:        cloneMap(s.models),
		properties:    cloneMap(s.properties),
		bases:         cloneMap(s.bases),
		prefixes:      cloneMap(s.prefixes),
		groups:        cloneMap(s.groups),
		items:         cloneMap(s.items),
		propertyLists: lists,
		comments:      cloneMap(s.comments),
		versions:      cloneMap(s.versions),
		metaVersions:  cloneMap(s.metaVersions),
	}
}

type txKey struct{}

// Store implements structure.Repository.
type Store struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

var _ structure.Repository = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState(), nowFn: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) nextID() int64 {
	s.state.seq++
	return s.state.seq
}

// InTx snapshots the state and restores it when fn fails. Transactions are
// serialized; a nested call joins the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// LockDataset is a no-op: InTx already serializes transactions.
func (s *Store) LockDataset(context.Context, int64) error { return nil }

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

func pointers[V any](values []V) []*V {
	out := make([]*V, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// dropOwner removes the metadata, property list and comments of owner.
func (s *Store) dropOwner(owner structure.Owner) {
	for id, m := range s.state.metadata {
		if m.Owner == owner {
			delete(s.state.metadata, id)
		}
	}
	for id, c := range s.state.comments {
		if c.Owner == owner {
			delete(s.state.comments, id)
		}
	}
	delete(s.state.propertyLists, owner)
}
