package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/pkg/formula"
)

// Options tune how a manifest is merged into storage.
type Options struct {
	// APIHost is used to build distribution URLs of models without a resource.
	APIHost string
	// Strict rejects the whole import when the manifest has manifest level errors.
	Strict bool
	// MaxDenormDepth caps the number of segments in a dotted property name.
	MaxDenormDepth int
}

// scope is the set of sibling records a node is matched and checked against.
type scope struct {
	kind   structure.Kind
	parent structure.Owner
	// owner is set when the record is known up front and only its metadata is merged.
	owner  structure.Owner
	owners []structure.Owner
	// key identifies a sibling for name matching, the name when nil.
	key func(f structure.Fields) string
	// noConflict adopts a same-named sibling instead of rejecting the node.
	noConflict bool
}

func (sc *scope) keyOf(f structure.Fields) string {
	if sc.key != nil {
		return sc.key(f)
	}
	return f.Name
}

func itemKey(f structure.Fields) string { return f.Name + "\x00" + f.Prepare }

func owners[T interface{ Owner() structure.Owner }](records []T) []structure.Owner {
	out := make([]structure.Owner, len(records))
	for i, r := range records {
		out[i] = r.Owner()
	}
	return out
}

// run holds the state of one import of one dataset.
type run struct {
	ctx     context.Context
	repo    structure.Repository
	opts    Options
	log     *logrus.Entry
	dataset *structure.Dataset
	file    structure.Owner
	result  *ImportResult

	meta   map[structure.Owner]*structure.Metadata
	byUUID map[uuid.UUID]structure.Owner
	// seen marks records that must survive the removal passes.
	seen map[structure.Owner]bool

	distributions []*structure.Distribution
	resources     map[*manifest.Resource]*structure.Distribution
	bases         []*baseLink
	baseByModel   map[string]*baseLink
	models        []*modelLink
	modelByName   map[string]*modelLink
	properties    map[int64]map[string]*structure.Property

	errs    map[structure.Owner][]string
	notes   map[structure.Owner][]*manifest.Comment
	noted   map[structure.Owner]bool
	touched []structure.Owner
	touch   map[structure.Owner]bool
}

type baseLink struct {
	node   *manifest.Base
	record *structure.Base
}

type modelLink struct {
	node   *manifest.Model
	record *structure.Model
	props  []*propertyLink
}

type propertyLink struct {
	node   *manifest.Property
	record *structure.Property
}

func newRun(ctx context.Context, repo structure.Repository, opts Options, ds *structure.Dataset, file structure.Owner) *run {
	return &run{
		ctx:         ctx,
		repo:        repo,
		opts:        opts,
		log:         logrus.NewEntry(logrus.StandardLogger()).WithField("component", "structure-reconciler"),
		dataset:     ds,
		file:        file,
		result:      &ImportResult{DatasetID: ds.ID},
		meta:        map[structure.Owner]*structure.Metadata{},
		byUUID:      map[uuid.UUID]structure.Owner{},
		seen:        map[structure.Owner]bool{},
		resources:   map[*manifest.Resource]*structure.Distribution{},
		baseByModel: map[string]*baseLink{},
		modelByName: map[string]*modelLink{},
		properties:  map[int64]map[string]*structure.Property{},
		errs:        map[structure.Owner][]string{},
		notes:       map[structure.Owner][]*manifest.Comment{},
		noted:       map[structure.Owner]bool{},
		touch:       map[structure.Owner]bool{},
	}
}

// reconcile merges state into the storage of ds. Node level problems are
// written as comments and never returned as errors.
func reconcile(ctx context.Context, repo structure.Repository, opts Options, log *logrus.Entry, ds *structure.Dataset, file structure.Owner, state manifest.State) (*ImportResult, error) {
	r := newRun(ctx, repo, opts, ds, file)
	if log != nil {
		r.log = log.WithField("component", "structure-reconciler")
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	r.touchOwner(file)
	r.noted[file] = true

	if !state.OK() {
		r.result.FileErrors = state.Errors
		r.addError(file, state.Errors...)
		return r.result, r.flush()
	}
	m := state.Manifest
	r.addError(file, m.Errors...)
	if opts.Strict && len(m.Errors) > 0 {
		return nil, errors.Wrapf(structure.ErrStrictImport, "%d manifest errors", len(m.Errors))
	}
	r.notes[file] = append(r.notes[file], m.Comments...)

	if len(m.Datasets) == 0 {
		r.addError(file, "Manifest has no dataset.")
		return r.result, r.flush()
	}
	for _, extra := range m.Datasets[1:] {
		r.addError(file, fmt.Sprintf("Only the first dataset is imported, %q was skipped.", extra.Name))
	}
	if err := r.reconcileDataset(m.Datasets[0]); err != nil {
		return nil, err
	}
	return r.result, r.flush()
}

func (r *run) load() error {
	rows, err := r.repo.FindMetadata(r.ctx, structure.MetadataFilter{DatasetID: r.dataset.ID})
	if err != nil {
		return errors.Wrap(err, "load metadata")
	}
	for _, m := range rows {
		r.remember(m)
	}
	r.distributions, err = r.repo.ListDistributions(r.ctx, r.dataset.ID)
	if err != nil {
		return errors.Wrap(err, "load distributions")
	}
	return nil
}

func (r *run) remember(m *structure.Metadata) {
	r.meta[m.Owner] = m
	r.byUUID[m.UUID] = m.Owner
}

func (r *run) forget(owner structure.Owner) {
	if m, ok := r.meta[owner]; ok {
		delete(r.byUUID, m.UUID)
		delete(r.meta, owner)
	}
}

func (r *run) name(owner structure.Owner) string {
	if m, ok := r.meta[owner]; ok {
		return m.Name
	}
	return ""
}

func (r *run) touchOwner(owner structure.Owner) {
	if !r.touch[owner] {
		r.touch[owner] = true
		r.touched = append(r.touched, owner)
	}
}

func (r *run) addError(owner structure.Owner, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	r.touchOwner(owner)
	r.errs[owner] = append(r.errs[owner], msgs...)
}

func (r *run) reject(kind structure.Kind, owner structure.Owner, name string) {
	r.result.add(Change{Action: ActionRejected, Kind: kind, Owner: owner, Name: name})
}

// usedElsewhere reports whether id belongs to a record outside of except.
func (r *run) usedElsewhere(id uuid.UUID, except structure.Owner) (bool, error) {
	if owner, ok := r.byUUID[id]; ok {
		return owner != except, nil
	}
	rows, err := r.repo.FindMetadata(r.ctx, structure.MetadataFilter{UUID: &id})
	if err != nil {
		return false, errors.Wrap(err, "find metadata by uuid")
	}
	for _, m := range rows {
		if m.DatasetID != r.dataset.ID {
			return true, nil
		}
	}
	return false, nil
}

func fieldsOf(m *manifest.Meta) structure.Fields {
	return structure.Fields{
		Name:        m.Name,
		Type:        m.Type,
		Ref:         m.Ref,
		Source:      m.Source,
		Prepare:     m.Prepare,
		Level:       m.Level,
		LevelGiven:  m.LevelGiven,
		Access:      m.Access,
		URI:         m.URI,
		Title:       m.Title,
		Description: m.Description,
	}
}

func formulaError(src string, err error) string {
	var se *formula.SyntaxError
	if errors.As(err, &se) {
		return fmt.Sprintf("Formula %q has a syntax error at position %d: %s.", src, se.Pos, se.Msg)
	}
	return fmt.Sprintf("Formula %q could not be parsed: %v.", src, err)
}

// upsert merges node into sc. It returns false when the node was rejected;
// a rejected node leaves the record it matched untouched.
func (r *run) upsert(node manifest.Node, sc *scope, fields structure.Fields, label string, create func() (structure.Owner, error)) (structure.Owner, bool, error) {
	meta := node.Metadata()
	var id uuid.UUID
	hasID := false
	if meta.ID != "" {
		if parsed, err := uuid.Parse(meta.ID); err == nil {
			id, hasID = parsed, true
		}
	}

	var match, clash *structure.Metadata
	if !sc.owner.IsZero() {
		match = r.meta[sc.owner]
	} else {
		if hasID {
			if owner, ok := r.byUUID[id]; ok && r.inScope(sc, owner) {
				match = r.meta[owner]
			}
		}
		key := sc.keyOf(fields)
		for _, o := range sc.owners {
			m := r.meta[o]
			if m == nil || r.seen[o] || (match != nil && o == match.Owner) || sc.keyOf(m.Fields()) != key {
				continue
			}
			clash = m
			break
		}
		// A blank id never matches by name outside no-conflict scopes.
		if match == nil && clash != nil && sc.noConflict {
			match = clash
		}
		if sc.noConflict {
			clash = nil
		}
	}

	errs := append([]string(nil), meta.Errors...)
	ast, err := formula.ParseJSON(meta.Prepare)
	if err != nil {
		errs = append(errs, formulaError(meta.Prepare, err))
	}
	if len(errs) > 0 {
		target := sc.parent
		if match != nil {
			target = match.Owner
			r.seen[target] = true
		}
		r.addError(target, errs...)
		r.reject(sc.kind, target, label)
		return structure.Owner{}, false, nil
	}

	if hasID && (match == nil || match.UUID != id) {
		except := structure.Owner{}
		if match != nil {
			except = match.Owner
		}
		used, err := r.usedElsewhere(id, except)
		if err != nil {
			return structure.Owner{}, false, err
		}
		if used {
			if match != nil {
				r.seen[match.Owner] = true
			}
			r.addError(sc.parent, fmt.Sprintf("Id %q is already used by another object.", meta.ID))
			r.reject(sc.kind, sc.parent, label)
			return structure.Owner{}, false, nil
		}
	}

	if clash != nil {
		r.seen[clash.Owner] = true
		if match != nil {
			r.seen[match.Owner] = true
		}
		r.addError(sc.parent, fmt.Sprintf("%s %q already exists.", sc.kind.Label(), label))
		r.reject(sc.kind, clash.Owner, label)
		return structure.Owner{}, false, nil
	}

	fields.PrepareAST = ast
	if match != nil {
		return match.Owner, true, r.update(match, sc.kind, fields, meta, hasID, id, label)
	}

	owner := sc.owner
	if owner.IsZero() {
		if owner, err = create(); err != nil {
			return structure.Owner{}, false, err
		}
	}
	m := &structure.Metadata{
		DatasetID: r.dataset.ID,
		Owner:     owner,
		UUID:      id,
		Version:   1,
		Order:     meta.Order,
		Draft:     true,
	}
	if !hasID {
		m.UUID = uuid.New()
	}
	m.Apply(fields)
	if err := r.repo.CreateMetadata(r.ctx, m); err != nil {
		return structure.Owner{}, false, errors.Wrapf(err, "create %s metadata", sc.kind)
	}
	r.remember(m)
	sc.owners = append(sc.owners, owner)
	r.accept(owner, meta)
	r.result.add(Change{Action: ActionCreated, Kind: sc.kind, Owner: owner, Name: label})
	return owner, true, nil
}

func (r *run) update(m *structure.Metadata, kind structure.Kind, fields structure.Fields, meta *manifest.Meta, hasID bool, id uuid.UUID, label string) error {
	before := m.Fields()
	restamp := hasID && m.UUID != id
	if restamp {
		delete(r.byUUID, m.UUID)
		m.UUID = id
		r.byUUID[id] = m.Owner
	}
	changed, versioned := m.Apply(fields)
	moved := m.Order != meta.Order
	m.Order = meta.Order
	r.accept(m.Owner, meta)

	if !changed && !restamp {
		r.result.add(Change{Action: ActionUnchanged, Kind: kind, Owner: m.Owner, Name: label})
		if !moved {
			return nil
		}
		if err := r.repo.UpdateMetadata(r.ctx, m); err != nil {
			return errors.Wrapf(err, "reorder %s metadata", kind)
		}
		return nil
	}
	m.Version++
	if versioned || restamp {
		m.Draft = true
	}
	if err := r.repo.UpdateMetadata(r.ctx, m); err != nil {
		return errors.Wrapf(err, "update %s metadata", kind)
	}
	patch, err := jsondiff.Compare(before, m.Fields())
	if err != nil {
		return errors.Wrap(err, "diff metadata")
	}
	r.result.add(Change{Action: ActionUpdated, Kind: kind, Owner: m.Owner, Name: label, Patch: patch})
	return nil
}

// accept marks owner as present in the manifest and records the comments
// of its node.
func (r *run) accept(owner structure.Owner, meta *manifest.Meta) {
	r.seen[owner] = true
	r.touchOwner(owner)
	r.noted[owner] = true
	r.notes[owner] = append(r.notes[owner], meta.Comments...)
}

func (r *run) inScope(sc *scope, owner structure.Owner) bool {
	for _, o := range sc.owners {
		if o == owner {
			return true
		}
	}
	return false
}

// ensureMetadata creates a metadata row for a record that has no manifest
// row of its own. An existing row is left as is.
func (r *run) ensureMetadata(owner structure.Owner, fields structure.Fields, order int) error {
	r.seen[owner] = true
	if _, ok := r.meta[owner]; ok {
		return nil
	}
	m := &structure.Metadata{
		DatasetID: r.dataset.ID,
		Owner:     owner,
		UUID:      uuid.New(),
		Version:   1,
		Order:     order,
		Draft:     true,
	}
	m.Apply(fields)
	if err := r.repo.CreateMetadata(r.ctx, m); err != nil {
		return errors.Wrapf(err, "create %s metadata", owner.Kind)
	}
	r.remember(m)
	return nil
}

// removeUnseen deletes the records of sc that no node matched.
func (r *run) removeUnseen(sc *scope, del func(owner structure.Owner) error) error {
	for _, o := range sc.owners {
		if r.seen[o] {
			continue
		}
		if err := del(o); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) deleted(owner structure.Owner) {
	r.result.add(Change{Action: ActionDeleted, Kind: owner.Kind, Owner: owner, Name: r.name(owner)})
	r.forget(owner)
}

// flush rewrites the comments of every owner the import touched.
func (r *run) flush() error {
	for _, owner := range r.touched {
		if err := r.repo.DeleteComments(r.ctx, owner, structure.CommentStructureError); err != nil {
			return errors.Wrap(err, "clear error comments")
		}
		for _, msg := range r.errs[owner] {
			c := &structure.Comment{
				DatasetID: r.dataset.ID,
				Owner:     owner,
				Type:      structure.CommentStructureError,
				Body:      msg,
			}
			if err := r.repo.CreateComment(r.ctx, c); err != nil {
				return errors.Wrap(err, "create error comment")
			}
			r.result.Errors = append(r.result.Errors, NodeError{Owner: owner, Message: msg})
		}
		if !r.noted[owner] {
			continue
		}
		if err := r.repo.DeleteComments(r.ctx, owner, structure.CommentStructure); err != nil {
			return errors.Wrap(err, "clear comments")
		}
		for _, note := range r.notes[owner] {
			c := &structure.Comment{
				DatasetID: r.dataset.ID,
				Owner:     owner,
				Type:      structure.CommentStructure,
				Body:      note.Body(),
				User:      note.Author(),
			}
			if err := r.repo.CreateComment(r.ctx, c); err != nil {
				return errors.Wrap(err, "create comment")
			}
		}
	}
	if len(r.result.Errors) > 0 {
		r.log.WithField("errors", len(r.result.Errors)).Warn("manifest imported with errors")
	}
	return nil
}
