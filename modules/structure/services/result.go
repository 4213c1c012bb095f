package services

import (
	"github.com/wI2L/jsondiff"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionDeleted   Action = "deleted"
	ActionRejected  Action = "rejected"
)

// Change is what happened to one node during an import. Patch holds the
// metadata field changes of an update.
type Change struct {
	Action Action          `json:"action"`
	Kind   structure.Kind  `json:"kind"`
	Owner  structure.Owner `json:"owner"`
	Name   string          `json:"name"`
	Patch  jsondiff.Patch  `json:"patch,omitempty"`
}

// NodeError is a STRUCTURE_ERROR comment written by an import.
type NodeError struct {
	Owner   structure.Owner `json:"owner"`
	Message string          `json:"message"`
}

type ImportResult struct {
	DatasetID int64 `json:"dataset_id"`
	Created   int   `json:"created"`
	Updated   int   `json:"updated"`
	Unchanged int   `json:"unchanged"`
	Deleted   int   `json:"deleted"`
	Rejected  int   `json:"rejected"`
	// FileErrors are set when the file could not be read at all.
	FileErrors []string    `json:"file_errors,omitempty"`
	Errors     []NodeError `json:"errors,omitempty"`
	Changes    []Change    `json:"changes,omitempty"`
}

func (r *ImportResult) add(c Change) {
	switch c.Action {
	case ActionCreated:
		r.Created++
	case ActionUpdated:
		r.Updated++
	case ActionUnchanged:
		r.Unchanged++
	case ActionDeleted:
		r.Deleted++
	case ActionRejected:
		r.Rejected++
	}
	r.Changes = append(r.Changes, c)
}

// Of returns the changes with the given action.
func (r *ImportResult) Of(action Action) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// ErrorsOf returns the messages written to owner.
func (r *ImportResult) ErrorsOf(owner structure.Owner) []string {
	var out []string
	for _, e := range r.Errors {
		if e.Owner == owner {
			out = append(out, e.Message)
		}
	}
	return out
}
