package services

import (
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

// StructureImported is published after an import transaction commits.
type StructureImported struct {
	DatasetID int64
	Filename  string
	Result    *ImportResult
}

// VersionCreated is published after drafts are frozen into a version.
type VersionCreated struct {
	DatasetID int64
	Version   *structure.Version
	Frozen    int
}
