package structure

import "errors"

var (
	ErrNotFound          = errors.New("structure: not found")
	ErrMetadataExists    = errors.New("structure: object already has metadata")
	ErrDatasetRequired   = errors.New("structure: dataset id is required")
	ErrUnsupportedFormat = errors.New("structure: unsupported manifest format")
	ErrStrictImport      = errors.New("structure: manifest has errors and strict import is enabled")
	ErrNoDrafts          = errors.New("structure: no draft changes to version")
)
