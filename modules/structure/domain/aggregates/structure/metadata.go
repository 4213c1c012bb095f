package structure

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Metadata is the attribute bag of one structural object.
type Metadata struct {
	ID           int64
	DatasetID    int64
	Owner        Owner
	UUID         uuid.UUID
	Name         string
	Type         string
	Ref          string
	Source       string
	Prepare      string
	PrepareAST   json.RawMessage
	Level        *int
	LevelGiven   *int
	AverageLevel *float64
	Access       string
	URI          string
	Title        string
	Description  string
	Version      int
	Order        int
	Draft        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fields is the part of Metadata that comes from a manifest row.
type Fields struct {
	Name        string          `json:"name"`
	Type        string          `json:"type,omitempty"`
	Ref         string          `json:"ref,omitempty"`
	Source      string          `json:"source,omitempty"`
	Prepare     string          `json:"prepare,omitempty"`
	PrepareAST  json.RawMessage `json:"prepare_ast,omitempty"`
	Level       *int            `json:"level,omitempty"`
	LevelGiven  *int            `json:"level_given,omitempty"`
	Access      string          `json:"access,omitempty"`
	URI         string          `json:"uri,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (m *Metadata) Fields() Fields {
	return Fields{
		Name:        m.Name,
		Type:        m.Type,
		Ref:         m.Ref,
		Source:      m.Source,
		Prepare:     m.Prepare,
		PrepareAST:  m.PrepareAST,
		Level:       m.Level,
		LevelGiven:  m.LevelGiven,
		Access:      m.Access,
		URI:         m.URI,
		Title:       m.Title,
		Description: m.Description,
	}
}

// Apply overwrites the descriptive fields. changed reports any difference;
// versioned reports a difference in a field that is frozen into versions.
func (m *Metadata) Apply(f Fields) (changed, versioned bool) {
	versioned = m.Name != f.Name ||
		m.Type != f.Type ||
		m.Ref != f.Ref ||
		m.Source != f.Source ||
		m.Prepare != f.Prepare ||
		!equalInt(m.LevelGiven, f.LevelGiven) ||
		m.Access != f.Access
	changed = versioned ||
		!equalInt(m.Level, f.Level) ||
		m.URI != f.URI ||
		m.Title != f.Title ||
		m.Description != f.Description

	m.Name, m.Type, m.Ref, m.Source, m.Prepare = f.Name, f.Type, f.Ref, f.Source, f.Prepare
	m.PrepareAST = f.PrepareAST
	m.Level, m.LevelGiven = f.Level, f.LevelGiven
	m.Access, m.URI, m.Title, m.Description = f.Access, f.URI, f.Title, f.Description
	return changed, versioned
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MetadataFilter narrows FindMetadata. Zero fields are ignored.
type MetadataFilter struct {
	DatasetID int64
	Kind      Kind
	Owner     *Owner
	UUID      *uuid.UUID
	Name      *string
	DraftOnly bool
}
