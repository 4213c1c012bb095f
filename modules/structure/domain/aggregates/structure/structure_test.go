package structure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestKind_Label(t *testing.T) {
	require.Equal(t, "Model", KindModel.Label())
	require.Equal(t, "Enum item", KindEnumItem.Label())
	require.Equal(t, "Param item", KindParamItem.Label())
}

func TestMetadata_Apply(t *testing.T) {
	base := Fields{Name: "city", Type: "string", LevelGiven: intPtr(3), Title: "Miestas"}

	t.Run("no change", func(t *testing.T) {
		m := &Metadata{}
		m.Apply(base)
		changed, versioned := m.Apply(base)
		require.False(t, changed)
		require.False(t, versioned)
	})

	t.Run("title only", func(t *testing.T) {
		m := &Metadata{}
		m.Apply(base)
		f := base
		f.Title = "City"
		changed, versioned := m.Apply(f)
		require.True(t, changed)
		require.False(t, versioned)
		require.Equal(t, "City", m.Title)
	})

	t.Run("level given", func(t *testing.T) {
		m := &Metadata{}
		m.Apply(base)
		f := base
		f.LevelGiven = intPtr(4)
		changed, versioned := m.Apply(f)
		require.True(t, changed)
		require.True(t, versioned)
	})
}
