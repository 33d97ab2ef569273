package pooltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolName(t *testing.T) {
	n, err := NewPoolName("  Media Pool  ")
	require.NoError(t, err)
	assert.Equal(t, "Media Pool", n.String())

	_, err = NewPoolName("   ")
	assert.Error(t, err)

	_, err = NewPoolName("bad/name")
	assert.Error(t, err)

	a, _ := NewPoolName("Pool")
	b, _ := NewPoolName("pool")
	assert.True(t, a.Equal(b))
}

func TestNewFolderPath(t *testing.T) {
	p, err := NewFolderPath("/movies//2020/")
	require.NoError(t, err)
	assert.Equal(t, []string{"movies", "2020"}, p.Segments())
	assert.Equal(t, "movies/2020", p.String())
	assert.Equal(t, "2020", p.Base())
	assert.Equal(t, "movies", p.Parent().String())

	root, err := NewFolderPath("")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.True(t, root.Parent().IsRoot())

	_, err = NewFolderPath("bad<name")
	assert.Error(t, err)

	combined := root.Combine("docs").Combine("a.txt")
	assert.Equal(t, "docs/a.txt", combined.String())
}

func TestFolderPathEqual(t *testing.T) {
	a, _ := NewFolderPath("a/b")
	b, _ := NewFolderPath("/a/b/")
	assert.True(t, a.Equal(b))
}
