package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

func TestLookupUnknownScoresZero(t *testing.T) {
	c := New([]models.Card{{ID: "a", Score: 80}})

	_, ok := c.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0.0, c.Score("missing"))
	assert.Equal(t, 80.0, c.Score("a"))
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"bolt","name":"Lightning Bolt","score":92,"colors":["R"],"type":"instant","archetypes":["aggro"]},
		{"id":"ox","name":"Ox","score":31}
	]`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	bolt, ok := c.Lookup("bolt")
	require.True(t, ok)
	assert.Equal(t, []string{"R"}, bolt.Colors)
	assert.ElementsMatch(t, []string{"bolt", "ox"}, c.IDs())
	assert.Len(t, c.Cards(), 2)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
