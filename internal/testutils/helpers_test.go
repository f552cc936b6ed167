package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/techviz/internal/topology"
)

func TestFixturesParse(t *testing.T) {
	yml, err := topology.ParseLayout([]byte(SmallLayoutYAML), "yaml")
	require.NoError(t, err)
	toml, err := topology.ParseLayout([]byte(SmallLayoutTOML), "toml")
	require.NoError(t, err)
	assert.Equal(t, yml, toml)
	assert.Len(t, yml.Components, 3)

	_, err = topology.ParseLayout([]byte(UnknownKindLayoutYAML), "yaml")
	assert.Error(t, err)
}

func TestWriteLayout(t *testing.T) {
	path := WriteLayout(t, "layout.yml", SmallLayoutYAML)
	assert.Equal(t, "layout.yml", filepath.Base(path))

	Rewrite(t, path, "name: other\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: other\n", string(data))
}
