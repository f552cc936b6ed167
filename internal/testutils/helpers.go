// Package testutils holds layout fixtures shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SmallLayoutYAML is a valid three-component layout named "small".
const SmallLayoutYAML = `name: small
components:
  - kind: apiGateway
    label: Edge
    zone: center
  - kind: restApi
    label: Orders API
    zone: center
  - kind: postgres
    label: Orders DB
    zone: top
`

// SmallLayoutTOML is SmallLayoutYAML in TOML.
const SmallLayoutTOML = `name = "small"

[[components]]
kind = "apiGateway"
label = "Edge"
zone = "center"

[[components]]
kind = "restApi"
label = "Orders API"
zone = "center"

[[components]]
kind = "postgres"
label = "Orders DB"
zone = "top"
`

// UnknownKindLayoutYAML parses but fails validation.
const UnknownKindLayoutYAML = `components:
  - kind: mainframe
    label: X
    zone: top
`

// WriteLayout writes content to name inside a fresh temp dir and returns
// the path.
func WriteLayout(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Rewrite replaces the contents of an existing layout file.
func Rewrite(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
