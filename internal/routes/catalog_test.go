package routes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routeYAML = `
routes:
  - id: R1
    name: Downtown
    bin_ids: [BIN-001, BIN-002]
  - name: No id here
    bin_ids: [BIN-009]
  - id: R2
    name: Uptown
    bin_ids: []
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(strings.NewReader(routeYAML))
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	routes := c.Routes()
	assert.Equal(t, "R1", routes[0].ID)
	assert.Equal(t, []string{"BIN-001", "BIN-002"}, routes[0].BinIDs)
	assert.Equal(t, "R2", routes[1].ID)
	assert.Empty(t, routes[1].BinIDs)

	_, ok := c.Route("R3")
	assert.False(t, ok)
}

func TestParseCatalogRejectsBadYAML(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("routes: [unterminated"))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routeYAML), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDuplicateIDKeepsPosition(t *testing.T) {
	c, err := ParseCatalog(strings.NewReader(`
routes:
  - {id: A, name: first, bin_ids: [BIN-001]}
  - {id: B, name: second}
  - {id: A, name: replaced, bin_ids: [BIN-002]}
`))
	require.NoError(t, err)
	routes := c.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "replaced", routes[0].Name)
	assert.Equal(t, "B", routes[1].ID)
}

func TestRoutesReturnsCopies(t *testing.T) {
	c := DefaultCatalog()
	routes := c.Routes()
	routes[0].BinIDs[0] = "tampered"

	r, _ := c.Route(routes[0].ID)
	assert.Equal(t, "BIN-001", r.BinIDs[0])
}
