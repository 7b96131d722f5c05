// Package routes holds the static route configuration and derives
// per-route and global summaries from the collection log.
package routes

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"ropacal-telemetry/internal/models"
)

// Catalog is the ordered route configuration. It is read-only once
// built and safe for concurrent use.
type Catalog struct {
	routes []models.Route
	byID   map[string]int
}

type catalogFile struct {
	Routes []models.Route `yaml:"routes"`
}

// NewCatalog builds a catalog from routes in the given order. Routes
// without an id are skipped; a repeated id replaces the earlier entry
// in place.
func NewCatalog(routes []models.Route) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(routes))}
	for i, r := range routes {
		if r.ID == "" {
			log.Printf("⚠️  [ROUTES] Skipping route entry %d (%q): missing id", i, r.Name)
			continue
		}
		bins := make([]string, len(r.BinIDs))
		copy(bins, r.BinIDs)
		r.BinIDs = bins

		if idx, ok := c.byID[r.ID]; ok {
			log.Printf("⚠️  [ROUTES] Duplicate route id %s, keeping last definition", r.ID)
			c.routes[idx] = r
			continue
		}
		c.byID[r.ID] = len(c.routes)
		c.routes = append(c.routes, r)
	}
	return c
}

// LoadCatalog reads a YAML route file
func LoadCatalog(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route file: %w", err)
	}
	defer file.Close()

	return ParseCatalog(file)
}

// ParseCatalog parses a YAML route document of the form
//
//	routes:
//	  - id: R1
//	    name: Downtown
//	    bin_ids: [BIN-001, BIN-002]
func ParseCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route file: %w", err)
	}

	c := NewCatalog(file.Routes)
	log.Printf("✅ [ROUTES] Loaded %d routes", c.Len())
	return c, nil
}

// DefaultCatalog is used when no route file is configured. It covers
// the twelve demo bins created by the seeder.
func DefaultCatalog() *Catalog {
	return NewCatalog([]models.Route{
		{ID: "R1", Name: "Downtown Core", BinIDs: []string{"BIN-001", "BIN-002", "BIN-003", "BIN-004"}},
		{ID: "R2", Name: "Market Street", BinIDs: []string{"BIN-005", "BIN-006", "BIN-007", "BIN-008"}},
		{ID: "R3", Name: "SoFA District", BinIDs: []string{"BIN-009", "BIN-010", "BIN-011", "BIN-012"}},
	})
}

// Routes returns the configured routes in order
func (c *Catalog) Routes() []models.Route {
	out := make([]models.Route, len(c.routes))
	for i, r := range c.routes {
		bins := make([]string, len(r.BinIDs))
		copy(bins, r.BinIDs)
		r.BinIDs = bins
		out[i] = r
	}
	return out
}

// Route looks up a route by id
func (c *Catalog) Route(id string) (models.Route, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Route{}, false
	}
	return c.routes[idx], true
}

func (c *Catalog) Len() int { return len(c.routes) }
