package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Version == "" {
		return nil, fmt.Errorf("catalog has no version")
	}
	if err := c.index(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", c.Version, err)
	}
	return &c, nil
}

// Default returns the embedded catalog. The embedded document is part
// of the build, so a parse failure here is a programming error.
func Default() *Catalog {
	c, err := Load(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}
