// Package stories holds the fixed catalog of devotional stories.
package stories

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/ashureev/scripture-companion/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed stories.yaml
var catalogYAML []byte

// ErrNotFound is returned when a story ID is not part of the catalog.
var ErrNotFound = errors.New("story not found")

// Catalog is an immutable, ordered list of stories.
type Catalog struct {
	stories []domain.Story
	byID    map[string]int
}

type catalogFile struct {
	Stories []domain.Story `yaml:"stories"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalog from YAML. IDs must be unique and the list non-empty.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode story catalog: %w", err)
	}
	if len(file.Stories) == 0 {
		return nil, errors.New("story catalog is empty")
	}

	c := &Catalog{
		stories: file.Stories,
		byID:    make(map[string]int, len(file.Stories)),
	}
	for i, s := range file.Stories {
		if s.ID == "" {
			return nil, fmt.Errorf("story at position %d has no id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate story id %q", s.ID)
		}
		c.byID[s.ID] = i
	}
	return c, nil
}

// List returns a copy of all stories in display order.
func (c *Catalog) List() []domain.Story {
	out := make([]domain.Story, len(c.stories))
	copy(out, c.stories)
	return out
}

// Get returns the story with the given ID.
func (c *Catalog) Get(id string) (domain.Story, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Story{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.stories[i], nil
}

// Default returns the story shown on first load.
func (c *Catalog) Default() domain.Story {
	return c.stories[0]
}
