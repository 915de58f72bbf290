package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store is the read-only template catalog consumed by the combat resolver
// and world simulator. Implementations must return immutable templates.
type Store interface {
	GetSkill(id string) (*Skill, bool)
	GetItem(id string) (*Item, bool)
	GetMonster(id string) (*Monster, bool)
	GetArea(id string) (*Area, bool)
	AllAreas() []*Area
	AllSkills() []*Skill
}

// Catalog is an in-memory Store populated from YAML directories or
// registered programmatically (for tests).
type Catalog struct {
	skills   map[string]*Skill
	items    map[string]*Item
	monsters map[string]*Monster
	areas    map[string]*Area
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		skills:   make(map[string]*Skill),
		items:    make(map[string]*Item),
		monsters: make(map[string]*Monster),
		areas:    make(map[string]*Area),
	}
}

// AddSkill validates and registers a skill template.
//
// Postcondition: Returns an error on validation failure or duplicate id.
func (c *Catalog) AddSkill(s *Skill) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := c.skills[s.ID]; exists {
		return fmt.Errorf("duplicate skill id %q", s.ID)
	}
	c.skills[s.ID] = s
	return nil
}

// AddItem validates and registers an item template.
func (c *Catalog) AddItem(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if _, exists := c.items[it.ID]; exists {
		return fmt.Errorf("duplicate item id %q", it.ID)
	}
	c.items[it.ID] = it
	return nil
}

// AddMonster validates and registers a monster template.
func (c *Catalog) AddMonster(m *Monster) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, exists := c.monsters[m.ID]; exists {
		return fmt.Errorf("duplicate monster id %q", m.ID)
	}
	c.monsters[m.ID] = m
	return nil
}

// AddArea validates and registers an area template.
func (c *Catalog) AddArea(a *Area) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, exists := c.areas[a.ID]; exists {
		return fmt.Errorf("duplicate area id %q", a.ID)
	}
	c.areas[a.ID] = a
	return nil
}

// GetSkill returns the skill with the given id.
func (c *Catalog) GetSkill(id string) (*Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

// GetItem returns the item with the given id.
func (c *Catalog) GetItem(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// GetMonster returns the monster template with the given id.
func (c *Catalog) GetMonster(id string) (*Monster, bool) {
	m, ok := c.monsters[id]
	return m, ok
}

// GetArea returns the area with the given id.
func (c *Catalog) GetArea(id string) (*Area, bool) {
	a, ok := c.areas[id]
	return a, ok
}

// AllAreas returns all registered areas.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (c *Catalog) AllAreas() []*Area {
	out := make([]*Area, 0, len(c.areas))
	for _, a := range c.areas {
		out = append(out, a)
	}
	return out
}

// AllSkills returns all registered skills.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (c *Catalog) AllSkills() []*Skill {
	out := make([]*Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	return out
}

// Verify cross-checks references between templates: spawn configs must name
// known monsters, and drop tables must name known items. Call after all
// directories are loaded.
//
// Postcondition: Returns nil if every reference resolves.
func (c *Catalog) Verify() error {
	for _, a := range c.areas {
		for _, sc := range a.Spawns {
			if _, ok := c.monsters[sc.Template]; !ok {
				return fmt.Errorf("area %q: spawn references unknown monster %q", a.ID, sc.Template)
			}
		}
	}
	for _, m := range c.monsters {
		for _, drop := range m.Drops.Items {
			if _, ok := c.items[drop.ItemID]; !ok {
				return fmt.Errorf("monster %q: drop references unknown item %q", m.ID, drop.ItemID)
			}
		}
	}
	return nil
}

// LoadDir populates the catalog from a content root with skills/, items/,
// monsters/, and areas/ subdirectories of *.yaml files. Missing
// subdirectories are skipped.
//
// Precondition: root must be a readable directory.
// Postcondition: Returns nil iff every present file parses, validates, and
// cross-references resolve.
func (c *Catalog) LoadDir(root string) error {
	if err := loadYAMLDir(filepath.Join(root, "skills"), func(data []byte) error {
		var s Skill
		if err := yaml.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parsing skill YAML: %w", err)
		}
		return c.AddSkill(&s)
	}); err != nil {
		return err
	}
	if err := loadYAMLDir(filepath.Join(root, "items"), func(data []byte) error {
		var it Item
		if err := yaml.Unmarshal(data, &it); err != nil {
			return fmt.Errorf("parsing item YAML: %w", err)
		}
		return c.AddItem(&it)
	}); err != nil {
		return err
	}
	if err := loadYAMLDir(filepath.Join(root, "monsters"), func(data []byte) error {
		var m Monster
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parsing monster YAML: %w", err)
		}
		return c.AddMonster(&m)
	}); err != nil {
		return err
	}
	if err := loadYAMLDir(filepath.Join(root, "areas"), func(data []byte) error {
		var a Area
		if err := yaml.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("parsing area YAML: %w", err)
		}
		return c.AddArea(&a)
	}); err != nil {
		return err
	}
	return c.Verify()
}

// loadYAMLDir applies fn to the contents of every *.yaml file in dir.
// A missing directory is not an error.
func loadYAMLDir(dir string, fn func(data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
