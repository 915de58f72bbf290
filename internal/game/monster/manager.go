package monster

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/realmd/internal/game/catalog"
)

// Manager tracks all live monster instances by id and by zone. It is not
// safe for concurrent use; the world simulator goroutine owns it.
type Manager struct {
	instances map[string]*Instance
	zoneSets  map[string]map[string]bool // zoneID → set of instance ids
}

// NewManager creates an empty monster Manager.
func NewManager() *Manager {
	return &Manager{
		instances: make(map[string]*Instance),
		zoneSets:  make(map[string]map[string]bool),
	}
}

// Spawn creates a new Instance from tmpl and places it in zoneID at (x, y).
//
// Precondition: tmpl must be non-nil; zoneID must be non-empty.
// Postcondition: Returns a new Instance with a unique id registered in
// zoneID, full vitals, and StatusIdle.
func (m *Manager) Spawn(tmpl *catalog.Monster, zoneID string, x, y float64, now time.Time) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("monster.Manager.Spawn: tmpl must not be nil")
	}
	if zoneID == "" {
		return nil, fmt.Errorf("monster.Manager.Spawn: zoneID must not be empty")
	}

	id := fmt.Sprintf("%s-%s", tmpl.ID, uuid.New().String())
	inst := NewInstance(id, tmpl, zoneID, x, y, now)

	m.instances[id] = inst
	if m.zoneSets[zoneID] == nil {
		m.zoneSets[zoneID] = make(map[string]bool)
	}
	m.zoneSets[zoneID][id] = true

	return inst, nil
}

// Remove deletes an instance by id.
//
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id string) error {
	inst, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("monster instance %q not found", id)
	}
	if zs, ok := m.zoneSets[inst.ZoneID]; ok {
		delete(zs, id)
		if len(zs) == 0 {
			delete(m.zoneSets, inst.ZoneID)
		}
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given id.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Instance, bool) {
	inst, ok := m.instances[id]
	return inst, ok
}

// InZone returns a snapshot of all live instances in zoneID.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) InZone(zoneID string) []*Instance {
	ids, ok := m.zoneSets[zoneID]
	if !ok {
		return []*Instance{}
	}
	out := make([]*Instance, 0, len(ids))
	for id := range ids {
		if inst, ok := m.instances[id]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// CountInZone counts live instances of templateID in zoneID. Dead instances
// awaiting cleanup do not count against spawn caps.
func (m *Manager) CountInZone(zoneID, templateID string) int {
	count := 0
	for id := range m.zoneSets[zoneID] {
		inst, ok := m.instances[id]
		if !ok {
			continue
		}
		if inst.TemplateID == templateID && inst.Status != StatusDead {
			count++
		}
	}
	return count
}

// All returns a snapshot of every live instance.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (m *Manager) All() []*Instance {
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// Count returns the total number of tracked instances.
func (m *Manager) Count() int { return len(m.instances) }
