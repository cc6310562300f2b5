// Package metadata describes the registered entities for admin clients:
// their fields, operations and the navigation menu.
package metadata

import "sync"

// FieldType defines the data type of a field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeInteger   FieldType = "integer"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeReference FieldType = "reference"
	TypeJSON      FieldType = "json"
)

// EntityDef describes a registered entity.
type EntityDef struct {
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Route      string     `json:"route"`
	PrimaryKey string     `json:"primaryKey"`
	Access     string     `json:"access"`
	Fields     []FieldDef `json:"fields"`
	Operations []string   `json:"operations"`
	// Cascades lists the tables cleaned up when a row is deleted.
	Cascades []string `json:"cascades,omitempty"`
}

// FieldDef describes a field.
type FieldDef struct {
	Name          string    `json:"name"`
	Label         string    `json:"label"`
	Type          FieldType `json:"type"`
	ReferenceType string    `json:"referenceType,omitempty"` // e.g. "users" for user_id
	Required      bool      `json:"required,omitempty"`
	ReadOnly      bool      `json:"readOnly,omitempty"`
	Unique        bool      `json:"unique,omitempty"`
	Hidden        bool      `json:"hidden,omitempty"`
	Search        string    `json:"search,omitempty"` // "=" or "LIKE"
	Sortable      bool      `json:"sortable,omitempty"`
}

// Registry stores entity definitions in registration order.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]EntityDef
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]EntityDef),
	}
}

// Register adds or replaces def.
func (r *Registry) Register(def EntityDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.entities[def.Name] = def
}

func (r *Registry) Get(name string) (EntityDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[name]
	return d, ok
}

// ByRoute finds an entity by its route segment.
func (r *Registry) ByRoute(route string) (EntityDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if d := r.entities[name]; d.Route == route {
			return d, true
		}
	}
	return EntityDef{}, false
}

func (r *Registry) List() []EntityDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]EntityDef, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.entities[name])
	}
	return list
}
