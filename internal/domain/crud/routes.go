package crud

import (
	"fmt"
	"net/http"

	"pomegranate/internal/core/tx"
)

// Operation names one generated operation.
type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDeleteOne  Operation = "deleteOne"
	OpDeleteMany Operation = "deleteMany"
	OpGetOne     Operation = "getOne"
	OpGetList    Operation = "getList"
)

// Route binds an operation to a method and a path relative to the API root.
type Route struct {
	Method    string
	Path      string
	Operation Operation
}

// Deps are the collaborators shared by every registered entity.
type Deps struct {
	Repo     Repository
	Tx       tx.Manager
	Auditor  Auditor
	Observer Observer
	// MaxLimit caps list page size; 0 uses MaxLimit.
	MaxLimit int
}

// RouteSet is the fixed set of operations generated for one entity. It does
// not depend on any web framework; transports mount Routes() and dispatch to
// the embedded Service.
type RouteSet struct {
	*Service
	routes []Route
}

// Routes returns the generated routes in registration order.
func (rs *RouteSet) Routes() []Route {
	return rs.routes
}

// RegisterEntity validates cfg and produces its RouteSet. A config error is
// returned as *apperror.AppError with CodeConfig.
func RegisterEntity(cfg EntityConfig, deps Deps) (*RouteSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Repo == nil || deps.Tx == nil {
		return nil, fmt.Errorf("register %s: repository and transaction manager are required", cfg.Name)
	}

	c := cfg.withDefaults()
	base := "/" + c.Route
	item := base + "/:id"

	return &RouteSet{
		Service: newService(c, deps),
		routes: []Route{
			{Method: http.MethodPost, Path: base, Operation: OpCreate},
			{Method: http.MethodPut, Path: item, Operation: OpUpdate},
			{Method: http.MethodDelete, Path: item, Operation: OpDeleteOne},
			{Method: http.MethodDelete, Path: base, Operation: OpDeleteMany},
			{Method: http.MethodGet, Path: item, Operation: OpGetOne},
			{Method: http.MethodGet, Path: base, Operation: OpGetList},
		},
	}, nil
}

// Registry holds every registered RouteSet, keyed by entity name.
type Registry struct {
	sets  map[string]*RouteSet
	order []string
}

// NewRegistry registers all configs, failing on the first invalid one.
func NewRegistry(deps Deps, configs ...EntityConfig) (*Registry, error) {
	r := &Registry{sets: make(map[string]*RouteSet, len(configs))}
	for _, cfg := range configs {
		if _, dup := r.sets[cfg.Name]; dup {
			return nil, fmt.Errorf("register %s: duplicate entity name", cfg.Name)
		}
		rs, err := RegisterEntity(cfg, deps)
		if err != nil {
			return nil, err
		}
		r.sets[cfg.Name] = rs
		r.order = append(r.order, cfg.Name)
	}
	return r, nil
}

// Get returns the RouteSet registered under name.
func (r *Registry) Get(name string) (*RouteSet, bool) {
	rs, ok := r.sets[name]
	return rs, ok
}

// All returns RouteSets in registration order.
func (r *Registry) All() []*RouteSet {
	out := make([]*RouteSet, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sets[name])
	}
	return out
}
