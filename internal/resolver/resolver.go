// Package resolver maps a request to a static resource, an action or nothing.
package resolver

import (
	"fmt"
	"strings"

	"authsrv-go/internal/model"
	"authsrv-go/internal/resource"
)

// ActionLookup finds an action by method and slash-separated path.
type ActionLookup interface {
	Lookup(method, path string) (string, model.ActionFunc, bool)
}

// Resolver resolves requests. Action dispatch is always tried before the
// resource store, so a file can never shadow an action.
type Resolver struct {
	actions  ActionLookup
	store    resource.Store
	rootPage string
}

// New creates a Resolver.
func New(actions ActionLookup, store resource.Store, rootPage string) *Resolver {
	return &Resolver{actions: actions, store: store, rootPage: rootPage}
}

// Resolve returns the target for req.
func (r *Resolver) Resolve(req *model.Request) model.Target {
	if req.Path == r.rootPage {
		return model.StaticTarget(r.rootPage)
	}

	cleanPath, query, _ := strings.Cut(req.Path, "?")

	if name, fn, ok := r.actions.Lookup(req.Method, cleanPath); ok {
		if params, err := ParseQuery(query); err == nil {
			return model.ActionTarget(name, fn, params)
		}
	}

	if r.store.Exists(cleanPath) {
		return model.StaticTarget(cleanPath)
	}
	return model.NotFoundTarget()
}

// ParseQuery splits "a=1&b=2" into a map. Values are taken verbatim; every
// pair must contain '='. An empty query yields an empty map.
func ParseQuery(query string) (map[string]string, error) {
	params := make(map[string]string)
	if query == "" {
		return params, nil
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("query pair %q has no '='", pair)
		}
		params[k] = v
	}
	return params, nil
}
