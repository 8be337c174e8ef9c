// Package action holds the server-side operations reachable through routing.
package action

import (
	"fmt"
	"strings"

	"authsrv-go/internal/model"
)

// Registry maps a method and a dotted path ("auth.login") to an action.
// It is built before serving starts and only read afterwards.
type Registry struct {
	routes map[string]map[string]model.ActionFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]map[string]model.ActionFunc)}
}

// Register binds fn to method and a dotted name.
func (r *Registry) Register(method, name string, fn model.ActionFunc) error {
	for _, s := range strings.Split(name, ".") {
		if s == "" || strings.Contains(s, "/") {
			return fmt.Errorf("register %s %s: invalid name", method, name)
		}
	}
	byName, ok := r.routes[method]
	if !ok {
		byName = make(map[string]model.ActionFunc)
		r.routes[method] = byName
	}
	if _, dup := byName[name]; dup {
		return fmt.Errorf("register %s %s: already registered", method, name)
	}
	byName[name] = fn
	return nil
}

// Lookup resolves a slash-separated path under method. Every segment must be
// non-empty and free of dots; the joined name must be registered.
func (r *Registry) Lookup(method, path string) (string, model.ActionFunc, bool) {
	byName, ok := r.routes[method]
	if !ok {
		return "", nil, false
	}
	name, err := dottedName(path)
	if err != nil {
		return "", nil, false
	}
	fn, ok := byName[name]
	if !ok {
		return "", nil, false
	}
	return name, fn, true
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	n := 0
	for _, byName := range r.routes {
		n += len(byName)
	}
	return n
}

func dottedName(path string) (string, error) {
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return "", fmt.Errorf("empty segment in %q", path)
		}
		if strings.Contains(s, ".") {
			return "", fmt.Errorf("segment %q contains '.'", s)
		}
	}
	return strings.Join(segments, "."), nil
}
