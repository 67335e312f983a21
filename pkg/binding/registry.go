package binding

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// Registry caches bindings for the life of the process. Hosts create one
// and share it between controllers; entries are never evicted.
type Registry struct {
	bindings *xsync.MapOf[Key, *Binding]
	built    atomic.Int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: xsync.NewMapOf[Key, *Binding]()}
}

// Bind returns the binding for key, creating it on first use from coll,
// the schema registered for key.SubKey in defs, and lookup.
//
// Creation happens at most once per key even under concurrent calls. A
// cached binding whose schema differs from the one currently registered
// fails with errcode.ErrBindingRedefinition.
func (r *Registry) Bind(key Key, coll docstore.Collection, defs *Definitions, lookup Lookup) (*Binding, error) {
	b, loaded := r.bindings.LoadOrCompute(key, func() *Binding {
		r.built.Add(1)
		return &Binding{key: key, coll: coll, schema: defs.bindSchema(key.SubKey), lookup: lookup}
	})
	if loaded && !b.schema.Equal(defs.Schema(key.SubKey)) {
		return nil, errcode.ErrBindingRedefinition.WithDetailf("binding %s was created with a different schema", key)
	}
	return b, nil
}

// Get returns the cached binding for key without creating one.
func (r *Registry) Get(key Key) (*Binding, bool) {
	return r.bindings.Load(key)
}

// Len returns the number of cached bindings.
func (r *Registry) Len() int {
	return r.bindings.Size()
}

// Built returns how many bindings the registry has constructed.
func (r *Registry) Built() int64 {
	return r.built.Load()
}
