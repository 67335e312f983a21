package binding

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// FieldType is the declared type of a schema field.
type FieldType int

// Field types. Any accepts every value unchanged.
const (
	Any FieldType = iota
	String
	Int
	Float
	Bool
	Time
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	}
	return "any"
}

// Field declares one document field.
type Field struct {
	Name     string
	Type     FieldType
	Default  any
	Required bool
}

// RelationKind distinguishes the two relation directions.
type RelationKind int

// Relation kinds.
const (
	BelongsTo RelationKind = iota + 1
	HasMany
)

// Relation links documents of one sub-collection to another sub-collection
// of the same snapshot.
//
// For BelongsTo, ForeignKey is a field of this document holding the target
// document's id. For HasMany, ForeignKey is a field of the target
// documents holding this document's id.
type Relation struct {
	Name       string
	Kind       RelationKind
	Target     string
	ForeignKey string
}

// Schema describes the documents of one collection.
type Schema struct {
	fields    []Field
	relations []Relation
	strict    bool
}

// Definition populates a schema. It is the unit registered per sub-key.
type Definition func(s *Schema)

// Build applies def to a fresh schema.
func Build(def Definition) *Schema {
	s := &Schema{}
	if def != nil {
		def(s)
	}
	return s
}

// Field declares a field of type t.
func (s *Schema) Field(name string, t FieldType) *Schema {
	s.fields = append(s.fields, Field{Name: name, Type: t})
	return s
}

// FieldDefault declares a field of type t filled with def when absent.
func (s *Schema) FieldDefault(name string, t FieldType, def any) *Schema {
	s.fields = append(s.fields, Field{Name: name, Type: t, Default: def})
	return s
}

// Required declares a field that must be present on insert.
func (s *Schema) Required(name string, t FieldType) *Schema {
	s.fields = append(s.fields, Field{Name: name, Type: t, Required: true})
	return s
}

// BelongsTo declares a to-one relation resolved through foreignKey.
func (s *Schema) BelongsTo(name, target, foreignKey string) *Schema {
	s.relations = append(s.relations, Relation{Name: name, Kind: BelongsTo, Target: target, ForeignKey: foreignKey})
	return s
}

// HasMany declares a to-many relation resolved through foreignKey on the
// target documents.
func (s *Schema) HasMany(name, target, foreignKey string) *Schema {
	s.relations = append(s.relations, Relation{Name: name, Kind: HasMany, Target: target, ForeignKey: foreignKey})
	return s
}

// Strict rejects fields that are not declared.
func (s *Schema) Strict() *Schema {
	s.strict = true
	return s
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Relations returns the declared relations.
func (s *Schema) Relations() []Relation {
	return append([]Relation(nil), s.relations...)
}

// Relation looks up a relation by name.
func (s *Schema) Relation(name string) (Relation, bool) {
	for _, r := range s.relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Equal reports whether two schemas declare the same fields and relations.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.strict == o.strict &&
		reflect.DeepEqual(s.fields, o.fields) &&
		reflect.DeepEqual(s.relations, o.relations)
}

// prepare validates doc for insertion and returns a coerced copy with
// defaults applied.
func (s *Schema) prepare(doc docstore.Document) (docstore.Document, error) {
	out := docstore.Clone(doc)
	declared := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		declared[f.Name] = true
		v, ok := out[f.Name]
		if !ok || v == nil {
			switch {
			case f.Default != nil:
				out[f.Name] = f.Default
			case f.Required:
				return nil, errcode.ErrSchemaValidation.WithDetailf("field %q is required", f.Name)
			}
			continue
		}
		cv, err := coerce(v, f.Type)
		if err != nil {
			return nil, errcode.ErrSchemaValidation.WithDetailf("field %q: %v", f.Name, err)
		}
		out[f.Name] = cv
	}
	if s.strict {
		for k := range out {
			if k != docstore.IDField && !declared[k] {
				return nil, errcode.ErrSchemaValidation.WithDetailf("field %q is not declared", k)
			}
		}
	}
	return out, nil
}

// present converts stored values back to their declared types. Values
// that cannot be converted are left as stored.
func (s *Schema) present(doc docstore.Document) docstore.Document {
	for _, f := range s.fields {
		if v, ok := doc[f.Name]; ok && v != nil {
			if cv, err := coerce(v, f.Type); err == nil {
				doc[f.Name] = cv
			}
		}
	}
	return doc
}

func coerce(v any, t FieldType) (any, error) {
	switch t {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Int:
		if i, ok := docstore.ToInt64(v); ok {
			return i, nil
		}
	case Float:
		if f, ok := docstore.ToFloat(v); ok {
			return f, nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Time:
		switch tv := v.(type) {
		case time.Time:
			return tv.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, tv)
			if err == nil {
				return parsed.UTC(), nil
			}
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, t)
}

// Definitions is the type-level map from sub-key to schema. The empty
// sub-key names the default collection.
//
// A schema is built from its Definition once, at registration. Replacing a
// sub-key's schema is allowed until a binding has been created for it;
// afterwards only an identical schema may be registered again.
type Definitions struct {
	mu      sync.Mutex
	schemas map[string]*Schema
	bound   map[string]bool
}

// NewDefinitions returns an empty definition map.
func NewDefinitions() *Definitions {
	return &Definitions{
		schemas: make(map[string]*Schema),
		bound:   make(map[string]bool),
	}
}

// Register builds def and stores it under subKey.
func (d *Definitions) Register(subKey string, def Definition) error {
	s := Build(def)

	d.mu.Lock()
	defer d.mu.Unlock()

	old, ok := d.schemas[subKey]
	if !ok {
		old = &Schema{}
	}
	if d.bound[subKey] && !old.Equal(s) {
		return errcode.ErrBindingRedefinition.WithDetailf("sub_key=%q already has live bindings", subKey)
	}
	d.schemas[subKey] = s
	return nil
}

// Schema returns the schema for subKey, or an empty schema when none was
// registered.
func (d *Definitions) Schema(subKey string) *Schema {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.schemas[subKey]; ok {
		return s
	}
	return &Schema{}
}

// bindSchema marks subKey bound and returns its schema in one step, so no
// Register can slip in between the read and the mark.
func (d *Definitions) bindSchema(subKey string) *Schema {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound[subKey] = true
	if s, ok := d.schemas[subKey]; ok {
		return s
	}
	return &Schema{}
}

// SubKeys returns the registered sub-keys, sorted.
func (d *Definitions) SubKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.schemas))
	for k := range d.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
