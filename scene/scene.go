// Package scene implements the renderer scene container the exporter fills:
// named tables of materials, shader groups, textures and texture instances.
package scene

import (
	"errors"
	"fmt"
	"iter"
	"strconv"

	"cogentcore.org/core/base/ordmap"
	"github.com/appleseedhq/asmax/oslbuild"
)

var ErrExists = errors.New("entity already exists")

// Entity is a named item of a [Table].
type Entity interface {
	Name() string
}

// Table stores entities by unique name in insertion order.
// The zero Table is empty and ready to use.
type Table[E Entity] struct {
	entities ordmap.Map[string, E]
	reserved map[string]struct{}
}

// Insert adds e to the table. It fails if an entity with the same name exists.
// Reserved names may be inserted.
func (t *Table[E]) Insert(e E) error {
	name := e.Name()
	if t.Contains(name) {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	t.entities.Add(name, e)
	return nil
}

// GetByName returns the entity called name.
func (t *Table[E]) GetByName(name string) (E, bool) {
	return t.entities.ValueByKeyTry(name)
}

// Contains reports whether an entity called name exists.
func (t *Table[E]) Contains(name string) bool {
	_, ok := t.entities.IndexByKeyTry(name)
	return ok
}

// Remove deletes the entity called name, keeping the order of the rest.
// The name stays reserved if it was reserved before.
func (t *Table[E]) Remove(name string) bool {
	return t.entities.DeleteKey(name)
}

// Len returns the number of entities.
func (t *Table[E]) Len() int { return t.entities.Len() }

// Items returns the entities in insertion order.
func (t *Table[E]) Items() []E {
	items := make([]E, 0, t.entities.Len())
	for _, kv := range t.entities.Order {
		items = append(items, kv.Value)
	}
	return items
}

// Names returns the entity names in insertion order.
func (t *Table[E]) Names() []string { return t.entities.Keys() }

// Reserve claims name for an entity inserted later so that UniqueName never
// hands it out. It fails if an entity called name exists; reserving a name
// twice is allowed.
func (t *Table[E]) Reserve(name string) error {
	if t.Contains(name) {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	t.reserve(name)
	return nil
}

// UniqueName returns base if no entity uses it and it was not reserved before,
// else the first free name of the form base_N. The returned name is reserved so
// repeated calls with the same base never return the same name.
func (t *Table[E]) UniqueName(base string) string {
	name := base
	for i := 1; t.taken(name); i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	t.reserve(name)
	return name
}

func (t *Table[E]) reserve(name string) {
	if t.reserved == nil {
		t.reserved = make(map[string]struct{})
	}
	t.reserved[name] = struct{}{}
}

func (t *Table[E]) taken(name string) bool {
	_, reserved := t.reserved[name]
	return reserved || t.Contains(name)
}

// Assembly is a scene container.
type Assembly struct {
	name             string
	Materials        Table[*Material]
	ShaderGroups     Table[*oslbuild.Group]
	Textures         Table[*Texture]
	TextureInstances Table[*TextureInstance]
}

// NewAssembly returns an empty assembly.
func NewAssembly(name string) *Assembly {
	return &Assembly{name: name}
}

// Name returns the assembly name.
func (a *Assembly) Name() string { return a.name }

// ParamArray is an ordered string dictionary of entity parameters. The zero
// ParamArray is empty. Copies share their entries; Clone before modifying a copy.
type ParamArray struct {
	m *ordmap.Map[string, string]
}

// Insert sets key to value, replacing an existing entry in place, and returns the array.
func (p ParamArray) Insert(key, value string) ParamArray {
	if p.m == nil {
		p.m = ordmap.New[string, string]()
	}
	p.m.Add(key, value)
	return p
}

// Get returns the value of key.
func (p ParamArray) Get(key string) (string, bool) {
	if p.m == nil {
		return "", false
	}
	return p.m.ValueByKeyTry(key)
}

// Has reports whether key is set.
func (p ParamArray) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Len returns the number of entries.
func (p ParamArray) Len() int { return p.m.Len() }

// IsZero reports whether p has no entries.
func (p ParamArray) IsZero() bool { return p.Len() == 0 }

// Keys returns the keys in insertion order.
func (p ParamArray) Keys() []string {
	if p.m == nil {
		return nil
	}
	return p.m.Keys()
}

// All iterates over the entries in insertion order.
func (p ParamArray) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if p.m == nil {
			return
		}
		for _, kv := range p.m.Order {
			if !yield(kv.Key, kv.Value) {
				return
			}
		}
	}
}

// Clone returns a copy of p that does not share entries with p.
func (p ParamArray) Clone() ParamArray {
	if p.m == nil {
		return ParamArray{}
	}
	c := ordmap.New[string, string]()
	c.Copy(p.m)
	return ParamArray{m: c}
}
