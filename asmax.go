// Package asmax translates host materials into renderer materials and OSL
// shader groups.
//
// A [Builder] walks the host material graph starting at each exported material.
// Materials implementing [AppleseedMtl] create their own renderer material;
// any other material degrades to an empty placeholder. Failures never abort an
// export: they are logged and accumulated in [Builder.Err].
package asmax

import (
	"errors"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/appleseedhq/asmax/scene"
	"github.com/appleseedhq/asmax/texmap"
)

var (
	ErrMissingSubMtl      = errors.New("missing sub-material")
	ErrIncompatibleMtl    = errors.New("material is not appleseed-compatible")
	ErrMissingShaderGroup = errors.New("missing shader group")
	ErrMaterialCycle      = errors.New("material references itself")
	ErrUnsupportedTexture = errors.New("unsupported texture")
)

// Mtl is a host material.
type Mtl interface {
	Name() string
	ClassID() maxhost.ClassID
	// ParamBlock returns the material parameters. It may be nil.
	ParamBlock() *maxhost.ParamBlock
	// Validity returns the interval around t over which the material does not change.
	Validity(t maxhost.TimeValue) maxhost.Interval
}

// AppleseedMtl is a host material able to create a renderer material.
type AppleseedMtl interface {
	Mtl
	// Update re-reads the material parameters at t unless the cached values
	// are valid at t. It returns the validity of the cached values.
	Update(t maxhost.TimeValue) maxhost.Interval
	// Invalidate discards the cached parameter values.
	Invalidate()
	// OnChange registers fn to be called when the material changes.
	OnChange(fn func())
	NumSubMtls() int
	// SubMtl returns sub-material i as of the last Update. It may be nil.
	SubMtl(i int) Mtl
	// CreateMaterial creates the renderer material called name. Shader groups
	// and textures it depends on are registered in the builder's assembly.
	CreateMaterial(b *Builder, name string) *scene.Material
}

// ForeignMtl is a host material the renderer cannot translate, such as the
// host's standard material.
type ForeignMtl struct {
	name  string
	class maxhost.ClassID
}

var _ Mtl = (*ForeignMtl)(nil)

func NewForeignMtl(name string, class maxhost.ClassID) *ForeignMtl {
	return &ForeignMtl{name: name, class: class}
}

func (m *ForeignMtl) Name() string                    { return m.name }
func (m *ForeignMtl) ClassID() maxhost.ClassID        { return m.class }
func (m *ForeignMtl) ParamBlock() *maxhost.ParamBlock { return nil }

func (m *ForeignMtl) Validity(maxhost.TimeValue) maxhost.Interval { return maxhost.Forever() }

// adapter holds the state shared by material adapters: the parameter block,
// the cached parameter values and the dependents to notify on change.
type adapter[T any] struct {
	name       string
	pb         *maxhost.ParamBlock
	cache      maxhost.Cache[T]
	dependents []func()
}

func (a *adapter[T]) init(name string, pb *maxhost.ParamBlock) {
	a.name = name
	a.pb = pb
	a.cache.Invalidate()
	pb.OnChange(func(maxhost.ParamID) {
		a.cache.Invalidate()
		a.notify()
	})
}

func (a *adapter[T]) Name() string                    { return a.name }
func (a *adapter[T]) ParamBlock() *maxhost.ParamBlock { return a.pb }

func (a *adapter[T]) Validity(t maxhost.TimeValue) maxhost.Interval {
	return a.pb.Validity(t)
}

func (a *adapter[T]) OnChange(fn func()) {
	a.dependents = append(a.dependents, fn)
}

// Invalidate empties the cache and notifies dependents. Invalidating a stale
// adapter does nothing so that notification cycles terminate.
func (a *adapter[T]) Invalidate() {
	if a.cache.Validity().IsEmpty() {
		return
	}
	a.cache.Invalidate()
	a.notify()
}

func (a *adapter[T]) notify() {
	for _, fn := range a.dependents {
		fn()
	}
}

// update refreshes the cache at t with read and notifies dependents if the
// cached values were stale.
func (a *adapter[T]) update(t maxhost.TimeValue, read func(t maxhost.TimeValue, valid *maxhost.Interval) T) maxhost.Interval {
	if a.cache.IsValid(t) {
		return a.cache.Validity()
	}
	valid := maxhost.Forever()
	v := read(t, &valid)
	a.cache.Set(v, valid)
	a.notify()
	return valid
}

// params returns the cached values.
func (a *adapter[T]) params() T { return a.cache.Get() }

func texmapParam(pb *maxhost.ParamBlock, id maxhost.ParamID, t maxhost.TimeValue, valid *maxhost.Interval) texmap.Texmap {
	tex, _ := pb.Ref(id, t, valid).(texmap.Texmap)
	return tex
}

func mtlParam(pb *maxhost.ParamBlock, id maxhost.ParamID, t maxhost.TimeValue, valid *maxhost.Interval) Mtl {
	m, _ := pb.Ref(id, t, valid).(Mtl)
	return m
}
