// Package oslbuild builds OSL shader groups: named shader layers with typed
// literal parameters wired together by parameter connections.
package oslbuild

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"cogentcore.org/core/base/ordmap"
	"github.com/appleseedhq/asmax/oslbuild/osllib"
)

var (
	ErrEmptyLayer     = errors.New("empty layer name")
	ErrDuplicateLayer = errors.New("duplicate layer name")
	ErrUnknownLayer   = errors.New("connection from undeclared layer")
)

// Param is a named literal parameter of a shader layer.
type Param struct {
	Name  string
	Value Expr
}

// Params is an ordered parameter list keyed by name. The zero Params is empty.
// Copies share their entries; Clone before modifying a copy.
type Params struct {
	m *ordmap.Map[string, Expr]
}

// NewParams returns the parameters in order. A later parameter replaces an
// earlier one of the same name.
func NewParams(params ...Param) Params {
	var p Params
	for _, param := range params {
		p = p.Set(param.Name, param.Value)
	}
	return p
}

// Get returns the value of the parameter called name.
func (p Params) Get(name string) (Expr, bool) {
	if p.m == nil {
		return Expr{}, false
	}
	return p.m.ValueByKeyTry(name)
}

// Set replaces the value of name or appends it and returns the resulting list.
func (p Params) Set(name string, v Expr) Params {
	if p.m == nil {
		p.m = ordmap.New[string, Expr]()
	}
	p.m.Add(name, v)
	return p
}

// Len returns the number of parameters.
func (p Params) Len() int { return p.m.Len() }

// All iterates over the parameters in order.
func (p Params) All() iter.Seq2[string, Expr] {
	return func(yield func(string, Expr) bool) {
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

// List returns the parameters in order.
func (p Params) List() []Param {
	var list []Param
	for name, v := range p.All() {
		list = append(list, Param{Name: name, Value: v})
	}
	return list
}

// Clone returns a copy of p that does not share entries with p.
func (p Params) Clone() Params {
	if p.m == nil {
		return Params{}
	}
	c := ordmap.New[string, Expr]()
	c.Copy(p.m)
	return Params{m: c}
}

// Shader is a layer of a shader group: an instance of a shader model under a
// layer name unique within the group.
type Shader struct {
	// Type is "shader" for intermediate nodes or "surface" for closures.
	Type   string
	Model  string
	Layer  string
	Params Params
}

// Connection wires the output SrcParam of layer SrcLayer into the input DstParam of layer DstLayer.
type Connection struct {
	SrcLayer, SrcParam string
	DstLayer, DstParam string
}

// Group is a shader group. Layers are kept in declaration order; a layer must be
// declared before it is used as the source of a connection. The last layer
// declared is the group's surface.
type Group struct {
	name    string
	shaders []Shader
	conns   []Connection
	layers  map[string]int
}

// NewGroup returns an empty shader group.
func NewGroup(name string) *Group {
	return &Group{name: name, layers: make(map[string]int)}
}

// Name returns the name of the shader group.
func (g *Group) Name() string { return g.name }

// AddShader declares a new layer.
func (g *Group) AddShader(typ, model, layer string, params ...Param) error {
	if layer == "" {
		return fmt.Errorf("%w for model %q", ErrEmptyLayer, model)
	}
	if _, exists := g.layers[layer]; exists {
		return fmt.Errorf("%w %q in shader group %q", ErrDuplicateLayer, layer, g.name)
	}
	g.layers[layer] = len(g.shaders)
	g.shaders = append(g.shaders, Shader{Type: typ, Model: model, Layer: layer, Params: NewParams(params...)})
	return nil
}

// AddConnection wires srcLayer.srcParam into dstLayer.dstParam. The source layer
// must already be declared; the destination may be declared later.
func (g *Group) AddConnection(srcLayer, srcParam, dstLayer, dstParam string) error {
	if _, exists := g.layers[srcLayer]; !exists {
		return fmt.Errorf("%w %q in shader group %q", ErrUnknownLayer, srcLayer, g.name)
	}
	g.conns = append(g.conns, Connection{SrcLayer: srcLayer, SrcParam: srcParam, DstLayer: dstLayer, DstParam: dstParam})
	return nil
}

// Merge copies every layer and connection of other into g verbatim.
// Nothing is copied if a layer name of other is already declared in g.
func (g *Group) Merge(other *Group) error {
	for _, s := range other.shaders {
		if _, exists := g.layers[s.Layer]; exists {
			return fmt.Errorf("merging %q into %q: %w %q", other.name, g.name, ErrDuplicateLayer, s.Layer)
		}
	}
	for _, s := range other.shaders {
		s.Params = s.Params.Clone()
		g.layers[s.Layer] = len(g.shaders)
		g.shaders = append(g.shaders, s)
	}
	g.conns = append(g.conns, other.conns...)
	return nil
}

// Shaders returns the layers in declaration order. The slice must not be modified.
func (g *Group) Shaders() []Shader { return g.shaders }

// Connections returns the connections in declaration order. The slice must not be modified.
func (g *Group) Connections() []Connection { return g.conns }

// NumShaders returns the number of layers.
func (g *Group) NumShaders() int { return len(g.shaders) }

// NumConnections returns the number of connections.
func (g *Group) NumConnections() int { return len(g.conns) }

// Shader returns the layer named layer.
func (g *Group) Shader(layer string) (Shader, bool) {
	i, ok := g.layers[layer]
	if !ok {
		return Shader{}, false
	}
	return g.shaders[i], true
}

// Surface returns the last declared layer, which acts as the group's output.
func (g *Group) Surface() (Shader, bool) {
	if len(g.shaders) == 0 {
		return Shader{}, false
	}
	return g.shaders[len(g.shaders)-1], true
}

// ConnectionsTo returns the connections whose destination is layer.
func (g *Group) ConnectionsTo(layer string) []Connection {
	var conns []Connection
	for _, c := range g.conns {
		if c.DstLayer == layer {
			conns = append(conns, c)
		}
	}
	return conns
}

// AppendGroup appends a line oriented text form of g to b:
//
//	shader_group "name"
//	shader "model" "layer"
//		param <type> <value>
//	connect "src" srcParam "dst" dstParam
func AppendGroup(b []byte, g *Group) []byte {
	b = append(b, "shader_group "...)
	b = strconv.AppendQuote(b, g.name)
	b = append(b, '\n')
	for _, s := range g.shaders {
		b = append(b, s.Type...)
		b = append(b, ' ')
		b = strconv.AppendQuote(b, s.Model)
		b = append(b, ' ')
		b = strconv.AppendQuote(b, s.Layer)
		b = append(b, '\n')
		for name, v := range s.Params.All() {
			b = append(b, '\t')
			b = append(b, name...)
			b = append(b, ' ')
			b = v.AppendExpr(b)
			b = append(b, '\n')
		}
	}
	for _, c := range g.conns {
		b = append(b, "connect "...)
		b = strconv.AppendQuote(b, c.SrcLayer)
		b = append(b, ' ')
		b = append(b, c.SrcParam...)
		b = append(b, ' ')
		b = strconv.AppendQuote(b, c.DstLayer)
		b = append(b, ' ')
		b = append(b, c.DstParam...)
		b = append(b, '\n')
	}
	return b
}

// WriteGroup writes the text form of g to w. See [AppendGroup].
func WriteGroup(w io.Writer, g *Group) (int, error) {
	return w.Write(AppendGroup(nil, g))
}

// Validate checks g against the builtin shader catalog: every model must be
// known, every literal parameter and connection destination must be a declared
// input, every connection source a declared output of a layer declared before
// its destination.
func Validate(g *Group) error {
	var errs []error
	models := make([]osllib.Model, len(g.shaders))
	for i, s := range g.shaders {
		m, ok := osllib.Lookup(s.Model)
		if !ok {
			errs = append(errs, fmt.Errorf("layer %q: unknown model %q", s.Layer, s.Model))
			continue
		}
		models[i] = m
		if m.Type != s.Type {
			errs = append(errs, fmt.Errorf("layer %q: model %q is a %s, declared as %s", s.Layer, s.Model, m.Type, s.Type))
		}
		for name := range s.Params.All() {
			if !m.HasInput(name) {
				errs = append(errs, fmt.Errorf("layer %q: %q is not an input of %q", s.Layer, name, s.Model))
			}
		}
	}
	for _, c := range g.conns {
		src, srcOK := g.layers[c.SrcLayer]
		dst, dstOK := g.layers[c.DstLayer]
		switch {
		case !srcOK:
			errs = append(errs, fmt.Errorf("connection source layer %q undeclared", c.SrcLayer))
			continue
		case !dstOK:
			errs = append(errs, fmt.Errorf("connection destination layer %q undeclared", c.DstLayer))
			continue
		case src >= dst:
			errs = append(errs, fmt.Errorf("connection %q -> %q runs against declaration order", c.SrcLayer, c.DstLayer))
		}
		if m := models[src]; m.Name != "" && !m.HasOutput(c.SrcParam) {
			errs = append(errs, fmt.Errorf("%q is not an output of layer %q", c.SrcParam, c.SrcLayer))
		}
		if m := models[dst]; m.Name != "" && !m.HasInput(c.DstParam) {
			errs = append(errs, fmt.Errorf("%q is not an input of layer %q", c.DstParam, c.DstLayer))
		}
	}
	return errors.Join(errs...)
}
