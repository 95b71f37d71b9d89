package scene

import (
	"fmt"
	"io"

	"github.com/appleseedhq/asmax/oslbuild"
	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes p as a mapping that keeps the parameter order.
func (p ParamArray) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for k, v := range p.All() {
		n.Content = append(n.Content, strNode(k), strNode(v))
	}
	return n, nil
}

// UnmarshalYAML decodes a mapping of scalars in document order.
func (p *ParamArray) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", value.Line)
	}
	*p = ParamArray{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: parameter %q must be a scalar", v.Line, k.Value)
		}
		*p = p.Insert(k.Value, v.Value)
	}
	return nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

type assemblyDoc struct {
	Assembly         string        `yaml:"assembly"`
	Textures         []textureDoc  `yaml:"textures,omitempty"`
	TextureInstances []instanceDoc `yaml:"texture_instances,omitempty"`
	ShaderGroups     []groupDoc    `yaml:"shader_groups,omitempty"`
	Materials        []materialDoc `yaml:"materials,omitempty"`
}

type textureDoc struct {
	Name   string     `yaml:"name"`
	Model  string     `yaml:"model"`
	Params ParamArray `yaml:"params,omitempty"`
}

type instanceDoc struct {
	Name    string     `yaml:"name"`
	Texture string     `yaml:"texture"`
	Params  ParamArray `yaml:"params,omitempty"`
}

type groupDoc struct {
	Name        string          `yaml:"name"`
	Shaders     []shaderDoc     `yaml:"shaders"`
	Connections []connectionDoc `yaml:"connections,omitempty"`
}

type shaderDoc struct {
	Type   string     `yaml:"type"`
	Model  string     `yaml:"model"`
	Layer  string     `yaml:"layer"`
	Params ParamArray `yaml:"params,omitempty"`
}

type connectionDoc struct {
	SrcLayer string `yaml:"src_layer"`
	SrcParam string `yaml:"src_param"`
	DstLayer string `yaml:"dst_layer"`
	DstParam string `yaml:"dst_param"`
}

type materialDoc struct {
	Name   string       `yaml:"name"`
	Model  string       `yaml:"model"`
	Params ParamArray   `yaml:"params,omitempty"`
	Layers []ParamArray `yaml:"layers,omitempty"`
}

// WriteYAML writes every entity of the assembly to w as a YAML document.
func (a *Assembly) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a.document()); err != nil {
		return err
	}
	return enc.Close()
}

func (a *Assembly) document() assemblyDoc {
	doc := assemblyDoc{Assembly: a.name}
	for _, t := range a.Textures.Items() {
		doc.Textures = append(doc.Textures, textureDoc{Name: t.name, Model: t.model, Params: t.Params})
	}
	for _, ti := range a.TextureInstances.Items() {
		doc.TextureInstances = append(doc.TextureInstances, instanceDoc{Name: ti.name, Texture: ti.texture, Params: ti.Params})
	}
	for _, g := range a.ShaderGroups.Items() {
		doc.ShaderGroups = append(doc.ShaderGroups, groupDocument(g))
	}
	for _, m := range a.Materials.Items() {
		doc.Materials = append(doc.Materials, materialDoc{Name: m.name, Model: m.model, Params: m.Params, Layers: m.layers})
	}
	return doc
}

func groupDocument(g *oslbuild.Group) groupDoc {
	gd := groupDoc{Name: g.Name()}
	for _, s := range g.Shaders() {
		sd := shaderDoc{Type: s.Type, Model: s.Model, Layer: s.Layer}
		for name, v := range s.Params.All() {
			sd.Params = sd.Params.Insert(name, v.String())
		}
		gd.Shaders = append(gd.Shaders, sd)
	}
	for _, c := range g.Connections() {
		gd.Connections = append(gd.Connections, connectionDoc(c))
	}
	return gd
}
