package asmax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/appleseedhq/asmax/maxhost"
)

// VisibilityFlags is a bitmask of the ray types an object is visible to.
type VisibilityFlags uint16

const (
	VisibleCamera VisibilityFlags = 1 << iota
	VisibleLight
	VisibleShadow
	VisibleTransparency
	VisibleProbe
	VisibleDiffuse
	VisibleGlossy
	VisibleSpecular
	VisibleSubsurface
)

const VisibleAll = VisibleCamera | VisibleLight | VisibleShadow | VisibleTransparency |
	VisibleProbe | VisibleDiffuse | VisibleGlossy | VisibleSpecular | VisibleSubsurface

var visibilityNames = [...]string{
	"camera", "light", "shadow", "transparency", "probe", "diffuse", "glossy", "specular", "subsurface",
}

var ErrUnknownVisibility = errors.New("unknown ray visibility")

// String returns the visible ray types joined by '|', or "none".
func (f VisibilityFlags) String() string {
	if f&VisibleAll == 0 {
		return "none"
	}
	var b strings.Builder
	for i, name := range visibilityNames {
		if f&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
	}
	return b.String()
}

// ParseVisibility parses ray type names separated by '|' or ','.
// "all" and "none" are accepted.
func ParseVisibility(s string) (VisibilityFlags, error) {
	var f VisibilityFlags
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		field = strings.TrimSpace(field)
		switch field {
		case "all":
			f |= VisibleAll
			continue
		case "none", "":
			continue
		}
		found := false
		for i, name := range visibilityNames {
			if name == field {
				f |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w %q", ErrUnknownVisibility, field)
		}
	}
	return f, nil
}

var ObjPropsModClassID = maxhost.ClassID{A: 0x39d46f81, B: 0x89e7ccd}

// Parameters of [ObjPropsMod], one boolean per ray type in flag order.
const (
	ObjPropsParamCamera maxhost.ParamID = iota
	ObjPropsParamLight
	ObjPropsParamShadow
	ObjPropsParamTransparency
	ObjPropsParamProbe
	ObjPropsParamDiffuse
	ObjPropsParamGlossy
	ObjPropsParamSpecular
	ObjPropsParamSubsurface
)

// ObjPropsMod is the object properties modifier holding per-object ray visibility.
type ObjPropsMod struct {
	pb *maxhost.ParamBlock
}

// NewObjPropsMod returns a modifier with the object visible to every ray type.
func NewObjPropsMod() *ObjPropsMod {
	defs := make([]maxhost.ParamDef, len(visibilityNames))
	for i, name := range visibilityNames {
		defs[i] = maxhost.ParamDef{
			ID:      maxhost.ParamID(i),
			Name:    "visibility_" + name,
			Type:    maxhost.TypeBool,
			Default: true,
		}
	}
	return &ObjPropsMod{pb: maxhost.NewParamBlock(defs...)}
}

func (m *ObjPropsMod) ClassID() maxhost.ClassID        { return ObjPropsModClassID }
func (m *ObjPropsMod) ParamBlock() *maxhost.ParamBlock { return m.pb }

// Visibility returns the visibility flags at t and the interval over which they hold.
func (m *ObjPropsMod) Visibility(t maxhost.TimeValue) (VisibilityFlags, maxhost.Interval) {
	valid := maxhost.Forever()
	var f VisibilityFlags
	for i := range visibilityNames {
		if m.pb.Bool(maxhost.ParamID(i), t, &valid) {
			f |= 1 << i
		}
	}
	return f, valid
}
