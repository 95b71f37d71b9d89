package oslbuild

import (
	"math"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

// Type is the shading language type of a parameter literal.
type Type uint8

const (
	typeUndefined Type = iota
	TypeString
	TypeInt
	TypeFloat
	TypeColor
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeColor:
		return "color"
	}
	return "undefined"
}

// Expr is a typed literal expression assigned to a shader parameter,
// i.e. "float 0.5" or "color 1 0 0".
type Expr struct {
	Type  Type
	Value string
}

// IsZero reports whether e is the zero Expr.
func (e Expr) IsZero() bool { return e.Type == typeUndefined && e.Value == "" }

// AppendExpr appends the "<type> <value>" form of e to b.
func (e Expr) AppendExpr(b []byte) []byte {
	b = append(b, e.Type.String()...)
	b = append(b, ' ')
	return append(b, e.Value...)
}

func (e Expr) String() string { return string(e.AppendExpr(nil)) }

// String returns a string literal.
func String(s string) Expr { return Expr{Type: TypeString, Value: s} }

// Int returns an int literal.
func Int(v int) Expr { return Expr{Type: TypeInt, Value: strconv.Itoa(v)} }

// Float returns a float literal. NaN and infinities are formatted as 0.
func Float(v float32) Expr { return Expr{Type: TypeFloat, Value: string(AppendFloat(nil, v))} }

// Percent returns a float literal of a 0..100 host percentage mapped to 0..1.
func Percent(v float32) Expr { return Float(v / 100) }

// Color returns a color literal of a linear RGB color.
func Color(linear ms3.Vec) Expr {
	return Expr{Type: TypeColor, Value: string(AppendColor(nil, ' ', linear))}
}

// GammaColor returns a color literal for models that expect sRGB encoded colors.
// The argument is a linear RGB color.
func GammaColor(linear ms3.Vec) Expr { return Color(LinearToSRGB(linear)) }

// Texture returns the string literal of a texture file path. An empty path
// is used when no bitmap is bound.
func Texture(path string) Expr { return String(path) }

// AppendFloat appends the shortest decimal form of v that reads back as the same float32.
// NaN and infinities are appended as 0.
func AppendFloat(b []byte, v float32) []byte {
	v = sanitize(v)
	return strconv.AppendFloat(b, float64(v), 'f', -1, 32)
}

// AppendColor appends the three components of c separated by sep.
func AppendColor(b []byte, sep byte, c ms3.Vec) []byte {
	b = AppendFloat(b, c.X)
	b = append(b, sep)
	b = AppendFloat(b, c.Y)
	b = append(b, sep)
	return AppendFloat(b, c.Z)
}

func sanitize(v float32) float32 {
	if math32.IsNaN(v) || math32.IsInf(v, 0) || v == 0 {
		return 0 // Also turns -0 into 0.
	}
	return v
}

// LinearToSRGB encodes a linear RGB color with the sRGB transfer curve.
func LinearToSRGB(c ms3.Vec) ms3.Vec {
	return ms3.Vec{X: linearToSRGB(c.X), Y: linearToSRGB(c.Y), Z: linearToSRGB(c.Z)}
}

// SRGBToLinear decodes an sRGB encoded color to linear RGB.
func SRGBToLinear(c ms3.Vec) ms3.Vec {
	return ms3.Vec{X: srgbToLinear(c.X), Y: srgbToLinear(c.Y), Z: srgbToLinear(c.Z)}
}

// Luminance returns the Rec.709 luminance of a linear RGB color.
func Luminance(c ms3.Vec) float32 {
	return 0.2126*c.X + 0.7152*c.Y + 0.0722*c.Z
}

// The transfer curves are evaluated in float64 so that 0 and 1 map exactly.

func linearToSRGB(c float32) float32 {
	x := float64(sanitize(c))
	if x <= 0.0031308 {
		return float32(12.92 * x)
	}
	return float32(1.055*math.Pow(x, 1/2.4) - 0.055)
}

func srgbToLinear(c float32) float32 {
	x := float64(sanitize(c))
	if x <= 0.04045 {
		return float32(x / 12.92)
	}
	return float32(math.Pow((x+0.055)/1.055, 2.4))
}

// The following format expressions of the renderer's builtin material layers,
// which are SeExpr expressions rather than typed shader literals.

// SeColor returns a SeExpr color vector of c.
func SeColor(c ms3.Vec) string {
	b := append([]byte{}, '[')
	b = AppendFloat(b, c.X)
	b = append(b, ", "...)
	b = AppendFloat(b, c.Y)
	b = append(b, ", "...)
	b = AppendFloat(b, c.Z)
	return string(append(b, ']'))
}

// SeTexture returns a SeExpr texture lookup of the image at path with texture
// coordinates wrapped to the image dimensions.
func SeTexture(path string, width, height int) string {
	b := append([]byte{}, "texture("...)
	b = strconv.AppendQuote(b, path)
	b = append(b, ", $u % "...)
	b = strconv.AppendInt(b, int64(width), 10)
	b = append(b, ", $v % "...)
	b = strconv.AppendInt(b, int64(height), 10)
	return string(append(b, ')'))
}

// SeScalar returns a SeExpr of a 0..100 host percentage mapped to 0..1,
// modulated by texture when texture is not empty.
func SeScalar(percent float32, texture string) string {
	b := AppendFloat(nil, percent/100)
	if texture != "" {
		b = append(b, " * "...)
		b = append(b, texture...)
	}
	return string(b)
}
