package maxhost

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/chewxy/math32"
	"github.com/jinzhu/copier"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
)

var (
	ErrUnknownParam = errors.New("unknown parameter")
	ErrParamType    = errors.New("parameter type mismatch")
)

// ParamID identifies a parameter inside a [ParamBlock].
type ParamID int

// ParamType is the value type of a parameter.
type ParamType uint8

const (
	TypeFloat ParamType = iota
	TypeInt
	TypeBool
	TypeColor
	TypeString
	TypeTexmap
	TypeMtl
)

func (pt ParamType) String() string {
	switch pt {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeColor:
		return "color"
	case TypeString:
		return "string"
	case TypeTexmap:
		return "texmap"
	case TypeMtl:
		return "mtl"
	}
	return "ParamType(" + fmt.Sprint(uint8(pt)) + ")"
}

// isReference reports whether values of the type are references to other host
// objects rather than plain values.
func (pt ParamType) isReference() bool { return pt == TypeTexmap || pt == TypeMtl }

// ParamDef declares a parameter of a [ParamBlock].
type ParamDef struct {
	ID      ParamID
	Name    string
	Type    ParamType
	Default any
	// Min and Max clamp float and int values. Ignored when Min == Max.
	Min, Max float32
}

// Key is an animation key.
type Key struct {
	Time  TimeValue
	Value any
}

// Track holds the value of a parameter: a constant or a set of animation keys
// sorted by time.
type Track struct {
	Constant any
	Keys     []Key
}

func (tr *Track) animated() bool { return len(tr.Keys) > 0 }

// ParamBlock stores the parameters of a host object. Values are read at a time
// and narrow a validity interval. Edits notify subscribers registered with OnChange.
type ParamBlock struct {
	defs   []ParamDef
	index  map[ParamID]int
	tracks map[ParamID]*Track
	subs   []func(ParamID)
}

// NewParamBlock returns a parameter block holding the default value of every def.
func NewParamBlock(defs ...ParamDef) *ParamBlock {
	pb := &ParamBlock{
		defs:   slices.Clone(defs),
		index:  make(map[ParamID]int, len(defs)),
		tracks: make(map[ParamID]*Track, len(defs)),
	}
	for i, def := range pb.defs {
		pb.index[def.ID] = i
		v, err := normalizeValue(def, def.Default)
		if err != nil {
			v = zeroValue(def.Type)
		}
		pb.tracks[def.ID] = &Track{Constant: v}
	}
	return pb
}

// Defs returns the parameter declarations in declaration order.
func (pb *ParamBlock) Defs() []ParamDef { return pb.defs }

// Def returns the declaration of parameter id.
func (pb *ParamBlock) Def(id ParamID) (ParamDef, bool) {
	i, ok := pb.index[id]
	if !ok {
		return ParamDef{}, false
	}
	return pb.defs[i], true
}

// Lookup returns the ID of the parameter with the given name.
func (pb *ParamBlock) Lookup(name string) (ParamID, bool) {
	for _, def := range pb.defs {
		if def.Name == name {
			return def.ID, true
		}
	}
	return 0, false
}

// OnChange registers fn to be called after any parameter edit.
func (pb *ParamBlock) OnChange(fn func(ParamID)) {
	pb.subs = append(pb.subs, fn)
}

// Set replaces the value of parameter id with a constant and notifies subscribers.
func (pb *ParamBlock) Set(id ParamID, v any) error {
	def, ok := pb.Def(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownParam, id)
	}
	v, err := normalizeValue(def, v)
	if err != nil {
		return err
	}
	pb.tracks[id] = &Track{Constant: v}
	pb.notify(id)
	return nil
}

// SetKeys animates parameter id and notifies subscribers.
// Reference parameters cannot be animated.
func (pb *ParamBlock) SetKeys(id ParamID, keys ...Key) error {
	def, ok := pb.Def(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownParam, id)
	}
	if def.Type.isReference() {
		return fmt.Errorf("%w: %s parameter %q cannot be animated", ErrParamType, def.Type, def.Name)
	}
	if len(keys) == 0 {
		return errors.New("no animation keys")
	}
	tr := &Track{Keys: make([]Key, len(keys))}
	for i, k := range keys {
		v, err := normalizeValue(def, k.Value)
		if err != nil {
			return err
		}
		tr.Keys[i] = Key{Time: k.Time, Value: v}
	}
	sort.SliceStable(tr.Keys, func(i, j int) bool { return tr.Keys[i].Time < tr.Keys[j].Time })
	pb.tracks[id] = tr
	pb.notify(id)
	return nil
}

func (pb *ParamBlock) notify(id ParamID) {
	for _, fn := range pb.subs {
		fn(id)
	}
}

// Float returns the float value of id at t. valid may be nil.
func (pb *ParamBlock) Float(id ParamID, t TimeValue, valid *Interval) float32 {
	f, _ := pb.Value(id, t, valid).(float32)
	return f
}

// Int returns the int value of id at t. valid may be nil.
func (pb *ParamBlock) Int(id ParamID, t TimeValue, valid *Interval) int {
	i, _ := pb.Value(id, t, valid).(int)
	return i
}

// Bool returns the bool value of id at t. valid may be nil.
func (pb *ParamBlock) Bool(id ParamID, t TimeValue, valid *Interval) bool {
	b, _ := pb.Value(id, t, valid).(bool)
	return b
}

// Color returns the linear RGB value of id at t. valid may be nil.
func (pb *ParamBlock) Color(id ParamID, t TimeValue, valid *Interval) ms3.Vec {
	c, _ := pb.Value(id, t, valid).(ms3.Vec)
	return c
}

// String returns the string value of id at t. valid may be nil.
func (pb *ParamBlock) String(id ParamID, t TimeValue, valid *Interval) string {
	s, _ := pb.Value(id, t, valid).(string)
	return s
}

// Ref returns the host object referenced by a texmap or material parameter.
func (pb *ParamBlock) Ref(id ParamID, t TimeValue, valid *Interval) any {
	return pb.Value(id, t, valid)
}

// Value returns the value of id at t and narrows valid to the interval over
// which the value stays constant. Unknown parameters return nil.
func (pb *ParamBlock) Value(id ParamID, t TimeValue, valid *Interval) any {
	tr, ok := pb.tracks[id]
	if !ok {
		return nil
	}
	v, iv := tr.eval(t)
	if valid != nil {
		*valid = valid.Intersect(iv)
	}
	return v
}

// Validity returns the interval around t over which no parameter changes.
func (pb *ParamBlock) Validity(t TimeValue) Interval {
	iv := Forever()
	for _, def := range pb.defs {
		pb.Value(def.ID, t, &iv)
	}
	return iv
}

// Clone returns a copy of pb that shares no value storage with it.
// References to other host objects are shared. Subscribers are not copied.
func (pb *ParamBlock) Clone() *ParamBlock {
	dst := &ParamBlock{
		defs:   slices.Clone(pb.defs),
		index:  maps.Clone(pb.index),
		tracks: make(map[ParamID]*Track, len(pb.tracks)),
	}
	for id, tr := range pb.tracks {
		def, _ := pb.Def(id)
		cp := &Track{}
		if def.Type.isReference() {
			*cp = *tr
		} else if err := copier.CopyWithOption(cp, tr, copier.Option{DeepCopy: true}); err != nil {
			cp.Constant = tr.Constant
			cp.Keys = slices.Clone(tr.Keys)
		}
		dst.tracks[id] = cp
	}
	return dst
}

func (tr *Track) eval(t TimeValue) (any, Interval) {
	if !tr.animated() {
		return tr.Constant, Forever()
	}
	first, last := tr.Keys[0], tr.Keys[len(tr.Keys)-1]
	switch {
	case len(tr.Keys) == 1:
		return first.Value, Forever()
	case t <= first.Time:
		return first.Value, Interval{Start: TimeNegInfinity, End: first.Time}
	case t >= last.Time:
		return last.Value, Interval{Start: last.Time, End: TimePosInfinity}
	}
	i := sort.Search(len(tr.Keys), func(i int) bool { return tr.Keys[i].Time > t })
	k0, k1 := tr.Keys[i-1], tr.Keys[i]
	if k0.Time == t {
		return k0.Value, Instant(t)
	}
	alpha := float32(t-k0.Time) / float32(k1.Time-k0.Time)
	return interpolate(k0.Value, k1.Value, alpha), Instant(t)
}

func interpolate(a, b any, alpha float32) any {
	switch av := a.(type) {
	case float32:
		return ms1.Interp(av, b.(float32), alpha)
	case ms3.Vec:
		return ms3.InterpElem(av, b.(ms3.Vec), ms3.Vec{X: alpha, Y: alpha, Z: alpha})
	case int:
		return int(math32.Round(ms1.Interp(float32(av), float32(b.(int)), alpha)))
	}
	return a // Step interpolation for discrete values.
}

func zeroValue(pt ParamType) any {
	switch pt {
	case TypeFloat:
		return float32(0)
	case TypeInt:
		return 0
	case TypeBool:
		return false
	case TypeColor:
		return ms3.Vec{}
	case TypeString:
		return ""
	}
	return nil
}

func normalizeValue(def ParamDef, v any) (any, error) {
	if v == nil && !def.Type.isReference() {
		return zeroValue(def.Type), nil
	}
	mismatch := func() error {
		return fmt.Errorf("%w: %s parameter %q got %T", ErrParamType, def.Type, def.Name, v)
	}
	ranged := def.Min != def.Max
	switch def.Type {
	case TypeFloat:
		var f float32
		switch n := v.(type) {
		case float32:
			f = n
		case float64:
			f = float32(n)
		case int:
			f = float32(n)
		default:
			return nil, mismatch()
		}
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			f = 0
		}
		if ranged {
			f = ms1.Clamp(f, def.Min, def.Max)
		}
		return f, nil
	case TypeInt:
		var i int
		switch n := v.(type) {
		case int:
			i = n
		case int32:
			i = int(n)
		case int64:
			i = int(n)
		default:
			return nil, mismatch()
		}
		if ranged {
			i = int(ms1.Clamp(float32(i), def.Min, def.Max))
		}
		return i, nil
	case TypeBool:
		switch n := v.(type) {
		case bool:
			return n, nil
		case int:
			return n != 0, nil
		}
		return nil, mismatch()
	case TypeColor:
		c, ok := v.(ms3.Vec)
		if !ok {
			return nil, mismatch()
		}
		return c, nil
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		return s, nil
	}
	return v, nil
}
