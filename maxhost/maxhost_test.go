package maxhost_test

import (
	"testing"

	"github.com/appleseedhq/asmax/maxhost"
	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pAmount maxhost.ParamID = iota
	pColor
	pEnabled
	pName
	pMap
)

func newBlock() *maxhost.ParamBlock {
	return maxhost.NewParamBlock(
		maxhost.ParamDef{ID: pAmount, Name: "amount", Type: maxhost.TypeFloat, Default: float32(50), Min: 0, Max: 100},
		maxhost.ParamDef{ID: pColor, Name: "color", Type: maxhost.TypeColor, Default: ms3.Vec{X: 0.9, Y: 0.9, Z: 0.9}},
		maxhost.ParamDef{ID: pEnabled, Name: "enabled", Type: maxhost.TypeBool, Default: true},
		maxhost.ParamDef{ID: pName, Name: "name", Type: maxhost.TypeString},
		maxhost.ParamDef{ID: pMap, Name: "map", Type: maxhost.TypeTexmap},
	)
}

func TestInterval(t *testing.T) {
	forever := maxhost.Forever()
	assert.True(t, forever.IsForever())
	assert.True(t, forever.Contains(0))
	assert.True(t, maxhost.Never().IsEmpty())
	assert.False(t, maxhost.Never().Contains(0))

	a := maxhost.Interval{Start: 0, End: 100}
	b := maxhost.Interval{Start: 50, End: 200}
	assert.Equal(t, maxhost.Interval{Start: 50, End: 100}, a.Intersect(b))
	assert.True(t, a.Intersect(maxhost.Interval{Start: 101, End: 300}).IsEmpty())
	assert.Equal(t, maxhost.Instant(7), forever.Intersect(maxhost.Instant(7)))
	assert.Equal(t, "[-inf,+inf]", forever.String())
	assert.Equal(t, "[never]", maxhost.Never().String())
}

func TestCache(t *testing.T) {
	var c maxhost.Cache[int]
	assert.False(t, c.IsValid(0), "zero cache must be invalid")
	c.Set(42, maxhost.Forever())
	assert.True(t, c.IsValid(maxhost.Frame(10)))
	assert.Equal(t, 42, c.Get())
	c.Invalidate()
	assert.False(t, c.IsValid(0))
	assert.True(t, c.Validity().IsEmpty())
	c.Set(1, maxhost.Instant(5))
	assert.True(t, c.IsValid(5))
	assert.False(t, c.IsValid(6))
}

func TestParamBlockDefaults(t *testing.T) {
	pb := newBlock()
	valid := maxhost.Forever()
	assert.Equal(t, float32(50), pb.Float(pAmount, 0, &valid))
	assert.Equal(t, ms3.Vec{X: 0.9, Y: 0.9, Z: 0.9}, pb.Color(pColor, 0, &valid))
	assert.True(t, pb.Bool(pEnabled, 0, &valid))
	assert.Equal(t, "", pb.String(pName, 0, &valid))
	assert.Nil(t, pb.Ref(pMap, 0, &valid))
	assert.True(t, valid.IsForever(), "constant parameters must not narrow validity")
	id, ok := pb.Lookup("color")
	require.True(t, ok)
	assert.Equal(t, pColor, id)
}

func TestParamBlockSetClampAndNotify(t *testing.T) {
	pb := newBlock()
	var changed []maxhost.ParamID
	pb.OnChange(func(id maxhost.ParamID) { changed = append(changed, id) })

	require.NoError(t, pb.Set(pAmount, 250.0))
	assert.Equal(t, float32(100), pb.Float(pAmount, 0, nil))
	require.NoError(t, pb.Set(pEnabled, false))
	assert.Equal(t, []maxhost.ParamID{pAmount, pEnabled}, changed)

	assert.ErrorIs(t, pb.Set(pColor, "red"), maxhost.ErrParamType)
	assert.ErrorIs(t, pb.Set(99, 1), maxhost.ErrUnknownParam)
	assert.Len(t, changed, 2, "failed edits must not notify")
}

func TestParamBlockAnimation(t *testing.T) {
	pb := newBlock()
	require.NoError(t, pb.SetKeys(pAmount,
		maxhost.Key{Time: maxhost.Frame(10), Value: float32(100)},
		maxhost.Key{Time: maxhost.Frame(0), Value: float32(0)},
	))
	tests := []struct {
		t         maxhost.TimeValue
		want      float32
		wantValid maxhost.Interval
	}{
		{t: maxhost.Frame(-5), want: 0, wantValid: maxhost.Interval{Start: maxhost.TimeNegInfinity, End: 0}},
		{t: maxhost.Frame(5), want: 50, wantValid: maxhost.Instant(maxhost.Frame(5))},
		{t: maxhost.Frame(20), want: 100, wantValid: maxhost.Interval{Start: maxhost.Frame(10), End: maxhost.TimePosInfinity}},
	}
	for _, test := range tests {
		valid := maxhost.Forever()
		got := pb.Float(pAmount, test.t, &valid)
		assert.InDelta(t, test.want, got, 1e-5, "t=%d", test.t)
		assert.Equal(t, test.wantValid, valid, "t=%d", test.t)
	}
	assert.Equal(t, maxhost.Instant(maxhost.Frame(5)), pb.Validity(maxhost.Frame(5)))
	assert.ErrorIs(t, pb.SetKeys(pMap, maxhost.Key{Value: nil}), maxhost.ErrParamType)
}

func TestParamBlockClone(t *testing.T) {
	pb := newBlock()
	require.NoError(t, pb.SetKeys(pColor,
		maxhost.Key{Time: 0, Value: ms3.Vec{}},
		maxhost.Key{Time: 100, Value: ms3.Vec{X: 1, Y: 1, Z: 1}},
	))
	notified := 0
	pb.OnChange(func(maxhost.ParamID) { notified++ })
	cp := pb.Clone()
	require.NoError(t, cp.Set(pAmount, float32(10)))
	assert.Equal(t, float32(50), pb.Float(pAmount, 0, nil), "clone edits must not leak into the original")
	assert.Zero(t, notified, "subscribers are not cloned")
	assert.InDelta(t, 0.5, cp.Color(pColor, 50, nil).X, 1e-5)
}

func TestClassID(t *testing.T) {
	id := maxhost.ClassID{A: 0x27752cf8, B: 0x5e8c6be3}
	assert.Equal(t, "(0x27752cf8, 0x5e8c6be3)", id.String())
	assert.False(t, id.IsZero())
	assert.True(t, maxhost.ClassID{}.IsZero())
}
