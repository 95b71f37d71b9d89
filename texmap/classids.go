package texmap

import (
	"sort"

	"github.com/appleseedhq/asmax/maxhost"
)

// BitmapClassID is the class of the host's bitmap texture.
var BitmapClassID = maxhost.ClassID{A: 0x0240}

// Host procedural textures identified by the first part of their class id.
const (
	checkerClassA         = 0x0200
	marbleClassA          = 0x0202
	woodClassA            = 0x0214
	dentClassA            = 0x0218
	maskClassA            = 0x0220
	tintClassA            = 0x0224
	mixClassA             = 0x0230
	noiseClassA           = 0x0234
	gradientClassA        = 0x0270
	compositeClassA       = 0x0280
	rgbMultClassA         = 0x0290
	outputClassA          = 0x02b0
	colorCorrectionClassA = 0x02d0
	planetClassA          = 0x46396cf1
	waterClassA           = 0x7712634e
	smokeClassA           = 0x0a845e7c
	speckleClassA         = 0x62c32b8a
	splatClassA           = 0x090b04f9
	stuccoClassA          = 0x09312fbe
)

var supportedClassA = map[uint32]bool{
	checkerClassA:         true,
	marbleClassA:          true,
	woodClassA:            true,
	dentClassA:            true,
	maskClassA:            true,
	tintClassA:            true,
	mixClassA:             true,
	noiseClassA:           true,
	gradientClassA:        true,
	compositeClassA:       true,
	rgbMultClassA:         true,
	outputClassA:          true,
	colorCorrectionClassA: true,
	planetClassA:          true,
	waterClassA:           true,
	smokeClassA:           true,
	speckleClassA:         true,
	splatClassA:           true,
	stuccoClassA:          true,
}

// Host procedural textures identified by their full class id.
var (
	tilesClassID         = maxhost.ClassID{A: 0x64035fb9, B: 0x69664cdc}
	gradientRampClassID  = maxhost.ClassID{A: 0x1dec5b86, B: 0x43383a51}
	swirlClassID         = maxhost.ClassID{A: 0x72c8577f, B: 0x39a00a1b}
	perlinMarbleClassID  = maxhost.ClassID{A: 0x23ad0ae9, B: 0x158d7a88}
	normalBumpClassID    = maxhost.ClassID{A: 0x243e22c6, B: 0x63f6a014}
	vectorMapClassID     = maxhost.ClassID{A: 0x93a92749, B: 0x6b8d470a}
	supportedFullClassID = map[maxhost.ClassID]bool{
		tilesClassID:        true,
		gradientRampClassID: true,
		swirlClassID:        true,
		perlinMarbleClassID: true,
		normalBumpClassID:   true,
		vectorMapClassID:    true,
	}
)

func isSupportedProcedural(id maxhost.ClassID) bool {
	return supportedFullClassID[id] || supportedClassA[id.A]
}

var proceduralByName = map[string]maxhost.ClassID{
	"checker":          {A: checkerClassA},
	"marble":           {A: marbleClassA},
	"wood":             {A: woodClassA},
	"dent":             {A: dentClassA},
	"mask":             {A: maskClassA},
	"tint":             {A: tintClassA},
	"mix":              {A: mixClassA},
	"noise":            {A: noiseClassA},
	"gradient":         {A: gradientClassA},
	"composite":        {A: compositeClassA},
	"rgb_multiply":     {A: rgbMultClassA},
	"output":           {A: outputClassA},
	"color_correction": {A: colorCorrectionClassA},
	"planet":           {A: planetClassA},
	"water":            {A: waterClassA},
	"smoke":            {A: smokeClassA},
	"speckle":          {A: speckleClassA},
	"splat":            {A: splatClassA},
	"stucco":           {A: stuccoClassA},
	"tiles":            tilesClassID,
	"gradient_ramp":    gradientRampClassID,
	"swirl":            swirlClassID,
	"perlin_marble":    perlinMarbleClassID,
	"normal_bump":      normalBumpClassID,
	"vector_map":       vectorMapClassID,
}

// ProceduralClass returns the class id of the supported host procedural texture
// called name, i.e. "checker" or "gradient_ramp".
func ProceduralClass(name string) (maxhost.ClassID, bool) {
	id, ok := proceduralByName[name]
	return id, ok
}

// ProceduralClassNames returns the sorted names accepted by [ProceduralClass].
func ProceduralClassNames() []string {
	names := make([]string, 0, len(proceduralByName))
	for name := range proceduralByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
