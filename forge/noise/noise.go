// Package noise provides procedural noise operations for shader graphs.
// Importing the package registers the valuenoise and fbm operations, which
// also makes them available to graph documents loaded with graphio.
//
// The noise is deterministic: equal positions hash to equal values on every
// run and platform modulo floating point rounding, so renders are
// reproducible. The GPU and CPU implementations share the same formulas but
// the hash amplifies their rounding differences, so GPU renders of noisy
// graphs match CPU renders visually rather than bit for bit.
package noise

import (
	_ "embed"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"

	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
)

func init() {
	gsg.RegisterOp("valuenoise", func(gsg.OpSpec) (gsg.Op, error) { return valueNoiseOp{}, nil })
	gsg.RegisterOp("fbm", newFBMFromSpec)
}

//go:embed hash.glsl
var hashSrc []byte

//go:embed valuenoise.glsl
var valueNoiseSrc []byte

//go:embed fbm.glsl
var fbmSrc []byte

var (
	hashFn       = mustShaderFunc(hashSrc)
	valueNoiseFn = mustShaderFunc(valueNoiseSrc)
	fbmFn        = mustShaderFunc(fbmSrc)
)

func mustShaderFunc(src []byte) glbuild.ShaderFunc {
	fn, err := glbuild.MakeShaderFunc(src)
	if err != nil {
		panic(err)
	}
	return fn
}

// ValueNoise returns a node sampling smooth value noise at p scaled by
// scale, yielding floats in [0,1). Nil arguments stay on the slot defaults:
// p reads zero and scale reads 8.
func ValueNoise(bld *gsg.Builder, p, scale *gsg.Node) *gsg.Node {
	return bld.Wire("valuenoise", gsg.OpSpec{}, p, scale)
}

// FBM returns a node summing octaves of value noise, each octave at double
// the frequency and half the amplitude of the last, yielding floats in
// [0,1). Octaves outside [1,10] refuse construction. Nil arguments stay on
// the slot defaults: p reads zero and scale reads 4.
func FBM(bld *gsg.Builder, p, scale *gsg.Node, octaves int) *gsg.Node {
	return bld.Wire("fbm", gsg.OpSpec{Value: []float32{float32(octaves)}}, p, scale)
}

type valueNoiseOp struct{}

func (valueNoiseOp) OpName() string { return "valuenoise" }

func (valueNoiseOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("p", glbuild.KindVec2),
		glbuild.InputDefault("scale", glbuild.KindFloat, 8),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (valueNoiseOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, valueNoiseFn.Name())
}

func (valueNoiseOp) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	return append(fns, hashFn, valueNoiseFn)
}

func (valueNoiseOp) OpSpec() gsg.OpSpec { return gsg.OpSpec{} }

func (valueNoiseOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	p, scale, dst := in[0], in[1], out[0]
	for i := range dst.Data {
		dst.Data[i] = valueNoise(p.Data[2*i], p.Data[2*i+1], scale.Data[i])
	}
	return nil
}

var _ gsg.SpecOp = valueNoiseOp{}

// maxOctaves bounds fbm loop emission. Beyond ten octaves single precision
// amplitudes contribute under a thousandth of the result.
const maxOctaves = 10

// fbmOp sums octaves of value noise. The octave count is construction
// payload rather than an input slot since it sets the GLSL loop bound.
type fbmOp struct {
	octaves int
}

func newFBMFromSpec(spec gsg.OpSpec) (gsg.Op, error) {
	octaves := 4
	if len(spec.Value) > 0 {
		octaves = int(spec.Value[0])
	}
	if octaves < 1 || octaves > maxOctaves {
		return nil, fmt.Errorf("fbm octaves %d outside [1,%d]", octaves, maxOctaves)
	}
	return &fbmOp{octaves: octaves}, nil
}

func (op *fbmOp) OpName() string { return "fbm" }

func (op *fbmOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("p", glbuild.KindVec2),
		glbuild.InputDefault("scale", glbuild.KindFloat, 4),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (op *fbmOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, '=')
	b = append(b, fbmFn.Name()...)
	b = append(b, '(')
	b = args.In[0].Append(b)
	b = append(b, ',')
	b = args.In[1].Append(b)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(op.octaves), 10)
	b = append(b, ");\n"...)
	return b
}

func (op *fbmOp) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	return append(fns, hashFn, valueNoiseFn, fbmFn)
}

func (op *fbmOp) OpSpec() gsg.OpSpec {
	return gsg.OpSpec{Value: []float32{float32(op.octaves)}}
}

func (op *fbmOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	p, scale, dst := in[0], in[1], out[0]
	for i := range dst.Data {
		dst.Data[i] = fbm(p.Data[2*i], p.Data[2*i+1], scale.Data[i], op.octaves)
	}
	return nil
}

var _ gsg.SpecOp = (*fbmOp)(nil)

// CPU mirrors of the embedded GLSL, formula for formula.

func hash21(x, y float32) float32 {
	qx := fractf(x * 0.1031)
	qy := fractf(y * 0.1031)
	qz := qx
	d := qx*(qy+33.33) + qy*(qz+33.33) + qz*(qx+33.33)
	qx += d
	qy += d
	qz += d
	return fractf((qx + qy) * qz)
}

func valueNoise(px, py, scale float32) float32 {
	sx, sy := px*scale, py*scale
	cx, cy := math32.Floor(sx), math32.Floor(sy)
	fx, fy := sx-cx, sy-cy
	ux := fx * fx * (3 - 2*fx)
	uy := fy * fy * (3 - 2*fy)
	a := hash21(cx, cy)
	b := hash21(cx+1, cy)
	c := hash21(cx, cy+1)
	d := hash21(cx+1, cy+1)
	return mixf(mixf(a, b, ux), mixf(c, d, ux), uy)
}

func fbm(px, py, scale float32, octaves int) float32 {
	var sum float32
	amp := float32(0.5)
	for i := 0; i < octaves; i++ {
		sum += amp * valueNoise(px, py, scale)
		scale *= 2
		amp *= 0.5
	}
	return sum
}

func fractf(a float32) float32 { return a - math32.Floor(a) }

func mixf(x, y, a float32) float32 { return x*(1-a) + y*a }
