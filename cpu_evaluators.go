package gsg

import (
	"strings"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg/gleval"
)

// This file collects the CPU kernels of the builtin operations. Each kernel
// must compute exactly what the op's generated GLSL computes so CPU renders
// match GPU renders bit-for-bit wherever float semantics allow.

func (uvOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	d := out[0].Data
	for i, p := range pos {
		d[2*i] = p.X
		d[2*i+1] = p.Y
	}
	return nil
}

func (timeOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	d := out[0].Data
	for i := range d {
		d[i] = t
	}
	return nil
}

func (v *valueOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	fillChannels(out[0], v.vals[:])
	return nil
}

func (p *paramOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	fillChannels(out[0], p.val[:])
	return nil
}

// fillChannels sets every element of f to the leading channels of vals.
func fillChannels(f gleval.Frame, vals []float32) {
	ch := f.Kind.Channels()
	for i := 0; i < len(f.Data); i += ch {
		copy(f.Data[i:i+ch], vals[:ch])
	}
}

func (outputOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	color, alpha, d := in[0].Data, in[1].Data, out[0].Data
	for i := range pos {
		d[4*i] = color[3*i]
		d[4*i+1] = color[3*i+1]
		d[4*i+2] = color[3*i+2]
		d[4*i+3] = alpha[i]
	}
	return nil
}

func (op *binOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, b, dst := in[0], in[1], out[0]
	if op.matProduct && dst.Kind.IsMatrix() {
		side := dst.Kind.Side()
		for i := 0; i < dst.Len(); i++ {
			matProduct(dst.At(i), a.At(i), b.At(i), side)
		}
		return nil
	}
	for i := range dst.Data {
		dst.Data[i] = op.eval(a.Data[i], b.Data[i])
	}
	return nil
}

func (op *unOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, dst := in[0], out[0]
	for i := range dst.Data {
		dst.Data[i] = op.eval(a.Data[i])
	}
	return nil
}

func (op *ternOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	x, y, z, dst := in[0], in[1], in[2], out[0]
	for i := range dst.Data {
		dst.Data[i] = op.eval(x.Data[i], y.Data[i], z.Data[i])
	}
	return nil
}

// matProduct stores the row-major linear-algebraic product a*b into dst.
// dst must not alias a or b.
func matProduct(dst, a, b []float32, side int) {
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			var sum float32
			for k := 0; k < side; k++ {
				sum += a[r*side+k] * b[k*side+c]
			}
			dst[r*side+c] = sum
		}
	}
}

func (dotOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, b, dst := in[0], in[1], out[0]
	ch := a.Kind.Channels()
	for i := range dst.Data {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += a.Data[i*ch+c] * b.Data[i*ch+c]
		}
		dst.Data[i] = sum
	}
	return nil
}

func (lengthOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, dst := in[0], out[0]
	ch := a.Kind.Channels()
	for i := range dst.Data {
		var sum float32
		for c := 0; c < ch; c++ {
			v := a.Data[i*ch+c]
			sum += v * v
		}
		dst.Data[i] = sqrtf(sum)
	}
	return nil
}

func (distanceOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, b, dst := in[0], in[1], out[0]
	ch := a.Kind.Channels()
	for i := range dst.Data {
		var sum float32
		for c := 0; c < ch; c++ {
			v := a.Data[i*ch+c] - b.Data[i*ch+c]
			sum += v * v
		}
		dst.Data[i] = sqrtf(sum)
	}
	return nil
}

func (normalizeOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, dst := in[0], out[0]
	ch := a.Kind.Channels()
	for i := 0; i < dst.Len(); i++ {
		e, d := a.At(i), dst.At(i)
		var sum float32
		for c := 0; c < ch; c++ {
			sum += e[c] * e[c]
		}
		norm := sqrtf(sum) // Zero length is undefined in GLSL; NaN mirrors that.
		for c := 0; c < ch; c++ {
			d[c] = e[c] / norm
		}
	}
	return nil
}

func (crossOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	dst := out[0]
	for i := 0; i < dst.Len(); i++ {
		a, b := vec3At(in[0], i), vec3At(in[1], i)
		putVec3(dst, i, ms3.Vec{
			X: a.Y*b.Z - a.Z*b.Y,
			Y: a.Z*b.X - a.X*b.Z,
			Z: a.X*b.Y - a.Y*b.X,
		})
	}
	return nil
}

func (reflectOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	dst := out[0]
	for idx := 0; idx < dst.Len(); idx++ {
		i, n := vec3At(in[0], idx), vec3At(in[1], idx)
		r := ms3.Sub(i, ms3.Scale(2*ms3.Dot(n, i), n)) // reflect(I,N) = I - 2*dot(N,I)*N
		putVec3(dst, idx, r)
	}
	return nil
}

func (fresnelOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	dst := out[0]
	power := in[2]
	for i := range dst.Data {
		n, v := vec3At(in[0], i), vec3At(in[1], i)
		ndv := clampf(ms3.Dot(ms3.Unit(n), ms3.Unit(v)), 0, 1)
		dst.Data[i] = powf(1-ndv, power.Data[i])
	}
	return nil
}

func (splitOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a := in[0]
	ch := a.Kind.Channels()
	for j := range out {
		d := out[j].Data
		if j >= ch {
			for i := range d {
				d[i] = 0
			}
			continue
		}
		for i := range d {
			d[i] = a.Data[i*ch+j]
		}
	}
	return nil
}

func (combineOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	d := out[0].Data
	for i := range pos {
		d[4*i] = in[0].Data[i]
		d[4*i+1] = in[1].Data[i]
		d[4*i+2] = in[2].Data[i]
		d[4*i+3] = in[3].Data[i]
	}
	return nil
}

func (op *swizzleOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, dst := in[0], out[0]
	ch := a.Kind.Channels()
	var idx [4]int
	for j := 0; j < len(op.mask); j++ {
		idx[j] = strings.IndexByte("xyzw", op.mask[j])
	}
	w := len(op.mask)
	for i := 0; i < dst.Len(); i++ {
		for j := 0; j < w; j++ {
			dst.Data[i*w+j] = a.Data[i*ch+idx[j]]
		}
	}
	return nil
}

func (matmulOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	a, b, dst := in[0], in[1], out[0]
	side := dst.Kind.Side()
	for i := 0; i < dst.Len(); i++ {
		matProduct(dst.At(i), a.At(i), b.At(i), side)
	}
	return nil
}

func (transformptOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	dst := out[0]
	for i := 0; i < dst.Len(); i++ {
		m, p, d := in[0].At(i), in[1].At(i), dst.At(i)
		for r := 0; r < 3; r++ {
			d[r] = m[r*4]*p[0] + m[r*4+1]*p[1] + m[r*4+2]*p[2] + m[r*4+3]
		}
	}
	return nil
}

func (rotate2dOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	angle, dst := in[0], out[0]
	for i := range angle.Data {
		c, s := cosf(angle.Data[i]), sinf(angle.Data[i])
		d := dst.At(i)
		d[0], d[1] = c, -s
		d[2], d[3] = s, c
	}
	return nil
}

func (op *lightOp) Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error {
	m := lightModels[op.model] // Validate gates evaluation.
	dst := out[0]
	shininess := in[4]
	for i := 0; i < dst.Len(); i++ {
		c := m.Eval(vec3At(in[0], i), vec3At(in[1], i), vec3At(in[2], i), vec3At(in[3], i), shininess.Data[i])
		putVec3(dst, i, c)
	}
	return nil
}

func vec3At(f gleval.Frame, i int) ms3.Vec {
	e := f.At(i)
	return ms3.Vec{X: e[0], Y: e[1], Z: e[2]}
}

func putVec3(f gleval.Frame, i int, v ms3.Vec) {
	e := f.At(i)
	e[0], e[1], e[2] = v.X, v.Y, v.Z
}
