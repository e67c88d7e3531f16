// Package gleval implements evaluation of shader graphs on CPU and GPU
// along with associated buffer management facilities.
package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gsg/glbuild"
)

// Shader evaluates a shader graph's color output over a batch of positions.
type Shader interface {
	// Evaluate evaluates the shader at the UV positions pos at time t and
	// stores the resulting colors to rgba, which has length 4*len(pos) and
	// is laid out as repeating RGBA channel groups.
	//
	// userData facilitates getting data to the evaluators for use in
	// processing, such as [FramePool].
	Evaluate(pos []ms2.Vec, t float32, rgba []float32, userData any) error
}

var (
	errZeroLenBuffer        = errors.New("zero length position buffer")
	errRGBALength           = errors.New("rgba buffer length must be 4 times position buffer length")
	errConvertFrameMismatch = errors.New("convert frame length mismatch")
)

// Frame is a struct-of-arrays buffer holding one value of a concrete kind
// per evaluation position. Data is laid out as repeating channel groups with
// matrices in row-major order, matching the Array methods of the ms2 and ms3
// matrix types.
type Frame struct {
	Kind glbuild.Kind
	Data []float32
}

// MakeFrame allocates a frame of kind k holding n elements.
func MakeFrame(k glbuild.Kind, n int) Frame {
	return Frame{Kind: k, Data: make([]float32, n*k.Channels())}
}

// Len returns the number of elements stored in the frame.
func (f Frame) Len() int {
	ch := f.Kind.Channels()
	if ch == 0 {
		return 0
	}
	return len(f.Data) / ch
}

// At returns the channel group of element i.
func (f Frame) At(i int) []float32 {
	ch := f.Kind.Channels()
	return f.Data[i*ch : (i+1)*ch]
}

// Fill sets every element of the frame from a slot default: floats and
// vectors replicate the leading channels of def, matrices are diagonal
// matrices of def[0]. Mirrors the GLSL literal an unconnected input takes.
func (f Frame) Fill(def [4]float32) {
	ch := f.Kind.Channels()
	if side := f.Kind.Side(); side > 0 {
		n := f.Len()
		for i := 0; i < n; i++ {
			e := f.At(i)
			for j := range e {
				e[j] = 0
			}
			for d := 0; d < side; d++ {
				e[d*side+d] = def[0]
			}
		}
		return
	}
	for i := 0; i < len(f.Data); i += ch {
		copy(f.Data[i:i+ch], def[:ch])
	}
}

// ConvertFrame converts src into dst elementwise following the same implicit
// conversion semantics the generated GLSL applies: floats broadcast, wider
// values truncate to leading channels in column-major order, matrices
// truncate to their upper-left submatrix. dst carries the target kind and
// must hold as many elements as src.
func ConvertFrame(dst, src Frame) error {
	if !glbuild.ConvertExists(src.Kind, dst.Kind) {
		return fmt.Errorf("no conversion from %s to %s", src.Kind.String(), dst.Kind.String())
	} else if dst.Len() != src.Len() {
		return errConvertFrameMismatch
	}
	from, to := src.Kind, dst.Kind
	n := src.Len()
	switch {
	case from == to:
		copy(dst.Data, src.Data)

	case from == glbuild.KindFloat:
		if side := to.Side(); side > 0 {
			// Scalar to matrix broadcasts onto the diagonal, as GLSL matN(x).
			for i := 0; i < n; i++ {
				e := dst.At(i)
				for j := range e {
					e[j] = 0
				}
				v := src.Data[i]
				for d := 0; d < side; d++ {
					e[d*side+d] = v
				}
			}
		} else {
			ch := to.Channels()
			for i := 0; i < n; i++ {
				v := src.Data[i]
				e := dst.At(i)
				for j := 0; j < ch; j++ {
					e[j] = v
				}
			}
		}

	case from.IsMatrix() && to.IsMatrix():
		ss, sd := from.Side(), to.Side()
		for i := 0; i < n; i++ {
			s, d := src.At(i), dst.At(i)
			for r := 0; r < sd; r++ {
				for c := 0; c < sd; c++ {
					d[r*sd+c] = s[r*ss+c]
				}
			}
		}

	case from.IsMatrix():
		// Leading column-major components of the matrix: converted channel k
		// is column k/side, row k%side.
		side := from.Side()
		ch := to.Channels()
		for i := 0; i < n; i++ {
			s, d := src.At(i), dst.At(i)
			for k := 0; k < ch; k++ {
				d[k] = s[(k%side)*side+k/side]
			}
		}

	default: // Vector truncation to leading channels.
		ch := to.Channels()
		for i := 0; i < n; i++ {
			copy(dst.At(i), src.At(i)[:ch])
		}
	}
	return nil
}

// FramePool holds allocated frame backing buffers for reuse to amortize
// allocations over many node evaluations. The zero value is ready for use.
// Usage of FramePool is not concurrent safe.
type FramePool struct {
	free        [][]float32
	outstanding int
}

// Acquire returns a zeroed buffer of length n, reusing a previously released
// buffer when one is large enough.
func (fp *FramePool) Acquire(n int) []float32 {
	fp.outstanding++
	for i, buf := range fp.free {
		if cap(buf) >= n {
			fp.free[i] = fp.free[len(fp.free)-1]
			fp.free = fp.free[:len(fp.free)-1]
			buf = buf[:n]
			for j := range buf {
				buf[j] = 0
			}
			return buf
		}
	}
	return make([]float32, n)
}

// Release returns a buffer obtained from Acquire to the pool.
func (fp *FramePool) Release(buf []float32) {
	if cap(buf) == 0 {
		return
	}
	fp.outstanding--
	fp.free = append(fp.free, buf[:cap(buf)])
}

// AcquireFrame returns a zeroed frame of kind k holding n elements.
func (fp *FramePool) AcquireFrame(k glbuild.Kind, n int) Frame {
	return Frame{Kind: k, Data: fp.Acquire(n * k.Channels())}
}

// ReleaseFrame returns a frame's buffer to the pool.
func (fp *FramePool) ReleaseFrame(f Frame) {
	fp.Release(f.Data)
}

// AssertAllReleased checks all buffers taken from the pool have been
// returned. Called after finishing evaluations to catch buffer leaks.
func (fp *FramePool) AssertAllReleased() error {
	if fp.outstanding != 0 {
		return fmt.Errorf("FramePool has %d outstanding buffers", fp.outstanding)
	}
	return nil
}

// GetFramePool asserts the userData argument threaded through evaluations as
// a frame pool source. Evaluation kernels needing scratch buffers call this.
func GetFramePool(userData any) (*FramePool, error) {
	switch x := userData.(type) {
	case *FramePool:
		return x, nil
	case interface{ FramePool() *FramePool }:
		return x.FramePool(), nil
	}
	return nil, fmt.Errorf("expected *gleval.FramePool or type with FramePool() method in userData, got %T", userData)
}

// frameEvaluator is implemented by graph nodes which can evaluate their
// output frames on the CPU.
type frameEvaluator interface {
	EvaluateFrames(pos []ms2.Vec, t float32, out []Frame, userData any) error
}

// NewCPUShader instantiates a [Shader] evaluating the graph rooted at root
// entirely on the CPU. The root node must resolve without error to a single
// float or vector output; narrower kinds expand to colors the same way
// generated shade functions do.
func NewCPUShader(root glbuild.Shader) (*CPUShader, error) {
	if root == nil {
		return nil, errors.New("nil shader node")
	} else if err := root.Err(); err != nil {
		return nil, fmt.Errorf("cannot evaluate erroring node: %w", err)
	}
	eval, ok := root.(frameEvaluator)
	if !ok {
		return nil, fmt.Errorf("%T does not implement CPU frame evaluation", root)
	}
	res := root.Result()
	if len(res.Expr) == 0 {
		return nil, errors.New("graph root must have exactly one output to shade")
	}
	switch res.Kind {
	case glbuild.KindFloat, glbuild.KindVec2, glbuild.KindVec3, glbuild.KindVec4:
	default:
		return nil, fmt.Errorf("cannot shade %s-kind output", res.Kind.String())
	}
	return &CPUShader{root: eval, kind: res.Kind}, nil
}

// CPUShader implements [Shader] by recursive evaluation of node kernels over
// position batches. Nodes feeding several consumers are re-evaluated once
// per consumer; prefer the GPU evaluator when that cost matters.
type CPUShader struct {
	root frameEvaluator
	kind glbuild.Kind
	pool FramePool
}

// FramePool exposes the shader's internal pool so it can serve as the
// userData argument of nested evaluations.
func (c *CPUShader) FramePool() *FramePool { return &c.pool }

// Evaluate implements the [Shader] interface.
func (c *CPUShader) Evaluate(pos []ms2.Vec, t float32, rgba []float32, userData any) error {
	if len(pos) == 0 {
		return errZeroLenBuffer
	} else if len(rgba) != 4*len(pos) {
		return errRGBALength
	}
	if userData == nil {
		userData = &c.pool
	}
	pool, err := GetFramePool(userData)
	if err != nil {
		return err
	}
	out := pool.AcquireFrame(c.kind, len(pos))
	defer pool.ReleaseFrame(out)
	err = c.root.EvaluateFrames(pos, t, []Frame{out}, userData)
	if err != nil {
		return err
	}
	expandColor(rgba, out)
	return nil
}

// expandColor widens a shaded frame to RGBA colors mirroring the shade
// function return expansion: floats preview as grayscale, vec2 as red-green
// and vec3 as opaque RGB.
func expandColor(rgba []float32, f Frame) {
	n := f.Len()
	switch f.Kind {
	case glbuild.KindFloat:
		for i := 0; i < n; i++ {
			v := f.Data[i]
			rgba[4*i+0] = v
			rgba[4*i+1] = v
			rgba[4*i+2] = v
			rgba[4*i+3] = 1
		}
	case glbuild.KindVec2:
		for i := 0; i < n; i++ {
			e := f.At(i)
			rgba[4*i+0] = e[0]
			rgba[4*i+1] = e[1]
			rgba[4*i+2] = 0
			rgba[4*i+3] = 1
		}
	case glbuild.KindVec3:
		for i := 0; i < n; i++ {
			e := f.At(i)
			rgba[4*i+0] = e[0]
			rgba[4*i+1] = e[1]
			rgba[4*i+2] = e[2]
			rgba[4*i+3] = 1
		}
	case glbuild.KindVec4:
		copy(rgba, f.Data)
	}
}
