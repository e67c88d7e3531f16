package gsg

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg/glbuild"
)

func init() {
	RegisterOp("matvalue", newMatValueFromSpec)
	RegisterOp("matmul", func(OpSpec) (Op, error) { return matmulOp{}, nil })
	RegisterOp("transformpt", func(OpSpec) (Op, error) { return transformptOp{}, nil })
	RegisterOp("rotate2d", func(OpSpec) (Op, error) { return rotate2dOp{}, nil })
}

// Mat2 returns a mat2 constant node from a row-major matrix.
func (bld *Builder) Mat2(m ms2.Mat2) *Node {
	var vals [16]float32
	arr := m.Array()
	copy(vals[:], arr[:])
	return bld.addOp(newValueOp(glbuild.KindMat2, vals))
}

// Mat3 returns a mat3 constant node from a row-major matrix.
func (bld *Builder) Mat3(m ms3.Mat3) *Node {
	var vals [16]float32
	arr := m.Array()
	copy(vals[:], arr[:])
	return bld.addOp(newValueOp(glbuild.KindMat3, vals))
}

// Mat4 returns a mat4 constant node from a row-major matrix.
func (bld *Builder) Mat4(m ms3.Mat4) *Node {
	var vals [16]float32
	arr := m.Array()
	copy(vals[:], arr[:])
	return bld.addOp(newValueOp(glbuild.KindMat4, vals))
}

// MatMul returns a node computing the matrix product a*b. Both operands
// must unify to the same matrix kind.
func (bld *Builder) MatMul(a, b *Node) *Node { return bld.wire("matmul", OpSpec{}, a, b) }

// TransformPoint returns a node applying the affine mat4 transform m to
// the point p, yielding the transformed vec3.
func (bld *Builder) TransformPoint(m, p *Node) *Node {
	return bld.wire("transformpt", OpSpec{}, m, p)
}

// Rotate2D returns a node building the mat2 rotating vec2 values by angle
// radians counterclockwise.
func (bld *Builder) Rotate2D(angle *Node) *Node { return bld.wire("rotate2d", OpSpec{}, angle) }

// newMatValueFromSpec builds a matrix constant. It is the value op
// restricted to matrix kinds; graphs save it back under the value name.
func newMatValueFromSpec(spec OpSpec) (Op, error) {
	if !spec.Kind.IsMatrix() {
		return nil, fmt.Errorf("matvalue op needs a matrix kind, got %s", spec.Kind.String())
	}
	return newValueFromSpec(spec)
}

// matmulOp is the matrix product over two operands of the same unified
// matrix kind. Unlike the mul op it refuses non-matrix operands, keeping
// graph intent explicit.
type matmulOp struct{}

func (matmulOp) OpName() string { return "matmul" }

func (matmulOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Input("b", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindDynamic),
	}
}

func (matmulOp) Validate(kinds []glbuild.Kind) error {
	k := kinds[0]
	if k == glbuild.KindError {
		return nil // Upstream failure already marks the node.
	}
	if !k.IsMatrix() {
		return fmt.Errorf("matmul needs matrix operands, got %s", k.String())
	}
	return nil
}

func (matmulOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendInfix(b, '*')
}

func (matmulOp) OpSpec() OpSpec { return OpSpec{} }

// transformptOp applies an affine mat4 transform to a vec3 point. The
// matrix defaults to identity, the point to the origin.
type transformptOp struct{}

func (transformptOp) OpName() string { return "transformpt" }

func (transformptOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.InputDefault("m", glbuild.KindMat4, 1),
		glbuild.Input("p", glbuild.KindVec3),
		glbuild.Output("out", glbuild.KindVec3),
	}
}

func (transformptOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, "=(("...)
	b = args.In[0].Append(b)
	b = append(b, ")*vec4("...)
	b = args.In[1].Append(b)
	b = append(b, ",1.0)).xyz;\n"...)
	return b
}

func (transformptOp) OpSpec() OpSpec { return OpSpec{} }

// rotate2dOp builds a counterclockwise 2D rotation matrix from an angle in
// radians.
type rotate2dOp struct{}

func (rotate2dOp) OpName() string { return "rotate2d" }

func (rotate2dOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("angle", glbuild.KindFloat),
		glbuild.Output("out", glbuild.KindMat2),
	}
}

func (rotate2dOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, "=mat2(cos("...)
	b = args.In[0].Append(b)
	b = append(b, "),sin("...)
	b = args.In[0].Append(b)
	b = append(b, "),-sin("...)
	b = args.In[0].Append(b)
	b = append(b, "),cos("...)
	b = args.In[0].Append(b)
	b = append(b, "));\n"...)
	return b
}

func (rotate2dOp) OpSpec() OpSpec { return OpSpec{} }
