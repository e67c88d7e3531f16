package gsg

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg/glbuild"
)

func init() {
	RegisterOp("uv", func(OpSpec) (Op, error) { return uvOp{}, nil })
	RegisterOp("time", func(OpSpec) (Op, error) { return timeOp{}, nil })
	RegisterOp("value", newValueFromSpec)
	RegisterOp("param", newParamFromSpec)
	RegisterOp("output", func(OpSpec) (Op, error) { return outputOp{}, nil })
}

// UV returns the node providing the normalized viewport position being
// shaded, (0,0) at the lower left corner and (1,1) at the upper right.
func (bld *Builder) UV() *Node { return bld.addOp(uvOp{}) }

// Time returns the node providing the shader time in seconds.
func (bld *Builder) Time() *Node { return bld.addOp(timeOp{}) }

// Value returns a float constant node.
func (bld *Builder) Value(v float32) *Node {
	return bld.addOp(newValueOp(glbuild.KindFloat, [16]float32{v}))
}

// Value2 returns a vec2 constant node.
func (bld *Builder) Value2(v ms2.Vec) *Node {
	return bld.addOp(newValueOp(glbuild.KindVec2, [16]float32{v.X, v.Y}))
}

// Value3 returns a vec3 constant node.
func (bld *Builder) Value3(v ms3.Vec) *Node {
	return bld.addOp(newValueOp(glbuild.KindVec3, [16]float32{v.X, v.Y, v.Z}))
}

// Value4 returns a vec4 constant node.
func (bld *Builder) Value4(x, y, z, w float32) *Node {
	return bld.addOp(newValueOp(glbuild.KindVec4, [16]float32{x, y, z, w}))
}

// Param returns a node exposing a shader uniform named name of kind k,
// with v its initial channel values, row-major for matrix kinds. The
// generated GLSL identifier is "u_" followed by name.
func (bld *Builder) Param(name string, k glbuild.Kind, v ...float32) *Node {
	op := &paramOp{name: name, kind: k}
	copy(op.val[:], v)
	return bld.addOp(op)
}

// Output returns the canonical sink node combining an RGB color and an
// alpha channel into the final vec4 shading result. Either argument may be
// nil to leave the slot on its default: black and fully opaque.
func (bld *Builder) Output(color, alpha *Node) *Node {
	n := bld.addOp(outputOp{})
	if color != nil {
		bld.connect(color, n, "color")
	}
	if alpha != nil {
		bld.connect(alpha, n, "alpha")
	}
	return n
}

// uvOp provides the position being shaded. It is the "p" argument of the
// generated shade function.
type uvOp struct{}

func (uvOp) OpName() string { return "uv" }

func (uvOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{glbuild.Output("uv", glbuild.KindVec2)}
}

func (uvOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	return append(b, "=p;\n"...)
}

func (uvOp) OpSpec() OpSpec { return OpSpec{} }

// timeOp provides the time in seconds. It is the "t" argument of the
// generated shade function, fed from the u_time uniform or iTime builtin
// by the program templates.
type timeOp struct{}

func (timeOp) OpName() string { return "time" }

func (timeOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{glbuild.Output("t", glbuild.KindFloat)}
}

func (timeOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	return append(b, "=t;\n"...)
}

func (timeOp) OpSpec() OpSpec { return OpSpec{} }

// valueOp is a typed constant compiled into the shader source.
type valueOp struct {
	kind glbuild.Kind
	vals [16]float32
}

func newValueOp(k glbuild.Kind, vals [16]float32) *valueOp {
	return &valueOp{kind: k, vals: vals}
}

func newValueFromSpec(spec OpSpec) (Op, error) {
	if !spec.Kind.IsConcrete() {
		return nil, fmt.Errorf("value op needs a concrete kind, got %s", spec.Kind.String())
	}
	if len(spec.Value) != spec.Kind.Channels() {
		return nil, fmt.Errorf("%s value needs %d channel values, got %d", spec.Kind.String(), spec.Kind.Channels(), len(spec.Value))
	}
	op := &valueOp{kind: spec.Kind}
	copy(op.vals[:], spec.Value)
	return op, nil
}

func (v *valueOp) OpName() string { return "value" }

func (v *valueOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{glbuild.Output("out", v.kind)}
}

func (v *valueOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, '=')
	b, _ = glbuild.AppendKindLiteral(b, v.kind, v.vals[:]) // Kind checked at construction.
	return append(b, ";\n"...)
}

func (v *valueOp) OpSpec() OpSpec {
	return OpSpec{Kind: v.kind, Value: append([]float32{}, v.vals[:v.kind.Channels()]...)}
}

// paramOp exposes a shader uniform. The held value is what CPU evaluation
// reads and what viewers upload as the uniform's initial binding.
type paramOp struct {
	name string
	kind glbuild.Kind
	val  [16]float32
}

func newParamFromSpec(spec OpSpec) (Op, error) {
	op := &paramOp{name: spec.Name, kind: spec.Kind}
	copy(op.val[:], spec.Value)
	return op, nil
}

func (p *paramOp) OpName() string { return "param" }

func (p *paramOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{glbuild.Output("out", p.kind)}
}

// Validate rejects names that do not survive as GLSL identifiers and names
// the program templates reserve for themselves.
func (p *paramOp) Validate(kinds []glbuild.Kind) error {
	if !validIdent(p.name) {
		return fmt.Errorf("param name %q is not a valid GLSL identifier", p.name)
	}
	if glbuild.ReservedUniform(p.name) {
		return fmt.Errorf("param name %q is reserved", p.name)
	}
	return nil
}

func (p *paramOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, '=')
	b = glbuild.AppendUniformName(b, p.name)
	return append(b, ";\n"...)
}

func (p *paramOp) AppendShaderUniforms(unis []glbuild.Uniform) []glbuild.Uniform {
	return append(unis, glbuild.Uniform{Name: p.name, Kind: p.kind, Value: p.val})
}

func (p *paramOp) OpSpec() OpSpec {
	return OpSpec{Kind: p.kind, Name: p.name, Value: append([]float32{}, p.val[:p.kind.Channels()]...)}
}

func validIdent(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, c := range s {
		alpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !alpha && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

var _ SpecOp = (*valueOp)(nil)
var _ SpecOp = (*paramOp)(nil)

// outputOp is the canonical graph sink, pairing a color with an alpha
// channel. Graphs do not require one: any single-output node can root a
// shader, with narrower kinds previewing as opaque colors.
type outputOp struct{}

func (outputOp) OpName() string { return "output" }

func (outputOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("color", glbuild.KindVec3),
		glbuild.InputDefault("alpha", glbuild.KindFloat, 1),
		glbuild.Output("rgba", glbuild.KindVec4),
	}
}

func (outputOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, "=vec4("...)
	b = args.In[0].Append(b)
	b = append(b, ',')
	b = args.In[1].Append(b)
	return append(b, ");\n"...)
}

func (outputOp) OpSpec() OpSpec { return OpSpec{} }
