package gsg

import (
	"fmt"
	"strings"

	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/glbuild/glsllib"
)

func init() {
	RegisterOp("dot", func(OpSpec) (Op, error) { return dotOp{}, nil })
	RegisterOp("length", func(OpSpec) (Op, error) { return lengthOp{}, nil })
	RegisterOp("distance", func(OpSpec) (Op, error) { return distanceOp{}, nil })
	RegisterOp("normalize", func(OpSpec) (Op, error) { return normalizeOp{}, nil })
	RegisterOp("cross", func(OpSpec) (Op, error) { return crossOp{}, nil })
	RegisterOp("reflect", func(OpSpec) (Op, error) { return reflectOp{}, nil })
	RegisterOp("fresnel", func(OpSpec) (Op, error) { return fresnelOp{}, nil })
	RegisterOp("split", func(OpSpec) (Op, error) { return splitOp{}, nil })
	RegisterOp("combine", func(OpSpec) (Op, error) { return combineOp{}, nil })
	RegisterOp("swizzle", newSwizzleFromSpec)
}

// Dot returns a node computing the dot product of a and b over their
// unified kind.
func (bld *Builder) Dot(a, b *Node) *Node { return bld.wire("dot", OpSpec{}, a, b) }

// Length returns a node computing the euclidean length of a.
func (bld *Builder) Length(a *Node) *Node { return bld.wire("length", OpSpec{}, a) }

// Distance returns a node computing the euclidean distance between a and b.
func (bld *Builder) Distance(a, b *Node) *Node { return bld.wire("distance", OpSpec{}, a, b) }

// Normalize returns a node computing a scaled to unit length.
func (bld *Builder) Normalize(a *Node) *Node { return bld.wire("normalize", OpSpec{}, a) }

// Cross returns a node computing the cross product of two vec3 values.
func (bld *Builder) Cross(a, b *Node) *Node { return bld.wire("cross", OpSpec{}, a, b) }

// Reflect returns a node computing the reflection of incident vector i
// about normal n, which must be of unit length.
func (bld *Builder) Reflect(i, n *Node) *Node { return bld.wire("reflect", OpSpec{}, i, n) }

// Fresnel returns a node computing a Schlick style rim term from a surface
// normal and a view direction, raised to power.
func (bld *Builder) Fresnel(normal, view, power *Node) *Node {
	return bld.wire("fresnel", OpSpec{}, normal, view, power)
}

// Split returns a node decomposing its input into float components through
// the x, y, z and w output slots. Components beyond the input's channel
// count read zero. Wire individual components with Graph.Connect.
func (bld *Builder) Split(a *Node) *Node { return bld.wire("split", OpSpec{}, a) }

// Combine returns a node assembling a vec4 from four float channels.
func (bld *Builder) Combine(x, y, z, w *Node) *Node {
	return bld.wire("combine", OpSpec{}, x, y, z, w)
}

// Swizzle returns a node rearranging the components of a vector input per
// mask, a string of one to four characters out of "xyzw". A single
// character yields a float, longer masks the vector of their length.
func (bld *Builder) Swizzle(a *Node, mask string) *Node {
	return bld.wire("swizzle", OpSpec{Mask: mask}, a)
}

// dotOp reduces two operands of the unified kind to their dot product.
type dotOp struct{}

func (dotOp) OpName() string { return "dot" }

func (dotOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Input("b", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (dotOp) Validate(kinds []glbuild.Kind) error { return noMatrices("dot", false, kinds) }

func (dotOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "dot")
}

func (dotOp) OpSpec() OpSpec { return OpSpec{} }

type lengthOp struct{}

func (lengthOp) OpName() string { return "length" }

func (lengthOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (lengthOp) Validate(kinds []glbuild.Kind) error { return noMatrices("length", false, kinds) }

func (lengthOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "length")
}

func (lengthOp) OpSpec() OpSpec { return OpSpec{} }

type distanceOp struct{}

func (distanceOp) OpName() string { return "distance" }

func (distanceOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Input("b", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (distanceOp) Validate(kinds []glbuild.Kind) error { return noMatrices("distance", false, kinds) }

func (distanceOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "distance")
}

func (distanceOp) OpSpec() OpSpec { return OpSpec{} }

type normalizeOp struct{}

func (normalizeOp) OpName() string { return "normalize" }

func (normalizeOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindDynamic),
	}
}

func (normalizeOp) Validate(kinds []glbuild.Kind) error { return noMatrices("normalize", false, kinds) }

func (normalizeOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "normalize")
}

func (normalizeOp) OpSpec() OpSpec { return OpSpec{} }

type crossOp struct{}

func (crossOp) OpName() string { return "cross" }

func (crossOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindVec3),
		glbuild.Input("b", glbuild.KindVec3),
		glbuild.Output("out", glbuild.KindVec3),
	}
}

func (crossOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "cross")
}

func (crossOp) OpSpec() OpSpec { return OpSpec{} }

type reflectOp struct{}

func (reflectOp) OpName() string { return "reflect" }

func (reflectOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("i", glbuild.KindVec3),
		glbuild.InputDefault("n", glbuild.KindVec3, 0, 0, 1),
		glbuild.Output("out", glbuild.KindVec3),
	}
}

func (reflectOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "reflect")
}

func (reflectOp) OpSpec() OpSpec { return OpSpec{} }

// fresnelOp computes a rim lighting term through the library's gsgFresnel
// helper function.
type fresnelOp struct{}

func (fresnelOp) OpName() string { return "fresnel" }

func (fresnelOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.InputDefault("normal", glbuild.KindVec3, 0, 0, 1),
		glbuild.InputDefault("view", glbuild.KindVec3, 0, 0, 1),
		glbuild.InputDefault("power", glbuild.KindFloat, 5),
		glbuild.Output("out", glbuild.KindFloat),
	}
}

func (fresnelOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, glsllib.Fresnel().Name())
}

func (fresnelOp) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	return append(fns, glsllib.Fresnel())
}

func (fresnelOp) OpSpec() OpSpec { return OpSpec{} }

// splitOp decomposes a float or vector into its components. Missing
// components read zero so a vec2 input still feeds all four outputs.
type splitOp struct{}

func (splitOp) OpName() string { return "split" }

func (splitOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Output("x", glbuild.KindFloat),
		glbuild.Output("y", glbuild.KindFloat),
		glbuild.Output("z", glbuild.KindFloat),
		glbuild.Output("w", glbuild.KindFloat),
	}
}

func (splitOp) Validate(kinds []glbuild.Kind) error { return noMatrices("split", false, kinds) }

var vecComps = [4]string{".x", ".y", ".z", ".w"}

func (splitOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	in := args.In[0]
	for i := range args.Out {
		b = args.Out[i].AppendDecl(b)
		b = append(b, '=')
		switch {
		case i >= in.Kind.Channels():
			b = append(b, "0.0"...)
		case in.Kind == glbuild.KindFloat:
			b = in.Append(b)
		default:
			b = append(b, '(')
			b = in.Append(b)
			b = append(b, ')')
			b = append(b, vecComps[i]...)
		}
		b = append(b, ";\n"...)
	}
	return b
}

func (splitOp) OpSpec() OpSpec { return OpSpec{} }

// combineOp assembles a vec4 from four float channels. The alpha channel
// defaults to 1 so RGB-only wiring yields opaque colors.
type combineOp struct{}

func (combineOp) OpName() string { return "combine" }

func (combineOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("x", glbuild.KindFloat),
		glbuild.Input("y", glbuild.KindFloat),
		glbuild.Input("z", glbuild.KindFloat),
		glbuild.InputDefault("w", glbuild.KindFloat, 1),
		glbuild.Output("out", glbuild.KindVec4),
	}
}

func (combineOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, "vec4")
}

func (combineOp) OpSpec() OpSpec { return OpSpec{} }

// swizzleOp rearranges vector components per a mask string.
type swizzleOp struct {
	mask string
}

func newSwizzleFromSpec(spec OpSpec) (Op, error) {
	return &swizzleOp{mask: spec.Mask}, nil
}

func (op *swizzleOp) OpName() string { return "swizzle" }

func (op *swizzleOp) Slots() []glbuild.Slot {
	var out glbuild.Kind
	switch len(op.mask) {
	case 1:
		out = glbuild.KindFloat
	case 2:
		out = glbuild.KindVec2
	case 3:
		out = glbuild.KindVec3
	default:
		out = glbuild.KindVec4
	}
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Output("out", out),
	}
}

// Validate checks the mask against "xyzw" and bounds its components by the
// resolved input kind, which must be a vector.
func (op *swizzleOp) Validate(kinds []glbuild.Kind) error {
	if len(op.mask) < 1 || len(op.mask) > 4 {
		return fmt.Errorf("swizzle mask %q must have 1 to 4 components", op.mask)
	}
	for i := 0; i < len(op.mask); i++ {
		if strings.IndexByte("xyzw", op.mask[i]) < 0 {
			return fmt.Errorf("swizzle mask %q has component %q outside \"xyzw\"", op.mask, op.mask[i])
		}
	}
	in := kinds[0]
	if in == glbuild.KindError {
		return nil // Upstream failure already marks the node.
	}
	if !in.IsVector() {
		return fmt.Errorf("swizzle needs a vector input, got %s", in.String())
	}
	for i := 0; i < len(op.mask); i++ {
		if idx := strings.IndexByte("xyzw", op.mask[i]); idx >= in.Channels() {
			return fmt.Errorf("swizzle component %q out of range for %s input", op.mask[i], in.String())
		}
	}
	return nil
}

func (op *swizzleOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, "=("...)
	b = args.In[0].Append(b)
	b = append(b, ")."...)
	b = append(b, op.mask...)
	return append(b, ";\n"...)
}

func (op *swizzleOp) OpSpec() OpSpec { return OpSpec{Mask: op.mask} }

var _ SpecOp = (*swizzleOp)(nil)
