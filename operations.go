package gsg

import (
	"fmt"

	"github.com/soypat/gsg/glbuild"
)

func init() {
	for _, op := range []*binOp{
		{name: "add", infix: '+', matOK: true, eval: func(x, y float32) float32 { return x + y }},
		{name: "sub", infix: '-', matOK: true, eval: func(x, y float32) float32 { return x - y }},
		{name: "mul", infix: '*', matOK: true, matProduct: true, eval: func(x, y float32) float32 { return x * y }},
		{name: "div", infix: '/', matOK: true, eval: func(x, y float32) float32 { return x / y }},
		{name: "min", fn: "min", eval: minf},
		{name: "max", fn: "max", eval: maxf},
		{name: "pow", fn: "pow", eval: powf},
		{name: "mod", fn: "mod", eval: modf},
		{name: "step", fn: "step", slotA: "edge", slotB: "x", eval: stepf},
	} {
		op := op
		if op.slotA == "" {
			op.slotA, op.slotB = "a", "b"
		}
		RegisterOp(op.name, func(OpSpec) (Op, error) { return op, nil })
	}
	for _, op := range []*unOp{
		{name: "neg", pre: "-(", post: ")", matOK: true, eval: func(x float32) float32 { return -x }},
		{name: "oneminus", pre: "1.0-(", post: ")", matOK: true, eval: func(x float32) float32 { return 1 - x }},
		{name: "abs", pre: "abs(", post: ")", eval: absf},
		{name: "floor", pre: "floor(", post: ")", eval: floorf},
		{name: "fract", pre: "fract(", post: ")", eval: fractf},
		{name: "sin", pre: "sin(", post: ")", eval: sinf},
		{name: "cos", pre: "cos(", post: ")", eval: cosf},
		{name: "sqrt", pre: "sqrt(", post: ")", eval: sqrtf},
		{name: "saturate", pre: "clamp(", post: ",0.0,1.0)", eval: func(x float32) float32 { return clampf(x, 0, 1) }},
	} {
		op := op
		RegisterOp(op.name, func(OpSpec) (Op, error) { return op, nil })
	}
	for _, op := range []*ternOp{
		{name: "clamp", fn: "clamp", slots: [3]string{"x", "min", "max"}, defs: [3]float32{0, 0, 1}, eval: clampf},
		{name: "mix", fn: "mix", slots: [3]string{"a", "b", "t"}, eval: mixf},
		{name: "smoothstep", fn: "smoothstep", slots: [3]string{"edge0", "edge1", "x"}, defs: [3]float32{0, 1, 0}, eval: smoothstepf},
	} {
		op := op
		RegisterOp(op.name, func(OpSpec) (Op, error) { return op, nil })
	}
}

// Add returns a node computing the componentwise sum a+b.
func (bld *Builder) Add(a, b *Node) *Node { return bld.wire("add", OpSpec{}, a, b) }

// Sub returns a node computing the componentwise difference a-b.
func (bld *Builder) Sub(a, b *Node) *Node { return bld.wire("sub", OpSpec{}, a, b) }

// Mul returns a node computing a*b: the componentwise product for floats
// and vectors and the linear-algebraic product for matrices.
func (bld *Builder) Mul(a, b *Node) *Node { return bld.wire("mul", OpSpec{}, a, b) }

// Div returns a node computing the componentwise quotient a/b.
func (bld *Builder) Div(a, b *Node) *Node { return bld.wire("div", OpSpec{}, a, b) }

// Min returns a node computing the componentwise minimum of a and b.
func (bld *Builder) Min(a, b *Node) *Node { return bld.wire("min", OpSpec{}, a, b) }

// Max returns a node computing the componentwise maximum of a and b.
func (bld *Builder) Max(a, b *Node) *Node { return bld.wire("max", OpSpec{}, a, b) }

// Pow returns a node computing a raised to the power b, componentwise.
func (bld *Builder) Pow(a, b *Node) *Node { return bld.wire("pow", OpSpec{}, a, b) }

// Mod returns a node computing the flooring modulo a-b*floor(a/b).
func (bld *Builder) Mod(a, b *Node) *Node { return bld.wire("mod", OpSpec{}, a, b) }

// Step returns a node computing 0 where x is below edge and 1 elsewhere.
func (bld *Builder) Step(edge, x *Node) *Node { return bld.wire("step", OpSpec{}, edge, x) }

// Neg returns a node computing the negation of a.
func (bld *Builder) Neg(a *Node) *Node { return bld.wire("neg", OpSpec{}, a) }

// OneMinus returns a node computing 1-a, componentwise.
func (bld *Builder) OneMinus(a *Node) *Node { return bld.wire("oneminus", OpSpec{}, a) }

// Abs returns a node computing the componentwise absolute value of a.
func (bld *Builder) Abs(a *Node) *Node { return bld.wire("abs", OpSpec{}, a) }

// Floor returns a node computing the componentwise floor of a.
func (bld *Builder) Floor(a *Node) *Node { return bld.wire("floor", OpSpec{}, a) }

// Fract returns a node computing the componentwise fractional part of a.
func (bld *Builder) Fract(a *Node) *Node { return bld.wire("fract", OpSpec{}, a) }

// Sin returns a node computing the componentwise sine of a, in radians.
func (bld *Builder) Sin(a *Node) *Node { return bld.wire("sin", OpSpec{}, a) }

// Cos returns a node computing the componentwise cosine of a, in radians.
func (bld *Builder) Cos(a *Node) *Node { return bld.wire("cos", OpSpec{}, a) }

// Sqrt returns a node computing the componentwise square root of a.
func (bld *Builder) Sqrt(a *Node) *Node { return bld.wire("sqrt", OpSpec{}, a) }

// Saturate returns a node clamping a to the [0,1] range, componentwise.
func (bld *Builder) Saturate(a *Node) *Node { return bld.wire("saturate", OpSpec{}, a) }

// Clamp returns a node constraining x between min and max, componentwise.
func (bld *Builder) Clamp(x, min, max *Node) *Node {
	return bld.wire("clamp", OpSpec{}, x, min, max)
}

// Mix returns a node computing the linear blend a*(1-t)+b*t, componentwise.
func (bld *Builder) Mix(a, b, t *Node) *Node {
	return bld.wire("mix", OpSpec{}, a, b, t)
}

// SmoothStep returns a node computing the Hermite interpolation from 0 to
// 1 as x moves from edge0 to edge1.
func (bld *Builder) SmoothStep(edge0, edge1, x *Node) *Node {
	return bld.wire("smoothstep", OpSpec{}, edge0, edge1, x)
}

// wire instantiates the registered operation opname with spec and connects
// args positionally into the new node's input slots. Nil args are programmer
// error for the builtin constructors, which pass explicit nils only where
// they mean it.
func (bld *Builder) wire(opname string, spec OpSpec, args ...*Node) *Node {
	for _, a := range args {
		if a == nil {
			bld.nilnode(opname)
		}
	}
	return bld.Wire(opname, spec, args...)
}

// Wire instantiates the registered operation opname with spec and connects
// args positionally into the new node's input slots. Nil args leave their
// slot on the declared default. Extension packages build their expression
// constructors on Wire; see forge/noise for an example.
func (bld *Builder) Wire(opname string, spec OpSpec, args ...*Node) *Node {
	op, err := NewOp(opname, spec)
	if err != nil {
		bld.buildErrorf("%s op: %s", opname, err)
		op = newValueOp(glbuild.KindFloat, [16]float32{})
	}
	n := bld.addOp(op)
	if len(args) > len(n.inIdx) {
		bld.buildErrorf("%s op takes %d inputs, got %d", opname, len(n.inIdx), len(args))
	}
	for i, a := range args {
		if i == len(n.inIdx) {
			break
		}
		if a != nil {
			bld.connect(a, n, n.decl[n.inIdx[i]].Name)
		}
	}
	return n
}

// binOp is a binary operation over two operands of the same dynamically
// unified kind. Operator ops emit infix expressions, the rest GLSL calls.
type binOp struct {
	name         string
	slotA, slotB string
	infix        byte   // nonzero for operator emission.
	fn           string // GLSL function name when infix is zero.
	matOK        bool   // whether GLSL defines the operation on matrices.
	matProduct   bool   // matrix operands take the linear-algebraic product.
	eval         func(x, y float32) float32
}

func (op *binOp) OpName() string { return op.name }

func (op *binOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input(op.slotA, glbuild.KindDynamic),
		glbuild.Input(op.slotB, glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindDynamic),
	}
}

func (op *binOp) Validate(kinds []glbuild.Kind) error {
	return noMatrices(op.name, op.matOK, kinds)
}

func (op *binOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	if op.infix != 0 {
		return args.AppendInfix(b, op.infix)
	}
	return args.AppendCall(b, op.fn)
}

func (op *binOp) OpSpec() OpSpec { return OpSpec{} }

// unOp is a componentwise unary operation over a dynamically kinded
// operand. The result expression wraps the operand between pre and post.
type unOp struct {
	name      string
	pre, post string
	matOK     bool
	eval      func(x float32) float32
}

func (op *unOp) OpName() string { return op.name }

func (op *unOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.Input("a", glbuild.KindDynamic),
		glbuild.Output("out", glbuild.KindDynamic),
	}
}

func (op *unOp) Validate(kinds []glbuild.Kind) error {
	return noMatrices(op.name, op.matOK, kinds)
}

func (op *unOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	b = args.Out[0].AppendDecl(b)
	b = append(b, '=')
	b = append(b, op.pre...)
	b = args.In[0].Append(b)
	b = append(b, op.post...)
	return append(b, ";\n"...)
}

func (op *unOp) OpSpec() OpSpec { return OpSpec{} }

// ternOp is a componentwise GLSL call over three operands of the same
// dynamically unified kind.
type ternOp struct {
	name  string
	fn    string
	slots [3]string
	defs  [3]float32 // scalar default per slot, broadcast over the unified kind.
	eval  func(x, y, z float32) float32
}

func (op *ternOp) OpName() string { return op.name }

func (op *ternOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.InputDefault(op.slots[0], glbuild.KindDynamic, op.defs[0]),
		glbuild.InputDefault(op.slots[1], glbuild.KindDynamic, op.defs[1]),
		glbuild.InputDefault(op.slots[2], glbuild.KindDynamic, op.defs[2]),
		glbuild.Output("out", glbuild.KindDynamic),
	}
}

func (op *ternOp) Validate(kinds []glbuild.Kind) error {
	return noMatrices(op.name, false, kinds)
}

func (op *ternOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	return args.AppendCall(b, op.fn)
}

func (op *ternOp) OpSpec() OpSpec { return OpSpec{} }

// noMatrices rejects matrix kinds for ops GLSL defines on floats and
// vectors only.
func noMatrices(opname string, matOK bool, kinds []glbuild.Kind) error {
	if matOK {
		return nil
	}
	for _, k := range kinds {
		if k.IsMatrix() {
			return fmt.Errorf("%s does not accept matrix operands", opname)
		}
	}
	return nil
}
