// Package gsg implements a node based shader graph compiler. Graphs of
// typed operations are edited and queried incrementally, slot kinds are
// inferred across dynamically typed operations, and resolved graphs
// compile to GLSL fragment or compute shaders along with a matching CPU
// evaluator for headless rendering and testing.
package gsg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
)

// Op defines a shader graph operation: a name, a slot declaration and the
// GLSL statements computing its outputs. Operations carrying construction
// payload additionally implement SpecOp. Optional behaviors are expressed
// through the validator, funcAppender, uniformAppender and kernel
// interfaces.
type Op interface {
	// OpName returns the operation's registry name. Node variable stems
	// derive from it so it must be a valid GLSL identifier.
	OpName() string
	// Slots declares the operation's inputs and outputs. The declaration
	// must not change over the operation's lifetime.
	Slots() []glbuild.Slot
	// AppendStmt appends GLSL statements computing args.Out from args.In.
	// Operand kinds are resolved and concrete by the time it is called.
	AppendStmt(b []byte, args *glbuild.EmitArgs) []byte
}

// validator is implemented by ops imposing constraints beyond their slot
// declaration, judged against resolved kinds. kinds indexes like Slots;
// slots that failed resolution hold KindError and must be tolerated.
type validator interface {
	Validate(kinds []glbuild.Kind) error
}

// funcAppender is implemented by ops whose statements call GLSL functions.
type funcAppender interface {
	AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc
}

// uniformAppender is implemented by ops whose statements read uniforms.
type uniformAppender interface {
	AppendShaderUniforms(unis []glbuild.Uniform) []glbuild.Uniform
}

// kernel is implemented by ops evaluable on the CPU. Frames index like
// the node's input and output slots and carry the resolved kinds.
type kernel interface {
	Evaluate(pos []ms2.Vec, t float32, in, out []gleval.Frame, userData any) error
}

// OpSpec carries the construction payload of an operation so registered
// operations can be instantiated by name from graph documents. Fields are
// read or ignored depending on the operation.
type OpSpec struct {
	Kind   glbuild.Kind // result kind for value and param ops.
	Value  []float32    // literal payload for value ops, initial value for param ops.
	Name   string       // uniform name for param ops.
	Mask   string       // component mask for swizzle ops.
	Model  string       // lighting model name for light ops.
	Source string       // GLSL source for custom function ops.
}

// SpecOp is implemented by operations reconstructible from an OpSpec,
// enabling graph document round trips.
type SpecOp interface {
	Op
	OpSpec() OpSpec
}

var opRegistry = map[string]func(OpSpec) (Op, error){}

// RegisterOp makes an operation constructor available to NewOp under
// name. It panics if name is already taken. Extension packages register
// their operations in init functions.
func RegisterOp(name string, factory func(OpSpec) (Op, error)) {
	if name == "" || factory == nil {
		panic("gsg: RegisterOp with empty name or nil factory")
	} else if _, exists := opRegistry[name]; exists {
		panic("gsg: RegisterOp called twice for " + name)
	}
	opRegistry[name] = factory
}

// NewOp instantiates the registered operation named name from spec.
func NewOp(name string, spec OpSpec) (Op, error) {
	factory, ok := opRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown op %q", name)
	}
	return factory(spec)
}

// RegisteredOps returns the names of all registered operations, sorted.
func RegisteredOps() []string {
	names := make([]string, 0, len(opRegistry))
	for name := range opRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder wraps a Graph with expression style constructors for the
// builtin operations so graphs read as arithmetic. Constructors connect
// the first output of their node arguments; wire other outputs through
// Graph.Connect. Construction errors panic by default; with NoBuildPanic
// set they accumulate and surface through Err, letting results chain
// without per-call checks. The zero value is ready for use.
type Builder struct {
	// NoBuildPanic controls panicking on node construction and wiring
	// errors. If set the errors are accumulated instead and are gotten
	// with the Err method.
	NoBuildPanic bool
	g            *Graph
	accumErrs    []error
}

// Graph returns the graph the builder constructs into, creating it on
// first use.
func (bld *Builder) Graph() *Graph {
	if bld.g == nil {
		bld.g = NewGraph()
	}
	return bld.g
}

// Err returns errors accumulated during node construction with the
// NoBuildPanic flag set. It returns nil if no errors were accumulated.
func (bld *Builder) Err() error {
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated errors and returns the builder.
func (bld *Builder) ClearErrors() *Builder {
	bld.accumErrs = bld.accumErrs[:0]
	return bld
}

func (bld *Builder) buildErrorf(msg string, args ...any) {
	if !bld.NoBuildPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

// nilnode panics always, regardless of NoBuildPanic. Nil node arguments
// are programmer error, not graph configuration error.
func (bld *Builder) nilnode(opname string) {
	panic("nil node argument to " + opname)
}

// addOp instantiates op as a node of the builder's graph. On failure the
// error is recorded and a float zero placeholder node is returned so
// expression chains stay usable.
func (bld *Builder) addOp(op Op) *Node {
	n, err := bld.Graph().Add(op)
	if err != nil {
		bld.buildErrorf("adding %q op: %s", op.OpName(), err)
		n, _ = bld.Graph().Add(newValueOp(glbuild.KindFloat, [16]float32{}))
	}
	return n
}

// connect wires the first output of src into dst's input slot, recording
// failures in the builder.
func (bld *Builder) connect(src *Node, dst *Node, dstSlot string) {
	err := bld.Graph().Connect(src, firstOut(src), dst, dstSlot)
	if err != nil {
		bld.buildErrorf("connecting %s to %s.%s: %s", src.Name(), dst.Name(), dstSlot, err)
	}
}

func firstOut(n *Node) string { return n.decl[n.outIdx[0]].Name }

func absf(a float32) float32 { return math32.Abs(a) }

func minf(a, b float32) float32 { return math32.Min(a, b) }

func maxf(a, b float32) float32 { return math32.Max(a, b) }

func clampf(x, lo, hi float32) float32 { return minf(maxf(x, lo), hi) }

func mixf(x, y, a float32) float32 { return x*(1-a) + y*a }

func floorf(a float32) float32 { return math32.Floor(a) }

func fractf(a float32) float32 { return a - math32.Floor(a) }

func stepf(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

// modf matches GLSL mod, which floors, unlike math.Mod which truncates.
func modf(x, y float32) float32 { return x - y*math32.Floor(x/y) }

func smoothstepf(e0, e1, x float32) float32 {
	t := clampf((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func powf(x, y float32) float32 { return math32.Pow(x, y) }

func sqrtf(x float32) float32 { return math32.Sqrt(x) }

func sinf(x float32) float32 { return math32.Sin(x) }

func cosf(x float32) float32 { return math32.Cos(x) }
