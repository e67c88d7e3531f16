package gsg

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
)

// Sentinel errors for graph editing and slot resolution. Resolution
// diagnostics wrap these so callers can classify failures with errors.Is.
var (
	// ErrCycle is returned by Connect when the new edge would make the graph cyclic.
	ErrCycle = errors.New("connection would create a cycle")
	// ErrNoConversion marks a static input fed a kind with no implicit
	// conversion to the declared kind.
	ErrNoConversion = errors.New("no implicit conversion")
	// ErrUnify marks dynamic slots whose inputs admit no common kind.
	ErrUnify = errors.New("dynamic slots admit no common kind")
	// ErrUpstream marks a node failing solely because a node feeding it fails.
	ErrUpstream = errors.New("failing upstream node")
)

// Graph is an editable directed acyclic graph of shader nodes. Nodes are
// added once and wired by connecting output slots to input slots; each
// input accepts at most one incoming connection. Slot kinds resolve lazily
// on query and stay cached until an edit invalidates the nodes downstream
// of it. The zero value is ready for use. Not safe for concurrent use.
type Graph struct {
	// OnErrorChanged, when set, is called during resolution each time a
	// node's failing state transitions, once per transition. The callback
	// must not edit the graph.
	OnErrorChanged func(n *Node, failing bool)
	nodes          []*Node
}

// NewGraph returns an empty shader graph.
func NewGraph() *Graph { return &Graph{} }

// Node is a single operation instance within a Graph. Its slot kinds,
// failing state and generated GLSL derive from the operation and from the
// connections feeding it.
type Node struct {
	// Label optionally names the node in graph documents and editors. It
	// plays no role in shader generation.
	Label string

	g      *Graph
	op     Op
	id     int
	decl   []glbuild.Slot
	inIdx  []int  // decl indices of inputs, declaration order.
	outIdx []int  // decl indices of outputs, declaration order.
	in     []conn // incoming connection per input, parallel to inIdx.

	resolved []glbuild.Kind // kind per decl slot, valid when !dirty.
	errs     []error        // diagnostics of the node itself.
	bad      bool
	dirty    bool
}

// conn addresses an output slot of a source node.
type conn struct {
	node *Node
	slot int // index into node's outputs.
}

// Add instantiates op as a new node of the graph. The operation's slot
// declaration is validated once here.
func (g *Graph) Add(op Op) (*Node, error) {
	if op == nil {
		return nil, errors.New("add: nil operation")
	}
	decl := op.Slots()
	if err := glbuild.ValidateSlots(decl); err != nil {
		return nil, fmt.Errorf("op %q: %w", op.OpName(), err)
	}
	n := &Node{
		g:     g,
		op:    op,
		id:    len(g.nodes) + 1,
		decl:  decl,
		dirty: true,
	}
	for i, s := range decl {
		if s.IsInput() {
			n.inIdx = append(n.inIdx, i)
		} else {
			n.outIdx = append(n.outIdx, i)
		}
	}
	n.in = make([]conn, len(n.inIdx))
	n.resolved = make([]glbuild.Kind, len(decl))
	g.nodes = append(g.nodes, n)
	return n, nil
}

// Nodes returns the graph's nodes in insertion order.
func (g *Graph) Nodes() []*Node { return append([]*Node{}, g.nodes...) }

// Connect wires the output slot named srcSlot of src into the input slot
// named dstSlot of dst, replacing any previous connection into that input.
// Connections that would create a cycle are refused.
func (g *Graph) Connect(src *Node, srcSlot string, dst *Node, dstSlot string) error {
	if src == nil || dst == nil {
		return errors.New("connect: nil node")
	} else if src.g != g || dst.g != g {
		return errors.New("connect: node belongs to another graph")
	}
	so, err := src.outputIndex(srcSlot)
	if err != nil {
		return err
	}
	di, err := dst.inputIndex(dstSlot)
	if err != nil {
		return err
	}
	if reachesUpstream(src, dst) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, src.Name(), dst.Name())
	}
	dst.in[di] = conn{node: src, slot: so}
	g.invalidate(dst)
	return nil
}

// Disconnect removes the connection into the input slot named dstSlot of
// dst. Disconnecting an unconnected input is a no-op.
func (g *Graph) Disconnect(dst *Node, dstSlot string) error {
	if dst == nil {
		return errors.New("disconnect: nil node")
	}
	di, err := dst.inputIndex(dstSlot)
	if err != nil {
		return err
	}
	if dst.in[di].node == nil {
		return nil
	}
	dst.in[di] = conn{}
	g.invalidate(dst)
	return nil
}

// Invalidate discards cached slot kinds of n and of every node downstream
// of it, forcing re-resolution on next query. Connect and Disconnect
// invalidate automatically; Invalidate is for operations mutated in place.
func (g *Graph) Invalidate(n *Node) {
	if n != nil && n.g == g {
		g.invalidate(n)
	}
}

func (g *Graph) invalidate(n *Node) {
	if n.dirty {
		return // a dirty node's downstream is already dirty.
	}
	n.dirty = true
	for _, m := range g.nodes {
		if m.dirty {
			continue
		}
		for _, c := range m.in {
			if c.node == n {
				g.invalidate(m)
				break
			}
		}
	}
}

// reachesUpstream reports whether target is from itself or feeds from
// through some chain of connections.
func reachesUpstream(from, target *Node) bool {
	if from == target {
		return true
	}
	for _, c := range from.in {
		if c.node != nil && reachesUpstream(c.node, target) {
			return true
		}
	}
	return false
}

// Name returns the node's unique name within its graph, derived from the
// operation name and the node's numeric id.
func (n *Node) Name() string { return n.op.OpName() + strconv.Itoa(n.id) }

// Op returns the operation the node instantiates.
func (n *Node) Op() Op { return n.op }

// Slots returns a copy of the node's slot declaration.
func (n *Node) Slots() []glbuild.Slot { return append([]glbuild.Slot{}, n.decl...) }

// Input returns the node and output slot name connected into the input
// slot named name. src is nil when the input is unconnected.
func (n *Node) Input(name string) (src *Node, srcSlot string, err error) {
	i, err := n.inputIndex(name)
	if err != nil {
		return nil, "", err
	}
	c := n.in[i]
	if c.node == nil {
		return nil, "", nil
	}
	return c.node, c.node.decl[c.node.outIdx[c.slot]].Name, nil
}

func (n *Node) inputIndex(name string) (int, error) {
	for i, di := range n.inIdx {
		if n.decl[di].Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("node %s has no input slot %q", n.Name(), name)
}

func (n *Node) outputIndex(name string) (int, error) {
	for i, di := range n.outIdx {
		if n.decl[di].Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("node %s has no output slot %q", n.Name(), name)
}

// Kinds resolves the node and returns the kind of every slot in
// declaration order. Slots that failed to resolve report KindError.
func (n *Node) Kinds() []glbuild.Kind {
	n.resolve()
	return append([]glbuild.Kind{}, n.resolved...)
}

// InputKind resolves the node and returns the kind of the input slot named name.
func (n *Node) InputKind(name string) (glbuild.Kind, error) {
	i, err := n.inputIndex(name)
	if err != nil {
		return glbuild.KindError, err
	}
	n.resolve()
	return n.resolved[n.inIdx[i]], nil
}

// OutputKind resolves the node and returns the kind of the output slot named name.
func (n *Node) OutputKind(name string) (glbuild.Kind, error) {
	i, err := n.outputIndex(name)
	if err != nil {
		return glbuild.KindError, err
	}
	n.resolve()
	return n.resolved[n.outIdx[i]], nil
}

// Failing resolves the node and reports whether it carries an error, be it
// a diagnostic of its own or a failing node upstream.
func (n *Node) Failing() bool {
	n.resolve()
	return n.bad
}

// Err resolves the node and returns its diagnostics. A node failing only
// because of upstream failures returns ErrUpstream instead of repeating
// the upstream diagnostics.
func (n *Node) Err() error {
	n.resolve()
	if !n.bad {
		return nil
	}
	if len(n.errs) == 0 {
		return fmt.Errorf("node %s: %w", n.Name(), ErrUpstream)
	}
	return fmt.Errorf("node %s: %w", n.Name(), errors.Join(n.errs...))
}

// resolve computes slot kinds, diagnostics and the failing flag, caching
// them until the node is invalidated. Inputs resolve upstream-first; the
// graph is acyclic so the recursion terminates.
func (n *Node) resolve() {
	if !n.dirty {
		return
	}
	n.errs = n.errs[:0]
	var contrib uint16 // bitset of kinds feeding dynamic inputs.
	hasDyn := false
	for i, di := range n.inIdx {
		s := n.decl[di]
		dyn := s.Kind == glbuild.KindDynamic
		hasDyn = hasDyn || dyn
		c := n.in[i]
		if c.node == nil {
			n.resolved[di] = s.Kind // dynamic inputs keep the marker until unification.
			continue
		}
		c.node.resolve()
		got := c.node.resolved[c.node.outIdx[c.slot]]
		switch {
		case got == glbuild.KindError:
			n.resolved[di] = glbuild.KindError
		case dyn:
			contrib |= 1 << got
			n.resolved[di] = glbuild.KindDynamic
		default:
			k, ok := glbuild.CommonKind(got, s.Kind)
			if !ok {
				n.resolved[di] = glbuild.KindError
				n.errs = append(n.errs, fmt.Errorf("input %q: %w from %s to %s", s.Name, ErrNoConversion, got, s.Kind))
				continue
			}
			n.resolved[di] = k
		}
	}
	uni := unifyKinds(contrib)
	if hasDyn {
		if uni == glbuild.KindError {
			n.errs = append(n.errs, ErrUnify)
		}
		for _, di := range n.inIdx {
			if n.resolved[di] == glbuild.KindDynamic {
				n.resolved[di] = uni
			}
		}
	}
	anyInErr := false
	for _, di := range n.inIdx {
		if n.resolved[di] == glbuild.KindError {
			anyInErr = true
			break
		}
	}
	for _, di := range n.outIdx {
		switch {
		case anyInErr:
			n.resolved[di] = glbuild.KindError
		case n.decl[di].Kind == glbuild.KindDynamic:
			n.resolved[di] = uni
		default:
			n.resolved[di] = n.decl[di].Kind
		}
	}
	var vErr error
	if v, ok := n.op.(validator); ok {
		if vErr = v.Validate(n.resolved); vErr != nil {
			n.errs = append(n.errs, fmt.Errorf("op %s: %w", n.op.OpName(), vErr))
		}
	}
	wasBad := n.bad
	n.bad = anyInErr || vErr != nil
	n.dirty = false
	if n.bad != wasBad && n.g.OnErrorChanged != nil {
		n.g.OnErrorChanged(n, n.bad)
	}
}

// unifyKinds reduces the set of kinds feeding a node's dynamic inputs to
// the single kind all of its dynamic slots take. No contributions default
// to float and a lone contribution wins outright. Among several distinct
// contributions scalars broadcast to the rest, so float is dropped and the
// narrowest remaining kind wins; wider contributors convert down to it.
func unifyKinds(contrib uint16) glbuild.Kind {
	if contrib == 0 {
		return glbuild.KindFloat
	}
	if contrib&(contrib-1) == 0 {
		return glbuild.Kind(bits.TrailingZeros16(contrib))
	}
	contrib &^= 1 << glbuild.KindFloat
	if contrib == 0 {
		return glbuild.KindError // unreachable: distinct contributions cannot all be float.
	}
	return glbuild.Kind(bits.TrailingZeros16(contrib))
}

// AppendShaderName appends the node's unique name to b.
func (n *Node) AppendShaderName(b []byte) []byte {
	return append(b, n.Name()...)
}

// slotDefault returns the default channel values of decl slot di.
// Dynamically declared slots broadcast Default[0] over the unified kind.
func (n *Node) slotDefault(di int) [4]float32 {
	def := n.decl[di].Default
	if n.decl[di].Kind == glbuild.KindDynamic {
		def = [4]float32{def[0], def[0], def[0], def[0]}
	}
	return def
}

// appendOutVar appends the GLSL variable holding output slot i of the
// node. Single-output nodes use the node name bare; multi-output nodes
// suffix the slot name.
func (n *Node) appendOutVar(b []byte, i int) []byte {
	b = append(b, n.Name()...)
	if len(n.outIdx) > 1 {
		b = append(b, '_')
		b = append(b, n.decl[n.outIdx[i]].Name...)
	}
	return b
}

// AppendShaderStmts appends the GLSL statements declaring the node's
// output variables. Inputs materialize as converted upstream variables or
// as default literals when unconnected.
func (n *Node) AppendShaderStmts(b []byte) []byte {
	n.resolve()
	args := glbuild.EmitArgs{
		In:  make([]glbuild.Operand, len(n.inIdx)),
		Out: make([]glbuild.Operand, len(n.outIdx)),
	}
	for i, di := range n.inIdx {
		k := n.resolved[di]
		c := n.in[i]
		var expr []byte
		if c.node == nil {
			expr = glbuild.AppendDefaultLiteral(nil, k, n.slotDefault(di))
		} else {
			src := glbuild.Operand{
				Expr: c.node.appendOutVar(nil, c.slot),
				Kind: c.node.resolved[c.node.outIdx[c.slot]],
			}
			expr = glbuild.AppendConvert(nil, src, k)
		}
		args.In[i] = glbuild.Operand{Expr: expr, Kind: k}
	}
	for i, di := range n.outIdx {
		args.Out[i] = glbuild.Operand{Expr: n.appendOutVar(nil, i), Kind: n.resolved[di]}
	}
	return n.op.AppendStmt(b, &args)
}

// AppendShaderFuncs appends the GLSL function definitions the node's
// statements call into.
func (n *Node) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	if fa, ok := n.op.(funcAppender); ok {
		fns = fa.AppendShaderFuncs(fns)
	}
	return fns
}

// AppendShaderUniforms appends the uniforms the node's statements read.
func (n *Node) AppendShaderUniforms(unis []glbuild.Uniform) []glbuild.Uniform {
	if ua, ok := n.op.(uniformAppender); ok {
		unis = ua.AppendShaderUniforms(unis)
	}
	return unis
}

// Result returns the operand naming the node's output variable with its
// resolved kind. The zero operand is returned for multi-output nodes.
func (n *Node) Result() glbuild.Operand {
	if len(n.outIdx) != 1 {
		return glbuild.Operand{}
	}
	n.resolve()
	return glbuild.Operand{Expr: n.appendOutVar(nil, 0), Kind: n.resolved[n.outIdx[0]]}
}

// ForEachChild calls fn for every node connected into n's inputs, in input
// declaration order. A node feeding several inputs is visited once per
// connection.
func (n *Node) ForEachChild(userData any, fn func(userData any, child glbuild.Shader) error) error {
	for _, c := range n.in {
		if c.node == nil {
			continue
		}
		if err := fn(userData, c.node); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateFrames evaluates the node on the CPU for a batch of positions,
// filling one output frame per output slot. Inputs evaluate recursively
// and convert to the kinds the node resolved, mirroring generated GLSL.
func (n *Node) EvaluateFrames(pos []ms2.Vec, t float32, out []gleval.Frame, userData any) error {
	if err := n.Err(); err != nil {
		return err
	}
	krn, ok := n.op.(kernel)
	if !ok {
		return fmt.Errorf("node %s: op %q has no CPU evaluator", n.Name(), n.op.OpName())
	}
	if len(out) != len(n.outIdx) {
		return fmt.Errorf("node %s: got %d output frames, want %d", n.Name(), len(out), len(n.outIdx))
	}
	for i, di := range n.outIdx {
		if out[i].Kind != n.resolved[di] || out[i].Len() != len(pos) {
			return fmt.Errorf("node %s: output frame %d mismatches resolved kind or position count", n.Name(), i)
		}
	}
	pool, err := gleval.GetFramePool(userData)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.Name(), err)
	}
	in := make([]gleval.Frame, len(n.inIdx))
	for i, di := range n.inIdx {
		k := n.resolved[di]
		dst := pool.AcquireFrame(k, len(pos))
		c := n.in[i]
		if c.node == nil {
			dst.Fill(n.slotDefault(di))
			in[i] = dst
			continue
		}
		cframes := make([]gleval.Frame, len(c.node.outIdx))
		for j, cdi := range c.node.outIdx {
			cframes[j] = pool.AcquireFrame(c.node.resolved[cdi], len(pos))
		}
		err := c.node.EvaluateFrames(pos, t, cframes, userData)
		if err == nil {
			err = gleval.ConvertFrame(dst, cframes[c.slot])
		}
		for _, f := range cframes {
			pool.ReleaseFrame(f)
		}
		if err != nil {
			pool.ReleaseFrame(dst)
			for _, f := range in[:i] {
				pool.ReleaseFrame(f)
			}
			return err
		}
		in[i] = dst
	}
	err = krn.Evaluate(pos, t, in, out, userData)
	for _, f := range in {
		pool.ReleaseFrame(f)
	}
	if err != nil {
		return fmt.Errorf("node %s: %w", n.Name(), err)
	}
	return nil
}

var _ glbuild.Shader = (*Node)(nil)
