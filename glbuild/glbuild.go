package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const VersionStr = "#version 430\n"

// Shader is a node of a resolved shader graph from which GLSL source code
// can be generated. Implementations emit statements which assign the node's
// output variables from the variables of its child nodes, so a program is
// built by emitting every node of the graph in dependency order.
type Shader interface {
	// AppendShaderName appends the node's variable stem to the buffer and
	// returns the result. The stem must be unique among the graph's nodes
	// and is a valid GLSL identifier.
	AppendShaderName(b []byte) []byte
	// AppendShaderStmts appends the GLSL statements which declare and assign
	// the node's output variables.
	AppendShaderStmts(b []byte) []byte
	// AppendShaderFuncs appends the helper functions called by the node's
	// statements. Functions shared between nodes are deduplicated by name
	// during shader generation.
	AppendShaderFuncs(fns []ShaderFunc) []ShaderFunc
	// AppendShaderUniforms appends the uniforms read by the node's statements.
	AppendShaderUniforms(unis []Uniform) []Uniform
	// Result returns the operand of the node's sole output variable, or the
	// zero Operand when the node does not have exactly one output.
	Result() Operand
	// Err returns the node's resolution or validation failure, if any.
	// Shader generation refuses graphs containing erroring nodes.
	Err() error
	// ForEachChild iterates over the nodes feeding this node's input slots.
	ForEachChild(userData any, fn func(userData any, s Shader) error) error
}

// EmitArgs carries the resolved context a node operation needs to emit its
// statements: one operand per input slot, already converted to the slot's
// resolved kind, and one undeclared output variable operand per output slot.
type EmitArgs struct {
	In  []Operand
	Out []Operand
}

// AppendCall appends "kind out=fname(in0,in1,...);" for single-output
// function-call style operations.
func (a *EmitArgs) AppendCall(b []byte, fname string) []byte {
	b = a.Out[0].AppendDecl(b)
	b = append(b, '=')
	b = append(b, fname...)
	b = append(b, '(')
	for i := range a.In {
		if i > 0 {
			b = append(b, ',')
		}
		b = a.In[i].Append(b)
	}
	b = append(b, ");\n"...)
	return b
}

// AppendInfix appends "kind out=(in0)<op>(in1);" for single-output binary
// operator style operations. Operands are parenthesized so negative
// literals and swizzled expressions survive adjacent operators.
func (a *EmitArgs) AppendInfix(b []byte, op byte) []byte {
	b = a.Out[0].AppendDecl(b)
	b = append(b, "=("...)
	b = a.In[0].Append(b)
	b = append(b, ')')
	b = append(b, op)
	b = append(b, '(')
	b = a.In[1].Append(b)
	b = append(b, ");\n"...)
	return b
}

// ShaderFunc is a standalone GLSL helper function emitted at most once per
// generated program. Functions are identified by name: two nodes may share a
// function only when their sources are byte identical.
type ShaderFunc struct {
	name []byte
	src  []byte
}

// MakeShaderFunc parses the function name out of a GLSL function definition
// of the conventional form "returnType name(args) { body }".
func MakeShaderFunc(src []byte) (sf ShaderFunc, err error) {
	src = bytes.TrimSpace(src)
	nameEnd := bytes.IndexByte(src, '(')
	nameStart := bytes.IndexByte(src, ' ')
	if nameEnd < 0 || nameStart < 0 || nameStart > nameEnd {
		return ShaderFunc{}, errors.New("unable to parse shader function name")
	}
	name := bytes.TrimSpace(src[nameStart:nameEnd])
	if len(name) == 0 {
		return ShaderFunc{}, errors.New("empty shader function name")
	}
	return ShaderFunc{name: name, src: src}, nil
}

// Name returns the function's GLSL identifier.
func (sf ShaderFunc) Name() string { return string(sf.name) }

// Source returns the function's full GLSL definition.
func (sf ShaderFunc) Source() []byte { return sf.src }

// Uniform is a shader input bound at draw or dispatch time rather than
// compiled into the source, carrying its current value so evaluators and
// viewers can upload it. Names are prefixed "u_" in generated GLSL to keep
// user-chosen names clear of node variables.
type Uniform struct {
	Name  string
	Kind  Kind
	Value [16]float32
}

// AppendUniformName appends the GLSL identifier of a uniform named name.
func AppendUniformName(b []byte, name string) []byte {
	b = append(b, "u_"...)
	return append(b, name...)
}

// AppendDecl appends the uniform's GLSL declaration line.
func (u Uniform) AppendDecl(b []byte) []byte {
	b = append(b, "uniform "...)
	b = u.Kind.AppendTypename(b)
	b = append(b, ' ')
	b = AppendUniformName(b, u.Name)
	b = append(b, ";\n"...)
	return b
}

// reservedUniforms are declared by the program templates themselves and are
// off limits to user-named uniforms.
var reservedUniforms = []string{"time", "resolution"}

// ReservedUniform reports whether name is declared by the generated program
// templates themselves and thus unavailable to user-named uniforms.
func ReservedUniform(name string) bool {
	for _, reserved := range reservedUniforms {
		if name == reserved {
			return true
		}
	}
	return false
}

// Programmer implements shader source generation for graphs of [Shader]
// nodes. Its scratch buffers are reused between calls so a single Programmer
// amortizes allocations over many generated programs. Not safe for
// concurrent use.
type Programmer struct {
	scratchNodes  []Shader
	scratch       []byte
	computeHeader []byte
	fnScratch     []ShaderFunc
	uniScratch    []Uniform
	// names maps name hashes to body hashes for checking duplicates.
	names map[uint64]uint64
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

var defaultComputeHeader = []byte("#shader compute\n" + VersionStr)

// NewDefaultProgrammer returns a Programmer with reasonable default
// parameters for use with the glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratchNodes:  make([]Shader, 64),
		scratch:       make([]byte, 1024),
		computeHeader: defaultComputeHeader,
		names:         make(map[uint64]uint64),
		invocX:        32,
	}
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less
// than the maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("only x invocation limit can be modified")
	} else if x < 1 {
		panic("invalid x invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y z directions.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteShadeDecl writes the helper functions and the shade function
// declaration for the graph rooted at root and returns the shade function
// name along with the uniforms the caller must declare and bind. The shade
// function has signature "vec4 name(vec2 p, float t)" with p the normalized
// UV position and t the time in seconds.
func (p *Programmer) WriteShadeDecl(w io.Writer, root Shader) (shadeName string, n int, unis []Uniform, err error) {
	nodes, fns, unis, err := p.parse(root)
	if err != nil {
		return "", 0, nil, err
	}
	shadeName, n, err = p.writeShade(w, root, nodes, fns)
	if err != nil {
		return "", n, nil, err
	}
	return shadeName, n, unis, nil
}

// WriteFragment writes a standalone OpenGL fragment shader which renders the
// graph over the full viewport. Time and viewport size are passed through the
// u_time and u_resolution uniforms; param uniforms are returned so callers
// can bind them.
func (p *Programmer) WriteFragment(w io.Writer, root Shader) (n int, unis []Uniform, err error) {
	nodes, fns, unis, err := p.parse(root)
	if err != nil {
		return 0, nil, err
	}
	n, err = w.Write([]byte(VersionStr))
	if err != nil {
		return n, nil, err
	}
	ngot, err := w.Write(p.appendUniformDecls(p.scratch[:0], unis, true))
	n += ngot
	if err != nil {
		return n, nil, err
	}
	shadeName, ngot, err := p.writeShade(w, root, nodes, fns)
	n += ngot
	if err != nil {
		return n, nil, err
	}
	ngot, err = fmt.Fprintf(w, `
out vec4 fragColor;

void main() {
	vec2 p = gl_FragCoord.xy/u_resolution.xy;
	fragColor = %s(p, u_time);
}
`, shadeName)
	n += ngot
	return n, unis, err
}

// WriteShaderToyImage writes the graph as a ShaderToy image shader with a
// mainImage entrypoint driven by the iTime and iResolution builtins.
// ShaderToy provides no way to bind user uniforms, so graphs containing
// param nodes are refused; replace params with value nodes to embed their
// current values.
func (p *Programmer) WriteShaderToyImage(w io.Writer, root Shader) (n int, err error) {
	nodes, fns, unis, err := p.parse(root)
	if err != nil {
		return 0, err
	}
	if len(unis) > 0 {
		return 0, fmt.Errorf("shadertoy image shader cannot bind uniform %q; replace param nodes with value nodes", unis[0].Name)
	}
	shadeName, n, err := p.writeShade(w, root, nodes, fns)
	if err != nil {
		return n, err
	}
	ngot, err := fmt.Fprintf(w, `
void mainImage( out vec4 fragColor, in vec2 fragCoord )
{
	vec2 p = fragCoord/iResolution.xy;
	fragColor = %s(p, iTime);
}
`, shadeName)
	n += ngot
	return n, err
}

// WriteComputeShade writes a compute shader which evaluates the graph at the
// UV positions stored in an input SSBO at binding 0 and stores the resulting
// colors to an output SSBO at binding 1. Time is passed through the u_time
// uniform; param uniforms are returned so callers can bind them.
func (p *Programmer) WriteComputeShade(w io.Writer, root Shader) (n int, unis []Uniform, err error) {
	nodes, fns, unis, err := p.parse(root)
	if err != nil {
		return 0, nil, err
	}
	n, err = w.Write(p.computeHeader)
	if err != nil {
		return n, nil, err
	}
	ngot, err := w.Write(p.appendUniformDecls(p.scratch[:0], unis, false))
	n += ngot
	if err != nil {
		return n, nil, err
	}
	shadeName, ngot, err := p.writeShade(w, root, nodes, fns)
	n += ngot
	if err != nil {
		return n, nil, err
	}
	ngot, err = fmt.Fprintf(w, `
layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: UV positions at which to evaluate the shade function.
layout(std430, binding = 0) buffer PositionsBuffer {
    vec2 vbo_positions[];
};

// Output: shaded colors. Maps one to one with position buffer.
layout(std430, binding = 1) buffer ColorsBuffer {
    vec4 vbo_colors[];
};

void main() {
	int idx = int( gl_GlobalInvocationID.x );

	vec2 p = vbo_positions[idx];    // Get position to evaluate shade at.
	vbo_colors[idx] = %s(p, u_time);
}
`, p.invocX, shadeName)
	n += ngot
	return n, unis, err
}

func (p *Programmer) appendUniformDecls(b []byte, unis []Uniform, resolution bool) []byte {
	b = append(b, "uniform float u_time;\n"...)
	if resolution {
		b = append(b, "uniform vec2 u_resolution;\n"...)
	}
	for i := range unis {
		b = unis[i].AppendDecl(b)
	}
	return b
}

// parse collects the graph closure rooted at root along with its
// deduplicated helper functions and uniforms. It refuses erroring nodes,
// conflicting function definitions and conflicting uniform declarations.
func (p *Programmer) parse(root Shader) (nodes []Shader, fns []ShaderFunc, unis []Uniform, err error) {
	nodes, err = AppendAllNodes(p.scratchNodes[:0], root)
	if err != nil {
		return nil, nil, nil, err
	}
	p.scratchNodes = nodes
	clear(p.names)
	p.fnScratch = p.fnScratch[:0]
	p.uniScratch = p.uniScratch[:0]
	scratch := p.scratch[:0]
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		if err := node.Err(); err != nil {
			scratch = node.AppendShaderName(scratch[:0])
			return nil, nil, nil, fmt.Errorf("cannot generate shader with erroring node %s: %w", scratch, err)
		}
		fnStart := len(p.fnScratch)
		p.fnScratch = node.AppendShaderFuncs(p.fnScratch)
	FNWRITE:
		for _, fn := range p.fnScratch[fnStart:] {
			nameHash := hash(fn.name, 0)
			bodyHash := hash(fn.src, nameHash)
			gotBodyHash, nameConflict := p.names[nameHash]
			if nameConflict {
				if bodyHash == gotBodyHash {
					continue FNWRITE // Duplicate function, already collected.
				}
				scratch = node.AppendShaderName(scratch[:0])
				return nil, nil, nil, fmt.Errorf("node %s: conflicting definitions of shader function %q", scratch, fn.Name())
			}
			p.names[nameHash] = bodyHash
			fns = append(fns, fn)
		}
		p.fnScratch = p.fnScratch[:fnStart]

		uniStart := len(p.uniScratch)
		p.uniScratch = node.AppendShaderUniforms(p.uniScratch)
	UNIWRITE:
		for _, uni := range p.uniScratch[uniStart:] {
			if ReservedUniform(uni.Name) {
				return nil, nil, nil, fmt.Errorf("uniform name %q is reserved", uni.Name)
			}
			for _, got := range unis {
				if got.Name != uni.Name {
					continue
				}
				if got.Kind == uni.Kind && got.Value == uni.Value {
					continue UNIWRITE // Duplicate uniform, already collected.
				}
				return nil, nil, nil, fmt.Errorf("uniform %q declared twice with differing kind or value", uni.Name)
			}
			unis = append(unis, uni)
		}
		p.uniScratch = p.uniScratch[:uniStart]
	}
	p.scratch = scratch
	return nodes, fns, unis, nil
}

// writeShade writes the collected helper functions followed by the shade
// function enclosing every node's statements in dependency order.
func (p *Programmer) writeShade(w io.Writer, root Shader, nodes []Shader, fns []ShaderFunc) (shadeName string, n int, err error) {
	for i := range fns {
		ngot, err := w.Write(fns[i].src)
		n += ngot
		if err != nil {
			return "", n, err
		}
		ngot, err = w.Write([]byte{'\n'})
		n += ngot
		if err != nil {
			return "", n, err
		}
	}
	result := root.Result()
	if len(result.Expr) == 0 {
		return "", n, errors.New("graph root must have exactly one output to shade")
	}
	p.scratch = root.AppendShaderName(append(p.scratch[:0], "shade_"...))
	shadeName = string(p.scratch)
	p.scratch = append(p.scratch[:0], "\nvec4 "...)
	p.scratch = append(p.scratch, shadeName...)
	p.scratch = append(p.scratch, "(vec2 p, float t) {\n"...)
	ngot, err := w.Write(p.scratch)
	n += ngot
	if err != nil {
		return "", n, err
	}
	clear(p.names)
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		var name, body []byte
		p.scratch, name, body = appendNodeSource(p.scratch[:0], node)
		nameHash := hash(name, 0)
		bodyHash := hash(body, nameHash) // Body hash mixes name as well.
		gotBodyHash, nameConflict := p.names[nameHash]
		if nameConflict {
			if bodyHash == gotBodyHash {
				continue // Node already emitted, skip.
			}
			return "", n, fmt.Errorf("duplicate node name %q with differing statements", name)
		}
		p.names[nameHash] = bodyHash
		ngot, err := w.Write(body)
		n += ngot
		if err != nil {
			return "", n, err
		}
	}
	p.scratch = append(p.scratch[:0], "return "...)
	p.scratch, err = appendShadeReturn(p.scratch, result)
	if err != nil {
		return "", n, err
	}
	p.scratch = append(p.scratch, ";\n}\n"...)
	ngot, err = w.Write(p.scratch)
	n += ngot
	return shadeName, n, err
}

// appendShadeReturn expands the root operand to the vec4 color returned by
// the shade function. Narrower kinds preview as opaque colors: floats as
// grayscale, vec2 as red-green, vec3 as RGB. Matrix outputs have no color
// interpretation and are refused.
func appendShadeReturn(b []byte, o Operand) ([]byte, error) {
	switch o.Kind {
	case KindVec4:
		b = o.Append(b)
	case KindVec3:
		b = append(b, "vec4("...)
		b = o.Append(b)
		b = append(b, ",1.0)"...)
	case KindVec2:
		b = append(b, "vec4("...)
		b = o.Append(b)
		b = append(b, ",0.0,1.0)"...)
	case KindFloat:
		b = append(b, "vec4(vec3("...)
		b = o.Append(b)
		b = append(b, "),1.0)"...)
	default:
		return b, fmt.Errorf("cannot shade %s-kind output", o.Kind.String())
	}
	return b, nil
}

// appendNodeSource appends the node's name and statements to dst and returns
// subslices aliasing each.
func appendNodeSource(dst []byte, s Shader) (result, name, body []byte) {
	nameStart := len(dst)
	dst = s.AppendShaderName(dst)
	nameEnd := len(dst)
	bodyStart := len(dst)
	dst = s.AppendShaderStmts(dst)
	bodyEnd := len(dst)
	return dst, dst[nameStart:nameEnd], dst[bodyStart:bodyEnd]
}

// maxParseNodes bounds closure collection. Nodes are appended once per use
// so heavily diamond-shaped graphs expand combinatorially before
// deduplication; the bound turns runaway graphs into an error.
const maxParseNodes = 1 << 18

// AppendAllNodes BFS iterates over all of root's descendants and appends all
// nodes found to dst.
//
// To generate shaders one must iterate over nodes in reverse order to ensure
// the first iterated nodes are the nodes with no dependencies on other nodes.
// Nodes used by several consumers appear several times; their statements are
// deduplicated by name during generation.
func AppendAllNodes(dst []Shader, root Shader) ([]Shader, error) {
	if root == nil {
		return nil, errors.New("nil shader node")
	}
	var userData any
	children := append(dst, root)
	start := len(children) - 1
	nextChild := start
	nilChild := errors.New("got nil child in AppendAllNodes")
	for len(children[nextChild:]) > 0 {
		newChildren := children[nextChild:]
		for _, obj := range newChildren {
			nextChild++
			err := obj.ForEachChild(userData, func(userData any, s Shader) error {
				if s == nil {
					return nilChild
				}
				children = append(children, s)
				return nil
			})
			if err != nil {
				return nil, err
			}
			if len(children) > maxParseNodes {
				return nil, errors.New("shader graph closure too large, likely extreme fan-out")
			}
		}
	}
	return children, nil
}

const decimalDigits = 9

// AppendFloat appends a GLSL float literal of v to b using neg as the
// negative sign and decimal as the decimal separator, trimming trailing
// zeroes.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the float literals of s to b separated by sep.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
