package gsg

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/soypat/gsg/glbuild"
)

func init() {
	RegisterOp("func", newFuncFromSpec)
}

// Func returns a node calling a user supplied GLSL function, wiring args
// positionally into its parameters. The function signature determines the
// node's slots: one input per parameter and one output of the return type,
// all of which must be float, vecN or matN. Custom functions have no CPU
// mirror, so graphs containing them evaluate on the GPU only.
func (bld *Builder) Func(glslSrc string, args ...*Node) *Node {
	return bld.wire("func", OpSpec{Source: glslSrc}, args...)
}

// funcOp calls a user supplied GLSL function. An unparsable source marks
// the node failing rather than refusing construction, so editors keep the
// node around while its source is being typed out.
type funcOp struct {
	src      string
	fn       glbuild.ShaderFunc
	decl     []glbuild.Slot
	parseErr error
}

func newFuncFromSpec(spec OpSpec) (Op, error) {
	op := &funcOp{src: spec.Source}
	op.fn, op.decl, op.parseErr = parseFuncSignature([]byte(spec.Source))
	if op.parseErr != nil {
		// Placeholder declaration so the node exists to carry the error.
		op.decl = []glbuild.Slot{glbuild.Output("out", glbuild.KindVec4)}
	}
	return op, nil
}

func (op *funcOp) OpName() string { return "func" }

func (op *funcOp) Slots() []glbuild.Slot { return append([]glbuild.Slot{}, op.decl...) }

func (op *funcOp) Validate(kinds []glbuild.Kind) error { return op.parseErr }

func (op *funcOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	if op.parseErr != nil {
		return b // Validate gates emission.
	}
	return args.AppendCall(b, op.fn.Name())
}

func (op *funcOp) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	if op.parseErr == nil {
		fns = append(fns, op.fn)
	}
	return fns
}

func (op *funcOp) OpSpec() OpSpec { return OpSpec{Source: op.src} }

var _ SpecOp = (*funcOp)(nil)

// parseFuncSignature derives a slot declaration from a GLSL function
// definition of the form "returnType name(type arg, ...) { body }".
func parseFuncSignature(src []byte) (glbuild.ShaderFunc, []glbuild.Slot, error) {
	fn, err := glbuild.MakeShaderFunc(src)
	if err != nil {
		return glbuild.ShaderFunc{}, nil, err
	}
	trimmed := bytes.TrimSpace(src)
	openIdx := bytes.IndexByte(trimmed, '(')
	closeIdx := bytes.IndexByte(trimmed, ')')
	if closeIdx < openIdx {
		return glbuild.ShaderFunc{}, nil, errors.New("unbalanced parameter list")
	}
	if !bytes.ContainsRune(trimmed[closeIdx:], '{') {
		return glbuild.ShaderFunc{}, nil, errors.New("missing function body")
	}
	retKind, err := glbuild.ParseKind(string(trimmed[:bytes.IndexByte(trimmed, ' ')]))
	if err != nil || !retKind.IsConcrete() {
		return glbuild.ShaderFunc{}, nil, fmt.Errorf("return type must be float, vecN or matN")
	}
	var slots []glbuild.Slot
	if params := bytes.TrimSpace(trimmed[openIdx+1 : closeIdx]); len(params) > 0 {
		for _, param := range bytes.Split(params, []byte{','}) {
			fields := bytes.Fields(param)
			if len(fields) != 2 {
				return glbuild.ShaderFunc{}, nil, fmt.Errorf("cannot parse parameter %q", bytes.TrimSpace(param))
			}
			k, err := glbuild.ParseKind(string(fields[0]))
			if err != nil || !k.IsConcrete() {
				return glbuild.ShaderFunc{}, nil, fmt.Errorf("parameter %q type must be float, vecN or matN", fields[1])
			}
			name := string(fields[1])
			if !validIdent(name) {
				return glbuild.ShaderFunc{}, nil, fmt.Errorf("parameter name %q is not a valid identifier", name)
			}
			slots = append(slots, glbuild.Input(name, k))
		}
	}
	slots = append(slots, glbuild.Output("out", retKind))
	return fn, slots, nil
}
