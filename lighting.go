package gsg

import (
	"fmt"
	"sort"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/glbuild/glsllib"
)

func init() {
	RegisterOp("light", newLightFromSpec)
	RegisterLightModel("lambert", LightModel{
		Func: glsllib.Lambert(),
		Eval: func(n, l, v, albedo ms3.Vec, shininess float32) ms3.Vec {
			ndl := maxf(ms3.Dot(ms3.Unit(n), ms3.Unit(l)), 0)
			return ms3.Scale(ndl, albedo)
		},
	})
	RegisterLightModel("halflambert", LightModel{
		Func: glsllib.HalfLambert(),
		Eval: func(n, l, v, albedo ms3.Vec, shininess float32) ms3.Vec {
			w := ms3.Dot(ms3.Unit(n), ms3.Unit(l))*0.5 + 0.5
			return ms3.Scale(w*w, albedo)
		},
	})
	RegisterLightModel("blinnphong", LightModel{
		Func: glsllib.BlinnPhong(),
		Eval: func(n, l, v, albedo ms3.Vec, shininess float32) ms3.Vec {
			nn, ln := ms3.Unit(n), ms3.Unit(l)
			ndl := maxf(ms3.Dot(nn, ln), 0)
			h := ms3.Unit(ms3.Add(ln, ms3.Unit(v)))
			spec := powf(maxf(ms3.Dot(nn, h), 0), maxf(shininess, 1))
			return ms3.AddScalar(spec, ms3.Scale(ndl, albedo))
		},
	})
}

// LightModel pairs the GLSL implementation of a lighting model with its
// CPU mirror. Eval must compute exactly what Func computes so CPU renders
// match GPU renders.
type LightModel struct {
	// Func is the model's GLSL function, with conventional signature
	//
	//	vec3 name(vec3 n, vec3 l, vec3 v, vec3 albedo, float shininess)
	Func glbuild.ShaderFunc
	// Eval evaluates the model on the CPU for a single sample.
	Eval func(normal, light, view, albedo ms3.Vec, shininess float32) ms3.Vec
}

var lightModels = map[string]LightModel{}

// RegisterLightModel makes a lighting model available to light ops under
// name. It panics if name is already taken or the model is incomplete.
// The builtin models are lambert, halflambert and blinnphong.
func RegisterLightModel(name string, model LightModel) {
	if name == "" || model.Func.Name() == "" || model.Eval == nil {
		panic("gsg: RegisterLightModel with empty name or incomplete model")
	} else if _, exists := lightModels[name]; exists {
		panic("gsg: RegisterLightModel called twice for " + name)
	}
	lightModels[name] = model
}

// LightModels returns the names of all registered lighting models, sorted.
func LightModels() []string {
	names := make([]string, 0, len(lightModels))
	for name := range lightModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Light returns a node shading a surface with the named lighting model.
// Any node argument may be nil to stay on the slot default: normal, light
// and view directions default to +z, albedo to white and shininess to 32.
func (bld *Builder) Light(model string, normal, light, view, albedo, shininess *Node) *Node {
	n := bld.addOp(&lightOp{model: model})
	for i, a := range []*Node{normal, light, view, albedo, shininess} {
		if a != nil {
			bld.connect(a, n, n.decl[n.inIdx[i]].Name)
		}
	}
	return n
}

// lightOp shades with a registered lighting model. An unknown model name
// marks the node failing rather than erroring at construction so documents
// referencing extension models load before the extension registers.
type lightOp struct {
	model string
}

func newLightFromSpec(spec OpSpec) (Op, error) {
	return &lightOp{model: spec.Model}, nil
}

func (op *lightOp) OpName() string { return "light" }

func (op *lightOp) Slots() []glbuild.Slot {
	return []glbuild.Slot{
		glbuild.InputDefault("normal", glbuild.KindVec3, 0, 0, 1),
		glbuild.InputDefault("light", glbuild.KindVec3, 0, 0, 1),
		glbuild.InputDefault("view", glbuild.KindVec3, 0, 0, 1),
		glbuild.InputDefault("albedo", glbuild.KindVec3, 1, 1, 1),
		glbuild.InputDefault("shininess", glbuild.KindFloat, 32),
		glbuild.Output("color", glbuild.KindVec3),
	}
}

func (op *lightOp) Validate(kinds []glbuild.Kind) error {
	if _, ok := lightModels[op.model]; !ok {
		return fmt.Errorf("unknown lighting model %q, have %v", op.model, LightModels())
	}
	return nil
}

func (op *lightOp) AppendStmt(b []byte, args *glbuild.EmitArgs) []byte {
	m, ok := lightModels[op.model]
	if !ok {
		return b // Validate gates emission.
	}
	return args.AppendCall(b, m.Func.Name())
}

func (op *lightOp) AppendShaderFuncs(fns []glbuild.ShaderFunc) []glbuild.ShaderFunc {
	if m, ok := lightModels[op.model]; ok {
		fns = append(fns, m.Func)
	}
	return fns
}

func (op *lightOp) OpSpec() OpSpec { return OpSpec{Model: op.model} }

var _ SpecOp = (*lightOp)(nil)
