package glsllib

import (
	_ "embed"

	"github.com/soypat/gsg/glbuild"
)

//go:embed fresnel.glsl
var fresnelSrc []byte

// Fresnel is the Schlick rim term:
//
//	float gsgFresnel(vec3 n, vec3 v, float power)
func Fresnel() glbuild.ShaderFunc {
	fn, _ := glbuild.MakeShaderFunc(fresnelSrc)
	return fn
}
