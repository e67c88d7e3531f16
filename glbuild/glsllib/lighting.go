// Package glsllib exposes this module's embedded library of GLSL helper
// functions as [glbuild.ShaderFunc] values ready to be appended by node
// implementations.
package glsllib

import (
	_ "embed"

	"github.com/soypat/gsg/glbuild"
)

//go:embed lambert.glsl
var lambertSrc []byte

// Lambert is the diffuse lighting model:
//
//	vec3 gsgLambert(vec3 n, vec3 l, vec3 v, vec3 albedo, float shininess)
func Lambert() glbuild.ShaderFunc {
	fn, _ := glbuild.MakeShaderFunc(lambertSrc)
	return fn
}

//go:embed halflambert.glsl
var halfLambertSrc []byte

// HalfLambert is the Valve half-lambert lighting model which wraps diffuse
// light around the terminator:
//
//	vec3 gsgHalfLambert(vec3 n, vec3 l, vec3 v, vec3 albedo, float shininess)
func HalfLambert() glbuild.ShaderFunc {
	fn, _ := glbuild.MakeShaderFunc(halfLambertSrc)
	return fn
}

//go:embed blinnphong.glsl
var blinnPhongSrc []byte

// BlinnPhong is the diffuse+specular lighting model using the half vector:
//
//	vec3 gsgBlinnPhong(vec3 n, vec3 l, vec3 v, vec3 albedo, float shininess)
func BlinnPhong() glbuild.ShaderFunc {
	fn, _ := glbuild.MakeShaderFunc(blinnPhongSrc)
	return fn
}
