//go:build tinygo || !cgo

package gsgaux

import (
	"errors"

	"github.com/soypat/gsg/glbuild"
)

func ui(root glbuild.Shader, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
