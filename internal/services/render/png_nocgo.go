//go:build !cgo

package render

import (
	perr "impfmon/internal/platform/errors"
)

func rasterize([]byte, int) ([]byte, error) {
	return nil, perr.InvalidArgf("PNG output needs a cgo build; write .svg instead")
}
