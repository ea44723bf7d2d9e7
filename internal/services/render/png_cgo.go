//go:build cgo

package render

import (
	"bytes"
	"image/png"

	"github.com/xo/resvg"

	perr "impfmon/internal/platform/errors"
)

// rasterize renders svg to PNG with best fit scaling; width 0 keeps the natural size
func rasterize(svg []byte, width int) ([]byte, error) {
	opts := []resvg.Option{resvg.WithScaleMode(resvg.ScaleBestFit)}
	if width > 0 {
		opts = append(opts, resvg.WithWidth(width))
	}
	img, err := resvg.Render(svg, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "rasterize chart")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode png")
	}
	return buf.Bytes(), nil
}
