package render

import (
	"impfmon/internal/platform/config"
)

// Options for chart output
type Options struct {
	Width  int
	Height int
	// PNGWidth is the raster width of PNG output; 0 keeps the SVG size
	PNGWidth int
	// Lang selects number formatting of axis labels ("de" or "en")
	Lang string
	// Regions are drawn when a request names none; labels are resolved by the caller
	Regions []string
}

// FromConfig fills options from environment
// CORE_RENDER_WIDTH (default 960) and CORE_RENDER_HEIGHT (default 540) size the SVG canvas
// CORE_RENDER_PNG_WIDTH (default 0) rescales PNG output
// CORE_RENDER_LANG (default "de") is the axis label locale
// CORE_RENDER_REGIONS (comma separated, default none) are the default chart regions
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_RENDER_")
	return Options{
		Width:    max(n.MayInt("WIDTH", 960), 320),
		Height:   max(n.MayInt("HEIGHT", 540), 200),
		PNGWidth: max(n.MayInt("PNG_WIDTH", 0), 0),
		Lang:     n.MayEnum("LANG", "de", "de", "en"),
		Regions:  n.MayCSV("REGIONS", nil),
	}
}
