// Package strategy implements the tool families the scheduler drives:
// COLMAP and RealityScan for calibration, Postshot for splat training.
package strategy

import (
	"fmt"
	"sort"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Tool names.
const (
	ToolColmap      = "colmap"
	ToolRealityScan = "realityscan"
	ToolPostshot    = "postshot"
)

// Options carries the executables and paths every strategy may need.
type Options struct {
	ColmapExe string

	RealityScanExe     string
	RealityScanExport  string
	RealityScanProfile string

	PostshotExe string
	OutputDir   string
}

// New returns the strategy registered under tool.
func New(tool string, opts Options) (ports.Strategy, error) {
	switch tool {
	case ToolColmap:
		return NewColmap(opts.ColmapExe), nil
	case ToolRealityScan:
		return NewRealityScan(opts.RealityScanExe, opts.RealityScanExport, opts.RealityScanProfile), nil
	case ToolPostshot:
		return NewPostshot(opts.PostshotExe, opts.OutputDir), nil
	default:
		return nil, &domain.ConfigurationError{
			Field:  "tool",
			Reason: fmt.Sprintf("unknown tool %q (want one of %v)", tool, Tools()),
		}
	}
}

// Tools lists the registered tool names.
func Tools() []string {
	tools := []string{ToolColmap, ToolRealityScan, ToolPostshot}
	sort.Strings(tools)
	return tools
}
