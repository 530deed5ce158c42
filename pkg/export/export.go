// Package export renders draw.io containers to image artifacts.
//
// Rendering needs the draw.io desktop application, which is not always
// installed. Export therefore runs a fallback chain: the desktop CLI
// first, then a previously produced artifact (a sibling file at least as
// new as the source, or the content-addressed artifact cache), and
// finally a graphviz sketch built from the diagram's shapes and links.
// Only when every strategy fails does the export fail as a whole.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mlorenz/drawbridge/pkg/cache"
	"github.com/mlorenz/drawbridge/pkg/errors"
)

// Supported export formats, first entry is the default.
var Formats = []string{"png", "svg", "pdf", "jpg", "gif", "webp"}

const artifactTTL = 30 * 24 * time.Hour

// Request describes one export operation.
type Request struct {
	// Source is the path to the .drawio container.
	Source string
	// Output is the artifact path; empty means a sibling of Source
	// named after its stem.
	Output string
	// Format is the artifact format; empty means png.
	Format string
	// Scale multiplies raster output resolution. Zero means 2.
	Scale int
	// Force skips artifact reuse and renders fresh.
	Force bool
}

func (r *Request) normalize() error {
	if r.Source == "" {
		return errors.New(errors.ErrCodeInvalidPath, "no source file given")
	}
	abs, err := filepath.Abs(r.Source)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolving %s", r.Source)
	}
	r.Source = abs
	if _, err := os.Stat(r.Source); err != nil {
		return errors.New(errors.ErrCodeInvalidPath, "source file not found: %s", r.Source)
	}
	if r.Format == "" {
		r.Format = "png"
	}
	if r.Scale == 0 {
		r.Scale = 2
	}
	if r.Output == "" {
		r.Output = filepath.Join(filepath.Dir(r.Source), Filename(r.Source, r.Format))
	}
	return nil
}

// Result reports a completed export.
type Result struct {
	SourceFile string
	OutputFile string
	Format     string
	// Method names the strategy that produced the artifact:
	// "desktop", "sibling", "cache" or "sketch".
	Method string
}

// Exporter is one strategy in the chain.
type Exporter interface {
	Name() string
	Export(ctx context.Context, req Request) (*Result, error)
}

// Filename derives the artifact name from the source stem.
func Filename(source, format string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "." + format
}

// MediaType returns the MIME type for a supported format.
func MediaType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	case "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Chain runs exporters in order until one succeeds. Successful renders
// are stored in the artifact cache keyed by source content hash, so a
// later run without the desktop app can still publish the image.
type Chain struct {
	exporters []Exporter
	cache     cache.Cache
	logger    *log.Logger
}

// NewChain assembles the default chain for the given desktop binary
// path (empty means auto-detect) and artifact cache.
func NewChain(desktopBinary string, artifacts cache.Cache, logger *log.Logger) *Chain {
	if artifacts == nil {
		artifacts = cache.NewNullCache()
	}
	return &Chain{
		exporters: []Exporter{
			NewDesktopExporter(desktopBinary),
			NewSiblingExporter(),
			NewArtifactExporter(artifacts),
			NewSketchExporter(),
		},
		cache:  artifacts,
		logger: logger,
	}
}

// NewChainWith builds a chain from explicit exporters, for tests and
// custom setups.
func NewChainWith(artifacts cache.Cache, logger *log.Logger, exporters ...Exporter) *Chain {
	if artifacts == nil {
		artifacts = cache.NewNullCache()
	}
	return &Chain{exporters: exporters, cache: artifacts, logger: logger}
}

// Export runs the chain. When Force is set, reuse strategies (sibling
// and cache) are skipped so the diagram is rendered fresh.
func (c *Chain) Export(ctx context.Context, req Request) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	var failures []string
	for _, exp := range c.exporters {
		if req.Force && reusesExisting(exp) {
			continue
		}
		res, err := exp.Export(ctx, req)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug("export strategy failed", "strategy", exp.Name(), "error", err)
			}
			failures = append(failures, exp.Name()+": "+err.Error())
			continue
		}
		if c.logger != nil {
			c.logger.Debug("exported", "strategy", exp.Name(), "output", res.OutputFile)
		}
		c.store(ctx, req, res)
		return res, nil
	}
	return nil, errors.New(errors.ErrCodeExportAllFailed,
		"every export strategy failed for %s:\n  %s",
		filepath.Base(req.Source), strings.Join(failures, "\n  "))
}

func reusesExisting(e Exporter) bool {
	switch e.Name() {
	case "sibling", "cache":
		return true
	}
	return false
}

// store records a freshly rendered artifact in the cache. Reused
// artifacts are not re-stored, and sketches never shadow a real render
// already cached for the same source.
func (c *Chain) store(ctx context.Context, req Request, res *Result) {
	if res.Method == "sibling" || res.Method == "cache" {
		return
	}
	src, err := os.ReadFile(req.Source)
	if err != nil {
		return
	}
	key := cache.ArtifactKey(cache.Hash(src), req.Format)
	if res.Method == "sketch" {
		if _, ok, _ := c.cache.Get(ctx, key); ok {
			return
		}
	}
	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, artifactTTL); err != nil && c.logger != nil {
		c.logger.Debug("caching artifact failed", "error", err)
	}
}
