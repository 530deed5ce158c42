// Package preview serves a local rendering of the block a publish
// would install on the wiki page, so the result can be reviewed before
// anything is written remotely.
package preview

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mlorenz/drawbridge/pkg/diagram"
	"github.com/mlorenz/drawbridge/pkg/export"
	"github.com/mlorenz/drawbridge/pkg/publish"
)

// Server previews one diagram. The diagram is re-parsed and
// re-exported on every page load, so saving in the editor and
// refreshing the browser is the whole workflow.
type Server struct {
	diagramPath string
	exporter    publish.ImageExporter
	logger      *log.Logger
	format      string
}

// New creates a preview server for the given diagram file.
func New(diagramPath string, exporter publish.ImageExporter, format string, logger *log.Logger) *Server {
	if format == "" {
		format = "png"
	}
	return &Server{
		diagramPath: diagramPath,
		exporter:    exporter,
		logger:      logger,
		format:      format,
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/image", s.handleImage)
	r.Get("/block", s.handleBlock)

	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	if s.logger != nil {
		s.logger.Info("preview running", "url", "http://"+addr, "diagram", filepath.Base(s.diagramPath))
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}} — preview</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 900px; margin: 2rem auto; padding: 0 1rem; color: #172b4d; }
  img { max-width: 100%; display: block; margin: 0 auto; border: 1px solid #dfe1e6; }
  .source { color: #6b778c; font-style: italic; }
  h3 { border-bottom: 2px solid #dfe1e6; padding-bottom: .3rem; }
  .note { background: #fffae6; padding: .5rem 1rem; border-radius: 3px; font-size: .9rem; }
</style>
</head>
<body>
<p class="note">Preview of the block <code>publish</code> will install. Refresh after saving the diagram.</p>
<h2>{{.Name}}</h2>
{{if .HasImage}}<img src="/image" alt="{{.Name}}">{{else}}<p class="note">No image could be rendered; the publish would run without one.</p>{{end}}
<p class="source">Source: {{.SourceFile}}</p>
{{if .Links}}
<h3>Links in this diagram</h3>
<ul>
{{range .Links}}  <li><a href="{{.URL}}">{{.Label}}</a></li>
{{end}}</ul>
{{end}}
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := diagram.ParseFile(s.diagramPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	_, exportErr := s.export(r.Context())
	if exportErr != nil && s.logger != nil {
		s.logger.Warn("preview export failed", "error", exportErr)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pageTemplate.Execute(w, struct {
		Name       string
		SourceFile string
		HasImage   bool
		Links      []diagram.Link
	}{
		Name:       doc.Name,
		SourceFile: filepath.Base(s.diagramPath),
		HasImage:   exportErr == nil,
		Links:      doc.Links,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	out, err := s.export(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	data, err := os.ReadFile(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.MediaType(s.format))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// handleBlock returns the raw storage-format fragment, handy for
// pasting into the wiki editor by hand.
func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	doc, err := diagram.ParseFile(s.diagramPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	stem := strings.TrimSuffix(filepath.Base(s.diagramPath), filepath.Ext(s.diagramPath))
	block := publish.RenderBlock("", fmt.Sprintf("%s.%s", stem, s.format), filepath.Base(s.diagramPath), doc.Links)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(block))
}

func (s *Server) export(ctx context.Context) (string, error) {
	res, err := s.exporter.Export(ctx, export.Request{Source: s.diagramPath, Format: s.format})
	if err != nil {
		return "", err
	}
	return res.OutputFile, nil
}
