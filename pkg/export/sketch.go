package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/mlorenz/drawbridge/pkg/diagram"
	"github.com/mlorenz/drawbridge/pkg/errors"
)

// SketchExporter is the last resort: a graphviz rendering of the
// diagram's page structure and outgoing links. Not a faithful picture,
// but enough for the published page to show what the diagram connects
// to until a real export is available. The output is labelled as a
// sketch so nobody mistakes it for the actual drawing.
type SketchExporter struct{}

func NewSketchExporter() *SketchExporter { return &SketchExporter{} }

func (e *SketchExporter) Name() string { return "sketch" }

func (e *SketchExporter) Export(ctx context.Context, req Request) (*Result, error) {
	var format graphviz.Format
	switch req.Format {
	case "png":
		format = graphviz.PNG
	case "svg":
		format = graphviz.SVG
	default:
		return nil, errors.New(errors.ErrCodeExportFailed, "sketch rendering supports png and svg, not %s", req.Format)
	}

	doc, err := diagram.ParseFile(req.Source)
	if err != nil {
		return nil, err
	}

	data, err := renderDOT(ctx, SketchDOT(doc), format)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExportFailed, err, "rendering sketch")
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExportFailed, err, "writing %s", req.Output)
	}
	return &Result{
		SourceFile: req.Source,
		OutputFile: req.Output,
		Format:     req.Format,
		Method:     "sketch",
	}, nil
}

// SketchDOT builds the DOT source for a document sketch: one box per
// page, one note per distinct link, edges from the diagram root.
func SketchDOT(doc *diagram.Document) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"white\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	root := "root"
	fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,bold\", fillcolor=lightyellow];\n",
		root, doc.Name+"\n(sketch)")

	for i, name := range doc.Pages {
		id := fmt.Sprintf("page%d", i)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", id, name)
		fmt.Fprintf(&buf, "  %q -> %q;\n", root, id)
	}
	for i, link := range doc.Links {
		id := fmt.Sprintf("link%d", i)
		fmt.Fprintf(&buf, "  %q [label=%q, shape=note, fillcolor=lightgrey];\n", id, linkLabel(link))
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", root, id)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func linkLabel(l diagram.Link) string {
	label := strings.TrimSpace(l.Label)
	if label == "" {
		return l.URL
	}
	if label == l.URL {
		return label
	}
	return label + "\n" + l.URL
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
