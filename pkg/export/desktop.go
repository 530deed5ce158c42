package export

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

// exportTimeout bounds one desktop invocation. The app occasionally
// hangs on malformed containers; a hung export degrades the publish
// instead of blocking it.
const exportTimeout = 60 * time.Second

// DesktopExporter renders through the draw.io desktop application's
// headless export mode (drawio -x).
type DesktopExporter struct {
	binary string
}

// NewDesktopExporter creates the exporter. An empty binary path means
// auto-detection per platform at export time.
func NewDesktopExporter(binary string) *DesktopExporter {
	return &DesktopExporter{binary: binary}
}

func (e *DesktopExporter) Name() string { return "desktop" }

func (e *DesktopExporter) Export(ctx context.Context, req Request) (*Result, error) {
	binary := e.binary
	if binary == "" {
		binary = FindDesktopBinary()
	}
	if binary == "" {
		return nil, errors.New(errors.ErrCodeExportFailed, "draw.io desktop app not found")
	}

	args := []string{"-x", "-f", req.Format, "-o", req.Output}
	if req.Format == "png" && req.Scale != 1 {
		args = append(args, "-s", strconv.Itoa(req.Scale))
	}
	args = append(args, req.Source)

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.New(errors.ErrCodeExportFailed, "export timed out after %s", exportTimeout)
	}
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return nil, errors.New(errors.ErrCodeExportFailed, "drawio export failed: %s", detail)
	}
	if _, err := os.Stat(req.Output); err != nil {
		return nil, errors.New(errors.ErrCodeExportFailed, "export reported success but %s was not created", req.Output)
	}
	return &Result{
		SourceFile: req.Source,
		OutputFile: req.Output,
		Format:     req.Format,
		Method:     "desktop",
	}, nil
}

// FindDesktopBinary locates the draw.io desktop app, checking PATH and
// the platform's usual install locations. Returns "" when absent.
func FindDesktopBinary() string {
	for _, name := range []string{"drawio", "draw.io"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		candidates = []string{
			"/Applications/draw.io.app/Contents/MacOS/draw.io",
			filepath.Join(home, "Applications", "draw.io.app", "Contents", "MacOS", "draw.io"),
		}
	case "windows":
		candidates = []string{
			filepath.Join(os.Getenv("PROGRAMFILES"), "draw.io", "draw.io.exe"),
			filepath.Join(os.Getenv("PROGRAMFILES(X86)"), "draw.io", "draw.io.exe"),
			`C:\Program Files\draw.io\draw.io.exe`,
		}
	default:
		home, _ := os.UserHomeDir()
		candidates = []string{
			"/usr/bin/drawio",
			"/usr/local/bin/drawio",
			"/opt/drawio/drawio",
			filepath.Join(home, ".local", "bin", "drawio"),
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
