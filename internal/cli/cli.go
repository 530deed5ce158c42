// Package cli implements the drawbridge command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mlorenz/drawbridge/pkg/buildinfo"
	"github.com/mlorenz/drawbridge/pkg/cache"
	"github.com/mlorenz/drawbridge/pkg/config"
	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/export"
	"github.com/mlorenz/drawbridge/pkg/publish"
	"github.com/mlorenz/drawbridge/pkg/state"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "drawbridge",
		Short:        "Drawbridge syncs draw.io diagrams with Confluence pages",
		Long:         `Drawbridge keeps draw.io diagrams and their Confluence pages in step: it uploads the diagram source and a rendered image as attachments and maintains a generated block (image, source link, link listing) in the page body.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.initCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.linksCommand())
	root.AddCommand(c.newCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.publishAllCommand())
	root.AddCommand(c.checkoutCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace wiring
// =============================================================================

// workspace locates the workspace root and loads its config.
func (c *CLI) workspace() (string, *config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	root := config.FindWorkspaceRoot(cwd)
	if root == "" {
		return "", nil, errors.New(errors.ErrCodeNotConfigured,
			"no %s workspace found here or above; run drawbridge init", config.Dir)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

// newClient builds the Confluence client from config plus environment
// credentials.
func (c *CLI) newClient(cfg *config.Config) (*confluence.Client, error) {
	if !cfg.Configured() {
		return nil, errors.New(errors.ErrCodeNotConfigured,
			"confluence.base_url is not set; edit %s/%s", config.Dir, config.File)
	}
	creds, err := cfg.Confluence.ResolveCredentials()
	if err != nil {
		return nil, err
	}
	return confluence.NewClient(confluence.Options{
		BaseURL:     cfg.Confluence.BaseURL,
		Credentials: creds,
		SSLVerify:   cfg.Confluence.SSLVerify,
	})
}

// newStateStore picks the sync-record backend.
func (c *CLI) newStateStore(ctx context.Context, root string, cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case "", "file":
		return state.NewFileStore(config.StatePath(root))
	case "mongo":
		return state.NewMongoStore(ctx, state.MongoOptions{
			URI:      cfg.State.MongoURI,
			Database: cfg.State.MongoDatabase,
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown state backend %q (use file or mongo)", cfg.State.Backend)
	}
}

// newArtifactCache picks the artifact-cache backend.
func (c *CLI) newArtifactCache(ctx context.Context, root string, cfg *config.Config) cache.Cache {
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache()
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without artifact cache", "error", err)
			return cache.NewNullCache()
		}
		return rc
	default:
		fc, err := cache.NewFileCache(config.CachePath(root))
		if err != nil {
			c.Logger.Warn("file cache unavailable, continuing without artifact cache", "error", err)
			return cache.NewNullCache()
		}
		return fc
	}
}

// newChain wires the exporter chain from config.
func (c *CLI) newChain(ctx context.Context, root string, cfg *config.Config) *export.Chain {
	return export.NewChain(cfg.Editor.DesktopPath, c.newArtifactCache(ctx, root, cfg), c.Logger)
}

// newCoordinator wires the full publish stack. The caller owns the
// returned store's lifetime.
func (c *CLI) newCoordinator(ctx context.Context) (*publish.Coordinator, state.Store, error) {
	root, cfg, err := c.workspace()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	records, err := c.newStateStore(ctx, root, cfg)
	if err != nil {
		return nil, nil, err
	}
	coord := publish.NewCoordinator(client, records, c.newChain(ctx, root, cfg), c.Logger)
	coord.Format = cfg.Export.DefaultFormat
	return coord, records, nil
}
