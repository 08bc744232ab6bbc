// Package cli implements the metricgraph command-line interface.
//
// Every command works on one project, chosen with --project, whose canvas
// lives in the store named by the project's project.toml. The CLI opens a
// [session.Session] per invocation, so connection rules, the cycle guard and
// auto-layout apply exactly as they do behind the HTTP API.
//
// # Commands
//
//   - init, projects, import: manage projects
//   - node add|list|move|rm: edit cards
//   - connect, edges, disconnect: edit edges through the rule engine
//   - rules: print the connection table
//   - layout: compute positions with the layered layout
//   - update, tag, delete, duplicate, export: bulk operations
//   - serve: run the HTTP API
//   - cache: manage the layout cache
//
// Bulk commands take node or edge IDs (unique prefixes are accepted). With
// no IDs they open an interactive picker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/buildinfo"
	"github.com/matzehuels/metricgraph/pkg/cache"
	"github.com/matzehuels/metricgraph/pkg/config"
	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/layout"
	"github.com/matzehuels/metricgraph/pkg/session"
	"github.com/matzehuels/metricgraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "metricgraph"

	// defaultProject is used when --project is not given.
	defaultProject = "default"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	dataDir string
	project string
	backend string
	noCache bool

	// sharedCache, when set, replaces the file cache. serve uses it so all
	// open projects share one in-process cache.
	sharedCache cache.Cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "metricgraph edits graphs of metric cards",
		Long:          `metricgraph builds graphs of business metrics, pipeline steps and evidence, checks every connection against a rule table, and lays the graph out automatically.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			installHooks(c.Logger)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/metricgraph)")
	flags.StringVarP(&c.project, "project", "p", defaultProject, "project ID")
	flags.StringVar(&c.backend, "store", "", "override the store backend: file, memory, redis, mongo")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the layout cache")

	root.AddCommand(c.initCommand())
	root.AddCommand(c.projectsCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.nodeCommand())
	root.AddCommand(c.connectCommand())
	root.AddCommand(c.edgesCommand())
	root.AddCommand(c.disconnectCommand())
	root.AddCommand(c.rulesCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.tagCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.duplicateCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Session Factory
// =============================================================================

// loadConfig reads the project's configuration, falling back to defaults.
func (c *CLI) loadConfig(project string) (config.Config, error) {
	path, err := c.configPath(project)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, err
	}
	if c.backend != "" {
		cfg.Store.Backend = c.backend
	}
	return cfg, cfg.Validate()
}

// openStore opens the store named by cfg.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (*store.Documents, error) {
	dir, err := c.resolveDataDir()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store, dir, c.Logger)
}

// newLayoutEngine builds the layout engine, backed by the file cache unless
// caching is disabled or the cache directory is unusable. Keys are scoped per
// project so two projects never share cached positions.
func (c *CLI) newLayoutEngine(project string) *layout.Engine {
	opts := []layout.EngineOption{layout.WithLogger(c.Logger)}
	if lc, err := c.newCache(); err == nil {
		keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "project:"+project+":")
		opts = append(opts, layout.WithCache(lc, keyer))
	} else {
		c.Logger.Debug("layout cache disabled", "err", err)
	}
	return layout.NewEngine(opts...)
}

func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	if c.sharedCache != nil {
		return c.sharedCache, nil
	}
	dir, err := layoutCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(dir)
}

// openSession opens the current project. The returned close function ends
// the session (running any pending auto-layout) and closes the store.
func (c *CLI) openSession(ctx context.Context) (*session.Session, func(), error) {
	return c.openProject(ctx, c.project)
}

func (c *CLI) openProject(ctx context.Context, project string) (*session.Session, func(), error) {
	cfg, err := c.loadConfig(project)
	if err != nil {
		return nil, nil, err
	}
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	path, _ := c.configPath(project)
	sess, err := session.Open(ctx, st, project, cfg,
		session.WithLogger(c.Logger),
		session.WithLayoutEngine(c.newLayoutEngine(project)),
		session.WithConfigPath(path),
	)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := sess.Close(ctx); err != nil {
			c.Logger.Warn("close session", "err", err)
		}
		if err := st.Close(); err != nil {
			c.Logger.Warn("close store", "err", err)
		}
	}
	return sess, closeFn, nil
}

// =============================================================================
// Paths
// =============================================================================

// resolveDataDir returns --data-dir or the XDG data directory
// (~/.local/share/metricgraph/).
func (c *CLI) resolveDataDir() (string, error) {
	if c.dataDir != "" {
		return c.dataDir, nil
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// configPath returns <data-dir>/<project>/project.toml.
func (c *CLI) configPath(project string) (string, error) {
	if err := errors.ValidateProjectID(project); err != nil {
		return "", err
	}
	dir, err := c.resolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, project, config.FileName), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/metricgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// splitList parses a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveID maps an exact ID or a unique ID prefix to a full ID. ids lists
// the candidates.
func resolveID(kind, arg string, ids []string) (string, error) {
	var match string
	for _, id := range ids {
		if id == arg {
			return id, nil
		}
		if strings.HasPrefix(id, arg) {
			if match != "" {
				return "", errors.New(errors.ErrCodeInvalidInput, "%s prefix %q is ambiguous", kind, arg)
			}
			match = id
		}
	}
	if match == "" {
		return "", errors.New(errors.ErrCodeNotFound, "%s %q not found", kind, arg)
	}
	return match, nil
}

func nodeIDs(sess *session.Session) []string {
	nodes := sess.Nodes(graph.Filter{})
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeIDs(sess *session.Session) []string {
	edges := sess.Edges()
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.ID
	}
	return ids
}

// resolveNode resolves one node argument.
func resolveNode(sess *session.Session, arg string) (string, error) {
	return resolveID("node", arg, nodeIDs(sess))
}

// resolveItems resolves bulk arguments against nodes, then edges.
func resolveItems(sess *session.Session, args []string) ([]string, error) {
	nodes, edges := nodeIDs(sess), edgeIDs(sess)
	out := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := resolveID("node", arg, nodes)
		if errors.Is(err, errors.ErrCodeNotFound) {
			id, err = resolveID("edge", arg, edges)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func nodeTypeNames() []string {
	types := graph.NodeTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// shortID abbreviates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func projectLabel(project string) string {
	return fmt.Sprintf("project %s", StyleHighlight.Render(project))
}
