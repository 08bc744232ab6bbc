package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/config"
	"github.com/matzehuels/metricgraph/pkg/errors"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
)

// initCommand writes a project configuration file.
func (c *CLI) initCommand() *cobra.Command {
	var (
		direction string
		noAuto    bool
		backend   string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project configuration",
		Long: `Create project.toml for the current project.

The file selects the store backend and the layout settings. Commands work
without it, using the defaults shown by "metricgraph init --force".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configPath(c.project)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ErrCodeDuplicateID, "%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if direction != "" {
				cfg.Layout.Direction = direction
			}
			cfg.Layout.Auto = !noAuto
			if backend != "" {
				cfg.Store.Backend = backend
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}

			printSuccess("Initialized %s", projectLabel(c.project))
			printFile(path)
			printKeyValue("store", cfg.Store.Backend)
			printKeyValue("direction", cfg.Layout.Direction)
			printKeyValue("auto-layout", strconv.FormatBool(cfg.Layout.Auto))
			printNextStep("Add a card", "metricgraph node add metric \"Revenue\"")
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "layout direction: TB, BT, LR or RL")
	cmd.Flags().BoolVar(&noAuto, "no-auto", false, "disable auto-layout after structural changes")
	cmd.Flags().StringVar(&backend, "backend", "", "store backend: file, memory, redis, mongo")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration")

	return cmd
}

// projectsCommand lists projects in the store.
func (c *CLI) projectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(c.project)
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No projects in the %s store", st.Backend().Name())
				return nil
			}
			for _, id := range ids {
				marker := " "
				if id == c.project {
					marker = StyleHighlight.Render(iconArrow)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id)
			}
			return nil
		},
	}
}

// importCommand replaces the project's graph with a JSON snapshot or export.
func (c *CLI) importCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON snapshot or export into the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := mgio.ImportJSON(args[0])
			if err != nil {
				return err
			}
			if cycle := mgio.DataFlowCycle(g); cycle != nil {
				printWarning("data-flow edges form a cycle: %v", cycle)
			}

			cfg, err := c.loadConfig(c.project)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			existing, err := st.Load(ctx, c.project)
			switch {
			case err == nil && len(existing.Nodes) > 0 && !force:
				return errors.New(errors.ErrCodeDuplicateID, "project %s is not empty (use --force to replace it)", c.project)
			case err != nil && !errors.Is(err, errors.ErrCodeProjectNotFound):
				return err
			}

			snap := g.Snapshot(c.project)
			if err := st.Save(ctx, snap); err != nil {
				return err
			}
			printSuccess("Imported into %s", projectLabel(c.project))
			printStats(len(snap.Nodes), len(snap.Edges))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace a non-empty project")
	return cmd
}
