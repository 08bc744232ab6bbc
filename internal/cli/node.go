package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
)

// nodeCommand groups card editing subcommands.
func (c *CLI) nodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes"},
		Short:   "Add, list, move and remove cards",
	}
	cmd.AddCommand(c.nodeAddCommand())
	cmd.AddCommand(c.nodeListCommand())
	cmd.AddCommand(c.nodeMoveCommand())
	cmd.AddCommand(c.nodeRemoveCommand())
	return cmd
}

func (c *CLI) nodeAddCommand() *cobra.Command {
	var (
		n    graph.Node
		tags string
		x, y float64
	)

	cmd := &cobra.Command{
		Use:               "add <type> <title>",
		Short:             "Add a card",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeNodeTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := graph.ParseNodeType(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "%q", args[0])
			}
			n.Type = t
			n.Title = args[1]
			n.Tags = splitList(tags)
			n.Position = graph.Position{X: x, Y: y}

			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			added, err := sess.AddNode(cmd.Context(), n)
			if err != nil {
				return err
			}
			printSuccess("Added %s %s", added.Type, StyleValue.Render(added.Title))
			printDetail("id %s", added.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&n.ID, "id", "", "card ID (default: a new UUID)")
	f.StringVarP(&n.Description, "description", "d", "", "description")
	f.StringVarP(&tags, "tag", "t", "", "comma-separated tags")
	f.StringVar(&n.Owner, "owner", "", "owner")
	f.StringVar(&n.Category, "category", "", "category")
	f.Float64Var(&x, "x", 0, "x position")
	f.Float64Var(&y, "y", 0, "y position")
	return cmd
}

func (c *CLI) nodeListCommand() *cobra.Command {
	var (
		types  string
		filter graph.Filter
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range splitList(types) {
				t, err := graph.ParseNodeType(s)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "%q", s)
				}
				filter.Types = append(filter.Types, t)
			}

			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			nodes := sess.Nodes(filter)
			if len(nodes) == 0 {
				printInfo("No cards in %s", projectLabel(c.project))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNodes(nodes))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&types, "type", "", "comma-separated node types")
	f.StringVar(&filter.Tag, "tag", "", "only cards with this tag")
	f.StringVar(&filter.Owner, "owner", "", "only cards with this owner")
	f.StringVar(&filter.Category, "category", "", "only cards in this category")
	f.StringVarP(&filter.Query, "query", "q", "", "substring of title or description")
	return cmd
}

func (c *CLI) nodeMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Move a card",
		Long:  "Move a card. Moving never triggers auto-layout.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "x")
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "y")
			}

			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveNode(sess, args[0])
			if err != nil {
				return err
			}
			if err := sess.MoveNode(cmd.Context(), id, graph.Position{X: x, Y: y}); err != nil {
				return err
			}
			printSuccess("Moved %s to %g,%g", shortID(id), x, y)
			return nil
		},
	}
}

func (c *CLI) nodeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a card and its edges",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveNode(sess, args[0])
			if err != nil {
				return err
			}
			removed, err := sess.RemoveNode(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSuccess("Removed %s", shortID(id))
			if len(removed) > 0 {
				printDetail("%d edges removed", len(removed))
			}
			return nil
		},
	}
}
