package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/rules"
	"github.com/matzehuels/metricgraph/pkg/session"
)

// connectCommand creates an edge between two cards, subject to the rule
// table and the data-flow cycle guard.
func (c *CLI) connectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <source> <target>",
		Short: "Connect two cards",
		Long: `Connect two cards.

The rule table decides whether the connection is allowed and which category
the edge gets (see "metricgraph rules"). Data-flow edges that would close a
cycle are rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			src, err := resolveNode(sess, args[0])
			if err != nil {
				return err
			}
			tgt, err := resolveNode(sess, args[1])
			if err != nil {
				return err
			}

			e, err := sess.Connect(cmd.Context(), src, tgt)
			if err != nil {
				return err
			}

			printSuccess("Connected %s %s %s", title(sess, src), StyleDim.Render(iconArrow), title(sess, tgt))
			printKeyValue("category", string(e.Category))
			if e.Label != "" {
				printKeyValue("label", e.Label)
			}
			if e.IsRelationship() {
				printKeyValue("kind", string(e.Kind))
				printKeyValue("confidence", string(e.Confidence))
			}
			printDetail("id %s", e.ID)
			return nil
		},
	}
}

// edgesCommand lists edges.
func (c *CLI) edgesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "edges",
		Short: "List edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var edges []graph.Edge
			for _, e := range sess.Edges() {
				if category == "" || string(e.Category) == category {
					edges = append(edges, e)
				}
			}
			if len(edges) == 0 {
				printInfo("No edges in %s", projectLabel(c.project))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEdges(edges, func(id string) string { return title(sess, id) }))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only edges of this category: relationship, data-flow, reference")
	return cmd
}

// disconnectCommand removes one edge.
func (c *CLI) disconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <edge-id>",
		Short: "Remove an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveID("edge", args[0], edgeIDs(sess))
			if err != nil {
				return err
			}
			if err := sess.RemoveEdge(cmd.Context(), id); err != nil {
				return err
			}
			printSuccess("Removed edge %s", shortID(id))
			return nil
		},
	}
}

// rulesCommand prints the connection rule table.
func (c *CLI) rulesCommand() *cobra.Command {
	var source, target string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show which card types may be connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rules.Default()
			out := cmd.OutOrStdout()

			if target != "" {
				t, err := graph.ParseNodeType(target)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "%q", target)
				}
				fmt.Fprintln(out, StyleTitle.Render(iconArrow+" "+string(t)))
				for _, src := range engine.ValidSources(t) {
					fmt.Fprintf(out, "  %-12s %s\n", src, engine.Evaluate(src, t).Category)
				}
				return nil
			}
			if source == "" {
				fmt.Fprintln(out, renderRules(engine.Rules()))
				return nil
			}

			t, err := graph.ParseNodeType(source)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "%q", source)
			}
			targets := engine.ValidTargets(t)
			if len(targets) == 0 {
				printInfo("%s cannot be the source of any connection", t)
				return nil
			}
			fmt.Fprintln(out, StyleTitle.Render(string(t)+" "+iconArrow))
			for _, tgt := range targets {
				d := engine.Evaluate(t, tgt)
				line := fmt.Sprintf("  %-12s %s", tgt, d.Category)
				if d.Label != "" {
					line += StyleDim.Render(" (" + d.Label + ")")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "show the valid targets of one source type")
	cmd.Flags().StringVar(&target, "target", "", "show the valid sources of one target type")
	for _, name := range []string{"source", "target"} {
		_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nodeTypeNames(), cobra.ShellCompDirectiveNoFileComp
		})
	}
	return cmd
}

// title returns a card's title for display, falling back to its short ID.
func title(sess *session.Session, id string) string {
	if n, ok := sess.Node(id); ok {
		return n.Title
	}
	return shortID(id)
}
