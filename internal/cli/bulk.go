package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
	"github.com/matzehuels/metricgraph/pkg/session"
)

// bulkRun opens the project, resolves args into the items to act on and
// runs op. With no args the user picks cards interactively and op receives
// a nil list, meaning the session selection.
func (c *CLI) bulkRun(ctx context.Context, args []string, verb string, op func(sess *session.Session, ids []string) error) error {
	sess, closeFn, err := c.openSession(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if len(args) > 0 {
		ids, err := resolveItems(sess, args)
		if err != nil {
			return err
		}
		return op(sess, ids)
	}

	picked, err := pickNodes("Select cards to "+verb, sess.Nodes(graph.Filter{}))
	if err != nil {
		return err
	}
	if len(picked) == 0 {
		printInfo("Nothing selected")
		return nil
	}
	if err := sess.Select(picked...); err != nil {
		return err
	}
	return op(sess, nil)
}

// updateCommand patches fields on many cards or edges.
func (c *CLI) updateCommand() *cobra.Command {
	var (
		edges      bool
		category   string
		owner      string
		tags       string
		assignees  string
		kind       string
		confidence string
		weight     float64
	)

	cmd := &cobra.Command{
		Use:   "update [ids...]",
		Short: "Update fields on many cards or edges",
		Long: `Update fields on many cards or, with --edges, many relationship edges.

Only the flags given are written. Card flags: --category, --owner, --tags,
--assignees. Edge flags: --kind, --confidence, --weight.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			patch := bulk.Patch{Target: bulk.TargetNodes}
			if edges {
				patch.Target = bulk.TargetEdges
				if len(args) == 0 {
					return errors.New(errors.ErrCodeInvalidInput, "--edges needs edge IDs")
				}
				if f.Changed("kind") {
					k := graph.RelationshipKind(kind)
					patch.Edge.Kind = &k
				}
				if f.Changed("confidence") {
					conf := graph.Confidence(confidence)
					patch.Edge.Confidence = &conf
				}
				if f.Changed("weight") {
					patch.Edge.Weight = &weight
				}
			} else {
				if f.Changed("category") {
					patch.Node.Category = &category
				}
				if f.Changed("owner") {
					patch.Node.Owner = &owner
				}
				// A changed flag replaces the list, even with an empty value.
				if f.Changed("tags") {
					patch.Node.Tags = append([]string{}, splitList(tags)...)
				}
				if f.Changed("assignees") {
					patch.Node.Assignees = append([]string{}, splitList(assignees)...)
				}
			}

			return c.bulkRun(cmd.Context(), args, "update", func(sess *session.Session, ids []string) error {
				return printResult(sess.Bulk().Update(cmd.Context(), ids, patch))
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&edges, "edges", false, "update relationship edges instead of cards")
	f.StringVar(&category, "category", "", "set the category")
	f.StringVar(&owner, "owner", "", "set the owner")
	f.StringVar(&tags, "tags", "", "replace tags (comma-separated)")
	f.StringVar(&assignees, "assignees", "", "replace assignees (comma-separated)")
	f.StringVar(&kind, "kind", "", "relationship kind: deterministic, probabilistic, causal, compositional")
	f.StringVar(&confidence, "confidence", "", "confidence: low, medium, high")
	f.Float64Var(&weight, "weight", 0, "relationship weight")
	return cmd
}

// tagCommand adds or removes tags on many cards.
func (c *CLI) tagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove tags on many cards",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <tags> [ids...]",
		Short: "Add comma-separated tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags := splitList(args[0])
			return c.bulkRun(cmd.Context(), args[1:], "tag", func(sess *session.Session, ids []string) error {
				return printResult(sess.Bulk().AddTags(cmd.Context(), ids, tags))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <tags> [ids...]",
		Short: "Remove comma-separated tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags := splitList(args[0])
			return c.bulkRun(cmd.Context(), args[1:], "untag", func(sess *session.Session, ids []string) error {
				return printResult(sess.Bulk().RemoveTags(cmd.Context(), ids, tags))
			})
		},
	})

	return cmd
}

// deleteCommand removes many cards and edges.
func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [ids...]",
		Short: "Delete many cards and edges",
		Long:  "Delete cards (with the edges touching them) and edges. Items that fail are reported; the rest are deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bulkRun(cmd.Context(), args, "delete", func(sess *session.Session, ids []string) error {
				return printResult(sess.Bulk().Delete(cmd.Context(), ids))
			})
		},
	}
}

// duplicateCommand copies many cards.
func (c *CLI) duplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate [ids...]",
		Short: "Duplicate many cards",
		Long:  `Duplicate cards. Copies get new IDs, a " (copy)" title suffix and an offset position. Edges are not copied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bulkRun(cmd.Context(), args, "duplicate", func(sess *session.Session, ids []string) error {
				return printResult(sess.Bulk().Duplicate(cmd.Context(), ids))
			})
		},
	}
}

// exportCommand writes cards and their edges as JSON or CSV.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [ids...]",
		Short: "Export cards as JSON or CSV",
		Long: `Export cards as JSON (with the edges touching them) or CSV (cards only).

The default output file is <project>-export-<timestamp>.<format>. Use -o - for stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := mgio.ParseFormat(format)
			if err != nil {
				return err
			}
			return c.bulkRun(cmd.Context(), args, "export", func(sess *session.Session, ids []string) error {
				data, res := sess.Bulk().Export(cmd.Context(), ids, f)
				if err := res.Err(); err != nil {
					return printResult(res)
				}

				if output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				path := output
				if path == "" {
					path = mgio.FileName(c.project, f, time.Now())
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printSuccess("Exported %d cards", res.Processed)
				printFile(path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format: json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}
