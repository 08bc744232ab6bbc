package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/layout"
)

// layoutCommand recomputes every card position, optionally changing the
// project's layout settings first.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		direction string
		auto      string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Lay out the graph",
		Long: `Lay out the graph with a layered drawing.

--direction and --auto change the project's layout settings and are saved
to project.toml. Layout results are cached per graph and settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			sess, closeFn, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if direction != "" || auto != "" {
				lc := sess.Config().Layout
				if direction != "" {
					d, err := layout.ParseDirection(direction)
					if err != nil {
						return errors.Wrap(errors.ErrCodeInvalidConfig, err, "--direction")
					}
					lc.Direction = string(d)
				}
				if auto != "" {
					v, err := strconv.ParseBool(auto)
					if err != nil {
						return errors.Wrap(errors.ErrCodeInvalidConfig, err, "--auto")
					}
					lc.Auto = v
				}
				if err := sess.SetLayoutConfig(lc); err != nil {
					return err
				}
				logger.Debug("layout settings saved", "direction", lc.Direction, "auto", lc.Auto)
			}

			prog := newProgress(logger)
			spin := newSpinner(ctx, "Computing layout...")
			spin.Start()
			res, err := sess.Layout(ctx)
			spin.Stop()
			if err != nil {
				return err
			}
			if spin.Cancelled() {
				return ctx.Err()
			}

			snap := sess.Snapshot()
			prog.done(fmt.Sprintf("Laid out %d nodes", len(snap.Nodes)))
			printSuccess("Layout %s: %s nodes moved", sess.Config().Layout.Direction, StyleNumber.Render(strconv.Itoa(res.Moved)))
			printStats(len(snap.Nodes), len(snap.Edges))
			for _, issue := range res.Issues {
				printWarning("%s", issue)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "set the layout direction: TB, BT, LR or RL")
	cmd.Flags().StringVar(&auto, "auto", "", "turn auto-layout on or off (true/false)")
	return cmd
}
