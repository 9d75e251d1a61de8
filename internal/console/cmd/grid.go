package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"soc-console/internal/console/cli"
	"soc-console/internal/grid"
)

func newGridCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "List and manage grid members",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List grid members grouped by status",
		Args:  cobra.NoArgs,
		RunE:  app.run(app.gridList),
	}

	action := func(use, short string, fn func(v *grid.View, ctx context.Context, id string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: app.run(func(ctx context.Context, args []string) error {
				v, err := app.gridView(ctx)
				if err != nil {
					return err
				}
				return fn(v, ctx, args[0])
			}),
		}
	}

	cmd.AddCommand(
		list,
		action("accept", "Accept a pending grid member", (*grid.View).Accept),
		action("reject", "Reject a pending grid member", (*grid.View).Reject),
		action("delete", "Delete a grid member", (*grid.View).Delete),
	)
	return cmd
}

func (a *App) gridView(ctx context.Context) (*grid.View, error) {
	if _, err := a.bootstrap(ctx); err != nil {
		return nil, err
	}
	return grid.NewView(a.API, a.Notifier, grid.ViewOptions{
		CacheExpiration: a.Config.Server.CacheExpiration,
		Logger:          a.Logger,
	})
}

func (a *App) gridList(ctx context.Context, _ []string) error {
	v, err := a.gridView(ctx)
	if err != nil {
		return err
	}
	buckets, err := v.Load(ctx)
	if err != nil {
		return err
	}
	if buckets.Total() == 0 {
		a.Out.Info("No grid members")
		return nil
	}

	tbl := cli.NewTable("ID", "NAME", "ROLE", "STATUS", "VERSION")
	tbl.PaintColumn(3, func(s string) string {
		return a.Out.Paint(string(grid.ColorForStatus(grid.Status(s))), s)
	})
	for _, group := range [][]grid.Node{buckets.Unaccepted, buckets.Accepted, buckets.Rejected, buckets.Denied} {
		for _, n := range group {
			tbl.AddRow(n.ID, n.Name, n.Role, string(n.Status), n.Version)
		}
	}
	tbl.Render(a.Out)
	return nil
}
