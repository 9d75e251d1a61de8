package cmd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"soc-console/internal/client/connection"
	"soc-console/internal/console/cli"
	"soc-console/internal/status"
)

func newStatusCommand(app *App) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Wait for the next status event and print a summary",
		Args:  cobra.NoArgs,
		RunE: app.run(func(ctx context.Context, args []string) error {
			return app.statusShow(ctx, wait)
		}),
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 30*time.Second, "How long to wait for a status event")
	return cmd
}

func (a *App) statusShow(ctx context.Context, wait time.Duration) error {
	m, _, err := a.openEvents(ctx)
	if err != nil {
		return err
	}

	var host string
	if u, err := url.Parse(a.Config.Server.BaseURL()); err == nil {
		host = u.Host
	}
	tracker := status.NewTracker(ctx, m, m, a.Notifier, status.Options{
		ConsoleHost:     host,
		RefreshInterval: a.Config.Server.CacheExpiration,
		Refresh: func(ctx context.Context) error {
			_, err := a.API.GetInfo(ctx)
			return err
		},
		Logger: a.Logger,
	})
	a.closers = append(a.closers, tracker)
	a.closers = append(a.closers, closerFunc(m.OnStatus(func(connection.Status) { tracker.UpdateStatus(nil) }).Dispose))
	if err := tracker.Start(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	st, err := tracker.WaitForStatus(waitCtx)
	if err != nil {
		return err
	}
	a.renderStatus(tracker, st)
	return nil
}

func (a *App) renderStatus(tracker *status.Tracker, st status.Status) {
	a.Out.Header("Grid status")
	a.Out.KeyValue("Nodes", fmt.Sprintf("%d", st.Grid.TotalNodeCount))
	unhealthy := fmt.Sprintf("%d", st.Grid.UnhealthyNodeCount)
	if tracker.IsGridUnhealthy() {
		unhealthy = a.Out.Paint("warning", unhealthy)
	}
	a.Out.KeyValue("Unhealthy nodes", unhealthy)
	a.Out.KeyValue("Events/sec", fmt.Sprintf("%.1f", st.Grid.Eps))
	a.Out.KeyValue("New alerts", fmt.Sprintf("%d", st.Alerts.NewCount))

	a.Out.Plain("")
	tbl := cli.NewTable("ENGINE", "STATE")
	tbl.PaintColumn(1, func(s string) string {
		return a.Out.Paint(string(status.EngineState(s).Severity()), s)
	})
	for _, engine := range status.Engines() {
		tbl.AddRow(status.CorrectCasing(engine), string(tracker.DetectionEngineStatus(engine)))
	}
	tbl.Render(a.Out)

	a.Out.Plain("")
	if tracker.IsAttentionNeeded() {
		a.Out.Warning("Attention needed")
	} else {
		a.Out.Success("All good")
	}
}
