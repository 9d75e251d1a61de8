package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"soc-console/internal/version"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show client and server versions",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: app.run(func(ctx context.Context, args []string) error {
			info := version.Get()
			app.Out.KeyValue("Client", info.String())
			app.Out.KeyValue("Go", info.GoVersion)
			if app.API == nil {
				return nil
			}

			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			server, err := app.API.GetInfo(ctx)
			if err != nil {
				app.Out.KeyValue("Server", "unreachable ("+err.Error()+")")
				return nil
			}
			app.Out.KeyValue("Server", "v"+server.Version)
			return nil
		}),
	}
}
