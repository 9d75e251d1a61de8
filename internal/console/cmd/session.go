package cmd

import (
	"context"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	coreerrors "soc-console/internal/core/errors"
	"soc-console/internal/session"
)

func newSessionCommand(app *App) *cobra.Command {
	var dark, navbar string

	cmd := &cobra.Command{
		Use:         "session",
		Short:       "Show and change console-local session state",
		Annotations: map[string]string{annotationOffline: "true"},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show stored session flags",
		Args:  cobra.NoArgs,
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.sessionShow(ctx) }),
	}

	flow := &cobra.Command{
		Use:   "flow [id]",
		Short: "Remember an authentication flow id, or print the stored one",
		Args:  cobra.MaximumNArgs(1),
		RunE: app.run(func(ctx context.Context, args []string) error {
			given := ""
			if len(args) == 1 {
				given = args[0]
			}
			id, err := app.Flags.AuthFlowID(ctx, given)
			if err != nil {
				return err
			}
			if id == "" {
				app.Out.Info("No authentication flow stored")
				return nil
			}
			app.Out.Plain("%s", id)
			return nil
		}),
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Print the browser login URL",
		Args:  cobra.NoArgs,
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.sessionLogin(ctx) }),
	}

	prefs := &cobra.Command{
		Use:   "prefs",
		Short: "Set interface preferences",
		Args:  cobra.NoArgs,
		RunE: app.run(func(ctx context.Context, args []string) error {
			var ls session.LocalSettings
			var err error
			if ls.Dark, err = parseOptionalBool("dark", dark); err != nil {
				return err
			}
			if ls.Navbar, err = parseOptionalBool("navbar", navbar); err != nil {
				return err
			}
			if err := app.Flags.SaveLocalSettings(ctx, ls); err != nil {
				return err
			}
			return app.sessionShow(ctx)
		}),
	}
	prefs.Flags().StringVar(&dark, "dark", "", "Dark mode (true/false)")
	prefs.Flags().StringVar(&navbar, "navbar", "", "Show the navigation bar (true/false)")

	cmd.AddCommand(show, flow, login, prefs)
	return cmd
}

func parseOptionalBool(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidParam, "--%s expects true or false, got %q", name, raw)
	}
	return &b, nil
}

func (a *App) sessionShow(ctx context.Context) error {
	flow, err := a.Flags.AuthFlowID(ctx, "")
	if err != nil {
		return err
	}
	ls, err := a.Flags.LoadLocalSettings(ctx)
	if err != nil {
		return err
	}
	view, err := a.Flags.LoadViewOptions(ctx)
	if err != nil {
		return err
	}

	a.Out.KeyValue("Flow", orUnset(flow))
	a.Out.KeyValue("Dark mode", boolOrUnset(ls.Dark))
	a.Out.KeyValue("Navbar", boolOrUnset(ls.Navbar))
	a.Out.KeyValue("Config search", orUnset(view.Search))
	a.Out.KeyValue("Advanced", strconv.FormatBool(view.Advanced))
	return nil
}

func (a *App) sessionLogin(ctx context.Context) error {
	if a.Config.Server.URL == "" {
		return coreerrors.New(coreerrors.CodeConfigError, "server url is not configured")
	}
	target := a.Config.Server.LoginURL()
	flow, err := a.Flags.AuthFlowID(ctx, "")
	if err != nil {
		return err
	}
	if flow != "" {
		target += "?" + url.Values{"flow": {flow}}.Encode()
	}
	a.Out.Plain("%s", target)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boolOrUnset(b *bool) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatBool(*b)
}
