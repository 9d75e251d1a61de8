package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"soc-console/internal/client"
	"soc-console/internal/client/notify"
	"soc-console/internal/config/schema"
	"soc-console/internal/console/cli"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/core/store"
	"soc-console/internal/session"
)

const loginDetail = client.DetailLoginURL

// App 一次命令执行共享的依赖
type App struct {
	Config   *schema.Root
	Logger   corelog.Logger
	Out      *cli.Output
	Notifier notify.Notifier
	API      *client.APIClient
	State    store.StateStore
	Flags    *session.Flags

	closers []io.Closer
}

// setup 加载配置并创建依赖，失败时释放已创建的资源
func (a *App) setup(cmd *cobra.Command, opts *rootOptions) (err error) {
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	a.Config = cfg

	logger, closer, err := corelog.New(cfg.Log.Logger())
	if err != nil {
		return err
	}
	a.Logger = logger
	a.closers = append(a.closers, closer)

	out := cmd.OutOrStdout()
	colored := false
	if f, ok := out.(*os.File); ok {
		colored = cli.ColorEnabled(f, cfg.Output.NoColor)
	}
	a.Out = cli.NewOutput(out, colored)
	a.Notifier = cli.NewNotifier(a.Out)

	if cfg.Server.URL != "" {
		a.API = client.NewAPIClient(cfg.Server, logger)
	}

	state, err := session.OpenStateStore(cmd.Context(), cfg.State, logger)
	if err != nil {
		return err
	}
	a.State = state
	a.Flags = session.NewFlags(state, logger)
	a.closers = append(a.closers, state)
	return nil
}

// Close 释放资源，按创建的逆序关闭
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// run 包装命令实现，返回后释放资源
func (a *App) run(fn func(ctx context.Context, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd.Context(), args)
		if cerr := a.Close(); err == nil {
			err = cerr
		}
		return err
	}
}

// bootstrap 获取服务信息（服务端令牌、超时参数）
func (a *App) bootstrap(ctx context.Context) (*client.ServerInfo, error) {
	info, err := a.API.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	a.Logger.Debugf("Console: connected to server version %s", info.Version)
	return info, nil
}

// closerFunc 将函数适配为 io.Closer
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
