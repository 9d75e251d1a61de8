// Package cmd 控制台命令行
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"soc-console/internal/config/loader"
	"soc-console/internal/config/schema"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/version"
)

// annotationOffline 命令不要求配置服务地址
const annotationOffline = "offline"

// rootOptions 全局标志
type rootOptions struct {
	configFile string
	server     string
	token      schema.Secret
	logLevel   string
	noColor    bool
	insecure   bool
	timeout    time.Duration
}

// overrides 命令行标志覆盖配置文件与环境变量
func (o *rootOptions) overrides(cfg *schema.Root) error {
	if o.server != "" {
		cfg.Server.URL = o.server
	}
	if !o.token.IsEmpty() {
		cfg.Server.Token = o.token
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.noColor {
		cfg.Output.NoColor = true
	}
	if o.insecure {
		cfg.Server.InsecureSkipVerify = true
	}
	if o.timeout > 0 {
		cfg.Server.APITimeout = o.timeout
	}
	return nil
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	app := &App{}

	root := &cobra.Command{
		Use:   "console",
		Short: "Security Onion console - grid configuration and events from the terminal",
		Long: `console talks to a Security Onion manager over its HTTP API and event channel.

Examples:
  console config tree
  console config set soc.server.maxPacketCount 5000
  console config set --node sensor1 suricata.pcap.enabled true
  console grid list
  console events watch status`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file path")
	flags.StringVarP(&opts.server, "server", "s", "", "Console base URL (e.g. https://manager.example/)")
	flags.Var(&opts.token, "token", "Bearer token for API requests")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug/info/warn/error")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.DurationVar(&opts.timeout, "timeout", 0, "API request timeout")

	root.AddCommand(
		newConfigCommand(app),
		newGridCommand(app),
		newEventsCommand(app),
		newStatusCommand(app),
		newSessionCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute 执行根命令并返回进程退出码
func Execute() int {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("FATAL: main goroutine panic recovered: %v", r)
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// reportError 输出错误，未授权时给出登录地址
func reportError(w io.Writer, err error) {
	if coreerrors.IsCode(err, coreerrors.CodeUnauthorized) {
		var e *coreerrors.Error
		if coreerrors.As(err, &e) && e.Detail(loginDetail) != "" {
			fmt.Fprintf(w, "Login required. Open %s in a browser and retry.\n", e.Detail(loginDetail))
			return
		}
	}
	fmt.Fprintf(w, "Error: %s\n", coreerrors.Message(err))
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*schema.Root, error) {
	return loader.NewLoaderBuilder().
		WithConfigFile(opts.configFile).
		WithOverrides(opts.overrides).
		WithSkipValidate(isOffline(cmd)).
		Build().
		Load()
}

// isOffline 命令或其上级命令标注为离线；help 与 completion 也不需要服务地址
func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationOffline] == "true" || c.Name() == "help" || c.Name() == "completion" {
			return true
		}
	}
	return false
}
