package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"soc-console/internal/client"
	"soc-console/internal/client/connection"
	"soc-console/internal/core/events"
)

func newEventsCommand(app *App) *cobra.Command {
	var (
		count    int
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the server event channel",
	}

	watch := &cobra.Command{
		Use:   "watch [kind...]",
		Short: "Print events as they arrive (default kinds: status, import, detection-sync)",
		RunE: app.run(func(ctx context.Context, args []string) error {
			kinds := make([]events.Kind, 0, len(args))
			for _, k := range args {
				kinds = append(kinds, events.Kind(k))
			}
			if len(kinds) == 0 {
				kinds = []events.Kind{events.KindStatus, events.KindImport, events.KindDetectionSync}
			}
			return app.eventsWatch(ctx, kinds, count, duration)
		}),
	}
	watch.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many events (0 = unlimited)")
	watch.Flags().DurationVarP(&duration, "duration", "d", 0, "Exit after this long (0 = until interrupted)")

	cmd.AddCommand(watch)
	return cmd
}

// openEvents 获取服务信息后创建事件通道，连接在首次订阅时建立
func (a *App) openEvents(ctx context.Context) (*connection.Manager, *client.ServerInfo, error) {
	info, err := a.bootstrap(ctx)
	if err != nil {
		return nil, nil, err
	}

	interval := a.Config.Server.WebSocketTimeout
	if ms := info.Parameters.WebSocketTimeoutMs; ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	header := http.Header{}
	if token := a.API.ServerToken(); token != "" {
		header.Set(client.HeaderSrvToken, token)
	}
	if token := a.Config.Server.Token.Value(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	m := connection.NewManager(ctx, connection.Options{
		URL:                a.Config.Server.WebSocketURL(),
		LivenessInterval:   interval,
		Header:             header,
		InsecureSkipVerify: a.Config.Server.InsecureSkipVerify,
		Logger:             a.Logger,
	}, nil)
	a.closers = append(a.closers, m)
	return m, info, nil
}

func (a *App) eventsWatch(ctx context.Context, kinds []events.Kind, count int, duration time.Duration) error {
	m, _, err := a.openEvents(ctx)
	if err != nil {
		return err
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	// 返回时释放阻塞在 received 上的监听器，读协程才能退出
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	received := make(chan *events.Envelope, 64)
	listener := events.NewListener(func(env *events.Envelope) error {
		select {
		case received <- env:
		case <-ctx.Done():
		}
		return nil
	})

	status := m.OnStatus(func(st connection.Status) {
		switch {
		case st.Connected():
			a.Logger.Debugf("Console: event channel connected (epoch %d)", st.Epoch)
		case st.Err != nil:
			a.Logger.Warnf("Console: event channel down: %v", st.Err)
		}
	})
	defer status.Dispose()

	for _, kind := range kinds {
		sub, err := m.Subscribe(kind, listener)
		if err != nil {
			return err
		}
		defer sub.Dispose()
	}

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-received:
			a.Out.Plain("%s %s %s", time.Now().Format(time.RFC3339), env.Kind, string(env.Object))
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}
