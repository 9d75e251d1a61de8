package cmd

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"soc-console/internal/console/cli"
	coreerrors "soc-console/internal/core/errors"
	"soc-console/internal/settings"
)

const maskedValue = "********"

// configOptions config 子命令标志
type configOptions struct {
	node          string
	advanced      bool
	filter        string
	link          string
	yes           bool
	clear         bool
	value         string
	showSensitive bool
}

func newConfigCommand(app *App) *cobra.Command {
	opts := &configOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit grid configuration",
		Long: `Inspect and edit the hierarchical grid configuration.

Settings are addressed by their dotted id (e.g. suricata.pcap.enabled). A value
can be set globally or overridden for a single grid node with --node.`,
	}

	tree := &cobra.Command{
		Use:   "tree",
		Short: "Print the configuration tree",
		Args:  cobra.NoArgs,
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.configTree(ctx, opts) }),
	}
	tree.Flags().BoolVarP(&opts.advanced, "advanced", "a", false, "Include advanced settings")
	tree.Flags().StringVarP(&opts.filter, "filter", "f", "", "Only show settings matching the query")
	tree.Flags().StringVar(&opts.link, "link", "", "View parameters as a query string (f=<query>&e=1&a=1)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a setting and its node overrides",
		Args:  cobra.ExactArgs(1),
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.configShow(ctx, args[0], opts) }),
	}
	show.Flags().BoolVar(&opts.showSensitive, "show-sensitive", false, "Print sensitive values")

	set := &cobra.Command{
		Use:   "set <id> <value>",
		Short: "Set a global value or a node override",
		Args:  cobra.ExactArgs(2),
		RunE: app.run(func(ctx context.Context, args []string) error {
			return app.configSet(ctx, args[0], opts.node, args[1])
		}),
	}
	set.Flags().StringVarP(&opts.node, "node", "n", "", "Grid node id for a node override")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a value interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.configEdit(ctx, args[0], opts.node) }),
	}
	edit.Flags().StringVarP(&opts.node, "node", "n", "", "Grid node id for a node override")

	reset := &cobra.Command{
		Use:   "reset <id>",
		Short: "Reset to the default value, or remove a node override with --node",
		Args:  cobra.ExactArgs(1),
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.configReset(ctx, args[0], opts) }),
	}
	reset.Flags().StringVarP(&opts.node, "node", "n", "", "Grid node whose override is removed")
	reset.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")

	addNode := &cobra.Command{
		Use:   "add-node <id> <node> [value]",
		Short: "Add a node override, starting from the default value",
		Args:  cobra.RangeArgs(2, 3),
		RunE: app.run(func(ctx context.Context, args []string) error {
			var value *string
			if len(args) == 3 {
				value = &args[2]
			}
			return app.configAddNode(ctx, args[0], args[1], value)
		}),
	}

	duplicate := &cobra.Command{
		Use:   "duplicate <id> [name]",
		Short: "Duplicate a setting under a new name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: app.run(func(ctx context.Context, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return app.configDuplicate(ctx, args[0], name, opts)
		}),
	}
	duplicate.Flags().StringVar(&opts.value, "value", "", "Value of the new setting (defaults to the original value)")

	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search settings and remember the query",
		Args:  cobra.MaximumNArgs(1),
		RunE: app.run(func(ctx context.Context, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return app.configSearch(ctx, query, opts)
		}),
	}
	search.Flags().BoolVar(&opts.clear, "clear", false, "Clear the remembered query")
	search.Flags().BoolVarP(&opts.advanced, "advanced", "a", false, "Include advanced settings")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export all settings as YAML",
		Args:  cobra.NoArgs,
		RunE:  app.run(func(ctx context.Context, args []string) error { return app.configExport(ctx, opts) }),
	}
	export.Flags().BoolVar(&opts.showSensitive, "show-sensitive", false, "Export sensitive values in clear text")

	cmd.AddCommand(tree, show, set, edit, reset, addNode, duplicate, search, export)
	return cmd
}

// loadSettings 获取服务信息并加载配置项与节点
func (a *App) loadSettings(ctx context.Context) (*settings.Store, error) {
	if _, err := a.bootstrap(ctx); err != nil {
		return nil, err
	}
	s := settings.NewStore(a.API, a.Notifier, settings.Options{Logger: a.Logger})
	if err := s.LoadData(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 查看
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (a *App) configTree(ctx context.Context, opts *configOptions) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}

	view, err := a.Flags.LoadViewOptions(ctx)
	if err != nil {
		return err
	}
	if opts.link != "" {
		q, err := url.ParseQuery(strings.TrimPrefix(opts.link, "?"))
		if err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeInvalidParam, "invalid --link")
		}
		view = settings.ParseViewOptions(q)
	}
	if opts.filter != "" {
		view.Search = opts.filter
	}
	view.Advanced = view.Advanced || opts.advanced
	s.ApplyViewOptions(view)

	nodes, err := settings.BuildTree(s.Visible())
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		a.Out.Info("No settings match %q", view.Search)
		return nil
	}
	return settings.RenderTree(a.Out.Writer(), nodes)
}

func (a *App) configShow(ctx context.Context, id string, opts *configOptions) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	item, ok := s.Setting(id)
	if !ok {
		return coreerrors.Newf(coreerrors.CodeNotFound, "setting %s not found", id)
	}

	mask := func(v string) string {
		if item.Sensitive && !opts.showSensitive && v != "" {
			return maskedValue
		}
		return v
	}

	a.Out.Header(item.DisplayName())
	a.Out.KeyValue("ID", item.ID)
	if d := item.DisplayDescription(); d != item.ID {
		a.Out.KeyValue("Description", d)
	}
	if item.NodeOnly {
		a.Out.KeyValue("Scope", "node only")
	} else {
		a.Out.KeyValue("Value", mask(item.StoredValue("")))
	}
	if item.HasDefault() {
		a.Out.KeyValue("Default", mask(item.DefaultValue()))
	}
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{item.IsReadOnly(), "readonly"},
		{item.IsMultiline(), "multiline"},
		{item.Sensitive, "sensitive"},
		{item.Advanced, "advanced"},
		{item.Duplicates, "duplicable"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		a.Out.KeyValue("Flags", strings.Join(flags, ", "))
	}
	if item.Regex != "" {
		a.Out.KeyValue("Pattern", item.Regex)
	}
	if item.HelpLink != "" {
		a.Out.KeyValue("Help", item.HelpLink)
	}

	if len(item.NodeValues) > 0 {
		a.Out.Plain("")
		tbl := cli.NewTable("NODE", "VALUE")
		ids := make([]string, 0, len(item.NodeValues))
		for nodeID := range item.NodeValues {
			ids = append(ids, nodeID)
		}
		sort.Strings(ids)
		for _, nodeID := range ids {
			tbl.AddRow(nodeID, mask(item.NodeValues[nodeID]))
		}
		tbl.Render(a.Out)
	}
	return nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 修改
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (a *App) checkWritable(s *settings.Store, id string) (*settings.Setting, error) {
	item, ok := s.Setting(id)
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeNotFound, "setting %s not found", id)
	}
	if item.IsReadOnly() {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidState, "setting %s is read-only", id)
	}
	return item, nil
}

func (a *App) save(ctx context.Context, s *settings.Store, id, node, value string) error {
	if err := s.SetValue(value); err != nil {
		return err
	}
	if err := s.Save(ctx, id, node); err != nil {
		return err
	}
	a.Notifier.ShowInfo(settingSavedMessage(id, node))
	return nil
}

func settingSavedMessage(id, node string) string {
	if node == "" {
		return "Saved " + id
	}
	return "Saved " + id + " for node " + node
}

func (a *App) configSet(ctx context.Context, id, node, value string) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	if _, err := a.checkWritable(s, id); err != nil {
		return err
	}
	if err := s.Edit(id, node); err != nil {
		return err
	}
	return a.save(ctx, s, id, node, value)
}

func (a *App) configEdit(ctx context.Context, id, node string) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	item, err := a.checkWritable(s, id)
	if err != nil {
		return err
	}
	if err := s.Edit(id, node); err != nil {
		return err
	}

	prompter, err := cli.NewPrompter(cli.PromptConfig{})
	if err != nil {
		return err
	}
	defer prompter.Close()

	var value string
	if item.IsMultiline() {
		a.Out.Info("Enter the new value, finish with a single '.' line. Current value:")
		a.Out.Plain("%s", s.Session().Value)
		value, err = prompter.ReadMultiline(id)
	} else {
		value, err = prompter.ReadValue(id, s.Session().Value)
	}
	if err != nil {
		s.Cancel(true)
		return err
	}
	if value == s.Session().Value {
		a.Out.Info("No changes")
		return nil
	}
	return a.save(ctx, s, id, node, value)
}

func (a *App) configReset(ctx context.Context, id string, opts *configOptions) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	if _, err := a.checkWritable(s, id); err != nil {
		return err
	}

	if opts.node == "" {
		if err := s.Reset(id); err != nil {
			return err
		}
		return a.save(ctx, s, id, "", s.Session().Value)
	}

	s.Remove(id, opts.node)
	if !opts.yes {
		prompter, err := cli.NewPrompter(cli.PromptConfig{})
		if err != nil {
			return err
		}
		ok, err := prompter.Confirm("Remove the override of " + id + " for node " + opts.node + "?")
		_ = prompter.Close()
		if err != nil || !ok {
			s.CancelRemove()
			a.Out.Info("Cancelled")
			return err
		}
	}
	if err := s.ConfirmRemove(ctx); err != nil {
		return err
	}
	a.Notifier.ShowInfo("Removed override of " + id + " for node " + opts.node)
	return nil
}

func (a *App) configAddNode(ctx context.Context, id, node string, value *string) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	if _, err := a.checkWritable(s, id); err != nil {
		return err
	}
	options, err := s.SelectSetting(id)
	if err != nil {
		return err
	}
	available := false
	for _, o := range options {
		if o.Value == node {
			available = true
			break
		}
	}
	if !available {
		return coreerrors.Newf(coreerrors.CodeInvalidParam, "node %s is not an accepted node without an override of %s", node, id)
	}
	if err := s.AddNode(id, node); err != nil {
		return err
	}
	v := s.Session().Value
	if value != nil {
		v = *value
	}
	return a.save(ctx, s, id, node, v)
}

func (a *App) configDuplicate(ctx context.Context, id, name string, opts *configOptions) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	suggested, err := s.ToggleDuplicate(id)
	if err != nil {
		return err
	}
	if name == "" {
		name = suggested
	}
	clone, err := s.Duplicate(id, name)
	if err != nil {
		return err
	}
	if err := s.Edit(clone.ID, ""); err != nil {
		return err
	}
	value := s.Session().Value
	if opts.value != "" {
		value = opts.value
	}
	return a.save(ctx, s, clone.ID, "", value)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 搜索与导出
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (a *App) configSearch(ctx context.Context, query string, opts *configOptions) error {
	view, err := a.Flags.LoadViewOptions(ctx)
	if err != nil {
		return err
	}
	if opts.clear {
		view.Search = ""
		return a.Flags.SaveViewOptions(ctx, view)
	}
	if query == "" {
		query = view.Search
	}
	if query == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "a search query is required")
	}

	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	s.SetAdvanced(view.Advanced || opts.advanced)
	s.SetSearch(query)
	s.ApplySearchFilter()

	view = s.ViewOptions()
	if err := a.Flags.SaveViewOptions(ctx, view); err != nil {
		return err
	}

	matches := s.Visible()
	if len(matches) == 0 {
		a.Out.Info("No settings match %q", query)
		return nil
	}
	tbl := cli.NewTable("ID", "TITLE")
	for _, item := range matches {
		tbl.AddRow(item.ID, item.DisplayName())
	}
	tbl.Render(a.Out)
	return nil
}

// exportEntry 导出的单个配置项
type exportEntry struct {
	Value   *string           `yaml:"value,omitempty"`
	Default *string           `yaml:"default,omitempty"`
	Nodes   map[string]string `yaml:"nodes,omitempty"`
}

func (a *App) configExport(ctx context.Context, opts *configOptions) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}

	out := make(map[string]exportEntry)
	for _, item := range s.Settings() {
		entry := exportEntry{Value: item.Value, Default: item.Default}
		if len(item.NodeValues) > 0 {
			entry.Nodes = make(map[string]string, len(item.NodeValues))
			for node, v := range item.NodeValues {
				entry.Nodes[node] = v
			}
		}
		if item.Sensitive && !opts.showSensitive {
			entry = maskEntry(entry)
		}
		out[item.ID] = entry
	}

	enc := yaml.NewEncoder(a.Out.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInternal, "encode settings")
	}
	return enc.Close()
}

func maskEntry(e exportEntry) exportEntry {
	masked := maskedValue
	if e.Value != nil {
		e.Value = &masked
	}
	if e.Default != nil {
		e.Default = &masked
	}
	for node := range e.Nodes {
		e.Nodes[node] = masked
	}
	return e
}
