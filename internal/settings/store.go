package settings

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"soc-console/internal/client"
	"soc-console/internal/client/notify"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/grid"
)

// Backend 配置存储依赖的后端接口，*client.APIClient 实现了该接口
type Backend interface {
	ListGridMembers(ctx context.Context) ([]client.GridMemberRecord, error)
	ListSettings(ctx context.Context) ([]client.SettingRecord, error)
	PutSetting(ctx context.Context, update client.SettingUpdate) error
	DeleteSetting(ctx context.Context, id, nodeID string) error
}

var (
	// ErrEditPending 另一个编辑会话有未保存的修改
	ErrEditPending = coreerrors.New(coreerrors.CodeInvalidState, "another edit is pending")
	// ErrNoEditSession 当前没有编辑会话
	ErrNoEditSession = coreerrors.New(coreerrors.CodeInvalidState, "no edit session")
)

// EditSession 唯一的编辑会话，NodeID 为空表示编辑全局值
type EditSession struct {
	SettingID string
	NodeID    string
	Value     string
}

// Key 会话目标：节点编辑为节点 ID，全局编辑为配置项 ID
func (e *EditSession) Key() string {
	if e.NodeID != "" {
		return e.NodeID
	}
	return e.SettingID
}

// Targets 会话是否指向 (settingID, nodeID)
func (e *EditSession) Targets(settingID, nodeID string) bool {
	return e != nil && e.SettingID == settingID && e.NodeID == nodeID
}

// NodeOption 可添加覆盖值的节点
type NodeOption struct {
	Text  string
	Value string
}

// Options 配置存储选项
type Options struct {
	Logger corelog.Logger
}

// Store 分层配置存储
// 所有状态变更在 mu 保护下进行；网络请求在释放锁后发出，成功后再应用结果
type Store struct {
	backend  Backend
	notifier notify.Notifier
	logger   corelog.Logger

	mu       sync.Mutex
	settings []*Setting
	byID     map[string]*Setting
	nodes    []grid.Node
	session  *EditSession

	cancelRequested bool
	active          string

	confirmReset bool
	resetTarget  *EditSession

	duplicateID   string
	showDuplicate bool

	search       string
	searchFilter string
	view         ViewOptions
}

// NewStore 创建配置存储
func NewStore(backend Backend, notifier notify.Notifier, opts Options) *Store {
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: opts.Logger}
	}
	return &Store{
		backend:  backend,
		notifier: notifier,
		logger:   corelog.OrDefault(opts.Logger),
		byID:     make(map[string]*Setting),
	}
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 加载
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// LoadData 并发获取节点列表与配置记录，合并后重建配置树
// 任一请求失败或配置树冲突时通知用户并保留原有状态
func (s *Store) LoadData(ctx context.Context) error {
	var (
		members []client.GridMemberRecord
		records []client.SettingRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.backend.ListGridMembers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.backend.ListSettings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warnf("Settings: failed to load data: %v", err)
		s.notifier.ShowError(coreerrors.Message(err))
		return err
	}

	merged := MergeRecords(records)
	if _, err := BuildTree(merged); err != nil {
		s.logger.Errorf("Settings: failed to build settings tree: %v", err)
		s.notifier.ShowError(err.Error())
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = grid.NodesFromRecords(members)
	s.replaceSettings(merged)
	s.logger.Infof("Settings: loaded %d settings and %d grid members", len(merged), len(members))
	return nil
}

func (s *Store) replaceSettings(list []*Setting) {
	s.settings = list
	s.byID = make(map[string]*Setting, len(list))
	for _, item := range list {
		s.byID[item.ID] = item
	}
}

// Settings 返回所有配置项的副本，顺序与加载顺序一致
func (s *Store) Settings() []*Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneSettings()
}

func (s *Store) cloneSettings() []*Setting {
	result := make([]*Setting, 0, len(s.settings))
	for _, item := range s.settings {
		result = append(result, item.Clone())
	}
	return result
}

// Setting 按 ID 返回配置项副本
func (s *Store) Setting(id string) (*Setting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Nodes 返回节点缓存
func (s *Store) Nodes() []grid.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grid.Node(nil), s.nodes...)
}

// Tree 由当前配置项重新生成配置树
func (s *Store) Tree() ([]*TreeNode, error) {
	s.mu.Lock()
	list := s.cloneSettings()
	s.mu.Unlock()
	return BuildTree(list)
}

func (s *Store) lookup(id string) (*Setting, error) {
	item, ok := s.byID[id]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeNotFound, "setting %s not found", id)
	}
	return item, nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 编辑会话
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Session 返回当前编辑会话的副本，无会话时返回 nil
func (s *Store) Session() *EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	c := *s.session
	return &c
}

// CancelRequested 是否需要用户确认放弃未保存的修改
func (s *Store) CancelRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRequested
}

// sessionPending 当前会话的值与目标槽位保存的值不同
func (s *Store) sessionPending() bool {
	if s.session == nil {
		return false
	}
	item, ok := s.byID[s.session.SettingID]
	if !ok {
		return true
	}
	return s.session.Value != item.StoredValue(s.session.NodeID)
}

// blockedBy 是否有指向其他目标且未保存的会话；若有则要求确认放弃
func (s *Store) blockedBy(settingID, nodeID string) bool {
	if s.session == nil || s.session.Targets(settingID, nodeID) || !s.sessionPending() {
		return false
	}
	s.cancelRequested = true
	return true
}

func (s *Store) begin(settingID, nodeID, value string) {
	s.session = &EditSession{SettingID: settingID, NodeID: nodeID, Value: value}
	s.cancelRequested = false
}

func (s *Store) discard() {
	s.session = nil
	s.cancelRequested = false
}

// Edit 开始编辑 (setting, nodeID)，值取节点覆盖值或全局值
// 其他目标存在未保存修改时返回 ErrEditPending 并要求确认，原会话保持不变
func (s *Store) Edit(settingID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return err
	}
	if s.blockedBy(settingID, nodeID) {
		return ErrEditPending
	}
	if s.session.Targets(settingID, nodeID) {
		return nil
	}
	s.begin(settingID, nodeID, item.EffectiveValue(nodeID))
	return nil
}

// SetValue 修改编辑中的值
func (s *Store) SetValue(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoEditSession
	}
	s.session.Value = value
	return nil
}

// IsPendingSave 会话指向 (setting, nodeID) 且值与保存的值不同
func (s *Store) IsPendingSave(settingID, nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Targets(settingID, nodeID) {
		return false
	}
	return s.sessionPending()
}

// Cancel 放弃编辑；force 为 false 且有未保存修改时仅要求确认
func (s *Store) Cancel(force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && s.sessionPending() {
		s.cancelRequested = true
		return false
	}
	s.discard()
	return true
}

// Save 校验并提交编辑中的值
// 校验失败时通知用户、保留会话且不发出请求；提交成功后写入本地模型并结束会话
func (s *Store) Save(ctx context.Context, settingID, nodeID string) error {
	s.mu.Lock()
	if !s.session.Targets(settingID, nodeID) {
		s.mu.Unlock()
		return ErrNoEditSession
	}
	item, err := s.lookup(settingID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	session := s.session
	value, err := ValidateValue(item, session.Value)
	s.mu.Unlock()

	if err != nil {
		s.logger.Debugf("Settings: rejected value for %s: %v", settingID, err)
		s.notifier.ShowError(FailureMessage(err))
		return err
	}

	update := client.SettingUpdate{ID: settingID, NodeID: nodeID, Value: value}
	if err := s.backend.PutSetting(ctx, update); err != nil {
		s.logger.Warnf("Settings: failed to save %s: %v", settingID, err)
		s.notifier.ShowError(coreerrors.Message(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.byID[settingID]; ok {
		if nodeID == "" {
			item.Value = strPtr(value)
		} else {
			item.NodeValues[nodeID] = value
		}
	}
	if s.session == session {
		s.discard()
	}
	s.logger.Infof("Settings: saved %s (node=%q)", settingID, nodeID)
	return nil
}

// Reset 将配置项默认值放入全局编辑会话，保存后生效
// 没有默认值时返回错误且不改变会话
func (s *Store) Reset(settingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return err
	}
	if !item.HasDefault() {
		return coreerrors.Newf(coreerrors.CodeInvalidState, "setting %s has no default value", settingID)
	}
	s.begin(settingID, "", item.DefaultValue())
	return nil
}

// AddNode 为节点添加覆盖值（以默认值为初始值）并开始编辑
// 其他目标存在未保存修改时返回 ErrEditPending，节点已有覆盖值时返回 CodeConflict，均不做任何修改
func (s *Store) AddNode(settingID, nodeID string) error {
	if nodeID == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "node id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return err
	}
	if item.HasOverride(nodeID) {
		return coreerrors.Newf(coreerrors.CodeConflict, "node %s already overrides %s", nodeID, settingID)
	}
	if s.blockedBy(settingID, nodeID) {
		return ErrEditPending
	}
	value := item.DefaultValue()
	item.NodeValues[nodeID] = value
	s.begin(settingID, nodeID, value)
	return nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 删除节点覆盖值
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Remove 请求删除节点覆盖值，等待 ConfirmRemove
func (s *Store) Remove(settingID, nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTarget = &EditSession{SettingID: settingID, NodeID: nodeID}
	s.confirmReset = true
}

// CancelRemove 取消删除请求
func (s *Store) CancelRemove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTarget = nil
	s.confirmReset = false
}

// RemoveTarget 返回待确认的删除目标
func (s *Store) RemoveTarget() (settingID, nodeID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTarget == nil {
		return "", "", false
	}
	return s.resetTarget.SettingID, s.resetTarget.NodeID, s.confirmReset
}

// ConfirmRemove 删除待确认的节点覆盖值，覆盖值不存在视为成功
func (s *Store) ConfirmRemove(ctx context.Context) error {
	s.mu.Lock()
	target := s.resetTarget
	s.mu.Unlock()
	if target == nil {
		return coreerrors.New(coreerrors.CodeInvalidState, "no override removal requested")
	}
	return s.ResetNode(ctx, target.SettingID, target.NodeID)
}

// ResetNode 删除节点覆盖值，恢复为全局值
func (s *Store) ResetNode(ctx context.Context, settingID, nodeID string) error {
	if settingID == "" || nodeID == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "setting id and node id are required")
	}
	err := s.backend.DeleteSetting(ctx, settingID, nodeID)
	if err != nil && !coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		s.logger.Warnf("Settings: failed to reset %s on node %s: %v", settingID, nodeID, err)
		s.notifier.ShowError(coreerrors.Message(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.byID[settingID]; ok {
		delete(item.NodeValues, nodeID)
	}
	s.resetTarget = nil
	s.confirmReset = false
	s.discard()
	s.logger.Infof("Settings: reset %s on node %s", settingID, nodeID)
	return nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 选择与复制
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SelectSetting 选中配置项，返回可添加覆盖值的节点并清除确认状态
func (s *Store) SelectSetting(settingID string) ([]NodeOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return nil, err
	}
	s.active = settingID
	s.cancelRequested = false
	s.confirmReset = false
	return s.availableNodes(item), nil
}

// AvailableNodes 已接受、有名称且尚无覆盖值的节点
func (s *Store) AvailableNodes(settingID string) []NodeOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.byID[settingID]
	if !ok {
		return nil
	}
	return s.availableNodes(item)
}

func (s *Store) availableNodes(item *Setting) []NodeOption {
	var options []NodeOption
	for _, n := range s.nodes {
		if !n.IsAccepted() || n.Name == "" || item.HasOverride(n.ID) {
			continue
		}
		options = append(options, NodeOption{Text: n.Label(), Value: n.ID})
	}
	return options
}

// FindActiveSetting 返回当前选中的配置项
func (s *Store) FindActiveSetting() (*Setting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return nil, false
	}
	item, ok := s.byID[s.active]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// ToggleDuplicate 切换复制对话框，建议的新名称为 "<name>_dup"
func (s *Store) ToggleDuplicate(settingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return "", err
	}
	s.duplicateID = item.Name + "_dup"
	s.showDuplicate = !s.showDuplicate
	return s.duplicateID, nil
}

// DuplicateState 返回复制对话框状态与建议名称
func (s *Store) DuplicateState() (show bool, suggested string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showDuplicate, s.duplicateID
}

// Duplicate 深拷贝允许复制的配置项，将最后一段替换为 name 后追加到列表
// 新 ID 与已有配置项或分组冲突时返回 ConflictError
func (s *Store) Duplicate(settingID, name string) (*Setting, error) {
	if name == "" || strings.Contains(name, ".") {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidParam, "invalid setting name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.lookup(settingID)
	if err != nil {
		return nil, err
	}
	if !item.Duplicates {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidState, "setting %s cannot be duplicated", settingID)
	}

	clone := item.Clone()
	clone.Name = name
	if parent := ParentOf(settingID); parent != "" {
		clone.ID = parent + "." + name
	} else {
		clone.ID = name
	}
	if _, exists := s.byID[clone.ID]; exists {
		return nil, &ConflictError{Name: name}
	}

	candidate := append(append([]*Setting(nil), s.settings...), clone)
	if _, err := BuildTree(candidate); err != nil {
		return nil, err
	}
	s.replaceSettings(candidate)
	s.showDuplicate = false
	s.logger.Infof("Settings: duplicated %s as %s", settingID, clone.ID)
	return clone.Clone(), nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 搜索
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SetSearch 设置搜索输入，ApplySearchFilter 后生效
func (s *Store) SetSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = query
}

// ApplySearchFilter 应用当前搜索输入
func (s *Store) ApplySearchFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchFilter = s.search
}

// ClearFilter 清空搜索输入与过滤条件
func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = ""
	s.searchFilter = ""
}

// Search 返回搜索输入与已应用的过滤条件
func (s *Store) Search() (search, filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search, s.searchFilter
}

// Filter 配置项是否匹配查询
func (s *Store) Filter(settingID, query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.byID[settingID]
	return ok && item.Matches(query)
}

// Visible 返回匹配当前过滤条件的配置项；未开启高级模式时隐藏高级配置项
func (s *Store) Visible() []*Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Setting
	for _, item := range s.settings {
		if item.Advanced && !s.view.Advanced {
			continue
		}
		if item.Matches(s.searchFilter) {
			result = append(result, item.Clone())
		}
	}
	return result
}

// ApplyViewOptions 应用视图参数：搜索词立即生效
func (s *Store) ApplyViewOptions(opts ViewOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Search != "" {
		s.search = opts.Search
		s.searchFilter = opts.Search
	}
	s.view.AutoExpand = opts.AutoExpand
	if opts.Advanced {
		s.view.Advanced = true
	}
}

// SetAdvanced 开启或关闭高级模式
func (s *Store) SetAdvanced(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Advanced = enabled
}

// ViewOptions 返回当前视图参数
func (s *Store) ViewOptions() ViewOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.view
	opts.Search = s.searchFilter
	return opts
}
