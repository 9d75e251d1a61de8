package session

import (
	"context"
	"strconv"

	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/core/store"
	"soc-console/internal/settings"
)

// 状态键
const (
	KeyFlowID         = "flowID"
	KeyDarkMode       = "settings.app.dark"
	KeyNavbar         = "settings.app.navbar"
	KeyConfigAdvanced = "settings.config.advanced"
	KeyConfigSearch   = "settings.config.search"
)

// LocalSettings 界面偏好，nil 表示未设置
type LocalSettings struct {
	Dark   *bool
	Navbar *bool
}

// Flags 会话标志
type Flags struct {
	store  store.StateStore
	logger corelog.Logger
}

// NewFlags 创建会话标志
func NewFlags(s store.StateStore, logger corelog.Logger) *Flags {
	return &Flags{store: s, logger: corelog.OrDefault(logger)}
}

// AuthFlowID 返回认证流程 ID
// flow 非空时保存并返回，否则返回之前保存的值（没有时为空）
func (f *Flags) AuthFlowID(ctx context.Context, flow string) (string, error) {
	if flow != "" {
		if err := f.store.Set(ctx, KeyFlowID, flow); err != nil {
			return "", coreerrors.Wrap(err, coreerrors.CodeStorageError, "save flow id")
		}
		return flow, nil
	}
	return f.get(ctx, KeyFlowID)
}

// SaveLocalSettings 保存界面偏好，nil 字段不写入
func (f *Flags) SaveLocalSettings(ctx context.Context, ls LocalSettings) error {
	if err := f.setBool(ctx, KeyDarkMode, ls.Dark); err != nil {
		return err
	}
	return f.setBool(ctx, KeyNavbar, ls.Navbar)
}

// LoadLocalSettings 读取界面偏好
func (f *Flags) LoadLocalSettings(ctx context.Context) (LocalSettings, error) {
	var ls LocalSettings
	var err error
	if ls.Dark, err = f.getBool(ctx, KeyDarkMode); err != nil {
		return LocalSettings{}, err
	}
	if ls.Navbar, err = f.getBool(ctx, KeyNavbar); err != nil {
		return LocalSettings{}, err
	}
	return ls, nil
}

// SaveViewOptions 保存配置页的搜索条件与高级模式
func (f *Flags) SaveViewOptions(ctx context.Context, opts settings.ViewOptions) error {
	adv := opts.Advanced
	if err := f.setBool(ctx, KeyConfigAdvanced, &adv); err != nil {
		return err
	}
	if opts.Search == "" {
		return f.wrap(f.store.Delete(ctx, KeyConfigSearch), KeyConfigSearch)
	}
	return f.wrap(f.store.Set(ctx, KeyConfigSearch, opts.Search), KeyConfigSearch)
}

// LoadViewOptions 读取配置页的搜索条件与高级模式
func (f *Flags) LoadViewOptions(ctx context.Context) (settings.ViewOptions, error) {
	var opts settings.ViewOptions
	adv, err := f.getBool(ctx, KeyConfigAdvanced)
	if err != nil {
		return opts, err
	}
	opts.Advanced = adv != nil && *adv
	if opts.Search, err = f.get(ctx, KeyConfigSearch); err != nil {
		return opts, err
	}
	return opts, nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 内部方法
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (f *Flags) get(ctx context.Context, key string) (string, error) {
	v, err := f.store.Get(ctx, key)
	if store.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", f.wrap(err, key)
	}
	return v, nil
}

func (f *Flags) setBool(ctx context.Context, key string, v *bool) error {
	if v == nil {
		return nil
	}
	return f.wrap(f.store.Set(ctx, key, strconv.FormatBool(*v)), key)
}

func (f *Flags) getBool(ctx context.Context, key string) (*bool, error) {
	raw, err := f.get(ctx, key)
	if err != nil || raw == "" {
		return nil, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		f.logger.Warnf("Session: ignoring malformed value %q for %s", raw, key)
		return nil, nil
	}
	return &b, nil
}

func (f *Flags) wrap(err error, key string) error {
	if err == nil {
		return nil
	}
	return coreerrors.Wrapf(err, coreerrors.CodeStorageError, "state key %s", key)
}
