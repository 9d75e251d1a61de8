// Package notify 用户通知模块
// 核心组件不直接渲染消息，而是调用 Notifier 的 error/warning/info 接口
package notify

import (
	"strings"
	"sync"

	corelog "soc-console/internal/core/log"
)

// Level 通知级别
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// String 返回级别名称
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier 通知接口，参数为消息键或已格式化的文本
type Notifier interface {
	ShowError(message string)
	ShowWarning(message string)
	ShowInfo(message string)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 消息键
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

const (
	KeyGridMemberImportNoChanges = "gridMemberImportNoChanges"
	KeyGridMemberImportSuccess   = "gridMemberImportSuccess"
	KeyGridMemberAcceptSuccess   = "gridMemberAcceptSuccess"
	KeySyncSuccess               = "syncSuccess"
	KeySyncPartialSuccess        = "syncPartialSuccess"
	KeySyncFailure               = "syncFailure"
	KeySettingValidationFailed   = "settingValidationFailed"
	KeySettingSaveSuccess        = "settingSaveSuccess"
)

var messages = map[string]string{
	KeyGridMemberImportNoChanges: "The import completed, but no changes were necessary.",
	KeyGridMemberImportSuccess:   "Import successful: {url}",
	KeyGridMemberAcceptSuccess:   "The grid member was accepted and will join the grid shortly.",
	KeySyncSuccess:               "{engine} synchronization completed successfully.",
	KeySyncPartialSuccess:        "{engine} synchronization completed with errors.",
	KeySyncFailure:               "{engine} synchronization failed.",
	KeySettingValidationFailed:   "The value provided is not valid for this setting.",
	KeySettingSaveSuccess:        "Setting saved.",
}

// Text 返回消息键对应的文本，未知键原样返回
func Text(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Format 查找消息键并替换 {name} 占位符
func Format(key string, params map[string]string) string {
	msg := Text(key)
	for name, value := range params {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 内置实现
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// LogNotifier 仅记录日志的通知器
type LogNotifier struct {
	Logger corelog.Logger
}

func (n *LogNotifier) logger() corelog.Logger {
	return corelog.OrDefault(n.Logger)
}

func (n *LogNotifier) ShowError(message string) {
	n.logger().Errorf("Notify: %s", Text(message))
}

func (n *LogNotifier) ShowWarning(message string) {
	n.logger().Warnf("Notify: %s", Text(message))
}

func (n *LogNotifier) ShowInfo(message string) {
	n.logger().Infof("Notify: %s", Text(message))
}

// Dispatcher 通知分发器，将每条通知转发给所有注册的 Notifier
type Dispatcher struct {
	notifiers []Notifier
	mu        sync.RWMutex
}

// NewDispatcher 创建通知分发器
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: append([]Notifier(nil), notifiers...),
	}
}

// Add 添加通知器
func (d *Dispatcher) Add(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// Remove 移除通知器
func (d *Dispatcher) Remove(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.notifiers {
		if existing == n {
			d.notifiers = append(d.notifiers[:i], d.notifiers[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) snapshot() []Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]Notifier, len(d.notifiers))
	copy(result, d.notifiers)
	return result
}

func (d *Dispatcher) ShowError(message string) {
	for _, n := range d.snapshot() {
		n.ShowError(message)
	}
}

func (d *Dispatcher) ShowWarning(message string) {
	for _, n := range d.snapshot() {
		n.ShowWarning(message)
	}
}

func (d *Dispatcher) ShowInfo(message string) {
	for _, n := range d.snapshot() {
		n.ShowInfo(message)
	}
}

// Notification 记录的一条通知
type Notification struct {
	Level   Level
	Message string
}

// Recorder 记录所有通知，供测试与批处理命令使用
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// NewRecorder 创建记录器
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message})
}

func (r *Recorder) ShowError(message string)   { r.add(LevelError, message) }
func (r *Recorder) ShowWarning(message string) { r.add(LevelWarning, message) }
func (r *Recorder) ShowInfo(message string)    { r.add(LevelInfo, message) }

// All 返回全部通知的副本
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Messages 返回指定级别的消息
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, n := range r.items {
		if n.Level == level {
			result = append(result, n.Message)
		}
	}
	return result
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
