package cli

import "soc-console/internal/client/notify"

// Notifier 把用户提示写到终端
type Notifier struct {
	out *Output
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier 创建终端提示器
func NewNotifier(out *Output) *Notifier {
	return &Notifier{out: out}
}

// ShowError 错误提示
func (n *Notifier) ShowError(message string) {
	n.out.Error("%s", message)
}

// ShowWarning 警告提示
func (n *Notifier) ShowWarning(message string) {
	n.out.Warning("%s", message)
}

// ShowInfo 信息提示
func (n *Notifier) ShowInfo(message string) {
	n.out.Info("%s", message)
}
