package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"

	coreerrors "soc-console/internal/core/errors"
)

// ErrAborted 用户中断输入
var ErrAborted = coreerrors.New(coreerrors.CodeInvalidState, "input aborted")

// multilineEnd 多行输入的结束标记
const multilineEnd = "."

// PromptConfig 交互输入配置，Stdin/Stdout 为空时使用终端
type PromptConfig struct {
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Prompter 基于 readline 的交互输入
type Prompter struct {
	rl *readline.Instance
}

// NewPrompter 创建交互输入
func NewPrompter(cfg PromptConfig) (*Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdin:           cfg.Stdin,
		Stdout:          cfg.Stdout,
	})
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "initialize readline")
	}
	return &Prompter{rl: rl}, nil
}

// Close 关闭
func (p *Prompter) Close() error {
	return p.rl.Close()
}

// ReadValue 读取单行值，initial 作为可编辑的初始内容
func (p *Prompter) ReadValue(label, initial string) (string, error) {
	p.rl.SetPrompt(label + "> ")
	line, err := p.rl.ReadlineWithDefault(initial)
	if err != nil {
		return "", mapReadErr(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadMultiline 读取多行值，单独一行 "." 结束
func (p *Prompter) ReadMultiline(label string) (string, error) {
	p.rl.SetPrompt(label + "| ")
	var lines []string
	for {
		line, err := p.rl.Readline()
		if errors.Is(err, io.EOF) && len(lines) > 0 {
			break
		}
		if err != nil {
			return "", mapReadErr(err)
		}
		if line == multilineEnd {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// Confirm 是非确认，默认否
func (p *Prompter) Confirm(question string) (bool, error) {
	p.rl.SetPrompt(question + " [y/N] ")
	line, err := p.rl.Readline()
	if err != nil {
		return false, mapReadErr(err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func mapReadErr(err error) error {
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return ErrAborted
	}
	return err
}
