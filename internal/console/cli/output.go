// Package cli 控制台终端输出：彩色消息、表格、交互输入
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 彩色输出
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// ColorEnabled 输出为终端且未禁用颜色时返回 true
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || f == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Output 结构化输出
type Output struct {
	w io.Writer

	success *color.Color
	err     *color.Color
	warning *color.Color
	info    *color.Color
	bold    *color.Color
	faint   *color.Color
}

// NewOutput 创建输出工具，colored 为 false 时输出纯文本
func NewOutput(w io.Writer, colored bool) *Output {
	o := &Output{
		w:       w,
		success: color.New(color.FgGreen),
		err:     color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{o.success, o.err, o.warning, o.info, o.bold, o.faint} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// Writer 底层输出
func (o *Output) Writer() io.Writer {
	return o.w
}

// Success 输出成功消息
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.success.Sprint("✔"), fmt.Sprintf(format, args...))
}

// Error 输出错误消息
func (o *Output) Error(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.err.Sprint("✖"), fmt.Sprintf(format, args...))
}

// Warning 输出警告消息
func (o *Output) Warning(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.warning.Sprint("!"), fmt.Sprintf(format, args...))
}

// Info 输出信息消息
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Fprintf(o.w, "%s %s\n", o.info.Sprint("i"), fmt.Sprintf(format, args...))
}

// Plain 输出普通消息
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Header 输出标题
func (o *Output) Header(title string) {
	fmt.Fprintln(o.w, o.bold.Sprint(title))
	fmt.Fprintln(o.w, strings.Repeat("━", len(title)))
}

// KeyValue 输出键值对
func (o *Output) KeyValue(key, value string) {
	fmt.Fprintf(o.w, "  %s %s\n", o.bold.Sprint(padRight(key+":", 22)), value)
}

// Paint 按名称着色：success、error、warning，其余原样返回
func (o *Output) Paint(name, text string) string {
	switch name {
	case "success":
		return o.success.Sprint(text)
	case "error":
		return o.err.Sprint(text)
	case "warning":
		return o.warning.Sprint(text)
	case "faint", "gray":
		return o.faint.Sprint(text)
	default:
		return text
	}
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 表格
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Table 文本表格，列宽按未着色的内容计算
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
	paint   map[int]func(string) string
}

// NewTable 创建表格
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{
		headers: headers,
		widths:  widths,
		paint:   make(map[int]func(string) string),
	}
}

// PaintColumn 设置列的着色函数
func (t *Table) PaintColumn(col int, fn func(string) string) {
	t.paint[col] = fn
}

// AddRow 添加行，多余的列被忽略
func (t *Table) AddRow(cols ...string) {
	row := make([]string, len(t.headers))
	copy(row, cols)
	for i, col := range row {
		if len(col) > t.widths[i] {
			t.widths[i] = len(col)
		}
	}
	t.rows = append(t.rows, row)
}

// Len 行数
func (t *Table) Len() int {
	return len(t.rows)
}

// Render 渲染到输出
func (t *Table) Render(o *Output) {
	cells := make([]string, len(t.headers))
	for i, h := range t.headers {
		cells[i] = o.bold.Sprint(padRight(h, t.widths[i]))
	}
	fmt.Fprintln(o.w, strings.TrimRight(strings.Join(cells, "  "), " "))

	total := 0
	for _, w := range t.widths {
		total += w + 2
	}
	fmt.Fprintln(o.w, strings.Repeat("─", min(total-2, 120)))

	for _, row := range t.rows {
		for i, col := range row {
			cell := padRight(col, t.widths[i])
			if fn, ok := t.paint[i]; ok && col != "" {
				cell = fn(col) + strings.Repeat(" ", t.widths[i]-len(col))
			}
			cells[i] = cell
		}
		fmt.Fprintln(o.w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
