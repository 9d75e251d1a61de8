package settings

import (
	"fmt"
	"io"
	"strings"

	coreerrors "soc-console/internal/core/errors"
)

// ConflictError 配置名与同一路径上另一类型的节点冲突
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Setting name '%s' conflicts with another similarly named setting", e.Name)
}

// Unwrap 使 errors.Is(err, coreerrors.ErrConflict) 与 IsCode(err, CodeConflict) 成立
func (e *ConflictError) Unwrap() error {
	return coreerrors.ErrConflict
}

// TreeNode 配置树节点：分组节点有 Children，叶子节点有 Setting
type TreeNode struct {
	ID       string
	Name     string
	Children []*TreeNode
	Setting  *Setting
}

// IsLeaf 是否为叶子节点
func (n *TreeNode) IsLeaf() bool {
	return n.Setting != nil
}

// BuildTree 按点分 ID 构建配置树
// 同级节点保持配置项首次出现的顺序；路径段与已有的不同类型节点同名时返回 ConflictError
func BuildTree(settings []*Setting) ([]*TreeNode, error) {
	var roots []*TreeNode
	for _, s := range settings {
		segments := strings.Split(s.ID, ".")
		siblings := &roots
		for i, seg := range segments[:len(segments)-1] {
			group, err := findGroup(*siblings, seg)
			if err != nil {
				return nil, err
			}
			if group == nil {
				group = &TreeNode{ID: strings.Join(segments[:i+1], "."), Name: seg}
				*siblings = append(*siblings, group)
			}
			siblings = &group.Children
		}
		if err := addLeaf(siblings, s); err != nil {
			return nil, err
		}
	}
	return roots, nil
}

func findGroup(siblings []*TreeNode, name string) (*TreeNode, error) {
	for _, n := range siblings {
		if n.Name != name {
			continue
		}
		if n.IsLeaf() {
			return nil, &ConflictError{Name: name}
		}
		return n, nil
	}
	return nil, nil
}

func addLeaf(siblings *[]*TreeNode, s *Setting) error {
	name := NameOf(s.ID)
	for _, n := range *siblings {
		if n.Name == name {
			return &ConflictError{Name: name}
		}
	}
	*siblings = append(*siblings, &TreeNode{ID: s.ID, Name: name, Setting: s})
	return nil
}

// Walk 深度优先遍历，fn 返回 false 时不再进入该节点的子节点
func Walk(nodes []*TreeNode, fn func(depth int, n *TreeNode) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []*TreeNode, depth int, fn func(depth int, n *TreeNode) bool) {
	for _, n := range nodes {
		if fn(depth, n) && len(n.Children) > 0 {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Find 按 ID 查找节点（分组或叶子）
func Find(nodes []*TreeNode, id string) *TreeNode {
	var found *TreeNode
	Walk(nodes, func(_ int, n *TreeNode) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return strings.HasPrefix(id, n.ID+".")
	})
	return found
}

// CountLeaves 统计叶子数量
func CountLeaves(nodes []*TreeNode) int {
	count := 0
	Walk(nodes, func(_ int, n *TreeNode) bool {
		if n.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

// RenderTree 以缩进文本输出配置树，叶子附带全局值与覆盖数量
func RenderTree(w io.Writer, nodes []*TreeNode) error {
	var err error
	Walk(nodes, func(depth int, n *TreeNode) bool {
		if err != nil {
			return false
		}
		indent := strings.Repeat("  ", depth)
		if !n.IsLeaf() {
			_, err = fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
			return true
		}
		line := indent + n.Name
		s := n.Setting
		switch {
		case s.Sensitive:
			line += " = ********"
		case s.Multiline:
			line += " = <multiline>"
		case s.Value != nil:
			line += " = " + *s.Value
		}
		if len(s.NodeValues) > 0 {
			line += fmt.Sprintf(" [%d node override(s)]", len(s.NodeValues))
		}
		_, err = fmt.Fprintln(w, line)
		return true
	})
	return err
}
