// Package grid 网格节点模型与节点管理视图
package grid

import (
	"sort"

	"soc-console/internal/client"
)

// Status 节点状态
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusUnaccepted Status = "unaccepted"
	StatusRejected   Status = "rejected"
	StatusDenied     Status = "denied"
	StatusPending    Status = "pending"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusUnaccepted, StatusRejected, StatusDenied, StatusPending:
		return true
	default:
		return false
	}
}

// Color 状态显示颜色
type Color string

const (
	ColorError   Color = "error"
	ColorSuccess Color = "success"
	ColorWarning Color = "warning"
	ColorGray    Color = "gray"
)

// ColorForStatus 返回状态对应的颜色
func ColorForStatus(s Status) Color {
	switch s {
	case StatusRejected:
		return ColorError
	case StatusAccepted:
		return ColorSuccess
	case StatusDenied:
		return ColorWarning
	default:
		return ColorGray
	}
}

// Node 网格中的一台机器
type Node struct {
	ID          string
	Name        string
	Role        string
	Status      Status
	Description string
	Version     string
}

// NodeFromRecord 由网络记录构造节点
func NodeFromRecord(r client.GridMemberRecord) Node {
	return Node{
		ID:          r.ID,
		Name:        r.Name,
		Role:        r.Role,
		Status:      Status(r.Status),
		Description: r.Description,
		Version:     r.Version,
	}
}

// NodesFromRecords 批量转换
func NodesFromRecords(records []client.GridMemberRecord) []Node {
	nodes := make([]Node, 0, len(records))
	for _, r := range records {
		nodes = append(nodes, NodeFromRecord(r))
	}
	return nodes
}

// IsAccepted 节点是否已被接受
func (n Node) IsAccepted() bool {
	return n.Status == StatusAccepted
}

// IsUnaccepted 节点是否等待接受
func (n Node) IsUnaccepted() bool {
	return n.Status == StatusUnaccepted
}

// Label 返回 "name (role)" 形式的显示名
func (n Node) Label() string {
	return n.Name + " (" + n.Role + ")"
}

// Buckets 按状态分组的节点，组内按 ID 排序
type Buckets struct {
	Accepted   []Node
	Unaccepted []Node
	Rejected   []Node
	Denied     []Node
}

// Group 将节点按状态分组，未知状态的节点不进入任何分组
func Group(nodes []Node) Buckets {
	var b Buckets
	for _, n := range nodes {
		switch n.Status {
		case StatusAccepted:
			b.Accepted = append(b.Accepted, n)
		case StatusUnaccepted:
			b.Unaccepted = append(b.Unaccepted, n)
		case StatusRejected:
			b.Rejected = append(b.Rejected, n)
		case StatusDenied:
			b.Denied = append(b.Denied, n)
		}
	}
	for _, list := range [][]Node{b.Accepted, b.Unaccepted, b.Rejected, b.Denied} {
		sortByID(list)
	}
	return b
}

// Total 分组内节点总数
func (b Buckets) Total() int {
	return len(b.Accepted) + len(b.Unaccepted) + len(b.Rejected) + len(b.Denied)
}

func sortByID(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
}
