// Package settings 分层配置存储
// 将后端扁平的配置记录合并为按点分 ID 组织的树，并管理唯一的编辑会话
package settings

import (
	"strings"

	"soc-console/internal/client"
)

// advancedDescription 多行 advanced 配置项的默认说明
const advancedDescription = "Provide optional, custom configuration in YAML format. " +
	"Note that improper customizations often are the cause of grid malfunctions."

// Setting 一个配置项定义，NodeValues 保存各节点的覆盖值
type Setting struct {
	ID                  string
	Name                string
	Category            string
	Title               string
	Description         string
	Default             *string
	DefaultAvailable    bool
	Value               *string
	NodeValues          map[string]string
	Regex               string
	RegexFailureMessage string
	Multiline           bool
	Sensitive           bool
	Readonly            bool
	ReadonlyUI          bool
	Advanced            bool
	Global              bool
	Duplicates          bool
	File                bool
	Syntax              string
	HelpLink            string

	// NodeOnly 仅出现过节点覆盖记录，尚未收到全局定义
	NodeOnly bool
}

// NameOf 返回点分 ID 的最后一段
func NameOf(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}

// ParentOf 返回点分 ID 去掉最后一段后的前缀，顶层 ID 返回空串
func ParentOf(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[:i]
	}
	return ""
}

func newSettingFromRecord(r *client.SettingRecord) *Setting {
	s := &Setting{
		ID:         r.ID,
		Name:       NameOf(r.ID),
		NodeValues: make(map[string]string),
	}
	s.applyRecord(r)
	return s
}

// applyRecord 用全局记录填充描述字段，保留已有的节点覆盖值
func (s *Setting) applyRecord(r *client.SettingRecord) {
	s.Category = r.Category
	s.Title = r.Title
	s.Description = r.Description
	s.Default = copyString(r.Default)
	s.DefaultAvailable = r.DefaultAvailable
	s.Value = copyString(r.Value)
	s.Regex = r.Regex
	s.RegexFailureMessage = r.RegexFailureMessage
	s.Multiline = r.Multiline
	s.Sensitive = r.Sensitive
	s.Readonly = r.Readonly
	s.ReadonlyUI = r.ReadonlyUI
	s.Advanced = r.Advanced
	s.Global = r.Global
	s.Duplicates = r.Duplicates
	s.File = r.File
	s.Syntax = r.Syntax
	s.HelpLink = r.HelpLink
	s.NodeOnly = false
}

// MergeRecords 将扁平记录合并为配置项列表，顺序为首次出现的顺序
// 带 nodeId 的记录写入对应配置项的 NodeValues，同一 (id, nodeId) 后出现的覆盖先出现的
func MergeRecords(records []client.SettingRecord) []*Setting {
	var result []*Setting
	byID := make(map[string]*Setting, len(records))

	for i := range records {
		r := &records[i]
		s, seen := byID[r.ID]

		if r.IsNodeOverride() {
			if !seen {
				s = newSettingFromRecord(r)
				s.Value = nil
				s.Default = nil
				s.DefaultAvailable = false
				s.Global = false
				s.NodeOnly = true
				byID[r.ID] = s
				result = append(result, s)
			}
			s.NodeValues[r.NodeID] = derefString(r.Value)
			continue
		}

		if seen {
			s.applyRecord(r)
			continue
		}
		s = newSettingFromRecord(r)
		byID[r.ID] = s
		result = append(result, s)
	}
	return result
}

// Clone 深拷贝
func (s *Setting) Clone() *Setting {
	c := *s
	c.Default = copyString(s.Default)
	c.Value = copyString(s.Value)
	c.NodeValues = make(map[string]string, len(s.NodeValues))
	for k, v := range s.NodeValues {
		c.NodeValues[k] = v
	}
	return &c
}

// NodeValue 返回节点覆盖值
func (s *Setting) NodeValue(nodeID string) (string, bool) {
	v, ok := s.NodeValues[nodeID]
	return v, ok
}

// HasOverride 节点是否存在覆盖值
func (s *Setting) HasOverride(nodeID string) bool {
	_, ok := s.NodeValues[nodeID]
	return ok
}

// StoredValue 返回目标槽位当前保存的值，nodeID 为空表示全局值
// 无值时返回空串
func (s *Setting) StoredValue(nodeID string) string {
	if nodeID == "" {
		return derefString(s.Value)
	}
	return s.NodeValues[nodeID]
}

// EffectiveValue 返回节点实际生效的值：有覆盖取覆盖值，否则取全局值
func (s *Setting) EffectiveValue(nodeID string) string {
	if v, ok := s.NodeValues[nodeID]; ok && nodeID != "" {
		return v
	}
	return derefString(s.Value)
}

// DefaultValue 默认值，无默认值时返回空串
func (s *Setting) DefaultValue() string {
	return derefString(s.Default)
}

// HasDefault 是否有可用的默认值
func (s *Setting) HasDefault() bool {
	return s.Default != nil || s.DefaultAvailable
}

// IsReadOnly 只读配置项不允许编辑
func (s *Setting) IsReadOnly() bool {
	return s.Readonly || s.ReadonlyUI
}

// IsMultiline 是否为多行值
func (s *Setting) IsMultiline() bool {
	return s.Multiline
}

// DisplayName 显示名称
func (s *Setting) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// DisplayDescription 显示说明，无说明时回退为 ID
func (s *Setting) DisplayDescription() string {
	if s.Description != "" {
		return s.Description
	}
	if s.Name == "advanced" && s.Multiline {
		return advancedDescription
	}
	return s.ID
}

// Matches 大小写无关的子串匹配：标题、说明、ID 最后一段、全局值与所有节点覆盖值
// 空查询匹配所有配置项
func (s *Setting) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	contains := func(v string) bool {
		return strings.Contains(strings.ToLower(v), q)
	}
	if contains(s.Title) || contains(s.Description) || contains(s.Name) {
		return true
	}
	if s.Value != nil && contains(*s.Value) {
		return true
	}
	for _, v := range s.NodeValues {
		if contains(v) {
			return true
		}
	}
	return false
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strPtr(v string) *string {
	return &v
}
