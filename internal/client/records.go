package client

import (
	"strings"

	coreerrors "soc-console/internal/core/errors"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 网络记录类型（config/、gridmembers/、info 接口）
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SettingRecord config/ 返回的配置记录
// 带 NodeID 的记录表示某个节点的覆盖值，否则为全局定义
type SettingRecord struct {
	ID                  string  `json:"id"`
	NodeID              string  `json:"nodeId,omitempty"`
	Category            string  `json:"category,omitempty"`
	Title               string  `json:"title,omitempty"`
	Description         string  `json:"description,omitempty"`
	Default             *string `json:"default,omitempty"`
	DefaultAvailable    bool    `json:"defaultAvailable,omitempty"`
	Value               *string `json:"value,omitempty"`
	Regex               string  `json:"regex,omitempty"`
	RegexFailureMessage string  `json:"regexFailureMessage,omitempty"`
	Multiline           bool    `json:"multiline,omitempty"`
	Sensitive           bool    `json:"sensitive,omitempty"`
	Readonly            bool    `json:"readonly,omitempty"`
	ReadonlyUI          bool    `json:"readonlyUi,omitempty"`
	Advanced            bool    `json:"advanced,omitempty"`
	Global              bool    `json:"global,omitempty"`
	Duplicates          bool    `json:"duplicates,omitempty"`
	File                bool    `json:"file,omitempty"`
	Syntax              string  `json:"syntax,omitempty"`
	HelpLink            string  `json:"helpLink,omitempty"`
}

// IsNodeOverride 是否为节点覆盖记录
func (r *SettingRecord) IsNodeOverride() bool {
	return r.NodeID != ""
}

// Validate 校验记录：ID 必填且每个点分段非空
func (r *SettingRecord) Validate() error {
	if r.ID == "" {
		return coreerrors.New(coreerrors.CodeInvalidData, "setting record has no id")
	}
	for _, seg := range strings.Split(r.ID, ".") {
		if seg == "" {
			return coreerrors.Newf(coreerrors.CodeInvalidData, "setting id %q has an empty segment", r.ID)
		}
	}
	return nil
}

// SettingUpdate PUT config/ 请求体
type SettingUpdate struct {
	ID     string `json:"id"`
	NodeID string `json:"nodeId"`
	Value  string `json:"value"`
}

// GridMemberRecord gridmembers/ 返回的节点记录
type GridMemberRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Validate 校验节点记录
func (r *GridMemberRecord) Validate() error {
	if r.ID == "" {
		return coreerrors.New(coreerrors.CodeInvalidData, "grid member record has no id")
	}
	return nil
}

// InfoParameters info 接口返回的客户端参数，毫秒单位，<=0 表示使用默认值
type InfoParameters struct {
	WebSocketTimeoutMs int64 `json:"webSocketTimeoutMs"`
	APITimeoutMs       int64 `json:"apiTimeoutMs"`
	CacheExpirationMs  int64 `json:"cacheExpirationMs"`
	DetectionsEnabled  bool  `json:"detectionsEnabled"`
	CasesEnabled       bool  `json:"casesEnabled"`
}

// ServerInfo info 接口响应
type ServerInfo struct {
	Version        string         `json:"version"`
	License        string         `json:"license"`
	ElasticVersion string         `json:"elasticVersion"`
	SrvToken       string         `json:"srvToken"`
	UserID         string         `json:"userId"`
	Parameters     InfoParameters `json:"parameters"`
}
