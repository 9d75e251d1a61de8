// Package status 网格状态跟踪
// 订阅 status、import、detection-sync 事件，维护当前状态并向用户提示导入与同步结果
package status

import "strings"

// 检测引擎
const (
	EngineElastAlert = "elastalert"
	EngineStrelka    = "strelka"
	EngineSuricata   = "suricata"
)

// Engines 返回所有检测引擎
func Engines() []string {
	return []string{EngineElastAlert, EngineStrelka, EngineSuricata}
}

var engineNames = map[string]string{
	EngineElastAlert: "ElastAlert",
	EngineStrelka:    "Strelka",
	EngineSuricata:   "Suricata",
}

// CorrectCasing 返回引擎的显示名称，未知引擎原样返回
func CorrectCasing(engine string) string {
	if name, ok := engineNames[strings.ToLower(engine)]; ok {
		return name
	}
	return engine
}

// EngineStatus 单个检测引擎的状态
type EngineStatus struct {
	Migrating        bool `json:"migrating"`
	Importing        bool `json:"importing"`
	Syncing          bool `json:"syncing"`
	MigrationFailure bool `json:"migrationFailure"`
	IntegrityFailure bool `json:"integrityFailure"`
	SyncFailure      bool `json:"syncFailure"`
}

// Unhealthy 任一失败标志
func (e EngineStatus) Unhealthy() bool {
	return e.IntegrityFailure || e.SyncFailure || e.MigrationFailure
}

// Updating 正在导入、迁移或同步
func (e EngineStatus) Updating() bool {
	return e.Importing || e.Migrating || e.Syncing
}

// EngineState 引擎状态摘要
type EngineState string

const (
	StateUnknown          EngineState = "Unknown"
	StateMigrating        EngineState = "Migrating"
	StateImporting        EngineState = "Importing"
	StateMigrationFailure EngineState = "MigrationFailure"
	StateIntegrityFailure EngineState = "IntegrityFailure"
	StateSyncFailure      EngineState = "SyncFailure"
	StateImportPending    EngineState = "ImportPending"
	StateSyncing          EngineState = "Syncing"
	StateHealthy          EngineState = "Healthy"
)

// State 状态摘要，优先级：迁移、导入、迁移失败、完整性失败、同步失败、待导入、同步
func (e EngineStatus) State() EngineState {
	switch {
	case e.Migrating:
		return StateMigrating
	case e.Importing && e.Syncing:
		return StateImporting
	case e.MigrationFailure:
		return StateMigrationFailure
	case e.IntegrityFailure:
		return StateIntegrityFailure
	case e.SyncFailure:
		return StateSyncFailure
	case e.Importing:
		return StateImportPending
	case e.Syncing:
		return StateSyncing
	default:
		return StateHealthy
	}
}

// Severity 状态的显示级别
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityNormal  Severity = "normal"
)

// Severity 失败状态为 warning，健康为 success，其余为 normal
func (s EngineState) Severity() Severity {
	switch s {
	case StateMigrationFailure, StateSyncFailure, StateIntegrityFailure:
		return SeverityWarning
	case StateHealthy:
		return SeveritySuccess
	default:
		return SeverityNormal
	}
}

// GridStatus 网格健康状态
type GridStatus struct {
	TotalNodeCount     int     `json:"totalNodeCount"`
	UnhealthyNodeCount int     `json:"unhealthyNodeCount"`
	Eps                float64 `json:"eps"`
}

// AlertsStatus 告警状态
type AlertsStatus struct {
	NewCount int `json:"newCount"`
}

// Status status 事件内容
type Status struct {
	Grid       GridStatus              `json:"grid"`
	Alerts     AlertsStatus            `json:"alerts"`
	Detections map[string]EngineStatus `json:"detections,omitempty"`
}

// EngineState 返回引擎状态摘要，无该引擎状态时为 Unknown
func (s *Status) EngineState(engine string) EngineState {
	if s == nil || s.Detections == nil {
		return StateUnknown
	}
	e, ok := s.Detections[engine]
	if !ok {
		return StateUnknown
	}
	return e.State()
}

// DetectionsUnhealthy 任一引擎存在失败
func (s *Status) DetectionsUnhealthy() bool {
	if s == nil {
		return false
	}
	for _, e := range s.Detections {
		if e.Unhealthy() {
			return true
		}
	}
	return false
}

// DetectionsUpdating 没有失败且任一引擎在导入、迁移或同步
func (s *Status) DetectionsUpdating() bool {
	if s == nil || s.DetectionsUnhealthy() {
		return false
	}
	for _, e := range s.Detections {
		if e.Updating() {
			return true
		}
	}
	return false
}

// GridUnhealthy 存在不健康节点
func (s *Status) GridUnhealthy() bool {
	return s != nil && s.Grid.UnhealthyNodeCount > 0
}

// NewAlert 存在新告警
func (s *Status) NewAlert() bool {
	return s != nil && s.Alerts.NewCount > 0
}
