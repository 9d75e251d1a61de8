package events

import (
	"encoding/json"

	coreerrors "soc-console/internal/core/errors"
)

// Kind 事件类型
type Kind string

// 后端推送的事件类型
const (
	KindStatus        Kind = "status"
	KindImport        Kind = "import"
	KindDetectionSync Kind = "detection-sync"
	KindPing          Kind = "Ping"
)

// PingMessage 保活消息，按原样发送
const PingMessage = `{ "Kind": "Ping" }`

// Envelope 事件信封，对应后端的 {Kind, Object} JSON 格式
type Envelope struct {
	Kind   Kind            `json:"Kind"`
	Object json.RawMessage `json:"Object,omitempty"`
}

// NewEnvelope 创建事件信封，object 序列化为 JSON
func NewEnvelope(kind Kind, object interface{}) (*Envelope, error) {
	env := &Envelope{Kind: kind}
	if object != nil {
		raw, err := json.Marshal(object)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeInvalidData, "failed to encode event object")
		}
		env.Object = raw
	}
	return env, nil
}

// ParseEnvelope 解析一条事件消息
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeProtocolError, "failed to parse event envelope")
	}
	if env.Kind == "" {
		return nil, coreerrors.New(coreerrors.CodeProtocolError, "event envelope has no Kind")
	}
	return &env, nil
}

// Decode 将 Object 解码到 v，Object 为空时不修改 v
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Object) == 0 || string(e.Object) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Object, v); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInvalidData, "failed to decode %s event", e.Kind)
	}
	return nil
}
