// Package testutils 测试辅助工具
// FakeBackend 在进程内模拟控制台后端：REST 接口与 /ws 事件通道
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"soc-console/internal/client"
	"soc-console/internal/config/schema"
	"soc-console/internal/core/events"
)

// Call 后端记录的一次写请求
type Call struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// FakeBackend 进程内后端
type FakeBackend struct {
	t      testing.TB
	server *httptest.Server

	mu        sync.Mutex
	settings  []client.SettingRecord
	members   []client.GridMemberRecord
	info      client.ServerInfo
	calls     []Call
	failures  map[string]int
	html      bool
	tokens    []string
	wsConns   map[*websocket.Conn]struct{}
	wsCount   int
	pings     int
	rejectWS  bool
	writeLock sync.Mutex

	upgrader websocket.Upgrader
}

// NewFakeBackend 启动后端，测试结束时自动关闭
func NewFakeBackend(t testing.TB) *FakeBackend {
	b := &FakeBackend{
		t:        t,
		failures: make(map[string]int),
		wsConns:  make(map[*websocket.Conn]struct{}),
		info:     client.ServerInfo{Version: "2.4.0", SrvToken: "srv-token"},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/info", b.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/config/", b.handleListSettings).Methods(http.MethodGet)
	api.HandleFunc("/config/", b.handlePutSetting).Methods(http.MethodPut)
	api.HandleFunc("/config/", b.handleDeleteSetting).Methods(http.MethodDelete)
	api.HandleFunc("/gridmembers/", b.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/gridmembers/{id}/{action}", b.handleMemberAction).Methods(http.MethodPost)
	api.Use(b.middleware)
	router.HandleFunc("/ws", b.handleWebSocket)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.Close)
	return b
}

// URL 控制台根地址（带尾部斜杠）
func (b *FakeBackend) URL() string {
	return b.server.URL + "/"
}

// ServerConfig 指向本后端的服务配置
func (b *FakeBackend) ServerConfig() schema.ServerConfig {
	return schema.ServerConfig{
		URL:              b.URL(),
		APITimeout:       5 * time.Second,
		WebSocketTimeout: 50 * time.Millisecond,
		CacheExpiration:  time.Minute,
	}
}

// Close 关闭后端及所有 WebSocket 连接
func (b *FakeBackend) Close() {
	b.DropConnections()
	b.server.Close()
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 数据设置
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// SetSettings 设置 config/ 返回的记录
func (b *FakeBackend) SetSettings(records ...client.SettingRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = append([]client.SettingRecord(nil), records...)
}

// SetMembers 设置 gridmembers/ 返回的记录
func (b *FakeBackend) SetMembers(records ...client.GridMemberRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members = append([]client.GridMemberRecord(nil), records...)
}

// SetInfo 设置 info 响应
func (b *FakeBackend) SetInfo(info client.ServerInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = info
}

// FailNext 让接下来 n 次访问 path（如 "/api/config/"）的请求返回 status
func (b *FakeBackend) FailNext(path string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status*1000 + n
}

// ServeHTML 让所有 API 请求返回 HTML 登录页
func (b *FakeBackend) ServeHTML(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.html = enabled
}

// RejectWebSocket 拒绝新的 WebSocket 连接
func (b *FakeBackend) RejectWebSocket(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectWS = reject
}

// Calls 已记录的写请求
func (b *FakeBackend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Tokens 每个 API 请求携带的 X-Srv-Token
func (b *FakeBackend) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 事件通道
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// Push 向所有连接推送事件
func (b *FakeBackend) Push(kind events.Kind, object interface{}) {
	env, err := events.NewEnvelope(kind, object)
	if err != nil {
		b.t.Fatalf("encode event: %v", err)
	}
	data, _ := json.Marshal(env)

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.wsConns))
	for c := range b.wsConns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	b.writeLock.Lock()
	defer b.writeLock.Unlock()
	for _, c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, data)
	}
}

// PushRaw 推送原始文本
func (b *FakeBackend) PushRaw(data string) {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.wsConns))
	for c := range b.wsConns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	b.writeLock.Lock()
	defer b.writeLock.Unlock()
	for _, c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, []byte(data))
	}
}

// DropConnections 服务端关闭所有 WebSocket 连接
func (b *FakeBackend) DropConnections() {
	b.mu.Lock()
	conns := b.wsConns
	b.wsConns = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
}

// ActiveConnections 当前 WebSocket 连接数
func (b *FakeBackend) ActiveConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.wsConns)
}

// TotalConnections 累计建立的 WebSocket 连接数
func (b *FakeBackend) TotalConnections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wsCount
}

// Pings 收到的保活消息数
func (b *FakeBackend) Pings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pings
}

func (b *FakeBackend) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	reject := b.rejectWS
	b.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.wsConns[conn] = struct{}{}
	b.wsCount++
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.wsConns, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if env, err := events.ParseEnvelope(data); err == nil && env.Kind == events.KindPing {
				b.mu.Lock()
				b.pings++
				b.mu.Unlock()
			}
		}
	}()
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// REST 处理器
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (b *FakeBackend) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.tokens = append(b.tokens, r.Header.Get(client.HeaderSrvToken))
		html := b.html
		status := 0
		if f, ok := b.failures[r.URL.Path]; ok && f%1000 > 0 {
			status = f / 1000
			if f%1000 == 1 {
				delete(b.failures, r.URL.Path)
			} else {
				b.failures[r.URL.Path] = f - 1
			}
		}
		b.mu.Unlock()

		if html {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>login</html>"))
			return
		}
		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (b *FakeBackend) record(r *http.Request, body []byte) {
	query := make(map[string]string)
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Query: query, Body: body})
}

func (b *FakeBackend) handleInfo(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	info := b.info
	b.mu.Unlock()
	b.writeJSON(w, info)
}

func (b *FakeBackend) handleListSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	records := append([]client.SettingRecord{}, b.settings...)
	b.mu.Unlock()
	b.writeJSON(w, records)
}

func (b *FakeBackend) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var update client.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, _ := json.Marshal(update)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, body)

	value := update.Value
	for i := range b.settings {
		s := &b.settings[i]
		if s.ID == update.ID && s.NodeID == update.NodeID {
			s.Value = &value
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	b.settings = append(b.settings, client.SettingRecord{ID: update.ID, NodeID: update.NodeID, Value: &value})
	w.WriteHeader(http.StatusOK)
}

func (b *FakeBackend) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	minion := r.URL.Query().Get("minion")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, nil)

	kept := b.settings[:0]
	for _, s := range b.settings {
		if s.ID == id && s.NodeID == minion && minion != "" {
			continue
		}
		kept = append(kept, s)
	}
	b.settings = kept
	w.WriteHeader(http.StatusOK)
}

func (b *FakeBackend) handleListMembers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	records := append([]client.GridMemberRecord{}, b.members...)
	b.mu.Unlock()
	b.writeJSON(w, records)
}

func (b *FakeBackend) handleMemberAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, action := vars["id"], vars["action"]

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, nil)

	for i := range b.members {
		m := &b.members[i]
		if m.ID != id {
			continue
		}
		switch action {
		case "add":
			m.Status = "accepted"
		case "reject":
			m.Status = "rejected"
		case "delete":
			b.members = append(b.members[:i], b.members[i+1:]...)
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}
