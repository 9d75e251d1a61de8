package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"soc-console/internal/config/schema"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 控制台 API 客户端
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// 请求头
const (
	HeaderSrvToken  = "X-Srv-Token"
	HeaderRequestID = "X-Request-Id"
)

// DetailLoginURL 未授权错误中携带登录地址的详情键
const DetailLoginURL = "login_url"

// APIClient 控制台 API 客户端
// 所有请求共享同一超时，不做重试
type APIClient struct {
	baseURL    string
	loginURL   string
	httpClient *http.Client
	logger     corelog.Logger

	mu       sync.RWMutex
	srvToken string
	timeout  time.Duration
	bearer   string
}

// NewAPIClient 创建 API 客户端
func NewAPIClient(cfg schema.ServerConfig, logger corelog.Logger) *APIClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &APIClient{
		baseURL:  cfg.APIURL(),
		loginURL: cfg.LoginURL(),
		httpClient: &http.Client{
			Transport: transport,
		},
		timeout: cfg.APITimeout,
		logger: corelog.OrDefault(logger),
		bearer: cfg.Token.Value(),
	}
}

// BaseURL API 根地址
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// LoginURL 登录地址
func (c *APIClient) LoginURL() string {
	return c.loginURL
}

// SetTimeout 调整请求超时（info 接口下发 apiTimeoutMs 时调用），对之后发出的请求生效
func (c *APIClient) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Timeout 当前请求超时
func (c *APIClient) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// SetServerToken 设置后续请求携带的服务端令牌
func (c *APIClient) SetServerToken(token string) {
	c.mu.Lock()
	c.srvToken = token
	c.mu.Unlock()
}

// ServerToken 当前服务端令牌
func (c *APIClient) ServerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.srvToken
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 服务信息
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// GetInfo 获取服务信息，并记录返回的服务端令牌
func (c *APIClient) GetInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.doJSON(ctx, http.MethodGet, "info", nil, nil, &info); err != nil {
		return nil, err
	}
	if info.SrvToken != "" {
		c.SetServerToken(info.SrvToken)
	}
	if info.Parameters.APITimeoutMs > 0 {
		c.SetTimeout(time.Duration(info.Parameters.APITimeoutMs) * time.Millisecond)
	}
	return &info, nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 配置相关API
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// ListSettings 获取全部配置记录
func (c *APIClient) ListSettings(ctx context.Context) ([]SettingRecord, error) {
	var records []SettingRecord
	if err := c.doJSON(ctx, http.MethodGet, "config/", nil, nil, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// PutSetting 保存配置值，NodeID 为空表示全局值
func (c *APIClient) PutSetting(ctx context.Context, update SettingUpdate) error {
	return c.doJSON(ctx, http.MethodPut, "config/", nil, update, nil)
}

// DeleteSetting 删除节点覆盖值
func (c *APIClient) DeleteSetting(ctx context.Context, id, nodeID string) error {
	query := url.Values{}
	query.Set("id", id)
	query.Set("minion", nodeID)
	return c.doJSON(ctx, http.MethodDelete, "config/", query, nil, nil)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 网格节点相关API
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

// ListGridMembers 获取网格节点
func (c *APIClient) ListGridMembers(ctx context.Context) ([]GridMemberRecord, error) {
	var records []GridMemberRecord
	if err := c.doJSON(ctx, http.MethodGet, "gridmembers/", nil, nil, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// AcceptGridMember 接受节点
func (c *APIClient) AcceptGridMember(ctx context.Context, id string) error {
	return c.gridMemberAction(ctx, id, "add")
}

// RejectGridMember 拒绝节点
func (c *APIClient) RejectGridMember(ctx context.Context, id string) error {
	return c.gridMemberAction(ctx, id, "reject")
}

// DeleteGridMember 删除节点
func (c *APIClient) DeleteGridMember(ctx context.Context, id string) error {
	return c.gridMemberAction(ctx, id, "delete")
}

func (c *APIClient) gridMemberAction(ctx context.Context, id, action string) error {
	if id == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "grid member id is required")
	}
	return c.doJSON(ctx, http.MethodPost, "gridmembers/"+url.PathEscape(id)+"/"+action, nil, nil, nil)
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// 请求实现
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (c *APIClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	respBody, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInvalidData, "failed to parse response")
	}
	return nil
}

func (c *APIClient) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "failed to marshal request")
		}
		reqBody = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if timeout := c.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "failed to create request")
	}

	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.ServerToken(); token != "" {
		req.Header.Set(HeaderSrvToken, token)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	logger := c.logger.WithFields(map[string]interface{}{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warnf("API request failed")
		if isTimeout(err) {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeTimeout, "%s %s timed out", method, path)
		}
		return nil, coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeNetworkError, "failed to read response")
	}

	if err := c.checkResponse(resp, respBody); err != nil {
		logger.WithField("status", resp.StatusCode).Debugf("API request rejected: %v", err)
		return nil, err
	}

	return respBody, nil
}

// checkResponse 映射 HTTP 响应到错误码
// HTML 响应意味着被认证代理拦截，与 401 一样视为未授权
func (c *APIClient) checkResponse(resp *http.Response, body []byte) error {
	if isHTML(resp.Header.Get("Content-Type")) || resp.StatusCode == http.StatusUnauthorized {
		return coreerrors.New(coreerrors.CodeUnauthorized, "authentication required").
			WithDetail(DetailLoginURL, c.loginURL)
	}

	if resp.StatusCode < 400 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}

	var code coreerrors.ErrorCode
	switch resp.StatusCode {
	case http.StatusForbidden:
		code = coreerrors.CodeForbidden
	case http.StatusNotFound:
		code = coreerrors.CodeNotFound
	case http.StatusConflict:
		code = coreerrors.CodeConflict
	case http.StatusBadRequest:
		code = coreerrors.CodeInvalidParam
	default:
		code = coreerrors.CodeNetworkError
	}

	return coreerrors.Newf(code, "API error (%d): %s", resp.StatusCode, msg).
		WithDetail("status", resp.Status)
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
