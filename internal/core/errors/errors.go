// Package errors 提供统一的错误处理机制
//
// 设计原则：
// 1. 所有错误都应该可以通过 errors.Is() 和 errors.As() 进行类型检查
// 2. 错误码区分传输、校验、冲突、授权四类失败
// 3. 支持错误链（error wrapping）
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ErrorCode 错误码类型
type ErrorCode string

// 错误码定义
const (
	// 授权相关
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"

	// 资源
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	CodeConflict      ErrorCode = "CONFLICT"

	// 请求错误
	CodeInvalidParam    ErrorCode = "INVALID_PARAM"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInvalidState    ErrorCode = "INVALID_STATE"
	CodeConfigError     ErrorCode = "CONFIG_ERROR"
	CodeInvalidData     ErrorCode = "INVALID_DATA"

	// 系统错误
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeStorageError   ErrorCode = "STORAGE_ERROR"
	CodeResourceClosed ErrorCode = "RESOURCE_CLOSED"

	// 传输错误
	CodeNetworkError    ErrorCode = "NETWORK_ERROR"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeConnectionError ErrorCode = "CONNECTION_ERROR"
	CodeNotConnected    ErrorCode = "NOT_CONNECTED"
	CodeProtocolError   ErrorCode = "PROTOCOL_ERROR"
)

// Error 统一错误类型
type Error struct {
	Code    ErrorCode         // 错误码
	Message string            // 错误消息
	Cause   error             // 原始错误
	Details map[string]string // 额外详情
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 支持 errors.Is 进行错误码比较
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail 添加详情
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Detail 获取详情
func (e *Error) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// New 创建新错误
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf 创建格式化错误
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode 从错误中提取错误码
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode 检查错误是否为指定错误码
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsTransport 判断是否为传输层错误（连接拒绝、关闭、超时）
// 传输错误由连接管理器自动恢复，请求类调用由调用方决定是否重试
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	switch GetCode(err) {
	case CodeNetworkError, CodeTimeout, CodeConnectionError, CodeNotConnected:
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Message 返回适合展示给用户的消息（不含错误码前缀）
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Is 重导出 errors.Is
var Is = errors.Is

// As 重导出 errors.As
var As = errors.As
