package errors

// 预定义哨兵错误（用于 errors.Is 比较）
// 这些错误用于快速类型检查，不包含详细信息
var (
	// 授权
	ErrUnauthorized = New(CodeUnauthorized, "unauthorized")
	ErrForbidden    = New(CodeForbidden, "access forbidden")

	// 资源
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrAlreadyExists = New(CodeAlreadyExists, "resource already exists")
	ErrConflict      = New(CodeConflict, "resource conflict")

	// 请求
	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")
	ErrValidation   = New(CodeValidationError, "validation error")
	ErrInvalidState = New(CodeInvalidState, "invalid state")
	ErrInvalidData  = New(CodeInvalidData, "invalid data")

	// 系统
	ErrInternal       = New(CodeInternal, "internal error")
	ErrStorageError   = New(CodeStorageError, "storage error")
	ErrResourceClosed = New(CodeResourceClosed, "resource closed")

	// 传输
	ErrNetworkError    = New(CodeNetworkError, "network error")
	ErrTimeout         = New(CodeTimeout, "operation timeout")
	ErrConnectionError = New(CodeConnectionError, "connection error")
	ErrNotConnected    = New(CodeNotConnected, "not connected")
)
