package settings

import (
	"regexp"
	"strings"

	"soc-console/internal/client/notify"
	coreerrors "soc-console/internal/core/errors"
)

// ValidateValue 按配置项的正则校验值，返回提交用的规范化值
// 单行值必须整体匹配；多行值每个非空行必须匹配，按换行重新拼接并去掉末尾空行
func ValidateValue(s *Setting, value string) (string, error) {
	if s.Regex == "" {
		return value, nil
	}
	re, err := regexp.Compile("^(?:" + s.Regex + ")$")
	if err != nil {
		return "", coreerrors.Wrapf(err, coreerrors.CodeValidationError, "setting %s has an invalid pattern", s.ID).
			WithDetail("message", failureMessage(s))
	}

	if !s.Multiline {
		if !re.MatchString(value) {
			return "", validationError(s)
		}
		return value, nil
	}

	lines := strings.Split(value, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		lines[i] = line
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !re.MatchString(line) {
			return "", validationError(s)
		}
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n"), nil
}

func failureMessage(s *Setting) string {
	if s.RegexFailureMessage != "" {
		return s.RegexFailureMessage
	}
	return notify.KeySettingValidationFailed
}

func validationError(s *Setting) error {
	return coreerrors.New(coreerrors.CodeValidationError, "value does not match the required pattern").
		WithDetail("setting", s.ID).
		WithDetail("message", failureMessage(s))
}

// FailureMessage 返回校验错误中携带的用户提示
func FailureMessage(err error) string {
	var e *coreerrors.Error
	if coreerrors.As(err, &e) {
		if msg := e.Detail("message"); msg != "" {
			return msg
		}
	}
	return coreerrors.Message(err)
}
