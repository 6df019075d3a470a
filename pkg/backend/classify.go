package backend

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// IsUnavailable 判断错误是否意味着后端暂时不可用
// 这类错误由编排器退避重试，其余错误视为永久失败。
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return IsUnavailable(urlErr.Err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// 兜底的错误消息模式匹配
	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"timeout",
		"temporary failure",
		"rate limit",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
		"429",
		"503",
		"504",
	}
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
