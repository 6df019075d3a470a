package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Config 重试配置
type Config struct {
	// 最大重试次数
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultConfig 返回默认重试配置
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retrier HTTP 请求重试器
// 只对瞬时失败（网络错误、5xx、429）重试，4xx 直接返回。
type Retrier struct {
	config Config
}

// NewRetrier 创建重试器
func NewRetrier(config Config) *Retrier {
	if config.BackoffFactor <= 1.0 {
		config.BackoffFactor = 2.0
	}
	return &Retrier{config: config}
}

// Do 执行 HTTP 请求，瞬时失败时指数退避重试
// 重试时通过 GetBody 重建请求体；已被上一次尝试消费的 Body 不可复用。
func (r *Retrier) Do(client *http.Client, req *http.Request) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(r.delay(attempt)):
			}
		}

		attemptReq := req.Clone(req.Context())
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			if lastResp != nil {
				lastResp.Body.Close()
			}
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if lastResp != nil {
				lastResp.Body.Close()
			}
			lastResp = resp
		}
		if err != nil && !isTransient(err) {
			break
		}
		// 请求体不可重放时无法重试
		if req.Body != nil && req.GetBody == nil {
			break
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}

// delay 计算第 attempt 次重试前的等待时间
func (r *Retrier) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1)))
	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	return d
}

// isTransient 判断是否为值得重试的瞬时错误
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Temporary() || urlErr.Timeout() || isTransient(urlErr.Err)
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
