package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/retry"
)

// Config HuggingFace Inference API 配置
type Config struct {
	backend.BaseConfig
	Model       string       `json:"model"`
	RetryConfig retry.Config `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  backend.DefaultBaseConfig(),
		Model:       "Helsinki-NLP/opus-mt-zh-en",
		RetryConfig: retry.DefaultConfig(),
	}
}

// Backend HuggingFace 风格的整批翻译后端
// 同步的整批调用：数组进数组出，窗口内全部句子译完才返回，
// 没有部分结果。专用翻译模型不接受前文，也不产出术语建议。
type Backend struct {
	config     Config
	httpClient *http.Client
	retrier    *retry.Retrier
}

// New 创建 HuggingFace 后端
func New(config Config) *Backend {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "https://api-inference.huggingface.co"
	}
	return &Backend{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		retrier:    retry.NewRetrier(config.RetryConfig),
	}
}

// Name 返回后端名称
func (b *Backend) Name() string {
	return "huggingface"
}

// SupportsStreaming 不支持流式输出
func (b *Backend) SupportsStreaming() bool {
	return false
}

// HealthCheck 用最小请求探测模型是否已加载
func (b *Backend) HealthCheck(ctx context.Context) error {
	_, err := b.infer(ctx, []string{"ping"})
	return err
}

// TranslateBatch 批量翻译一个窗口
func (b *Backend) TranslateBatch(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	texts, err := b.infer(ctx, req.Sentences)
	if err != nil {
		return nil, err
	}
	return &backend.Result{Texts: texts}, nil
}

// inferRequest 推理请求体
type inferRequest struct {
	Inputs  []string       `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

// inferResult 单个句子的推理结果
type inferResult struct {
	TranslationText string `json:"translation_text"`
}

// apiError API错误
type apiError struct {
	ErrorMsg string `json:"error"`
}

func (e *apiError) Error() string {
	return e.ErrorMsg
}

// infer 调用推理端点
func (b *Backend) infer(ctx context.Context, inputs []string) ([]string, error) {
	body, err := json.Marshal(inferRequest{
		Inputs: inputs,
		// 模型冷启动时等待加载而不是立即失败
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.config.APIEndpoint+"/models/"+b.config.Model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	}
	for k, v := range b.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.retrier.Do(b.httpClient, httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.ErrorMsg != "" {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("API error: %s", resp.Status)
	}

	var results []inferResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.TranslationText
	}
	return texts, nil
}
