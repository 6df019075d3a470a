package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/retry"
)

// Config Ollama配置
type Config struct {
	backend.BaseConfig
	Model       string       `json:"model"`
	Temperature float32      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
	RetryConfig retry.Config `json:"retry_config"`

	// Extra 透传给 /api/generate 的额外模型选项（如 num_ctx、top_p）
	Extra map[string]string `json:"extra,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  backend.DefaultBaseConfig(),
		Model:       "qwen2.5:7b",
		Temperature: 0.3,
		MaxTokens:   4096,
		RetryConfig: retry.DefaultConfig(),
	}
}

// Backend 本地 Ollama 推理服务器后端
// 整个窗口作为一个带标签的提示词发送，支持流式逐句产出。
// 服务器进程的启停是外部协作者的职责，这里只做可用性探测。
type Backend struct {
	config     Config
	httpClient *http.Client
	retrier    *retry.Retrier
}

// New 创建 Ollama 后端
func New(config Config) *Backend {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "http://localhost:11434"
	}
	return &Backend{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		retrier:    retry.NewRetrier(config.RetryConfig),
	}
}

// Name 返回后端名称
func (b *Backend) Name() string {
	return "ollama"
}

// SupportsStreaming 支持流式输出
func (b *Backend) SupportsStreaming() bool {
	return true
}

// HealthCheck 探测本地服务器是否可用
func (b *Backend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.config.APIEndpoint+"/api/version", nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama server returned %s", resp.Status)
	}
	return nil
}

// TranslateBatch 批量翻译一个窗口
func (b *Backend) TranslateBatch(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	raw, tokensIn, tokensOut, err := b.generate(ctx, backend.BuildPrompt(req, 0), false, nil)
	if err != nil {
		return nil, err
	}
	return b.parse(raw, tokensIn, tokensOut), nil
}

// TranslateStream 流式翻译一个窗口
// 按请求顺序逐句转发部分译文；流不可恢复，失败后只能重新发起调用。
func (b *Backend) TranslateStream(ctx context.Context, req *backend.Request, fn backend.StreamFunc) (*backend.Result, error) {
	var accumulated bytes.Buffer
	emit := func(delta string) {
		accumulated.WriteString(delta)
		body := backend.PruneMarked(accumulated.String())
		parts := backend.ParseTagged(body)
		if len(parts) == 0 || fn == nil {
			return
		}
		// 最后一个标签之前的句子已经完整
		for i := 0; i < len(parts)-1 && i < len(req.Sentences); i++ {
			fn(i, parts[i], true)
		}
		if idx := len(parts) - 1; idx < len(req.Sentences) {
			fn(idx, parts[idx], false)
		}
	}

	raw, tokensIn, tokensOut, err := b.generate(ctx, backend.BuildPrompt(req, 0), true, emit)
	if err != nil {
		return nil, err
	}
	res := b.parse(raw, tokensIn, tokensOut)
	if fn != nil {
		for i, text := range res.Texts {
			if i < len(req.Sentences) {
				fn(i, text, true)
			}
		}
	}
	return res, nil
}

// parse 把原始响应拆解为句子序列和术语建议
func (b *Backend) parse(raw string, tokensIn, tokensOut int) *backend.Result {
	return &backend.Result{
		Texts:       backend.ParseTagged(backend.PruneMarked(raw)),
		Suggestions: backend.ParseGlossaryBlock(raw),
		TokensIn:    tokensIn,
		TokensOut:   tokensOut,
	}
}

// generateRequest /api/generate 请求体
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse /api/generate 响应体（流式时逐行出现）
type generateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	PromptEvalCount int       `json:"prompt_eval_count"`
	EvalCount       int       `json:"eval_count"`
}

// apiError API错误
type apiError struct {
	ErrorMsg string `json:"error"`
}

func (e *apiError) Error() string {
	return e.ErrorMsg
}

// coerceOption 把字符串配置值转成 Ollama 选项期望的类型
func coerceOption(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// generate 执行生成请求，stream 为真时逐行消费响应
func (b *Backend) generate(ctx context.Context, prompt string, stream bool, emit func(string)) (string, int, int, error) {
	genReq := generateRequest{
		Model:  b.config.Model,
		Prompt: prompt,
		Stream: stream,
		Options: map[string]any{
			"temperature": b.config.Temperature,
		},
	}
	if b.config.MaxTokens > 0 {
		genReq.Options["num_predict"] = b.config.MaxTokens
	}
	for k, v := range b.config.Extra {
		genReq.Options[k] = coerceOption(v)
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.config.APIEndpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range b.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.retrier.Do(b.httpClient, httpReq)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.ErrorMsg != "" {
			return "", 0, 0, &apiErr
		}
		return "", 0, 0, fmt.Errorf("API error: %s", resp.Status)
	}

	if !stream {
		var genResp generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
			return "", 0, 0, fmt.Errorf("failed to decode response: %w", err)
		}
		return genResp.Response, genResp.PromptEvalCount, genResp.EvalCount, nil
	}

	var raw bytes.Buffer
	var tokensIn, tokensOut int
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var part generateResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return "", 0, 0, fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if part.Response != "" {
			raw.WriteString(part.Response)
			if emit != nil {
				emit(part.Response)
			}
		}
		if part.Done {
			tokensIn = part.PromptEvalCount
			tokensOut = part.EvalCount
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", 0, 0, fmt.Errorf("failed to read stream: %w", err)
	}
	return raw.String(), tokensIn, tokensOut, nil
}
