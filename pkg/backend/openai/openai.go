package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
)

// Config OpenAI 兼容后端配置
type Config struct {
	backend.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  backend.DefaultBaseConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// Backend OpenAI 兼容的聊天补全后端
// 覆盖 OpenAI 官方接口以及任何兼容端点（vLLM、llama.cpp 等）。
type Backend struct {
	config Config
	client *openai.Client
}

// New 创建 OpenAI 后端
func New(config Config) *Backend {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIEndpoint != "" {
		clientConfig.BaseURL = config.APIEndpoint
	}
	return &Backend{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Name 返回后端名称
func (b *Backend) Name() string {
	return "openai"
}

// SupportsStreaming 支持流式输出
func (b *Backend) SupportsStreaming() bool {
	return true
}

// HealthCheck 探测端点可用性
func (b *Backend) HealthCheck(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai endpoint unreachable: %w", err)
	}
	return nil
}

// TranslateBatch 批量翻译一个窗口
func (b *Backend) TranslateBatch(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	resp, err := b.client.CreateChatCompletion(ctx, b.chatRequest(req, false))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}
	raw := resp.Choices[0].Message.Content
	return &backend.Result{
		Texts:       backend.ParseTagged(backend.PruneMarked(raw)),
		Suggestions: backend.ParseGlossaryBlock(raw),
		TokensIn:    resp.Usage.PromptTokens,
		TokensOut:   resp.Usage.CompletionTokens,
	}, nil
}

// TranslateStream 流式翻译一个窗口，逐句转发部分译文
func (b *Backend) TranslateStream(ctx context.Context, req *backend.Request, fn backend.StreamFunc) (*backend.Result, error) {
	stream, err := b.client.CreateChatCompletionStream(ctx, b.chatRequest(req, true))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var raw strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		raw.WriteString(delta)
		if fn != nil {
			emitPartial(req, raw.String(), fn)
		}
	}

	full := raw.String()
	res := &backend.Result{
		Texts:       backend.ParseTagged(backend.PruneMarked(full)),
		Suggestions: backend.ParseGlossaryBlock(full),
	}
	if fn != nil {
		for i, text := range res.Texts {
			if i < len(req.Sentences) {
				fn(i, text, true)
			}
		}
	}
	return res, nil
}

// emitPartial 从累积的原始输出里切出句子并回调
// 最后一个标签之后的文本视为未完句。
func emitPartial(req *backend.Request, accumulated string, fn backend.StreamFunc) {
	parts := backend.ParseTagged(backend.PruneMarked(accumulated))
	for i := 0; i < len(parts)-1 && i < len(req.Sentences); i++ {
		fn(i, parts[i], true)
	}
	if idx := len(parts) - 1; idx >= 0 && idx < len(req.Sentences) {
		fn(idx, parts[idx], false)
	}
}

// chatRequest 构建聊天补全请求
func (b *Backend) chatRequest(req *backend.Request, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       b.config.Model,
		Temperature: b.config.Temperature,
		MaxTokens:   b.config.MaxTokens,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert literary translator.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: backend.BuildPrompt(req, 0),
			},
		},
	}
}
