package backend

import (
	"context"
	"time"

	"github.com/nerdneilsfield/go-book-translator/pkg/glossary"
)

// BaseConfig 后端基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时
	Timeout time.Duration `json:"timeout"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultBaseConfig 返回默认基础配置
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Timeout: 5 * time.Minute, // 长窗口的LLM请求可能很慢
		Headers: make(map[string]string),
	}
}

// Request 一个窗口的翻译请求
// Sentences 为有序的源句子序列，Context 为可选的前文
// （通常是上一窗口的译文尾部），用于给模型提供衔接上下文。
type Request struct {
	Sentences      []string
	Context        string
	SourceLanguage string
	TargetLanguage string
	Glossary       []glossary.Entry
}

// Result 一个窗口的翻译结果
// Texts 与请求句子等长且同序，这是后端必须遵守的契约。
type Result struct {
	Texts       []string
	Suggestions map[string]string // 模型建议的新术语，source -> target
	TokensIn    int
	TokensOut   int
}

// StreamFunc 流式翻译的句级回调
// index 为句子在请求批次内的下标，partial 为当前部分译文，
// done 表示该句已完成。
type StreamFunc func(index int, partial string, done bool)

// Backend 翻译后端能力集
// 批量翻译是基础能力，流式输出是附加能力（见 Streamer）。
type Backend interface {
	// Name 返回后端名称
	Name() string

	// TranslateBatch 翻译一批句子，输出与输入等长且同序
	TranslateBatch(ctx context.Context, req *Request) (*Result, error)

	// SupportsStreaming 是否支持流式输出
	SupportsStreaming() bool

	// HealthCheck 后端当前是否可服务请求
	HealthCheck(ctx context.Context) error
}

// Streamer 流式后端的附加能力
// 按请求顺序逐句产出结果；流不可恢复，只能重新发起调用。
type Streamer interface {
	// TranslateStream 流式翻译一批句子
	TranslateStream(ctx context.Context, req *Request, fn StreamFunc) (*Result, error)
}
