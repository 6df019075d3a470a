package factory

import (
	"fmt"
	"time"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/huggingface"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/ollama"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/openai"
)

// Settings 后端选择与连接参数
// 由配置/CLI 层填充，核心只要求产出满足能力集的后端。
type Settings struct {
	Kind        string            `json:"kind"`
	Endpoint    string            `json:"endpoint"`
	Model       string            `json:"model"`
	APIKey      string            `json:"api_key"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Timeout     time.Duration     `json:"timeout"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Kinds 返回支持的后端种类
func Kinds() []string {
	return []string{"ollama", "openai", "huggingface"}
}

// New 按配置创建后端
func New(s Settings) (backend.Backend, error) {
	switch s.Kind {
	case "ollama":
		cfg := ollama.DefaultConfig()
		applyBase(&cfg.BaseConfig, s)
		if s.Model != "" {
			cfg.Model = s.Model
		}
		if s.Temperature > 0 {
			cfg.Temperature = s.Temperature
		}
		if s.MaxTokens > 0 {
			cfg.MaxTokens = s.MaxTokens
		}
		if len(s.Extra) > 0 {
			cfg.Extra = s.Extra
		}
		return ollama.New(cfg), nil

	case "openai":
		cfg := openai.DefaultConfig()
		applyBase(&cfg.BaseConfig, s)
		if s.Model != "" {
			cfg.Model = s.Model
		}
		if s.Temperature > 0 {
			cfg.Temperature = s.Temperature
		}
		if s.MaxTokens > 0 {
			cfg.MaxTokens = s.MaxTokens
		}
		return openai.New(cfg), nil

	case "huggingface":
		cfg := huggingface.DefaultConfig()
		applyBase(&cfg.BaseConfig, s)
		if s.Model != "" {
			cfg.Model = s.Model
		}
		return huggingface.New(cfg), nil

	default:
		return nil, fmt.Errorf("unknown backend kind: %q (supported: %v)", s.Kind, Kinds())
	}
}

func applyBase(base *backend.BaseConfig, s Settings) {
	if s.Endpoint != "" {
		base.APIEndpoint = s.Endpoint
	}
	if s.APIKey != "" {
		base.APIKey = s.APIKey
	}
	if s.Timeout > 0 {
		base.Timeout = s.Timeout
	}
}
