package pipeline

import (
	"context"
	"fmt"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"go.uber.org/zap"
)

// Adapter 后端适配器
// 在原始后端之上强制执行数量契约：输出必须与输入等长且同序。
// 后端丢句或并句（表现为数量不符）时，把窗口对半拆分重试一次，
// 仍不符则以 ErrBackendOutputMismatch 上浮。
type Adapter struct {
	backend backend.Backend
	logger  *zap.Logger
}

// NewAdapter 创建后端适配器
func NewAdapter(b backend.Backend, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{backend: b, logger: logger}
}

// Name 返回底层后端名称
func (a *Adapter) Name() string {
	return a.backend.Name()
}

// SupportsStreaming 底层后端是否支持流式输出
func (a *Adapter) SupportsStreaming() bool {
	if _, ok := a.backend.(backend.Streamer); !ok {
		return false
	}
	return a.backend.SupportsStreaming()
}

// HealthCheck 探测后端可用性
// 失败统一归为 ErrBackendUnavailable，供编排器退避重试。
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if err := a.backend.HealthCheck(ctx); err != nil {
		return WrapError(ErrBackendUnavailable, ErrCodeBackend,
			fmt.Sprintf("%s health check failed: %v", a.backend.Name(), err))
	}
	return nil
}

// Translate 翻译一个窗口，stream 非空且后端支持时走流式路径
func (a *Adapter) Translate(ctx context.Context, req *backend.Request, stream backend.StreamFunc) (*backend.Result, error) {
	res, err := a.call(ctx, req, stream)
	if err != nil {
		return nil, a.classify(err)
	}
	if len(res.Texts) == len(req.Sentences) {
		return res, nil
	}

	a.logger.Warn("后端违反了数量契约，对半拆分重试",
		zap.String("backend", a.backend.Name()),
		zap.Int("requested", len(req.Sentences)),
		zap.Int("returned", len(res.Texts)))

	return a.retryHalved(ctx, req)
}

// retryHalved 以减半的批大小重试一次
// 两个半批各自仍需满足数量契约，否则放弃并上浮失败。
func (a *Adapter) retryHalved(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	if len(req.Sentences) < 2 {
		return nil, a.mismatchError(req)
	}

	mid := len(req.Sentences) / 2
	first := *req
	first.Sentences = req.Sentences[:mid]
	second := *req
	second.Sentences = req.Sentences[mid:]

	merged := &backend.Result{Suggestions: make(map[string]string)}
	for _, half := range []*backend.Request{&first, &second} {
		res, err := a.call(ctx, half, nil)
		if err != nil {
			return nil, a.classify(err)
		}
		if len(res.Texts) != len(half.Sentences) {
			return nil, a.mismatchError(req)
		}
		merged.Texts = append(merged.Texts, res.Texts...)
		merged.TokensIn += res.TokensIn
		merged.TokensOut += res.TokensOut
		for k, v := range res.Suggestions {
			merged.Suggestions[k] = v
		}
	}
	return merged, nil
}

func (a *Adapter) call(ctx context.Context, req *backend.Request, stream backend.StreamFunc) (*backend.Result, error) {
	if stream != nil {
		if s, ok := a.backend.(backend.Streamer); ok && a.backend.SupportsStreaming() {
			return s.TranslateStream(ctx, req, stream)
		}
	}
	return a.backend.TranslateBatch(ctx, req)
}

func (a *Adapter) classify(err error) error {
	if backend.IsUnavailable(err) {
		return WrapError(ErrBackendUnavailable, ErrCodeBackend,
			fmt.Sprintf("%s: %v", a.backend.Name(), err))
	}
	return err
}

func (a *Adapter) mismatchError(req *backend.Request) error {
	return WrapError(ErrBackendOutputMismatch, ErrCodeMismatch,
		fmt.Sprintf("%s dropped or merged sentences in a %d-sentence window",
			a.backend.Name(), len(req.Sentences)))
}
