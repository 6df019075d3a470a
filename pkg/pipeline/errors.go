package pipeline

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrInvalidConfig 窗口/重叠参数非法，任务开始前即拒绝
	ErrInvalidConfig = errors.New("invalid window configuration")

	// ErrBackendUnavailable 后端暂时不可用，可退避重试
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendOutputMismatch 后端违反了输出数量/顺序契约
	ErrBackendOutputMismatch = errors.New("backend output count mismatch")

	// ErrStitchGap 缝合结果存在句子缺口，上游规划或翻译出错
	ErrStitchGap = errors.New("stitched sequence has uncovered sentence ids")

	// ErrEmptyChapter 没有可翻译的句子
	ErrEmptyChapter = errors.New("chapter has no sentences")

	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("job not found")

	// ErrChapterBusy 章节已属于另一个活动任务
	ErrChapterBusy = errors.New("chapter already claimed by an active job")
)

// 错误代码常量
const (
	ErrCodeConfig    = "CONFIG_ERROR"
	ErrCodeBackend   = "BACKEND_UNAVAILABLE"
	ErrCodeMismatch  = "OUTPUT_MISMATCH"
	ErrCodeStitch    = "STITCH_GAP"
	ErrCodeGlossary  = "GLOSSARY_CONFLICT"
	ErrCodeCancelled = "CANCELLED"
	ErrCodeUnknown   = "UNKNOWN_ERROR"
)

// PipelineError 流水线错误
type PipelineError struct {
	Code      string // 错误代码
	Message   string // 错误消息
	Cause     error  // 原因
	ChapterID int    // 发生错误的章节，-1 表示任务级错误
	Retry     bool   // 是否可重试
}

// Error 实现error接口
func (e *PipelineError) Error() string {
	if e.ChapterID >= 0 {
		return fmt.Sprintf("[%s] %s (chapter %d)", e.Code, e.Message, e.ChapterID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *PipelineError) IsRetryable() bool {
	return e.Retry
}

// WrapError 包装错误
func WrapError(err error, code, message string) *PipelineError {
	if err == nil {
		return nil
	}

	// 已是流水线错误时包一层新错误，不修改原错误
	var pe *PipelineError
	if errors.As(err, &pe) {
		return &PipelineError{
			Code:      code,
			Message:   message + ": " + pe.Message,
			Cause:     err,
			ChapterID: pe.ChapterID,
			Retry:     pe.Retry,
		}
	}

	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     err,
		ChapterID: -1,
		Retry:     errors.Is(err, ErrBackendUnavailable),
	}
}

// NewChapterError 创建章节级错误
func NewChapterError(chapterID int, code, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		ChapterID: chapterID,
		Retry:     errors.Is(cause, ErrBackendUnavailable),
	}
}
