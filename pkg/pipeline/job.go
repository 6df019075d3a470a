package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobConfig 一次翻译任务的配置
type JobConfig struct {
	SourceLanguage string
	TargetLanguage string

	// 滑动窗口参数
	WindowSize int
	Overlap    int

	// BackendUnavailable 的退避重试预算
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// PropagateContext 把上一窗口译文尾部作为前文传给后端
	// 需要上下文传播的后端必须等上一窗口结果就绪才能派发下一窗口。
	PropagateContext bool

	// Stream 后端支持时启用句级流式输出
	Stream bool
}

// DefaultJobConfig 返回默认任务配置
func DefaultJobConfig() JobConfig {
	return JobConfig{
		WindowSize:     50,
		Overlap:        10,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Validate 校验任务配置
func (c *JobConfig) Validate() error {
	return ValidateWindowConfig(c.WindowSize, c.Overlap)
}

// Job 一次翻译任务
// 由编排器独占拥有；一个章节同一时刻至多属于一个活动任务。
// 状态机：Queued → Running → {Completed | Cancelled | Failed}。
type Job struct {
	ID        string
	Config    JobConfig
	CreatedAt time.Time

	mu         sync.RWMutex
	status     JobStatus
	chapters   []*ChapterResult
	startedAt  time.Time
	finishedAt time.Time

	cancelled atomic.Bool
	done      chan struct{}
}

// Status 返回任务当前状态
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Cancel 请求协作式取消
// 只在窗口边界生效：在途的后端调用会完整结束并保留其结果，
// 不会留下缝合了一半的章节。
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled 是否已被请求取消
func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// Done 任务结束时关闭
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Chapters 返回任务内各章节的处理结果（快照引用）
func (j *Job) Chapters() []*ChapterResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]*ChapterResult, len(j.chapters))
	copy(out, j.chapters)
	return out
}

// Progress 汇总任务当前完成度（句子粒度）
func (j *Job) Progress() Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var p Progress
	for _, ch := range j.chapters {
		p.Total += len(ch.Sentences)
		for _, s := range ch.Sentences {
			if s.State == SentenceTranslated {
				p.Completed++
			}
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// Duration 任务耗时
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.startedAt.IsZero() {
		return 0
	}
	if j.finishedAt.IsZero() {
		return time.Since(j.startedAt)
	}
	return j.finishedAt.Sub(j.startedAt)
}

// setStatus 更新任务状态
func (j *Job) setStatus(s JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s
	switch s {
	case JobRunning:
		j.startedAt = time.Now()
	case JobCompleted, JobCancelled, JobFailed:
		j.finishedAt = time.Now()
	}
}

// finalStatus 根据各章节结果推导收尾状态
func (j *Job) finalStatus() JobStatus {
	if j.Cancelled() {
		return JobCancelled
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, ch := range j.chapters {
		if ch.Status == ChapterFailed {
			return JobFailed
		}
	}
	return JobCompleted
}
