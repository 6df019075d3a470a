package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"github.com/nerdneilsfield/go-book-translator/pkg/glossary"
)

// Orchestrator 翻译编排器
// 驱动整条流水线：窗口规划 →（逐窗口）后端调用 → 去重缝合，
// 章节内窗口严格串行（重叠上下文依赖），章节之间、任务之间并发，
// 全局信号量限制同时在途的后端调用数，保护本地推理服务器。
type Orchestrator struct {
	adapter  *Adapter
	store    *glossary.Store
	resolver *glossary.Resolver
	logger   *zap.Logger

	sem chan struct{}

	// mu 只保护任务注册表；章节结果由各 Job 自己的锁保护
	mu      sync.Mutex
	jobs    map[string]*Job
	claimed map[int]string // 章节 ID -> 活动任务 ID

	eventFn  func(Event)
	streamFn StreamFunc
}

// OrchestratorOption 编排器配置选项
type OrchestratorOption func(*Orchestrator)

// WithLogger 设置logger
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMaxConcurrent 限制同时在途的后端调用数（准入控制）
func WithMaxConcurrent(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.sem = make(chan struct{}, n)
		}
	}
}

// WithEventHandler 设置进度事件回调
func WithEventHandler(fn func(Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.eventFn = fn
	}
}

// WithStreamHandler 设置句级流式回调
func WithStreamHandler(fn StreamFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		o.streamFn = fn
	}
}

// WithResolver 设置术语解析器
func WithResolver(r *glossary.Resolver) OrchestratorOption {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// NewOrchestrator 创建编排器
func NewOrchestrator(adapter *Adapter, store *glossary.Store, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		adapter: adapter,
		store:   store,
		logger:  zap.NewNop(),
		sem:     make(chan struct{}, 4),
		jobs:    make(map[string]*Job),
		claimed: make(map[int]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = glossary.NewResolver(store, glossary.ModeTrust)
	}
	return o
}

// Submit 注册一个新任务
// 配置非法立即以 InvalidConfig 拒绝；章节已属于别的活动任务时
// 以 ErrChapterBusy 拒绝。术语冲突只告警，翻译按最长匹配继续。
func (o *Orchestrator) Submit(chapters []*Chapter, cfg JobConfig) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, WrapError(ErrEmptyChapter, ErrCodeConfig, "job contains no chapters")
	}

	if err := o.store.CheckConflicts(); err != nil {
		o.logger.Warn("术语表存在重叠词条，替换按最长匹配继续",
			zap.Error(err))
	}

	job := &Job{
		ID:        uuid.New().String(),
		Config:    cfg,
		CreatedAt: time.Now(),
		status:    JobQueued,
		done:      make(chan struct{}),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range chapters {
		if owner, ok := o.claimed[ch.ID]; ok {
			return nil, WrapError(ErrChapterBusy, ErrCodeConfig,
				fmt.Sprintf("chapter %d already claimed by job %s", ch.ID, owner))
		}
	}
	for _, ch := range chapters {
		o.claimed[ch.ID] = job.ID

		sentences := make([]Sentence, len(ch.Sentences))
		copy(sentences, ch.Sentences)
		job.chapters = append(job.chapters, &ChapterResult{
			ChapterID: ch.ID,
			Status:    ChapterPending,
			Sentences: sentences,
		})
	}
	o.jobs[job.ID] = job

	o.logger.Info("任务已入队",
		zap.String("job", job.ID),
		zap.Int("chapters", len(chapters)),
		zap.Int("window", cfg.WindowSize),
		zap.Int("overlap", cfg.Overlap))
	return job, nil
}

// Get 按 ID 查找任务
func (o *Orchestrator) Get(jobID string) (*Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return nil, WrapError(ErrJobNotFound, ErrCodeUnknown, jobID)
	}
	return job, nil
}

// Cancel 请求取消一个任务
func (o *Orchestrator) Cancel(jobID string) error {
	job, err := o.Get(jobID)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

// Run 执行任务直至结束
// 每个章节一个 goroutine 并发推进；控制协程只等待，不占用
// 后端调用额度。章节级失败相互隔离，不中止兄弟章节。
func (o *Orchestrator) Run(ctx context.Context, job *Job) error {
	if job.Status() != JobQueued {
		return WrapError(ErrInvalidConfig, ErrCodeConfig,
			fmt.Sprintf("job %s is %s, not queued", job.ID, job.Status()))
	}
	job.setStatus(JobRunning)
	defer close(job.done)
	defer o.releaseClaims(job)

	var wg sync.WaitGroup
	for _, ch := range job.Chapters() {
		wg.Add(1)
		go func(ch *ChapterResult) {
			defer wg.Done()
			o.runChapter(ctx, job, ch)
		}(ch)
	}
	wg.Wait()

	final := job.finalStatus()
	job.setStatus(final)
	o.logger.Info("任务结束",
		zap.String("job", job.ID),
		zap.String("status", string(final)),
		zap.Duration("duration", job.Duration()))
	return nil
}

// runChapter 串行推进一个章节的所有窗口
func (o *Orchestrator) runChapter(ctx context.Context, job *Job, ch *ChapterResult) {
	cfg := job.Config
	chapter := &Chapter{ID: ch.ChapterID, Sentences: ch.Sentences}
	total := len(ch.Sentences)

	o.setChapterStatus(job, ch, ChapterRunning)
	o.emit(job, ch, 0, total, PhasePlanning, "")

	windows, err := PlanWindows(chapter, cfg.WindowSize, cfg.Overlap)
	if err != nil {
		o.failChapter(job, ch, nil, err)
		return
	}

	acc := NewAccumulator(ch.ChapterID)
	step := cfg.WindowSize - cfg.Overlap
	var prevTail string
	var suggested int

	for wi := range windows {
		w := &windows[wi]

		// 取消只在窗口边界生效
		if job.Cancelled() {
			o.cancelChapter(job, ch, acc)
			return
		}

		startPos := wi * step
		o.markRange(job, ch, startPos, startPos+w.Size(), SentenceTranslating)

		res, err := o.translateWindow(ctx, job, ch, w, startPos, prevTail)
		if err != nil {
			o.failChapter(job, ch, acc, err)
			o.markFailedWindow(job, ch, startPos, startPos+w.Size())
			return
		}

		targets := make([]string, len(res.Texts))
		for i, t := range res.Texts {
			targets[i] = o.resolver.PostPass(t)
		}
		if err := acc.Add(&TranslatedWindow{Window: *w, Targets: targets}); err != nil {
			o.failChapter(job, ch, acc, err)
			return
		}
		o.applyAccumulated(job, ch, acc)

		for src, dst := range res.Suggestions {
			if o.store.Suggest(src, dst) {
				suggested++
			}
		}

		if cfg.PropagateContext {
			prevTail = contextTail(targets, cfg.Overlap)
		}

		done := startPos + w.Size()
		if done > total {
			done = total
		}
		o.emit(job, ch, done, total, PhaseTranslating,
			fmt.Sprintf("window %d/%d", wi+1, len(windows)))
	}

	o.emit(job, ch, total, total, PhaseStitching, "")
	stitched, err := acc.Finalize(ch.Sentences)
	if err != nil {
		o.failChapter(job, ch, nil, err)
		return
	}
	o.setChapterSentences(job, ch, stitched)

	if suggested > 0 {
		o.emit(job, ch, total, total, PhaseGlossary,
			fmt.Sprintf("%d new term(s) pending approval", suggested))
	}

	job.mu.Lock()
	ch.Status = ChapterCompleted
	ch.Windows = acc.Windows()
	job.mu.Unlock()
	o.emit(job, ch, total, total, PhaseCompleted, "")
}

// translateWindow 调用后端翻译一个窗口，含退避重试
// BackendUnavailable 按指数退避重试直到预算耗尽，其余错误直接失败。
func (o *Orchestrator) translateWindow(ctx context.Context, job *Job, ch *ChapterResult, w *Window, startPos int, prevTail string) (*backend.Result, error) {
	cfg := job.Config
	sources := make([]string, w.Size())
	for i, s := range w.Sentences {
		sources[i] = o.resolver.PrePass(s.Source)
	}

	req := &backend.Request{
		Sentences:      sources,
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		Glossary:       o.store.Approved(),
	}
	if cfg.PropagateContext {
		req.Context = prevTail
	}

	var stream backend.StreamFunc
	if cfg.Stream && o.adapter.SupportsStreaming() {
		total := len(ch.Sentences)
		stream = func(index int, partial string, done bool) {
			if index >= w.Size() {
				return
			}
			id := w.Sentences[index].ID
			if o.streamFn != nil {
				o.streamFn(ch.ChapterID, id, partial, done)
			}
			if done {
				o.emit(job, ch, startPos+index+1, total, PhaseTranslating, "")
			}
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		job.mu.Lock()
		ch.Attempts++
		job.mu.Unlock()

		o.sem <- struct{}{}
		res, err := o.adapter.Translate(ctx, req, stream)
		<-o.sem

		if err == nil {
			return res, nil
		}
		lastErr = err

		if !errors.Is(err, ErrBackendUnavailable) || attempt == maxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		o.logger.Warn("后端暂不可用，退避后重试",
			zap.String("job", job.ID),
			zap.Int("chapter", ch.ChapterID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoffDelay 第 attempt 次失败后的退避时长
func backoffDelay(cfg JobConfig, attempt int) time.Duration {
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	factor := cfg.BackoffFactor
	if factor <= 1.0 {
		factor = 2.0
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * factor)
	}
	if cfg.MaxBackoff > 0 && delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}
	return delay
}

// contextTail 取窗口译文尾部若干句作为下一窗口的前文
func contextTail(targets []string, overlap int) string {
	if overlap <= 0 || len(targets) == 0 {
		return ""
	}
	start := len(targets) - overlap
	if start < 0 {
		start = 0
	}
	return strings.Join(targets[start:], " ")
}

// cancelChapter 在窗口边界落实取消
// 已完成窗口的译文保留，未翻译句子回到 Pending，
// 不做完整性缝合，不留下 Translating 状态的句子。
func (o *Orchestrator) cancelChapter(job *Job, ch *ChapterResult, acc *Accumulator) {
	job.mu.Lock()
	ch.Sentences = acc.Apply(ch.Sentences)
	ch.Status = ChapterCancelled
	ch.Windows = acc.Windows()
	job.mu.Unlock()
	o.emit(job, ch, len(acc.Covered()), len(ch.Sentences), PhaseCancelled, "")
}

// failChapter 标记章节失败，不波及兄弟章节
func (o *Orchestrator) failChapter(job *Job, ch *ChapterResult, acc *Accumulator, err error) {
	job.mu.Lock()
	if acc != nil {
		ch.Sentences = acc.Apply(ch.Sentences)
	}
	ch.Status = ChapterFailed
	ch.Err = NewChapterError(ch.ChapterID, errCode(err), err.Error(), err)
	job.mu.Unlock()

	o.logger.Error("章节翻译失败",
		zap.String("job", job.ID),
		zap.Int("chapter", ch.ChapterID),
		zap.Error(err))
	o.emit(job, ch, 0, len(ch.Sentences), PhaseFailed, err.Error())
}

// errCode 从错误推导错误代码
func errCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ErrCodeConfig
	case errors.Is(err, ErrBackendUnavailable):
		return ErrCodeBackend
	case errors.Is(err, ErrBackendOutputMismatch):
		return ErrCodeMismatch
	case errors.Is(err, ErrStitchGap):
		return ErrCodeStitch
	default:
		return ErrCodeUnknown
	}
}

// markRange 批量更新一段句子的状态
func (o *Orchestrator) markRange(job *Job, ch *ChapterResult, from, to int, state SentenceState) {
	job.mu.Lock()
	defer job.mu.Unlock()
	for i := from; i < to && i < len(ch.Sentences); i++ {
		// 已有译文的重叠句保持 Translated
		if state == SentenceTranslating && ch.Sentences[i].State == SentenceTranslated {
			continue
		}
		ch.Sentences[i].State = state
	}
}

// markFailedWindow 失败窗口内没有译文的句子标记为 Failed
func (o *Orchestrator) markFailedWindow(job *Job, ch *ChapterResult, from, to int) {
	job.mu.Lock()
	defer job.mu.Unlock()
	for i := from; i < to && i < len(ch.Sentences); i++ {
		if ch.Sentences[i].State != SentenceTranslated {
			ch.Sentences[i].State = SentenceFailed
		}
	}
}

// applyAccumulated 把累积译文写回章节结果
func (o *Orchestrator) applyAccumulated(job *Job, ch *ChapterResult, acc *Accumulator) {
	job.mu.Lock()
	defer job.mu.Unlock()
	applied := acc.Apply(ch.Sentences)
	for i := range applied {
		if applied[i].State == SentenceTranslated {
			ch.Sentences[i] = applied[i]
		}
	}
}

// setChapterSentences 替换章节结果的句子序列
func (o *Orchestrator) setChapterSentences(job *Job, ch *ChapterResult, sentences []Sentence) {
	job.mu.Lock()
	defer job.mu.Unlock()
	ch.Sentences = sentences
}

// setChapterStatus 更新章节状态
func (o *Orchestrator) setChapterStatus(job *Job, ch *ChapterResult, status ChapterStatus) {
	job.mu.Lock()
	defer job.mu.Unlock()
	ch.Status = status
}

// releaseClaims 释放任务占用的章节
func (o *Orchestrator) releaseClaims(job *Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, owner := range o.claimed {
		if owner == job.ID {
			delete(o.claimed, id)
		}
	}
}

// emit 发出进度事件
func (o *Orchestrator) emit(job *Job, ch *ChapterResult, done, total int, phase Phase, msg string) {
	if o.eventFn == nil {
		return
	}
	o.eventFn(Event{
		JobID:          job.ID,
		ChapterID:      ch.ChapterID,
		SentencesDone:  done,
		SentencesTotal: total,
		Phase:          phase,
		Message:        msg,
		Time:           time.Now(),
	})
}
