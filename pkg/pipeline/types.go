package pipeline

import (
	"time"
)

// SentenceState 句子翻译状态
type SentenceState string

const (
	SentencePending     SentenceState = "pending"
	SentenceTranslating SentenceState = "translating"
	SentenceTranslated  SentenceState = "translated"
	SentenceFailed      SentenceState = "failed"
)

// Sentence 章节内的单个句子
// ID 在章节内单调递增且唯一，Source 分句后不可变，
// Target 仅由该句所属窗口的缝合结果写入一次（重翻请求时覆盖）。
type Sentence struct {
	ID        int           `json:"id"`
	ChapterID int           `json:"chapter_id"`
	Source    string        `json:"source"`
	Target    string        `json:"target,omitempty"`
	State     SentenceState `json:"state"`
}

// Chapter 章节，句子的有序序列
// 由文档模型拥有，流水线只引用不拥有。
type Chapter struct {
	ID        int        `json:"id"`
	Title     string     `json:"title,omitempty"`
	Sentences []Sentence `json:"sentences"`
}

// Len 返回章节句子数
func (c *Chapter) Len() int {
	return len(c.Sentences)
}

// Window 章节句子的连续（可能重叠的）子序列
// 不变式：EndID - StartID + 1 == len(Sentences)，
// 相邻窗口共享 overlap 个句子（章节末窗口可以更短）。
type Window struct {
	ChapterID int        `json:"chapter_id"`
	StartID   int        `json:"start_id"`
	EndID     int        `json:"end_id"`
	Sentences []Sentence `json:"sentences"`
}

// Size 返回窗口内句子数
func (w *Window) Size() int {
	return len(w.Sentences)
}

// Sources 返回窗口内句子的源文本序列
func (w *Window) Sources() []string {
	out := make([]string, len(w.Sentences))
	for i, s := range w.Sentences {
		out[i] = s.Source
	}
	return out
}

// TranslatedWindow 已翻译的窗口，Targets 与 Sentences 一一对应
type TranslatedWindow struct {
	Window
	Targets []string
}

// JobStatus 翻译任务状态
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// ChapterStatus 任务内单个章节的状态
type ChapterStatus string

const (
	ChapterPending   ChapterStatus = "pending"
	ChapterRunning   ChapterStatus = "running"
	ChapterCompleted ChapterStatus = "completed"
	ChapterCancelled ChapterStatus = "cancelled"
	ChapterFailed    ChapterStatus = "failed"
)

// ChapterResult 任务内单个章节的处理结果
// 章节级失败相互隔离：一个章节失败不影响兄弟章节的已完成结果。
type ChapterResult struct {
	ChapterID int
	Status    ChapterStatus
	Sentences []Sentence
	Err       error
	Windows   int
	Attempts  int
}

// Phase 进度事件所处阶段
type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseTranslating Phase = "translating"
	PhaseStitching   Phase = "stitching"
	PhaseGlossary    Phase = "glossary"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
	PhaseCancelled   Phase = "cancelled"
)

// Event 进度事件，按窗口粒度发出
// 流式后端额外按句粒度更新 SentencesDone。
type Event struct {
	JobID          string
	ChapterID      int
	SentencesDone  int
	SentencesTotal int
	Phase          Phase
	Message        string
	Time           time.Time
}

// StreamFunc 流式翻译的句级回调
// sentenceID 为句子在章节内的 ID，partial 为当前已生成的部分译文。
type StreamFunc func(chapterID, sentenceID int, partial string, done bool)

// Progress 汇总一个任务当前的完成度
type Progress struct {
	Total     int
	Completed int
	Percent   float64
}
