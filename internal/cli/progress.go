package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-runewidth"

	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// progressRenderer 把编排器的进度事件渲染为终端进度条
// 每个章节一条 tracker，窗口粒度推进；流式后端按句推进。
type progressRenderer struct {
	writer progress.Writer

	mu       sync.Mutex
	trackers map[int]*progress.Tracker
	titles   map[int]string
}

// newProgressRenderer 创建进度渲染器
func newProgressRenderer(titles map[int]string) *progressRenderer {
	w := progress.NewWriter()
	w.SetOutputWriter(os.Stderr)
	w.SetAutoStop(false)
	w.SetTrackerLength(30)
	w.SetMessageLength(28)
	w.SetUpdateFrequency(100 * time.Millisecond)
	w.Style().Visibility.ETA = true
	w.Style().Visibility.Value = true

	return &progressRenderer{
		writer:   w,
		trackers: make(map[int]*progress.Tracker),
		titles:   titles,
	}
}

// Start 启动渲染循环
func (r *progressRenderer) Start() {
	go r.writer.Render()
}

// Stop 结束渲染
func (r *progressRenderer) Stop() {
	// 留给最后一帧渲染的时间
	time.Sleep(150 * time.Millisecond)
	r.writer.Stop()
}

// Handle 消费一条进度事件
func (r *progressRenderer) Handle(ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[ev.ChapterID]
	if !ok {
		title := r.titles[ev.ChapterID]
		if title == "" {
			title = fmt.Sprintf("chapter %d", ev.ChapterID)
		}
		t = &progress.Tracker{
			Message: runewidth.Truncate(title, 28, "…"),
			Total:   int64(ev.SentencesTotal),
			Units:   progress.Units{Notation: " sents", NotationPosition: progress.UnitsNotationPositionAfter},
		}
		r.writer.AppendTracker(t)
		r.trackers[ev.ChapterID] = t
	}

	if int64(ev.SentencesDone) > t.Value() {
		t.SetValue(int64(ev.SentencesDone))
	}

	switch ev.Phase {
	case pipeline.PhaseCompleted:
		t.MarkAsDone()
	case pipeline.PhaseFailed:
		t.MarkAsErrored()
	case pipeline.PhaseCancelled:
		t.MarkAsErrored()
	}
}
