package pipeline_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// makeChapter 构造 n 句的测试章节
func makeChapter(id, n int) *pipeline.Chapter {
	ch := &pipeline.Chapter{ID: id}
	for i := 0; i < n; i++ {
		ch.Sentences = append(ch.Sentences, pipeline.Sentence{
			ID:        i,
			ChapterID: id,
			Source:    fmt.Sprintf("sentence %d.", i),
			State:     pipeline.SentencePending,
		})
	}
	return ch
}

func TestPlanWindowsOverlap(t *testing.T) {
	// N=12, W=5, O=2 → [0,5) [3,8) [6,11) [9,12)
	ch := makeChapter(0, 12)
	windows, err := pipeline.PlanWindows(ch, 5, 2)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	assert.Equal(t, 0, windows[0].StartID)
	assert.Equal(t, 4, windows[0].EndID)
	assert.Equal(t, 3, windows[1].StartID)
	assert.Equal(t, 7, windows[1].EndID)
	assert.Equal(t, 6, windows[2].StartID)
	assert.Equal(t, 10, windows[2].EndID)
	assert.Equal(t, 9, windows[3].StartID)
	assert.Equal(t, 11, windows[3].EndID)

	// 相邻窗口共享恰好 overlap 个句子
	for i := 0; i < len(windows)-1; i++ {
		tail := windows[i].Sentences[windows[i].Size()-2:]
		head := windows[i+1].Sentences[:2]
		assert.Equal(t, tail, head, "windows %d and %d", i, i+1)
	}
}

func TestPlanWindowsSingleWindow(t *testing.T) {
	// N=12, W=50 → 单窗口 [0,12)，无需重叠
	ch := makeChapter(0, 12)
	windows, err := pipeline.PlanWindows(ch, 50, 10)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, 0, windows[0].StartID)
	assert.Equal(t, 11, windows[0].EndID)
	assert.Equal(t, 12, windows[0].Size())
}

func TestPlanWindowsExactFit(t *testing.T) {
	ch := makeChapter(0, 5)
	windows, err := pipeline.PlanWindows(ch, 5, 2)
	require.NoError(t, err)
	require.Len(t, windows, 1)
}

func TestPlanWindowsInvalidConfig(t *testing.T) {
	ch := makeChapter(0, 10)

	_, err := pipeline.PlanWindows(ch, 0, 0)
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)

	_, err = pipeline.PlanWindows(ch, 5, 5)
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)

	_, err = pipeline.PlanWindows(ch, 5, 7)
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)

	_, err = pipeline.PlanWindows(ch, 5, -1)
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestPlanWindowsEmptyChapter(t *testing.T) {
	_, err := pipeline.PlanWindows(&pipeline.Chapter{ID: 1}, 5, 2)
	assert.ErrorIs(t, err, pipeline.ErrEmptyChapter)
}

func TestPlanWindowsCoversEveryIDExactlyOnceAfterStitch(t *testing.T) {
	// 任意合法参数组合下，窗口并集经缝合后恰好覆盖 [0, N) 一次
	cases := []struct{ n, w, o int }{
		{1, 1, 0},
		{2, 5, 2},
		{7, 3, 1},
		{12, 5, 2},
		{13, 4, 3},
		{50, 50, 10},
		{100, 7, 0},
		{101, 10, 9},
	}
	for _, tc := range cases {
		name := fmt.Sprintf("n%d_w%d_o%d", tc.n, tc.w, tc.o)
		t.Run(name, func(t *testing.T) {
			ch := makeChapter(0, tc.n)
			windows, err := pipeline.PlanWindows(ch, tc.w, tc.o)
			require.NoError(t, err)

			translated := make([]pipeline.TranslatedWindow, len(windows))
			for i, w := range windows {
				tw := pipeline.TranslatedWindow{Window: w}
				for _, s := range w.Sentences {
					tw.Targets = append(tw.Targets, fmt.Sprintf("t%d", s.ID))
				}
				translated[i] = tw
			}

			stitched, err := pipeline.Stitch(ch, translated)
			require.NoError(t, err)
			require.Len(t, stitched, tc.n)
			for i, s := range stitched {
				assert.Equal(t, i, s.ID)
				assert.Equal(t, fmt.Sprintf("t%d", i), s.Target)
				assert.Equal(t, pipeline.SentenceTranslated, s.State)
			}
		})
	}
}
