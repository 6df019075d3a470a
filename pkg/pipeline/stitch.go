package pipeline

import (
	"fmt"
	"sort"
)

// Accumulator 去重缝合器
// 按窗口顺序累积译文并做基于位置的对账：相邻窗口的重叠区间
// 总是采用较后窗口的译文（较后窗口见过更多前文，截断漂移更小）。
// 首窗口的起始句和末窗口的尾部句没有竞争者，原样采用。
type Accumulator struct {
	chapterID int
	targets   map[int]string
	windows   int
}

// NewAccumulator 创建缝合累积器
func NewAccumulator(chapterID int) *Accumulator {
	return &Accumulator{
		chapterID: chapterID,
		targets:   make(map[int]string),
	}
}

// Add 并入一个已翻译窗口
// 重叠句子 ID 的已有译文被无条件覆盖，即后窗口胜出。
func (a *Accumulator) Add(w *TranslatedWindow) error {
	if len(w.Targets) != len(w.Sentences) {
		return WrapError(ErrBackendOutputMismatch, ErrCodeMismatch,
			fmt.Sprintf("window [%d,%d] carries %d targets for %d sentences",
				w.StartID, w.EndID, len(w.Targets), len(w.Sentences)))
	}
	for i, s := range w.Sentences {
		a.targets[s.ID] = w.Targets[i]
	}
	a.windows++
	return nil
}

// Windows 返回已并入的窗口数
func (a *Accumulator) Windows() int {
	return a.windows
}

// Covered 返回已有译文的句子 ID 集合（升序）
func (a *Accumulator) Covered() []int {
	ids := make([]int, 0, len(a.targets))
	for id := range a.targets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Apply 将已累积的译文写回句子序列
// 有译文的句子置为 Translated，无译文的句子回到 Pending，
// 不做覆盖完整性检查，供取消路径保留已完成窗口使用。
func (a *Accumulator) Apply(sentences []Sentence) []Sentence {
	out := make([]Sentence, len(sentences))
	for i, s := range sentences {
		if target, ok := a.targets[s.ID]; ok {
			s.Target = target
			s.State = SentenceTranslated
		} else {
			s.Target = ""
			s.State = SentencePending
		}
		out[i] = s
	}
	return out
}

// Finalize 校验覆盖完整性并产出最终句子序列
// 要求章节内每个句子 ID 恰好一条译文，无缺口无重复；
// 任何缺口都以 ErrStitchGap 直接上浮，绝不悄悄修补。
func (a *Accumulator) Finalize(sentences []Sentence) ([]Sentence, error) {
	var missing []int
	for _, s := range sentences {
		if _, ok := a.targets[s.ID]; !ok {
			missing = append(missing, s.ID)
		}
	}
	if len(missing) > 0 {
		return nil, WrapError(ErrStitchGap, ErrCodeStitch,
			fmt.Sprintf("chapter %d: %d sentence(s) not covered by any window, first missing id %d",
				a.chapterID, len(missing), missing[0]))
	}
	out := make([]Sentence, len(sentences))
	for i, s := range sentences {
		s.Target = a.targets[s.ID]
		s.State = SentenceTranslated
		out[i] = s
	}
	return out, nil
}

// Stitch 把有序的已翻译窗口缝合成一条连续的译文序列
// 便捷入口，等价于依次 Add 后 Finalize。
func Stitch(chapter *Chapter, windows []TranslatedWindow) ([]Sentence, error) {
	acc := NewAccumulator(chapter.ID)
	for i := range windows {
		if err := acc.Add(&windows[i]); err != nil {
			return nil, err
		}
	}
	return acc.Finalize(chapter.Sentences)
}
