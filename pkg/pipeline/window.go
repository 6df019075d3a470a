package pipeline

import "fmt"

// ValidateWindowConfig 校验窗口参数
// 约束：windowSize >= 1，0 <= overlap < windowSize。
func ValidateWindowConfig(windowSize, overlap int) error {
	if windowSize < 1 {
		return WrapError(ErrInvalidConfig, ErrCodeConfig,
			fmt.Sprintf("window size must be >= 1, got %d", windowSize))
	}
	if overlap < 0 {
		return WrapError(ErrInvalidConfig, ErrCodeConfig,
			fmt.Sprintf("overlap must be >= 0, got %d", overlap))
	}
	if overlap >= windowSize {
		return WrapError(ErrInvalidConfig, ErrCodeConfig,
			fmt.Sprintf("overlap %d must be smaller than window size %d", overlap, windowSize))
	}
	return nil
}

// PlanWindows 计算覆盖整个章节的重叠窗口序列
// 从句子 0 开始，每个窗口跨 windowSize 个句子，下一个窗口从
// start + windowSize - overlap 开始；相邻窗口共享 overlap 个句子，
// 末窗口可以更短。windowSize >= 章节长度时只产生一个完整窗口。
func PlanWindows(chapter *Chapter, windowSize, overlap int) ([]Window, error) {
	if err := ValidateWindowConfig(windowSize, overlap); err != nil {
		return nil, err
	}
	n := chapter.Len()
	if n == 0 {
		return nil, WrapError(ErrEmptyChapter, ErrCodeConfig,
			fmt.Sprintf("chapter %d is empty", chapter.ID))
	}

	step := windowSize - overlap
	windows := make([]Window, 0, (n+step-1)/step)
	for start := 0; start < n; start += step {
		end := start + windowSize
		if end > n {
			end = n
		}
		windows = append(windows, Window{
			ChapterID: chapter.ID,
			StartID:   chapter.Sentences[start].ID,
			EndID:     chapter.Sentences[end-1].ID,
			Sentences: chapter.Sentences[start:end],
		})
		if end == n {
			break
		}
	}
	return windows, nil
}
