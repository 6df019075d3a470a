package segment

import (
	"strings"
	"unicode"

	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// terminal 句末标点
// 省略号等连续标点算作一个边界，数字中间的小数点不是边界。
func terminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// Split 把清洗后的章节文本切分为句子
func Split(text string) []string {
	runes := []rune(text)
	n := len(runes)

	var sentences []string
	var buf strings.Builder

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			sentences = append(sentences, s)
		}
		buf.Reset()
	}

	for i := 0; i < n; i++ {
		r := runes[i]
		buf.WriteRune(r)
		if !terminal(r) {
			continue
		}
		// 连续的句末标点（省略号、?! 组合）整体收尾
		if i+1 < n && terminal(runes[i+1]) {
			continue
		}
		// 3.14 这样的小数点不结束句子
		if r == '.' && i > 0 && i+1 < n &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		flush()
	}
	flush()
	return sentences
}

// Sentences 把章节文本切分为带稳定 ID 的句子序列
// ID 在章节内从 0 起单调递增，状态初始为 Pending。
func Sentences(chapterID int, text string) []pipeline.Sentence {
	parts := Split(text)
	out := make([]pipeline.Sentence, len(parts))
	for i, p := range parts {
		out[i] = pipeline.Sentence{
			ID:        i,
			ChapterID: chapterID,
			Source:    p,
			State:     pipeline.SentencePending,
		}
	}
	return out
}
