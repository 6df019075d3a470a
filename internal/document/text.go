package document

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nerdneilsfield/go-book-translator/internal/segment"
	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// chapterHeadingRe 章节标题行
// 支持 "Chapter 3" / "第3章" / "第三章" 式样的标题。
var chapterHeadingRe = regexp.MustCompile(`^\s*(Chapter\s+\d+.*|第[0-9一二三四五六七八九十百千]+章.*)\s*$`)

// LoadText 从纯文本文件加载章节
// 文档格式解析（EPUB/PDF/DOCX）是外部协作者的职责，这里只提供
// 流水线所需的"章节序列，每章一个句子序列"输入契约的最小实现。
// 没有任何章节标题时整个文件作为单章处理。
func LoadText(path string) ([]*pipeline.Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	type rawChapter struct {
		title string
		body  []string
	}
	var raw []rawChapter
	current := rawChapter{}

	for _, line := range lines {
		if chapterHeadingRe.MatchString(line) {
			if len(current.body) > 0 || current.title != "" {
				raw = append(raw, current)
			}
			current = rawChapter{title: strings.TrimSpace(line)}
			continue
		}
		current.body = append(current.body, line)
	}
	if len(current.body) > 0 || current.title != "" {
		raw = append(raw, current)
	}

	var chapters []*pipeline.Chapter
	for _, rc := range raw {
		body := strings.TrimSpace(strings.Join(rc.body, "\n"))
		if body == "" {
			continue
		}
		id := len(chapters)
		chapters = append(chapters, &pipeline.Chapter{
			ID:        id,
			Title:     rc.title,
			Sentences: segment.Sentences(id, body),
		})
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("input file %s contains no translatable text", path)
	}
	return chapters, nil
}

// WriteText 把翻译结果写为纯文本文件
// 未翻译的句子回落到原文，保证导出文件完整可读。
func WriteText(path string, chapters []*pipeline.Chapter, results map[int][]pipeline.Sentence) error {
	var sb strings.Builder
	for i, ch := range chapters {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if ch.Title != "" {
			sb.WriteString(ch.Title)
			sb.WriteString("\n\n")
		}
		sentences := ch.Sentences
		if translated, ok := results[ch.ID]; ok {
			sentences = translated
		}
		for j, s := range sentences {
			if j > 0 {
				sb.WriteString(" ")
			}
			if s.State == pipeline.SentenceTranslated && s.Target != "" {
				sb.WriteString(s.Target)
			} else {
				sb.WriteString(s.Source)
			}
		}
		sb.WriteString("\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
