package backend

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// 响应标记协议，沿用与模型约定的稳定标记
const (
	StartMark     = "<<<START>>>"
	EndMark       = "<<<END>>>"
	GlossaryStart = "<<<GLOSSARY_START>>>"
	GlossaryEnd   = "<<<GLOSSARY_END>>>"
)

var (
	markedRe = regexp2.MustCompile(
		regexp2.Escape(StartMark)+`(.*?)`+regexp2.Escape(EndMark), regexp2.Singleline)
	glossaryRe = regexp2.MustCompile(
		regexp2.Escape(GlossaryStart)+`(.*?)`+regexp2.Escape(GlossaryEnd), regexp2.Singleline)
	tagRe = regexp2.MustCompile(`^\[(\d+)\]\s*`, regexp2.Multiline)
)

// promptTemplate 窗口翻译提示词
// 句子带 [id] 标签成批发送，要求译文保持同样的标签，
// 标签既提供窗口内的位置信息，也让丢句/并句可被检测。
const promptTemplate = `You are an expert literary translator. Your goal is to produce fluent, natural %s while preserving tone. Use the glossary consistently. Avoid adding explanations.
--- Glossary ---
%s
---
%sTranslate each numbered sentence below to %s. Keep one translated sentence per [id] tag, in the same order. Place the full translation between %s and %s. After that, list any new names or terms as 'source -> translation' lines between %s and %s.
%s`

// BuildPrompt 构建一个窗口的完整提示词
func BuildPrompt(req *Request, baseID int) string {
	glossaryLines := make([]string, 0, len(req.Glossary))
	for _, e := range req.Glossary {
		glossaryLines = append(glossaryLines, fmt.Sprintf("%s -> %s", e.Source, e.Target))
	}

	var contextBlock string
	if req.Context != "" {
		contextBlock = fmt.Sprintf("Preceding text, already translated, for context only (do not re-translate):\n%s\n---\n", req.Context)
	}

	return fmt.Sprintf(promptTemplate,
		req.TargetLanguage,
		strings.Join(glossaryLines, "\n"),
		contextBlock,
		req.TargetLanguage,
		StartMark, EndMark,
		GlossaryStart, GlossaryEnd,
		strings.Join(TagSentences(req.Sentences, baseID), "\n"))
}

// TagSentences 为句子加上 [id] 标签
func TagSentences(sentences []string, baseID int) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = fmt.Sprintf("[%d] %s", baseID+i, s)
	}
	return out
}

// PruneMarked 提取 StartMark 与 EndMark 之间的正文
// 标记缺失时返回整段裁剪后的文本，容忍不守规矩的模型。
func PruneMarked(text string) string {
	if m, _ := markedRe.FindStringMatch(text); m != nil {
		return strings.TrimSpace(m.Groups()[1].Capture.String())
	}
	return strings.TrimSpace(text)
}

// ParseTagged 把带 [id] 标签的响应正文拆回句子序列
// 按标签出现顺序切分，一个标签到下一个标签之间的文本属于该句；
// 返回的切片长度即后端实际产出的句子数，数量契约由适配器裁决。
// 响应完全没有标签时按非空行退化切分。
func ParseTagged(body string) []string {
	runes := []rune(body)
	type tagPos struct {
		start, end int
	}
	var tags []tagPos

	m, _ := tagRe.FindStringMatch(body)
	for m != nil {
		tags = append(tags, tagPos{start: m.Index, end: m.Index + m.Length})
		m, _ = tagRe.FindNextMatch(m)
	}

	if len(tags) == 0 {
		var out []string
		for _, line := range strings.Split(body, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}

	out := make([]string, 0, len(tags))
	for i, t := range tags {
		limit := len(runes)
		if i+1 < len(tags) {
			limit = tags[i+1].start
		}
		out = append(out, strings.TrimSpace(string(runes[t.end:limit])))
	}
	return out
}

// ParseGlossaryBlock 解析响应里模型建议的术语
// 形如 'source -> target' 的行，其余噪声行直接跳过；
// 建议的取舍（幂等、过滤规则）由术语表存储负责。
func ParseGlossaryBlock(text string) map[string]string {
	m, _ := glossaryRe.FindStringMatch(text)
	if m == nil {
		return nil
	}

	out := make(map[string]string)
	for _, line := range strings.Split(m.Groups()[1].Capture.String(), "\n") {
		src, dst, ok := strings.Cut(line, "->")
		if !ok {
			continue
		}
		src = strings.TrimSpace(src)
		dst = strings.TrimSpace(dst)
		if src == "" || dst == "" {
			continue
		}
		out[src] = dst
	}
	return out
}
