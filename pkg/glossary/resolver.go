package glossary

import "strings"

// 稳定术语标记，要求后端原样保留标记之间的内容
const (
	TermStart = "<<<TERM_START>>>"
	TermEnd   = "<<<TERM_END>>>"
)

// Mode 术语预处理策略
// 结构上两种策略走同一条路径，只是配置开关不同。
type Mode string

const (
	// ModeTrust 不改动原文，依赖后端对术语表提示的忠实度
	ModeTrust Mode = "trust"
	// ModeWrap 用稳定标记包裹术语，强制后端原样保留
	ModeWrap Mode = "wrap"
)

// Resolver 术语解析器
// 发送前做确定性的最长匹配替换，翻译后做剩余术语修正。
type Resolver struct {
	store *Store
	mode  Mode
}

// NewResolver 创建术语解析器
func NewResolver(store *Store, mode Mode) *Resolver {
	if mode == "" {
		mode = ModeTrust
	}
	return &Resolver{store: store, mode: mode}
}

// Mode 返回当前策略
func (r *Resolver) Mode() Mode {
	return r.mode
}

// PrePass 窗口送往后端前的术语处理
// ModeWrap 下把已批准源词替换为带标记的目标词，最长匹配优先
// 避免短词误伤长词；ModeTrust 下原样放行。
func (r *Resolver) PrePass(text string) string {
	if r.mode != ModeWrap {
		return text
	}
	for _, e := range r.store.Approved() {
		text = strings.ReplaceAll(text, e.Source, TermStart+e.Target+TermEnd)
	}
	return text
}

// PostPass 译文返回后的术语处理
// 先剥掉保留标记，再对后端未按术语表翻译的残留源词做
// 最长匹配替换。只作用于已批准词条，待批建议绝不参与。
func (r *Resolver) PostPass(text string) string {
	if r.mode == ModeWrap {
		text = strings.ReplaceAll(text, TermStart, "")
		text = strings.ReplaceAll(text, TermEnd, "")
	}
	for _, e := range r.store.Approved() {
		text = strings.ReplaceAll(text, e.Source, e.Target)
	}
	return text
}
