package glossary

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
)

// Scope 词条来源
type Scope string

const (
	// ScopeManual 用户手工维护的词条
	ScopeManual Scope = "manual"
	// ScopeLLM 模型在翻译过程中建议的词条
	ScopeLLM Scope = "llm-suggested"
)

// ErrConflict 已批准词条的源词互相重叠
var ErrConflict = errors.New("glossary entries have overlapping source terms")

// Entry 术语表词条
// LLM 建议的词条在人工批准前绝不参与替换，这是一致性门禁而非缓存。
type Entry struct {
	Source   string `toml:"source" json:"source"`
	Target   string `toml:"target" json:"target"`
	Scope    Scope  `toml:"scope" json:"scope"`
	Approved bool   `toml:"approved" json:"approved"`
}

// Conflict 一对源词重叠的已批准词条
type Conflict struct {
	A Entry
	B Entry
}

func (c Conflict) String() string {
	return fmt.Sprintf("%q overlaps %q", c.A.Source, c.B.Source)
}

// Store 术语表存储
// 翻译期间并发读、建议追加串行写（单写多读）。
type Store struct {
	mu       sync.RWMutex
	approved map[string]Entry
	pending  map[string]Entry
	logger   *zap.Logger
}

// NewStore 创建术语表存储
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		approved: make(map[string]Entry),
		pending:  make(map[string]Entry),
		logger:   logger,
	}
}

// Add 加入一条已批准的手工词条
func (s *Store) Add(source, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approved[source] = Entry{
		Source:   source,
		Target:   target,
		Scope:    ScopeManual,
		Approved: true,
	}
}

// Approved 返回全部已批准词条，按源词长度降序（最长匹配优先）
func (s *Store) Approved() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.approved))
	for _, e := range s.approved {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Source) != len(out[j].Source) {
			return len(out[i].Source) > len(out[j].Source)
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Pending 返回全部待批准的建议词条
func (s *Store) Pending() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Size 返回词条总数（已批准 + 待批准）
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.approved) + len(s.pending)
}

// Suggest 追加一条模型建议的词条
// 幂等：同一源词已在批准集或待批集中时为无操作，返回 false。
// 过滤规则沿用人工审核经验：源词至少两个字符、首字母大写或含
// 非 ASCII 字符、源译近同（编辑距离 <= 1）的噪声建议直接丢弃。
func (s *Store) Suggest(source, target string) bool {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if !acceptableSuggestion(source, target) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.approved[source]; ok {
		return false
	}
	if _, ok := s.pending[source]; ok {
		return false
	}
	s.pending[source] = Entry{
		Source:   source,
		Target:   target,
		Scope:    ScopeLLM,
		Approved: false,
	}
	s.logger.Debug("记录模型建议的词条",
		zap.String("source", source),
		zap.String("target", target))
	return true
}

// Approve 批准一条待批词条，使其参与后续替换
func (s *Store) Approve(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[source]
	if !ok {
		return false
	}
	delete(s.pending, source)
	e.Approved = true
	s.approved[source] = e
	return true
}

// Reject 丢弃一条待批词条
func (s *Store) Reject(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[source]; !ok {
		return false
	}
	delete(s.pending, source)
	return true
}

// Conflicts 检出源词互相重叠的已批准词条对
// 冲突交由调用方人工消解，期间替换按最长匹配继续进行。
func (s *Store) Conflicts() []Conflict {
	entries := s.Approved()
	var out []Conflict
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if strings.Contains(entries[i].Source, entries[j].Source) ||
				strings.Contains(entries[j].Source, entries[i].Source) {
				out = append(out, Conflict{A: entries[i], B: entries[j]})
			}
		}
	}
	return out
}

// CheckConflicts 存在重叠词条时返回 ErrConflict
func (s *Store) CheckConflicts() error {
	conflicts := s.Conflicts()
	if len(conflicts) == 0 {
		return nil
	}
	parts := make([]string, len(conflicts))
	for i, c := range conflicts {
		parts[i] = c.String()
	}
	return fmt.Errorf("%w: %s", ErrConflict, strings.Join(parts, "; "))
}

// acceptableSuggestion 判断一条建议是否值得入队
func acceptableSuggestion(source, target string) bool {
	if source == "" || target == "" {
		return false
	}
	if utf8.RuneCountInString(source) <= 1 {
		return false
	}
	if strings.EqualFold(source, target) {
		return false
	}
	// 源译几乎相同的建议没有信息量
	if fuzzy.LevenshteinDistance(strings.ToLower(source), strings.ToLower(target)) <= 1 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(source)
	if first < utf8.RuneSelf && !unicode.IsUpper(first) {
		return false
	}
	return true
}
