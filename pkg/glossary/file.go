package glossary

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileFormat 术语表文件的 TOML 结构
type fileFormat struct {
	Entries []Entry `toml:"entries"`
}

// LoadFile 从 TOML 文件加载术语表
// 文件不存在不视为错误，返回空存储。
func LoadFile(path string, store *Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read glossary file: %w", err)
	}

	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, e := range f.Entries {
		if e.Source == "" {
			continue
		}
		if e.Scope == "" {
			e.Scope = ScopeManual
		}
		if e.Approved {
			store.approved[e.Source] = e
		} else {
			store.pending[e.Source] = e
		}
	}
	return nil
}

// SaveFile 将术语表写回 TOML 文件
// 待批建议一并落盘，供人工批准后下次加载生效。
func SaveFile(path string, store *Store) error {
	f := fileFormat{}
	f.Entries = append(f.Entries, store.Approved()...)
	f.Entries = append(f.Entries, store.Pending()...)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create glossary directory: %w", err)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create glossary file: %w", err)
	}
	defer out.Close()

	if err := toml.NewEncoder(out).Encode(f); err != nil {
		return fmt.Errorf("failed to encode glossary file: %w", err)
	}
	return nil
}
