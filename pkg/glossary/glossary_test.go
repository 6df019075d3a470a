package glossary_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-book-translator/pkg/glossary"
)

func TestStoreAddAndApproved(t *testing.T) {
	store := glossary.NewStore(nil)
	store.Add("dragon", "巨龙")
	store.Add("fire dragon", "火龙")
	store.Add("elf", "精灵")

	approved := store.Approved()
	require.Len(t, approved, 3)
	// 最长匹配优先：长源词排在前面
	assert.Equal(t, "fire dragon", approved[0].Source)
	for _, e := range approved {
		assert.True(t, e.Approved)
		assert.Equal(t, glossary.ScopeManual, e.Scope)
	}
}

func TestStoreSuggestIdempotent(t *testing.T) {
	store := glossary.NewStore(nil)

	assert.True(t, store.Suggest("Winterfell", "临冬城"))
	assert.False(t, store.Suggest("Winterfell", "凛冬城"), "repeated suggestion must be a no-op")
	assert.Equal(t, 1, store.Size())

	// 已批准的源词不再入待批队列
	store.Add("Castle", "城堡")
	assert.False(t, store.Suggest("Castle", "堡垒"))

	pending := store.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "临冬城", pending[0].Target)
	assert.Equal(t, glossary.ScopeLLM, pending[0].Scope)
	assert.False(t, pending[0].Approved)
}

func TestStoreSuggestFiltersNoise(t *testing.T) {
	store := glossary.NewStore(nil)

	cases := []struct {
		name   string
		source string
		target string
		want   bool
	}{
		{"empty source", "", "x", false},
		{"empty target", "Word", "", false},
		{"single rune", "A", "甲", false},
		{"case-insensitive identical", "Lord", "lord", false},
		{"near identical", "Lords", "Lorde", false},
		{"lowercase ascii start", "hero", "英雄", false},
		{"capitalised proper noun", "Gandalf", "甘道夫", true},
		{"non-ascii source", "英雄", "hero", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, store.Suggest(tc.source, tc.target))
		})
	}
}

func TestStoreApproveAndReject(t *testing.T) {
	store := glossary.NewStore(nil)
	require.True(t, store.Suggest("Rivendell", "瑞文戴尔"))
	require.True(t, store.Suggest("Mordor", "魔多"))

	assert.True(t, store.Approve("Rivendell"))
	assert.False(t, store.Approve("Rivendell"), "already approved")
	assert.True(t, store.Reject("Mordor"))
	assert.False(t, store.Reject("Mordor"), "already rejected")

	require.Len(t, store.Approved(), 1)
	assert.Empty(t, store.Pending())
	assert.Equal(t, glossary.ScopeLLM, store.Approved()[0].Scope)
	assert.True(t, store.Approved()[0].Approved)
}

func TestStoreConflicts(t *testing.T) {
	store := glossary.NewStore(nil)
	store.Add("dragon", "巨龙")
	store.Add("fire dragon", "火龙")
	store.Add("elf", "精灵")

	conflicts := store.Conflicts()
	require.Len(t, conflicts, 1)
	assert.ErrorIs(t, store.CheckConflicts(), glossary.ErrConflict)

	clean := glossary.NewStore(nil)
	clean.Add("dragon", "巨龙")
	clean.Add("elf", "精灵")
	assert.NoError(t, clean.CheckConflicts())
}

func TestResolverPostPassLongestMatch(t *testing.T) {
	store := glossary.NewStore(nil)
	store.Add("fire dragon", "火龙")
	store.Add("dragon", "巨龙")
	r := glossary.NewResolver(store, glossary.ModeTrust)

	out := r.PostPass("the fire dragon fought the dragon")
	assert.Equal(t, "the 火龙 fought the 巨龙", out)
}

func TestResolverPendingNeverSubstituted(t *testing.T) {
	store := glossary.NewStore(nil)
	require.True(t, store.Suggest("Mordor", "魔多"))
	r := glossary.NewResolver(store, glossary.ModeTrust)

	assert.Equal(t, "road to Mordor", r.PostPass("road to Mordor"))

	store.Approve("Mordor")
	assert.Equal(t, "road to 魔多", r.PostPass("road to Mordor"))
}

func TestResolverWrapMode(t *testing.T) {
	store := glossary.NewStore(nil)
	store.Add("Gandalf", "甘道夫")
	r := glossary.NewResolver(store, glossary.ModeWrap)

	pre := r.PrePass("Gandalf spoke.")
	assert.Equal(t, glossary.TermStart+"甘道夫"+glossary.TermEnd+" spoke.", pre)

	// 后端原样保留标记，后处理剥离
	post := r.PostPass(glossary.TermStart + "甘道夫" + glossary.TermEnd + " 说道。")
	assert.Equal(t, "甘道夫 说道。", post)
}

func TestResolverTrustModePrePassUntouched(t *testing.T) {
	store := glossary.NewStore(nil)
	store.Add("Gandalf", "甘道夫")
	r := glossary.NewResolver(store, glossary.ModeTrust)
	assert.Equal(t, "Gandalf spoke.", r.PrePass("Gandalf spoke."))
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.toml")

	store := glossary.NewStore(nil)
	store.Add("dragon", "巨龙")
	require.True(t, store.Suggest("Winterfell", "临冬城"))
	require.NoError(t, glossary.SaveFile(path, store))

	loaded := glossary.NewStore(nil)
	require.NoError(t, glossary.LoadFile(path, loaded))

	approved := loaded.Approved()
	require.Len(t, approved, 1)
	assert.Equal(t, "巨龙", approved[0].Target)

	pending := loaded.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Winterfell", pending[0].Source)
	assert.False(t, pending[0].Approved)
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	store := glossary.NewStore(nil)
	assert.NoError(t, glossary.LoadFile(filepath.Join(t.TempDir(), "absent.toml"), store))
	assert.Equal(t, 0, store.Size())
}
