package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-book-translator/internal/segment"
	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			"plain english",
			"He drew his sword. The gate fell. And so it began.",
			[]string{"He drew his sword.", "The gate fell.", "And so it began."},
		},
		{
			"ellipsis is one boundary",
			"I think ... maybe. Yes!",
			[]string{"I think ...", "maybe.", "Yes!"},
		},
		{
			"decimal point kept",
			"Value is 3.14. Next.",
			[]string{"Value is 3.14.", "Next."},
		},
		{
			"cjk terminals",
			"他拔出了长剑。城门倒塌了！就这样开始了？",
			[]string{"他拔出了长剑。", "城门倒塌了！", "就这样开始了？"},
		},
		{
			"interrobang run",
			"What?! Really?!",
			[]string{"What?!", "Really?!"},
		},
		{
			"trailing text without terminal",
			"First. and then nothing",
			[]string{"First.", "and then nothing"},
		},
		{
			"whitespace only",
			"   \n\t ",
			nil,
		},
		{
			"empty",
			"",
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, segment.Split(tc.text))
		})
	}
}

func TestSentencesStableIDs(t *testing.T) {
	got := segment.Sentences(3, "He drew his sword. The gate fell.")
	require.Len(t, got, 2)
	for i, s := range got {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, 3, s.ChapterID)
		assert.Equal(t, pipeline.SentencePending, s.State)
		assert.Empty(t, s.Target)
	}
	assert.Equal(t, "The gate fell.", got[1].Source)
}

func TestSentencesEmptyText(t *testing.T) {
	assert.Empty(t, segment.Sentences(0, "  "))
}
