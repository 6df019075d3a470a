package factory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-book-translator/pkg/backend"
	"github.com/nerdneilsfield/go-book-translator/pkg/backend/factory"
)

func TestNewByKind(t *testing.T) {
	for _, kind := range factory.Kinds() {
		t.Run(kind, func(t *testing.T) {
			b, err := factory.New(factory.Settings{Kind: kind})
			require.NoError(t, err)
			assert.Equal(t, kind, b.Name())
		})
	}
}

func TestNewOllamaForwardsExtraOptions(t *testing.T) {
	// Extra 必须透传到 /api/generate 的 options
	var gotOptions map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Options map[string]any `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotOptions = body.Options
		json.NewEncoder(w).Encode(map[string]any{"response": "<<<START>>>\n[0] ok\n<<<END>>>", "done": true})
	}))
	defer srv.Close()

	b, err := factory.New(factory.Settings{
		Kind:     "ollama",
		Endpoint: srv.URL,
		Extra:    map[string]string{"num_ctx": "8192"},
	})
	require.NoError(t, err)

	_, err = b.TranslateBatch(context.Background(), &backend.Request{
		Sentences:      []string{"hello"},
		TargetLanguage: "Chinese",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(8192), gotOptions["num_ctx"])
}

func TestNewUnknownKind(t *testing.T) {
	_, err := factory.New(factory.Settings{Kind: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestStreamingCapabilityByKind(t *testing.T) {
	cases := map[string]bool{
		"ollama":      true,
		"openai":      true,
		"huggingface": false,
	}
	for kind, want := range cases {
		b, err := factory.New(factory.Settings{Kind: kind})
		require.NoError(t, err)
		assert.Equal(t, want, b.SupportsStreaming(), kind)
	}
}
