package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranslator(t *testing.T, baseURL string) *Translator {
	t.Helper()
	tr, err := New(Config{BaseURL: baseURL})
	require.NoError(t, err)
	return tr
}

func TestTranslate_EmptyPassthrough(t *testing.T) {
	tr := newTestTranslator(t, "http://127.0.0.1:1") // unreachable — must not be called
	assert.Equal(t, "", tr.Translate(context.Background(), ""))
}

func TestTranslate_AsciiSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)

	assert.Equal(t, "Manufacturing", tr.Translate(context.Background(), "Manufacturing"))
	assert.Equal(t, "Wholesale and retail trade", tr.Translate(context.Background(), "Wholesale and retail trade"))
	assert.Equal(t, int32(0), calls.Load(), "plain ASCII text must not hit the provider")
}

func TestTranslate_DiacriticsGoToProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		_, _ = w.Write([]byte(`{"translatedText": "Information and communication"}`))
	}))
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)
	got := tr.Translate(context.Background(), "Informaatio ja viestintä")
	assert.Equal(t, "Information and communication", got)
}

func TestTranslate_ProviderFailureUsesDictionary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)

	// "Teollisuus" is plain ASCII but a known dictionary key, so it still
	// goes to the provider and falls back on failure.
	got := tr.Translate(context.Background(), "Teollisuus")
	assert.Equal(t, "Manufacturing", got)
}

func TestTranslate_ProviderFailureNoDictionaryEntryKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)
	got := tr.Translate(context.Background(), "Täysin tuntematon toimiala")
	assert.Equal(t, "Täysin tuntematon toimiala", got,
		"dictionary miss must pass the original through, never fail")
}

func TestTranslate_DictionaryExactMatch(t *testing.T) {
	tr := newTestTranslator(t, "http://127.0.0.1:1") // provider unreachable

	// Bypass the ASCII heuristic by calling the fallback path directly
	// through a diacritic entry, then check the canonical exact match.
	assert.Equal(t, "Wholesale and retail trade",
		tr.Translate(context.Background(), "Tukku- ja vähittäiskauppa"))
	assert.Equal(t, "Manufacture of metal products",
		tr.Translate(context.Background(), "Metallituotteiden valmistus"))
}

func TestTranslate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)
	for i := 0; i < 6; i++ {
		got := tr.Translate(context.Background(), "Täysin tuntematon toimiala")
		assert.Equal(t, "Täysin tuntematon toimiala", got)
	}

	// Default breaker trips after 3 consecutive failures; later calls must
	// short-circuit to the fallback without hitting the provider.
	assert.Equal(t, "open", tr.breaker.State())
	assert.Equal(t, int32(3), calls.Load())
}
