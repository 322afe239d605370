package serve

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/events"
)

func sign(newHash func() hash.Hash, prefix, secret string, payload []byte) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(payload)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)

	cases := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"sha256 valid", sign(sha256.New, "sha256=", "s3cret", payload), "s3cret", true},
		{"sha1 legacy valid", sign(sha1.New, "sha1=", "s3cret", payload), "s3cret", true},
		{"wrong secret", sign(sha256.New, "sha256=", "other", payload), "s3cret", false},
		{"unknown prefix", sign(sha256.New, "md5=", "s3cret", payload), "s3cret", false},
		{"empty signature", "", "s3cret", false},
		{"empty secret", sign(sha256.New, "sha256=", "s3cret", payload), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ValidSignature(payload, tc.signature, tc.secret))
		})
	}
}

func TestWebhookHandler_AcceptsSignedPoke(t *testing.T) {
	s := New(&config.Config{}, "site.yaml", Options{})
	bus := events.NewBus()
	defer bus.Close()
	reqs, stop := events.Subscribe[events.RebuildRequested](bus, 1)
	defer stop()

	payload := `{"ref":"refs/heads/main"}`
	req := httptest.NewRequest(http.MethodPost, "/-/rebuild", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", sign(sha256.New, "sha256=", "s3cret", []byte(payload)))
	rec := httptest.NewRecorder()

	s.webhookHandler(bus, "s3cret").ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "queued")

	select {
	case ev := <-reqs:
		require.Equal(t, events.TriggerWebhook, ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("no rebuild request published")
	}
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	s := New(&config.Config{}, "site.yaml", Options{})
	bus := events.NewBus()
	defer bus.Close()
	reqs, stop := events.Subscribe[events.RebuildRequested](bus, 1)
	defer stop()

	req := httptest.NewRequest(http.MethodPost, "/-/rebuild", strings.NewReader("{}"))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()

	s.webhookHandler(bus, "s3cret").ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	select {
	case ev := <-reqs:
		t.Fatalf("rejected poke still published: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhookHandler_RejectsNonPost(t *testing.T) {
	s := New(&config.Config{}, "site.yaml", Options{})
	bus := events.NewBus()
	defer bus.Close()

	rec := httptest.NewRecorder()
	s.webhookHandler(bus, "s3cret").ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/-/rebuild", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}
