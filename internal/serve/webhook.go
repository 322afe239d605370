package serve

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pagefold/pagefold/internal/events"
)

// maxWebhookBody bounds how much of a webhook payload gets read.
const maxWebhookBody = 1 << 20

// webhookHandler accepts authenticated rebuild pokes, typically from a
// repository push webhook. The payload is not interpreted; only the
// signature matters.
func (s *Server) webhookHandler(bus *events.Bus, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "cannot read payload", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("X-Hub-Signature-256")
		if signature == "" {
			signature = r.Header.Get("X-Hub-Signature")
		}
		if !ValidSignature(payload, signature, secret) {
			slog.Warn("webhook rejected: bad signature")
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}

		_ = bus.Publish(r.Context(), events.RebuildRequested{
			Reason:      events.TriggerWebhook,
			RequestedAt: time.Now(),
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	})
}

// ValidSignature checks an HMAC webhook signature against the shared secret.
// The sha256= form is preferred; the legacy sha1= form is accepted for older
// forges.
func ValidSignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	if rest, ok := strings.CutPrefix(signature, "sha256="); ok {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(payload)
		calc := hex.EncodeToString(mac.Sum(nil))
		return hmac.Equal([]byte(rest), []byte(calc))
	}

	if rest, ok := strings.CutPrefix(signature, "sha1="); ok {
		mac := hmac.New(sha1.New, []byte(secret))
		mac.Write(payload)
		calc := hex.EncodeToString(mac.Sum(nil))
		return hmac.Equal([]byte(rest), []byte(calc))
	}

	return false
}
