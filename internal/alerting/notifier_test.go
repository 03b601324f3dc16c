package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testNotification() Notification {
	return Notification{
		Filename:     "1999.txt",
		Year:         1999,
		Rows:         525600,
		Malformed:    120,
		MalformedPct: 0.02,
		ThresholdPct: 1.0,
		At:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTelegramNotify(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("token123", "chat456", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Errorf("request path wrong: %q", gotPath)
	}
	if gotPayload["chat_id"] != "chat456" {
		t.Errorf("chat_id wrong: %q", gotPayload["chat_id"])
	}
	text := gotPayload["text"]
	for _, want := range []string{"1999.txt", "year 1999", "malformed: 120"} {
		if !strings.Contains(text, want) {
			t.Errorf("message %q should contain %q", text, want)
		}
	}
}

func TestTelegramNotifyFailureStatuses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad request", http.StatusBadRequest)
		}},
		{"ok false", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false}`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			n := NewTelegramNotifier("token", "chat", server.URL, time.Second, zerolog.Nop())
			if err := n.Notify(context.Background(), testNotification()); err == nil {
				t.Fatalf("Notify should fail")
			}
		})
	}
}

func TestRenderMessageIngestError(t *testing.T) {
	note := testNotification()
	note.IngestError = "open 1999.txt: permission denied"

	msg := renderMessage(note)
	if !strings.Contains(msg, "Ingest failed: open 1999.txt: permission denied") {
		t.Errorf("failure message wrong: %q", msg)
	}
	if strings.Contains(msg, "threshold") {
		t.Errorf("failure message should omit row stats: %q", msg)
	}
}
