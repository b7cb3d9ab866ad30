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

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("test-token", "chat-42", server.URL, 5*time.Second, zerolog.Nop())
	err := n.Notify(context.Background(), Notification{
		SessionID: "abc",
		Vital:     "heart_rate",
		Label:     "tachycardia",
		Class:     "danger",
		Value:     152.4,
		Timestamp: time.Unix(1700000000, 0),
		Channels:  []string{"telegram"},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotPayload["chat_id"] != "chat-42" {
		t.Fatalf("chat_id = %q", gotPayload["chat_id"])
	}
	text := gotPayload["text"]
	for _, want := range []string{"tachycardia", "heart_rate", "152.4", "abc"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message %q missing %q", text, want)
		}
	}
}

func TestTelegramNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewTelegramNotifier("t", "c", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), Notification{}); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestTelegramNotifierAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	n := NewTelegramNotifier("t", "c", server.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), Notification{}); err == nil {
		t.Fatal("expected error on ok=false")
	}
}
