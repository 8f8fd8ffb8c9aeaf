package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func captureClient(t *testing.T, status int, got *map[string]any, header *http.Header) *HTTPClient {
	t.Helper()
	return newTestHTTPClient(func(r *http.Request) (*http.Response, error) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if header != nil {
			*header = r.Header.Clone()
		}
		return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: make(http.Header)}, nil
	})
}

func TestDiscordAdapterPayload(t *testing.T) {
	var got map[string]any
	adapter := NewDiscordAdapter(captureClient(t, http.StatusNoContent, &got, nil))
	err := adapter.Send(context.Background(), "https://discord.example/webhook", "", Message{
		Title:       "Capture · ROOM01",
		Content:     "p1 captured BT1 on C07",
		Description: "desc",
		Color:       12345,
		Timestamp:   "2026-01-01T00:00:00Z",
		Footer:      "footer-text",
		Fields:      []Field{{Name: "Token", Value: "RT1", Inline: true}},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got["content"] != "p1 captured BT1 on C07" {
		t.Fatalf("unexpected content: %v", got["content"])
	}
	if got["username"] != "Ludo Arena" {
		t.Fatalf("unexpected username: %v", got["username"])
	}
	mentions, ok := got["allowed_mentions"].(map[string]any)
	if !ok || len(mentions["parse"].([]any)) != 0 {
		t.Fatalf("mentions should be disabled: %#v", got["allowed_mentions"])
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("unexpected embeds: %#v", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["color"] != float64(12345) || embed["timestamp"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected embed: %#v", embed)
	}
	footer, ok := embed["footer"].(map[string]any)
	if !ok || footer["text"] != "footer-text" {
		t.Fatalf("unexpected footer: %#v", embed["footer"])
	}
	fields, ok := embed["fields"].([]any)
	if !ok || len(fields) != 1 {
		t.Fatalf("unexpected fields: %#v", embed["fields"])
	}
}

func TestFeishuAdapterSignsWhenSecretSet(t *testing.T) {
	var got map[string]any
	var header http.Header
	adapter := NewFeishuAdapter(captureClient(t, http.StatusOK, &got, &header))
	err := adapter.Send(context.Background(), "https://open.feishu.example/hook", "sig-123", Message{
		Title:   "Game finished · ROOM01",
		Content: "room ROOM01 finished",
		Fields:  []Field{{Name: "Winner", Value: "p1"}},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if header.Get("X-Lark-Signature") != "sig-123" {
		t.Fatalf("missing signature header: %v", header)
	}
	if got["msg_type"] != "interactive" {
		t.Fatalf("unexpected msg_type: %v", got["msg_type"])
	}
	card := got["card"].(map[string]any)
	elements := card["elements"].([]any)
	if len(elements) != 2 {
		t.Fatalf("expected description plus one field, got %d", len(elements))
	}
	first := elements[0].(map[string]any)
	if first["text"] != "room ROOM01 finished" {
		t.Fatalf("description should fall back to content, got %v", first["text"])
	}
}

func TestCardTemplateFollowsEmbedColor(t *testing.T) {
	cases := map[int]string{
		0:        "blue",
		0x5865F2: "blue",
		0xED4245: "red",
		0x3BA55D: "green",
		0xFEE75C: "yellow",
		0x99AAB5: "grey",
	}
	for rgb, want := range cases {
		if got := cardTemplate(rgb); got != want {
			t.Fatalf("cardTemplate(%#06x) = %s, want %s", rgb, got, want)
		}
	}
}

func TestHTTPClientNon2xxIsError(t *testing.T) {
	var got map[string]any
	client := captureClient(t, http.StatusTooManyRequests, &got, nil)
	if err := client.PostJSON(context.Background(), "https://example.com", nil, map[string]any{"a": 1}); err == nil {
		t.Fatal("expected error on 429")
	}
}
