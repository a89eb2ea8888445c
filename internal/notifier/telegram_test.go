package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

const message = `{"message_id":1,"date":0,"chat":{"id":-100,"type":"group"}}`

type botServer struct {
	calls map[string]int
	form  map[string]string
	fail  bool
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	b.calls[method]++
	_ = r.ParseForm()
	for k := range r.PostForm {
		b.form[k] = r.PostForm.Get(k)
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe":
		w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"alerts","username":"alerts_bot"}}`))
	case b.fail:
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	case method == "sendMediaGroup":
		w.Write([]byte(`{"ok":true,"result":[` + message + `,` + message + `]}`))
	default:
		w.Write([]byte(`{"ok":true,"result":` + message + `}`))
	}
}

func newTestTelegram(t *testing.T, b *botServer) *Telegram {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	tg, err := newTelegram("123:abc", srv.URL+"/bot%s/%s", srv.Client(), testLog)
	if err != nil {
		t.Fatalf("newTelegram error: %v", err)
	}
	return tg
}

func TestTelegramSendMediaGroup(t *testing.T) {
	b := &botServer{calls: map[string]int{}, form: map[string]string{}}
	tg := newTestTelegram(t, b)

	err := tg.SendMediaGroup(context.Background(), -100, []MediaItem{
		{Caption: "Desk - $50 - https://www.example.com/v/1", URL: "https://img.example.com/1.jpg"},
		{URL: "https://img.example.com/2.jpg"},
	})
	if err != nil {
		t.Fatalf("SendMediaGroup error: %v", err)
	}
	if b.calls["sendMediaGroup"] != 1 || b.form["chat_id"] != "-100" {
		t.Fatalf("unexpected request: %v %v", b.calls, b.form)
	}
	var media []map[string]any
	if err = json.Unmarshal([]byte(b.form["media"]), &media); err != nil {
		t.Fatalf("media is not json: %v", err)
	}
	if len(media) != 2 || media[0]["caption"] != "Desk - $50 - https://www.example.com/v/1" ||
		media[1]["caption"] != nil {
		t.Fatalf("unexpected media: %v", media)
	}
}

func TestTelegramSendsSingleImageAsPhoto(t *testing.T) {
	b := &botServer{calls: map[string]int{}, form: map[string]string{}}
	tg := newTestTelegram(t, b)

	err := tg.SendMediaGroup(context.Background(), -100, []MediaItem{
		{Caption: "Desk - $50 - https://www.example.com/v/1", URL: "https://img.example.com/1.jpg"},
	})
	if err != nil {
		t.Fatalf("SendMediaGroup error: %v", err)
	}
	if b.calls["sendPhoto"] != 1 || b.calls["sendMediaGroup"] != 0 {
		t.Fatalf("expected a single sendPhoto call, got %v", b.calls)
	}
	if b.form["photo"] != "https://img.example.com/1.jpg" || b.form["caption"] != "Desk - $50 - https://www.example.com/v/1" {
		t.Fatalf("unexpected photo request: %v", b.form)
	}
}

func TestTelegramRejectsOversizedGroup(t *testing.T) {
	b := &botServer{calls: map[string]int{}, form: map[string]string{}}
	tg := newTestTelegram(t, b)

	if err := tg.SendMediaGroup(context.Background(), -100, make([]MediaItem, maxGroupSize+1)); err == nil {
		t.Fatalf("expected error for oversized group")
	}
	if b.calls["sendMediaGroup"] != 0 {
		t.Fatalf("oversized group must not be sent")
	}
}

func TestTelegramSendMessage(t *testing.T) {
	b := &botServer{calls: map[string]int{}, form: map[string]string{}}
	tg := newTestTelegram(t, b)

	if err := tg.SendMessage(context.Background(), -100, "Desk - $50 - url"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if b.calls["sendMessage"] != 1 || b.form["text"] != "Desk - $50 - url" {
		t.Fatalf("unexpected request: %v %v", b.calls, b.form)
	}

	b.fail = true
	if err := tg.SendMessage(context.Background(), -100, "again"); err == nil {
		t.Fatalf("expected error from failed send")
	}
	if err := tg.SendMediaGroup(context.Background(), -100, nil); err == nil {
		t.Fatalf("expected error for empty media group")
	}
}
