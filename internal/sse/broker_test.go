package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects whatever is already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe(0)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d after unsubscribe, want 0", n)
	}
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	b.Unsubscribe(ch)
}

func TestPublishFrames(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe(0)

	b.Publish(TypeDayCreated, DayChange{Date: "2025-09-01"})
	b.Publish(TypeDayUpdated, DayChange{Date: "2025-09-02"})

	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2: %q", len(got), got)
	}
	want := "id: 1\nevent: day.created\ndata: {\"date\":\"2025-09-01\"}\n\n"
	if got[0] != want {
		t.Errorf("frame = %q, want %q", got[0], want)
	}
	if !strings.HasPrefix(got[1], "id: 2\n") {
		t.Errorf("second frame id: %q", got[1])
	}
}

func TestPublishDayEventThrottlesStats(t *testing.T) {
	b := NewBroker(WithStatsThrottle(time.Hour))
	defer b.Close()
	ch := b.Subscribe(0)

	b.PublishDayEvent("created", "2025-09-01")
	b.PublishDayEvent("updated", "2025-09-02")
	b.PublishDayEvent("deleted", "2025-09-03")
	b.PublishDayEvent("renamed", "2025-09-04")

	var days, stats int
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "event: "+TypeStatsUpdated) {
			stats++
		} else {
			days++
		}
	}
	if days != 3 {
		t.Errorf("day events = %d, want 3", days)
	}
	if stats != 1 {
		t.Errorf("stats events = %d, want 1", stats)
	}
}

func TestSubscribeReplaysAfterLastID(t *testing.T) {
	b := NewBroker(WithHistory(2))
	defer b.Close()

	for _, d := range []string{"2025-09-01", "2025-09-02", "2025-09-03"} {
		b.Publish(TypeDayUpdated, DayChange{Date: d})
	}

	got := drain(b.Subscribe(1))
	if len(got) != 2 {
		t.Fatalf("replayed %d frames, want 2: %q", len(got), got)
	}
	if !strings.Contains(got[0], "2025-09-02") || !strings.Contains(got[1], "2025-09-03") {
		t.Errorf("replay = %q", got)
	}

	// A fresh viewer starts from now.
	if got := drain(b.Subscribe(0)); len(got) != 0 {
		t.Errorf("new subscriber got history: %q", got)
	}
}

func TestSlowViewerDoesNotBlock(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe(0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer+10; i++ {
			b.Publish("test", map[string]int{"i": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full viewer")
	}
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("queued = %d, want %d", n, clientBuffer)
	}
}

func TestCloseDisconnectsViewers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(0)
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel open after Close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after Close", n)
	}
	if _, ok := <-b.Subscribe(0); ok {
		t.Error("subscribe after Close returned an open channel")
	}

	b.Publish(TypeDayUpdated, DayChange{Date: "2025-09-01"})
	b.PublishDayEvent("updated", "2025-09-01")
	b.Close()
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(WithKeepAlive(20 * time.Millisecond))
	defer b.Close()
	b.Publish(TypeDayCreated, DayChange{Date: "2025-08-31"})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "0")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatal("handler did not subscribe")
	}

	b.PublishDayEvent("updated", "2025-09-01")
	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"retry: 3000", "event: day.updated", `"date":"2025-09-01"`, ": keep-alive"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "2025-08-31") {
		t.Error("event from before the connection was replayed without Last-Event-ID")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after disconnect", n)
	}
}

func TestServeHTTPResumesFromLastEventID(t *testing.T) {
	b := NewBroker(WithKeepAlive(0))
	defer b.Close()
	b.Publish(TypeDayCreated, DayChange{Date: "2025-08-30"})
	b.Publish(TypeDayCreated, DayChange{Date: "2025-08-31"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, "2025-08-30") || !strings.Contains(body, "id: 2\n") {
		t.Errorf("resume body:\n%s", body)
	}
}
