package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), Event{EventType: "extra"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events to be counted")
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Emit(ctx, Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("blocking emit did not return after context deadline")
	}
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	d.Close()

	if got := sink.count.Load(); got != 20 {
		t.Fatalf("expected 20 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after-close"})
	if got := sink.count.Load(); got != 20 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", TokenID: "jti-1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "logout", UserID: "u1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.EventType != "login_success" || ev.TokenID != "jti-1" || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if strings.Contains(lines[1], "token_id") {
		t.Fatalf("empty token id must be omitted: %s", lines[1])
	}
}

func TestChannelSinkDeliversEvents(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "refresh_success"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "refresh_success" {
			t.Fatalf("unexpected event %q", ev.EventType)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Emit(context.Background(), Event{EventType: "e"})
	d.Close()
	d.Close()

	if got := sink.count.Load(); got != 1 {
		t.Fatalf("expected 1 delivered event, got %d", got)
	}
}

func TestDispatcherConcurrentEmitAndClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Emit(context.Background(), Event{EventType: "e"})
			}
		}()
	}
	d.Close()
	wg.Wait()

	total := uint64(sink.count.Load()) + d.Dropped()
	if total > 16*50 {
		t.Fatalf("delivered plus dropped exceeds emitted: %d", total)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(log)

	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials", Metadata: map[string]string{"identifier": "alice"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), buf.String())
	}

	var rec struct {
		Level string `json:"level"`
		Audit struct {
			Type       string `json:"type"`
			UserID     string `json:"user_id"`
			Error      string `json:"error"`
			Identifier string `json:"identifier"`
		} `json:"audit"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Level != "INFO" || rec.Audit.Type != "login_success" || rec.Audit.UserID != "u1" {
		t.Fatalf("unexpected success record: %s", lines[0])
	}

	rec.Audit.UserID = ""
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Level != "WARN" || rec.Audit.Error != "invalid_credentials" || rec.Audit.Identifier != "alice" {
		t.Fatalf("unexpected failure record: %s", lines[1])
	}
	if strings.Contains(lines[1], "user_id") {
		t.Fatalf("empty user id must be omitted: %s", lines[1])
	}
}

func TestJSONWriterSinkNilWriter(t *testing.T) {
	NewJSONWriterSink(nil).Emit(context.Background(), Event{EventType: "x"})
}
