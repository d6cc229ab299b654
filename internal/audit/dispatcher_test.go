package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "session_issued"})
	}
	d.Close()
	if d.Delivered() != 5 {
		t.Fatalf("expected 5 delivered, got %d", d.Delivered())
	}

	got := 0
	for {
		select {
		case <-sink.Events():
			got++
		default:
			if got != 5 {
				t.Fatalf("expected 5 events, got %d", got)
			}
			return
		}
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected at least one dropped event")
	}
	close(sink.release)
	d.Close()
}

type ctxKey struct{}

type ctxSink struct {
	got chan any
}

func (s *ctxSink) Emit(ctx context.Context, _ Event) {
	s.got <- ctx.Value(ctxKey{})
}

func TestDispatcherKeepsContextValuesAfterCancel(t *testing.T) {
	sink := &ctxSink{got: make(chan any, 1)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "10.0.0.7"))
	d.Emit(ctx, Event{EventType: "session_issued"})
	cancel()

	select {
	case v := <-sink.got:
		if v != "10.0.0.7" {
			t.Fatalf("expected context value to reach sink, got %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "session_invalidated", SessionID: "s1", Success: true})

	line := strings.TrimSpace(buf.String())
	var decoded Event
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventType != "session_invalidated" || decoded.SessionID != "s1" {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "refresh_rejected", Success: false, Error: "wrong_token_type"})
	sink.Emit(context.Background(), Event{EventType: "sessions_swept", Success: true, Count: 3})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "refresh_rejected") {
		t.Fatalf("expected warn line for failure, got %q", out)
	}
	if !strings.Contains(out, "count=3") || !strings.Contains(out, "component=audit") {
		t.Fatalf("expected count attr, got %q", out)
	}
}
