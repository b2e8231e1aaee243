package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func drainEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("no %s event received", eventType)
		}
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	sink := NewChannelSink(64)

	_, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.Audit.Enabled = true

	store := newMockAccountStore()
	notifier := &recordingNotifier{}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(store).
		WithNotifier(notifier).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	result, err := engine.Register(ctx, RegisterRequest{
		Email:           "audit@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		FirstName:       "Ana",
		LastName:        "Berisha",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	event := drainEvent(t, sink, "register_success")
	if event.AccountID != result.AccountID || event.Email != "audit@example.com" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if !event.Success {
		t.Fatal("register_success must carry Success")
	}
	if !event.Timestamp.Equal(clock.Now()) {
		t.Fatalf("timestamp %v, want %v", event.Timestamp, clock.Now())
	}

	code := notifier.last(t, MessageVerificationCode).Code
	if err := engine.VerifyEmail(ctx, "audit@example.com", code); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	drainEvent(t, sink, "email_verify_success")

	if _, err := engine.Login(ctx, "audit@example.com", "wrongpass"); err == nil {
		t.Fatal("expected login failure")
	}
	failure := drainEvent(t, sink, "login_failure")
	if failure.Success {
		t.Fatal("login_failure must not carry Success")
	}

	if _, err := engine.Login(ctx, "audit@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	drainEvent(t, sink, "login_success")
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EventType: "login_success",
		AccountID: "a1",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not one JSON line: %v", err)
	}
	if decoded.EventType != "login_success" || decoded.AccountID != "a1" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestAuditDisabledIsSilent(t *testing.T) {
	env := newTestEngine(t, nil) // Audit.Enabled defaults to false

	env.registerVerified(t, "quiet@example.com", "secret123")
	if env.engine.AuditDropped() != 0 {
		t.Fatal("disabled audit must not count drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	blocker := make(chan struct{})
	sink := blockingSink{release: blocker}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()
	defer close(blocker)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}
