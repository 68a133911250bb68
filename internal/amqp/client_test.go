package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "connection refused", err: errors.New("connection refused"), expected: true},
		{name: "connection closed", err: errors.New("connection closed"), expected: true},
		{name: "unexpected EOF", err: errors.New("unexpected EOF"), expected: true},
		{name: "broken pipe", err: errors.New("broken pipe"), expected: true},
		{name: "closed network connection", err: errors.New("use of closed network connection"), expected: true},
		{name: "other error", err: errors.New("some other error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestPublishWithRetryRedialsOnConnectionError(t *testing.T) {
	noWait := func(int) time.Duration { return 0 }

	var publishes, redials int
	publish := func() error {
		publishes++
		if publishes == 1 {
			return errors.New("publish message: connection closed")
		}
		return nil
	}
	redial := func() error {
		redials++
		return nil
	}

	if err := publishWithRetry(context.Background(), noWait, publish, redial); err != nil {
		t.Fatalf("publishWithRetry: %v", err)
	}
	if publishes != 2 {
		t.Errorf("publishes = %d, want 2", publishes)
	}
	if redials != 1 {
		t.Errorf("redials = %d, want 1", redials)
	}
}

func TestPublishWithRetryFailsFastOnOtherErrors(t *testing.T) {
	wantErr := errors.New("access refused")

	var publishes int
	err := publishWithRetry(context.Background(),
		func(int) time.Duration { return 0 },
		func() error {
			publishes++
			return wantErr
		},
		func() error {
			t.Error("redialed on a non-connection error")
			return nil
		})

	if !errors.Is(err, wantErr) {
		t.Fatalf("publishWithRetry error = %v, want %v", err, wantErr)
	}
	if publishes != 1 {
		t.Errorf("publishes = %d, want 1", publishes)
	}
}

func TestPublishWithRetryGivesUpAfterBudget(t *testing.T) {
	var publishes int
	err := publishWithRetry(context.Background(),
		func(int) time.Duration { return 0 },
		func() error {
			publishes++
			return errors.New("broken pipe")
		},
		func() error { return nil })

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if publishes != publishRetries+1 {
		t.Errorf("publishes = %d, want %d", publishes, publishRetries+1)
	}
}

func TestPublishWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publishWithRetry(ctx,
		func(int) time.Duration { return time.Hour },
		func() error { return errors.New("connection closed") },
		func() error { return nil })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("publishWithRetry error = %v, want context.Canceled", err)
	}
}

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage("override", "updated", "EUS/2025 Q1-Q2", 0)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := ChangeMessageFromJSON(data)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON: %v", err)
	}
	if decoded.Entity != "override" || decoded.Action != "updated" || decoded.Name != "EUS/2025 Q1-Q2" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
