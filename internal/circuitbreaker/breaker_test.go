package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errFail = errors.New("fail")

func failingConfig() *Config {
	return &Config{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		Threshold:    3,
		FailureRatio: 0.5,
	}
}

func TestBreaker_OpensOnFailures(t *testing.T) {
	b := New(failingConfig())

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errFail })
	}

	if b.State() != StateOpen {
		t.Errorf("expected open state after repeated failures, got %v", b.State())
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpenState) {
		t.Errorf("expected ErrOpenState while open, got %v", err)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := New(failingConfig())

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errFail })
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open state, got %v", b.State())
	}

	time.Sleep(60 * time.Millisecond)

	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %v", b.State())
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe request failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %v", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(failingConfig())

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errFail })
	}
	time.Sleep(60 * time.Millisecond)

	_ = b.Execute(func() error { return errFail })
	if b.State() != StateOpen {
		t.Errorf("expected re-open after half-open failure, got %v", b.State())
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := New(failingConfig())

	_ = b.Execute(func() error { return errFail })
	_ = b.Execute(func() error { return nil })

	if b.State() != StateClosed {
		t.Errorf("expected closed below threshold, got %v", b.State())
	}
}

func TestHostBreaker_IsolatesHosts(t *testing.T) {
	hb := NewHostBreaker(failingConfig())

	for i := 0; i < 3; i++ {
		_ = hb.Execute("spam.example", func() error { return errFail })
	}

	if hb.State("spam.example") != StateOpen {
		t.Error("expected spam.example breaker to be open")
	}
	if hb.State("clean.example") != StateClosed {
		t.Error("expected clean.example breaker to stay closed")
	}

	if err := hb.Execute("clean.example", func() error { return nil }); err != nil {
		t.Errorf("unexpected error for healthy host: %v", err)
	}
}

func TestHostBreaker_Reset(t *testing.T) {
	hb := NewHostBreaker(failingConfig())

	for i := 0; i < 3; i++ {
		_ = hb.Execute("host.example", func() error { return errFail })
	}
	hb.Reset("host.example")

	if hb.State("host.example") != StateClosed {
		t.Error("expected fresh breaker after reset")
	}
}
