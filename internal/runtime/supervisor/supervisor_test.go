package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	s := New(context.Background())
	released := make(chan struct{})
	s.Go("worker", func(ctx context.Context) error {
		<-ctx.Done()
		close(released)
		return ctx.Err()
	})

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-released:
	default:
		t.Error("Stop returned before the goroutine exited")
	}
	if s.Active() != 0 {
		t.Errorf("active = %d after stop", s.Active())
	}
}

func TestStopTimeout(t *testing.T) {
	s := New(context.Background())
	block := make(chan struct{})
	s.Go("stuck", func(ctx context.Context) error {
		<-block
		return nil
	})

	stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(stopCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop = %v, want deadline exceeded", err)
	}
	close(block)
}

func TestFirstErrorCaptured(t *testing.T) {
	s := New(context.Background())
	boom := errors.New("boom")
	s.Go("failing", func(ctx context.Context) error { return boom })

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Stop(stopCtx)
	if !errors.Is(err, boom) {
		t.Errorf("Stop = %v, want wrapped boom", err)
	}
}

func TestCanceledNotAnError(t *testing.T) {
	s := New(context.Background())
	s.Go("clean", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Errorf("Stop = %v, context.Canceled should not count as failure", err)
	}
}

func TestPanicRecovered(t *testing.T) {
	s := New(context.Background())
	s.Go("panicky", func(ctx context.Context) error {
		panic("oh no")
	})

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Stop(stopCtx)
	if err == nil {
		t.Fatal("panic should surface as the supervisor error")
	}
}

func TestNilFuncIgnored(t *testing.T) {
	s := New(context.Background())
	s.Go("nothing", nil)
	if s.Active() != 0 {
		t.Error("nil fn should not register a goroutine")
	}
}
