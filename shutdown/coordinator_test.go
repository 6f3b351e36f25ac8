package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdown_SingleHandler(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	called := false
	coord.RegisterFunc("kit", PhaseStores, func(ctx context.Context) error {
		called = true
		return nil
	})

	if err := coord.ShutdownWithTimeout(5 * time.Second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be called")
	}

	select {
	case <-coord.Done():
	default:
		t.Fatal("expected Done channel to be closed")
	}

	result := coord.Result()
	if result == nil || len(result.Handlers) != 1 || result.Handlers[0].Name != "kit" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestShutdown_PhaseOrder(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	coord.RegisterFunc("telemetry", PhaseTelemetry, record("telemetry"))
	coord.RegisterFunc("store", PhaseStores, record("store"))

	if err := coord.ShutdownWithTimeout(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "store" || order[1] != "telemetry" {
		t.Errorf("order = %v, want [store telemetry]", order)
	}
}

func TestShutdown_SamePhaseConcurrent(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var running, peak int32
	slow := func(ctx context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	coord.RegisterFunc("a", PhaseStores, slow)
	coord.RegisterFunc("b", PhaseStores, slow)

	coord.ShutdownWithTimeout(0)
	if atomic.LoadInt32(&peak) != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak)
	}
}

func TestShutdown_HandlerFailure(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	telemetryRan := false
	coord.RegisterFunc("store", PhaseStores, func(ctx context.Context) error {
		return errors.New("close failed")
	})
	coord.RegisterFunc("telemetry", PhaseTelemetry, func(ctx context.Context) error {
		telemetryRan = true
		return nil
	})

	err := coord.ShutdownWithTimeout(0)
	if !errors.Is(err, ErrHandlerFailed) {
		t.Fatalf("expected ErrHandlerFailed, got %v", err)
	}
	if !telemetryRan {
		t.Error("later phases should still run after a failure")
	}
	failed := coord.Result().FailedHandlers()
	if len(failed) != 1 || failed[0] != "store" {
		t.Errorf("FailedHandlers() = %v", failed)
	}
}

func TestShutdown_Timeout(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	coord.RegisterFunc("slow", PhaseStores, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	laterRan := false
	coord.RegisterFunc("later", PhaseTelemetry, func(ctx context.Context) error {
		laterRan = true
		return nil
	})

	err := coord.ShutdownWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if laterRan {
		t.Error("phases after the deadline should not run")
	}
}

func TestShutdown_RunsOnce(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var calls int32
	coord.RegisterFunc("kit", PhaseStores, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.ShutdownWithTimeout(0)
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestResult_BeforeShutdown(t *testing.T) {
	if NewCoordinator(Config{}).Result() != nil {
		t.Error("Result() should be nil before shutdown")
	}
}

func TestHandleSignals_CanceledOnShutdown(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	ctx := coord.HandleSignals(context.Background())

	coord.ShutdownWithTimeout(0)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be canceled once shutdown completes")
	}
}

func TestOnProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	coord := NewCoordinator(Config{OnProgress: func(hr HandlerResult) {
		mu.Lock()
		seen = append(seen, hr.Name)
		mu.Unlock()
	}})
	coord.RegisterFunc("kit", PhaseStores, func(ctx context.Context) error { return nil })

	coord.ShutdownWithTimeout(0)
	if len(seen) != 1 || seen[0] != "kit" {
		t.Errorf("OnProgress saw %v", seen)
	}
}
