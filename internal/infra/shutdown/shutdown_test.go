package shutdown

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestHooksRunInReverse(t *testing.T) {
	h := NewHandler(time.Second, nil)
	var order []string
	for _, name := range []string{"store", "router", "metrics"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if want := []string{"metrics", "router", "store"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed after Wait")
	}
}

func TestHookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second, nil)
	e1, e2 := errors.New("close store"), errors.New("close router")
	h.OnShutdown("store", func(context.Context) error { return e1 })
	h.OnShutdown("ok", func(context.Context) error { return nil })
	h.OnShutdown("router", func(context.Context) error { return e2 })

	h.Trigger()
	err := h.Wait(context.Background())
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("Wait() = %v, want both hook errors", err)
	}
}

func TestContextCancelStartsShutdown(t *testing.T) {
	h := NewHandler(time.Second, nil)
	ran := false
	h.OnShutdown("x", func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ran {
		t.Error("hook did not run")
	}
}

func TestHookTimeout(t *testing.T) {
	h := NewHandler(20*time.Millisecond, nil)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.Trigger()
	h.Trigger()
	if err := h.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want %v", err, context.DeadlineExceeded)
	}
}
