package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	l, err := memory.NewLoader()
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(l)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("run-%d", i)
		_ = mgr.WithLock(ctx, id, func(context.Context) error { return nil })
	}

	if n := len(mgr.locks); n > 0 {
		t.Errorf("lock leak: %d entries remain after %d operations", n, count)
	}
}
