package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func seedRuns(t *testing.T, store *Store, count int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < count; i++ {
		if err := store.Insert(testRun("alice", now.Add(time.Duration(i)*time.Second)), nil); err != nil {
			t.Fatalf("seed Insert: %v", err)
		}
	}
}

// collector records published batches.
type collector struct {
	mu      sync.Mutex
	batches []int
	fail    error
}

func (c *collector) publish(ctx context.Context, runs []Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.batches = append(c.batches, len(runs))
	return nil
}

func (c *collector) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += b
	}
	return n
}

func TestSyncOnceMarksSynced(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 3)

	c := &collector{}
	syncer := NewSyncer(SyncerConfig{Store: store, Publish: c.publish, BatchSize: 10})

	n, err := syncer.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if n != 3 || c.total() != 3 {
		t.Errorf("published %d (reported %d), want 3", c.total(), n)
	}

	remaining, _ := store.QueryUnsynced(10)
	if len(remaining) != 0 {
		t.Errorf("expected 0 unsynced after sync, got %d", len(remaining))
	}
	if n, err := syncer.SyncOnce(context.Background()); err != nil || n != 0 {
		t.Errorf("second SyncOnce = %d, %v; want 0, nil", n, err)
	}
}

func TestSyncOnceFailureKeepsRunsUnsynced(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 2)

	boom := errors.New("redis down")
	syncer := NewSyncer(SyncerConfig{Store: store, Publish: (&collector{fail: boom}).publish})

	if _, err := syncer.SyncOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped publish error", err)
	}
	remaining, _ := store.QueryUnsynced(10)
	if len(remaining) != 2 {
		t.Errorf("expected 2 unsynced after failed publish, got %d", len(remaining))
	}
}

func TestDrainBatches(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 5)

	c := &collector{}
	syncer := NewSyncer(SyncerConfig{Store: store, Publish: c.publish, BatchSize: 2})

	total, err := syncer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if total != 5 {
		t.Errorf("Drain = %d, want 5", total)
	}
	if got := fmt.Sprint(c.batches); got != "[2 2 1]" {
		t.Errorf("batches = %s, want [2 2 1]", got)
	}
}

func TestDrainStopsOnCancelledContext(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	syncer := NewSyncer(SyncerConfig{Store: store, Publish: c.publish})
	if _, err := syncer.Drain(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Drain error = %v, want context.Canceled", err)
	}
	if c.total() != 0 {
		t.Error("published after cancellation")
	}
}

func TestWatchSyncsImmediatelyAndStopsOnCancel(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 1)

	published := make(chan int, 1)
	syncer := NewSyncer(SyncerConfig{
		Store:    store,
		Interval: time.Hour,
		Publish: func(ctx context.Context, runs []Run) error {
			select {
			case published <- len(runs):
			default:
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Watch(ctx) }()

	select {
	case n := <-published:
		if n != 1 {
			t.Errorf("published %d runs, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not sync before the first tick")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchWarnsOnFailure(t *testing.T) {
	store := openStore(t)
	seedRuns(t, store, 1)

	warned := make(chan string, 1)
	syncer := NewSyncer(SyncerConfig{
		Store:    store,
		Interval: time.Hour,
		Publish:  (&collector{fail: errors.New("redis down")}).publish,
		Warnf: func(format string, args ...any) {
			select {
			case warned <- fmt.Sprintf(format, args...):
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go syncer.Watch(ctx)

	select {
	case msg := <-warned:
		if msg == "" {
			t.Error("empty warning")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no warning for a failed cycle")
	}
}
