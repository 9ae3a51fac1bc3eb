package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"discord-server-status/status"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if !s.UpdatedAt().IsZero() {
		t.Errorf("UpdatedAt() = %v, want zero", s.UpdatedAt())
	}
}

func TestStore_EmptyReturnsErrNoSnapshot(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Snapshot(ctx); err != ErrNoSnapshot {
		t.Errorf("Snapshot() err = %v, want ErrNoSnapshot", err)
	}
	if _, err := s.CurrentMap(ctx); err != ErrNoSnapshot {
		t.Errorf("CurrentMap() err = %v, want ErrNoSnapshot", err)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	t1 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	s.Put(status.Snapshot{ServerName: "a", PlayerCount: 1}, "Narva_RAAS_v1", t1)
	s.Put(status.Snapshot{ServerName: "b", PlayerCount: 2}, "", t2)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() err = %v", err)
	}
	if snap.ServerName != "b" || snap.PlayerCount != 2 {
		t.Errorf("Snapshot() = %#v, want latest put", snap)
	}
	m, err := s.CurrentMap(ctx)
	if err != nil || m != "" {
		t.Errorf("CurrentMap() = %q, %v; want empty, nil", m, err)
	}
	if !s.UpdatedAt().Equal(t2) {
		t.Errorf("UpdatedAt() = %v, want %v", s.UpdatedAt(), t2)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Put(status.Snapshot{ServerName: "s", PlayerCount: n}, "", time.Now())
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.Snapshot(ctx)
		}()
	}
	wg.Wait()

	if _, err := s.Snapshot(ctx); err != nil {
		t.Errorf("Snapshot() after concurrent puts err = %v", err)
	}
}
