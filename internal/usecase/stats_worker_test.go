package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubStats struct {
	mu    sync.Mutex
	bumps []uuid.UUID
}

func (s *stubStats) BumpAncestors(ctx context.Context, referrerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumps = append(s.bumps, referrerID)
	return nil
}

func (s *stubStats) Recount(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	return &UserStats{}, nil
}

func (s *stubStats) EvaluateRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubStats) bumpCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bumps)
}

func TestStatsWorkerDrainsQueue(t *testing.T) {
	stats := &stubStats{}
	worker := NewStatsWorker(stats, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	for i := 0; i < 5; i++ {
		worker.Enqueue(uuid.New())
	}

	assert.Eventually(t, func() bool {
		return stats.bumpCount() == 5
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	worker.Wait()
}

// Enqueue must never block the caller, even with no drain loop running and
// the buffer full.
func TestStatsWorkerEnqueueNeverBlocks(t *testing.T) {
	worker := NewStatsWorker(&stubStats{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < statsQueueSize+100; i++ {
			worker.Enqueue(uuid.New())
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestStatsWorkerStartOnce(t *testing.T) {
	stats := &stubStats{}
	worker := NewStatsWorker(stats, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	worker.Start(ctx) // second call is a no-op

	worker.Enqueue(uuid.New())
	assert.Eventually(t, func() bool {
		return stats.bumpCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	worker.Wait()
}
