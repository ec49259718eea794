package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/logger"
)

// fakeSink records writes and can fail a configurable number of times
type fakeSink struct {
	mu       sync.Mutex
	failures int
	writes   []*contracts.DecisionEvent
	attempts int
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Write(_ context.Context, event *contracts.DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink down")
	}
	s.writes = append(s.writes, event)
	return nil
}

func (s *fakeSink) snapshot() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes), s.attempts
}

func testEvent(id string) *contracts.DecisionEvent {
	return &contracts.DecisionEvent{
		ID:          id,
		WorkspaceID: "ws-test",
		Mode:        contracts.GateModeEnforce,
		CreatedAt:   time.Now(),
		Order:       risk.OrderRequest{Symbol: "AAPL", Side: risk.SideBuy, Quantity: 1},
		Verdict:     risk.Verdict{Allowed: true, RiskLevel: risk.LevelLow},
	}
}

func TestEmitter_DeliversToSink(t *testing.T) {
	sink := &fakeSink{}
	emitter := NewEmitter(EmitterConfig{QueueSize: 8}, logger.NewNop(), sink)

	emitter.Emit(testEvent("01A"))
	emitter.Emit(testEvent("01B"))
	emitter.Close()

	writes, _ := sink.snapshot()
	assert.Equal(t, 2, writes)
}

func TestEmitter_RetriesOnceThenDrops(t *testing.T) {
	// Two consecutive failures exhaust the single retry: the event is
	// dropped, the emitter keeps running, and the next event delivers.
	sink := &fakeSink{failures: 2}
	emitter := NewEmitter(EmitterConfig{QueueSize: 8}, logger.NewNop(), sink)

	emitter.Emit(testEvent("01A"))
	emitter.Emit(testEvent("01B"))
	emitter.Close()

	writes, attempts := sink.snapshot()
	assert.Equal(t, 1, writes, "first event dropped, second delivered")
	assert.Equal(t, 3, attempts, "two attempts for the dropped event, one for the delivered")
}

func TestEmitter_SingleFailureRecoversOnRetry(t *testing.T) {
	sink := &fakeSink{failures: 1}
	emitter := NewEmitter(EmitterConfig{QueueSize: 8}, logger.NewNop(), sink)

	emitter.Emit(testEvent("01A"))
	emitter.Close()

	writes, attempts := sink.snapshot()
	assert.Equal(t, 1, writes)
	assert.Equal(t, 2, attempts)
}

func TestEmitter_FullQueueDropsWithoutBlocking(t *testing.T) {
	// A sink that blocks until released, with a queue of one: further emits
	// must return immediately instead of blocking the decision path.
	release := make(chan struct{})
	blocking := &blockingSink{release: release}
	emitter := NewEmitter(EmitterConfig{QueueSize: 1, WriteTimeout: time.Second}, logger.NewNop(), blocking)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			emitter.Emit(testEvent("01X"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(release)
	emitter.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Write(ctx context.Context, _ *contracts.DecisionEvent) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
