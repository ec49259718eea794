package audit

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/metrics"
	"github.com/wonny/tradegate/pkg/logger"
)

// Emitter delivers decision events to the configured sinks off the decision
// path. Best-effort: a full queue or a failing sink never blocks or fails
// the verdict already returned to the caller.
// ⭐ SSOT: 감사 이벤트 발행은 여기서만
type Emitter struct {
	events chan *contracts.DecisionEvent
	sinks  []contracts.DecisionSink
	logger *logger.Logger

	writeTimeout time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// EmitterConfig configures the emitter
type EmitterConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// NewEmitter creates an emitter and starts its delivery worker
func NewEmitter(cfg EmitterConfig, log *logger.Logger, sinks ...contracts.DecisionSink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	e := &Emitter{
		events:       make(chan *contracts.DecisionEvent, cfg.QueueSize),
		sinks:        sinks,
		logger:       log,
		writeTimeout: cfg.WriteTimeout,
	}

	e.wg.Add(1)
	go e.run()

	return e
}

// Emit enqueues an event without blocking. When the queue is full the event
// is dropped and counted; audit completeness is best-effort.
func (e *Emitter) Emit(event *contracts.DecisionEvent) {
	select {
	case e.events <- event:
	default:
		metrics.RecordEmitDrop("queue_full")
		e.logger.WithField("decision_id", event.ID).Warn("Audit queue full, dropping decision event")
	}
}

// Close stops accepting events and drains the queue
func (e *Emitter) Close() {
	e.stopOnce.Do(func() {
		close(e.events)
	})
	e.wg.Wait()
}

// run delivers queued events to every sink
func (e *Emitter) run() {
	defer e.wg.Done()

	for event := range e.events {
		for _, sink := range e.sinks {
			e.deliver(sink, event)
		}
	}
}

// deliver writes one event to one sink, retrying exactly once on failure.
// After the retry the event is dropped: audit is not a correctness
// guarantee of this subsystem.
func (e *Emitter) deliver(sink contracts.DecisionSink, event *contracts.DecisionEvent) {
	if err := e.write(sink, event); err == nil {
		return
	}

	if err := e.write(sink, event); err != nil {
		metrics.RecordEmitDrop(sink.Name())
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"sink":        sink.Name(),
			"decision_id": event.ID,
		}).Error("Dropping decision event after retry")
	}
}

func (e *Emitter) write(sink contracts.DecisionSink, event *contracts.DecisionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()
	return sink.Write(ctx, event)
}
