package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// dispatchQueueSize bounds transcripts waiting behind a slow turn.
const dispatchQueueSize = 8

// Dispatcher serializes the turns of one session.
//
// Transcripts arrive from the transcription worker's callback and are
// answered one at a time in arrival order, so a long reply never
// interleaves its audio with the next turn's.
type Dispatcher struct {
	agent     *Agent
	sessionID string
	sink      protocol.Sink
	logger    *slog.Logger

	queue chan string
	done  chan struct{}
	once  sync.Once
	ended chan struct{}
}

// NewDispatcher creates a dispatcher for one session. Call Run in a
// goroutine, then feed it with Dispatch.
func NewDispatcher(agent *Agent, sessionID string, sink protocol.Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		agent:     agent,
		sessionID: sessionID,
		sink:      sink,
		logger:    logger.With("component", "dispatcher", "session_id", sessionID),
		queue:     make(chan string, dispatchQueueSize),
		done:      make(chan struct{}),
		ended:     make(chan struct{}),
	}
}

// Dispatch queues one finalized transcript. When the queue is full the
// transcript is dropped with a warning rather than stalling the
// transcription worker's callback.
func (d *Dispatcher) Dispatch(transcript string) {
	select {
	case <-d.done:
	case d.queue <- transcript:
	default:
		d.logger.Warn("turn queue full, dropping transcript", "chars", len(transcript))
	}
}

// Run answers queued turns until Close or context cancellation. Turns
// already queued at Close time are still answered.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.ended)

	for {
		select {
		case <-ctx.Done():
			return
		case transcript := <-d.queue:
			d.handle(ctx, transcript)
		case <-d.done:
			for {
				select {
				case transcript := <-d.queue:
					d.handle(ctx, transcript)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, transcript string) {
	if err := d.agent.HandleTurn(ctx, d.sessionID, transcript, d.sink); err != nil {
		d.logger.Warn("turn abandoned, client gone", "error", err)
	}
}

// Close stops accepting new turns. Idempotent.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

// Join blocks until Run has returned.
func (d *Dispatcher) Join() {
	<-d.ended
}
