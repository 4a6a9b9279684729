package stt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// TurnHandler is invoked once per finished utterance with the final
// transcript. The worker calls it from the provider's event goroutine;
// implementations dispatch the slow reply pipeline on their own goroutine
// so audio consumption is never blocked.
type TurnHandler func(transcript string)

// Worker owns one duplex transcription session for the lifetime of a
// client connection. It consumes raw audio deliveries from an inbound
// queue, re-chunks them to the provider cadence, and raises exactly one
// turn event per spoken utterance.
type Worker struct {
	streamer Streamer
	sink     protocol.Sink
	onTurn   TurnHandler
	logger   *slog.Logger

	audio    chan []byte
	shutdown sync.Once
	done     chan struct{}

	// turn state, only touched from the provider event goroutine
	mu         sync.Mutex
	turnText   string
	dispatched bool
}

// NewWorker creates a transcription worker. sink receives turn_end
// messages; onTurn receives the finalized transcript for dispatch.
func NewWorker(streamer Streamer, sink protocol.Sink, onTurn TurnHandler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		streamer: streamer,
		sink:     sink,
		onTurn:   onTurn,
		logger:   logger.With("component", "stt.worker"),
		audio:    make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// Enqueue queues one audio delivery for transcription. Blocks if the
// worker is saturated, applying backpressure to the reader.
func (w *Worker) Enqueue(delivery []byte) {
	if delivery == nil {
		return
	}
	select {
	case w.audio <- delivery:
	case <-w.done:
	}
}

// Shutdown pushes the shutdown sentinel exactly once. Safe to call from
// any goroutine and more than once.
func (w *Worker) Shutdown() {
	w.shutdown.Do(func() {
		w.audio <- nil
	})
}

// Join blocks until the worker goroutine has exited.
func (w *Worker) Join() {
	<-w.done
}

// Run consumes the inbound queue until the shutdown sentinel arrives,
// then flushes the partial remainder as a final chunk and terminates the
// provider session. Run is expected to be launched as `go w.Run(ctx)`.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	stream, err := w.streamer.OpenStream(ctx, Callbacks{
		OnBegin: func(sessionID string) {
			w.logger.Info("transcription session begin", "session_id", sessionID)
		},
		OnTurn:       w.handleTurn,
		OnError:      func(err error) { w.logger.Error("provider error", "error", err) },
		OnTerminated: func(seconds float64) { w.logger.Info("transcription terminated", "audio_s", seconds) },
	})
	if err != nil {
		w.logger.Error("open transcription stream failed", "error", err)
		w.drain()
		return
	}
	defer stream.Close()

	rechunker := NewRechunker(MinChunkSize)

	for delivery := range w.audio {
		if delivery == nil {
			if rest := rechunker.Flush(); rest != nil {
				if err := stream.SendAudio(rest); err != nil {
					w.logger.Warn("final chunk send failed", "error", err)
				}
			}
			if err := stream.Terminate(); err != nil {
				w.logger.Warn("terminate failed", "error", err)
			}
			return
		}

		for _, chunk := range rechunker.Add(delivery) {
			if err := stream.SendAudio(chunk); err != nil {
				w.logger.Error("audio send failed", "error", err)
				w.drain()
				return
			}
		}
	}
}

// handleTurn tracks the running transcript and dispatches exactly once
// per end-of-turn. The buffer is cleared before dispatch so overlapping
// end-of-turn events for the same utterance cannot double-fire, and a
// repeated final is dropped until new partial speech arrives: formatting
// providers re-finalize the same utterance with punctuation applied.
func (w *Worker) handleTurn(transcript string, endOfTurn bool) {
	w.mu.Lock()
	if transcript != "" {
		w.turnText = transcript
	}
	if !endOfTurn {
		w.dispatched = false
		w.mu.Unlock()
		return
	}
	if w.dispatched {
		w.turnText = ""
		w.mu.Unlock()
		return
	}
	final := w.turnText
	w.turnText = ""
	if final != "" {
		w.dispatched = true
	}
	w.mu.Unlock()

	if final == "" {
		return
	}

	w.logger.Info("end of turn", "transcript", final)
	if err := w.sink.Send(protocol.NewTurnEnd(final)); err != nil {
		w.logger.Warn("turn_end send failed", "error", err)
	}
	if w.onTurn != nil {
		w.onTurn(final)
	}
}

// drain keeps the inbound queue moving after a provider failure so
// producers blocked on Enqueue are released until the sentinel arrives.
func (w *Worker) drain() {
	for delivery := range w.audio {
		if delivery == nil {
			return
		}
	}
}
