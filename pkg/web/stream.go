package web

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/hub"
	"github.com/voicewire/go-voicewire/pkg/protocol"
	"github.com/voicewire/go-voicewire/pkg/stt"
)

// wsSink serializes JSON writes to one client connection. The worker
// and the dispatcher both write, from different goroutines.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Verify wsSink implements protocol.Sink at compile time.
var _ protocol.Sink = (*wsSink)(nil)

// monitorSink mirrors every delivered message to the monitor hub.
// Mirroring is best effort and never affects the client delivery.
type monitorSink struct {
	inner     protocol.Sink
	monitor   *hub.Hub
	sessionID string
}

func (s *monitorSink) Send(msg any) error {
	err := s.inner.Send(msg)
	if err == nil {
		s.monitor.PublishMessage(s.sessionID, msg)
	}
	return err
}

// handleStream owns one duplex voice session.
//
// Inbound binary frames are raw audio for the transcription worker.
// Outbound messages (turn_end, reply text, audio frames) flow through
// the shared sink. Disconnecting triggers the shutdown sentinel so the
// worker flushes its partial chunk and terminates the provider session.
func (s *Server) handleStream(conn *websocket.Conn) {
	defer conn.Close()

	sessionID := conn.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.logger.With("session_id", sessionID)

	var sink protocol.Sink = &wsSink{conn: conn}
	if s.monitor != nil {
		sink = &monitorSink{inner: sink, monitor: s.monitor, sessionID: sessionID}
	}

	a, err := s.factory.Agent()
	if err != nil {
		logger.Warn("stream refused", "error", err)
		sink.Send(map[string]any{"type": "error", "message": err.Error()})
		return
	}
	streamer, err := s.factory.Streamer()
	if err != nil {
		logger.Warn("stream refused", "error", err)
		sink.Send(map[string]any{"type": "error", "message": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := agent.NewDispatcher(a, sessionID, sink, s.logger)
	worker := stt.NewWorker(streamer, sink, dispatcher.Dispatch, s.logger)

	go worker.Run(ctx)
	go dispatcher.Run(ctx)

	logger.Info("voice session open")
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt == websocket.BinaryMessage {
			worker.Enqueue(data)
		}
	}

	// Flush the partial chunk and end the provider session, then let
	// queued turns finish against the (likely dead) sink.
	worker.Shutdown()
	worker.Join()
	dispatcher.Close()
	dispatcher.Join()
	logger.Info("voice session closed")
}

// handleMonitor attaches one read-only observer to the session event
// feed.
func (s *Server) handleMonitor(conn *websocket.Conn) {
	if s.monitor == nil {
		conn.Close()
		return
	}
	hub.NewClient(s.monitor, conn).Run()
}
