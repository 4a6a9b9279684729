package agent

import (
	"sync"
	"time"
)

// TurnMetrics tracks latency through one turn of the reply pipeline.
// All durations are measured from the moment the turn was dispatched.
type TurnMetrics struct {
	StartTime time.Time

	// ReplyLatency is time to a finalized reply string (model or tool).
	ReplyLatency time.Duration

	// AudioLatency is time to a complete synthesized buffer.
	AudioLatency time.Duration

	// TotalLatency is time until the turn fully delivered.
	TotalLatency time.Duration
}

// Collector aggregates turn metrics. Goroutine-safe; one collector
// serves every session of an Agent.
type Collector struct {
	mu      sync.Mutex
	history []TurnMetrics

	turns     int64
	retries   int64
	toolCalls int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{history: make([]TurnMetrics, 0, 100)}
}

// Turn is a live measurement handle for one turn.
type Turn struct {
	c *Collector
	m TurnMetrics
}

// StartTurn begins measuring a turn.
func (c *Collector) StartTurn() *Turn {
	c.mu.Lock()
	c.turns++
	c.mu.Unlock()
	return &Turn{c: c, m: TurnMetrics{StartTime: time.Now()}}
}

// MarkReply records when the reply text was finalized.
func (t *Turn) MarkReply() {
	if t.m.ReplyLatency == 0 {
		t.m.ReplyLatency = time.Since(t.m.StartTime)
	}
}

// MarkAudio records when synthesis completed.
func (t *Turn) MarkAudio() {
	if t.m.AudioLatency == 0 {
		t.m.AudioLatency = time.Since(t.m.StartTime)
	}
}

// MarkDone archives the turn.
func (t *Turn) MarkDone() {
	t.m.TotalLatency = time.Since(t.m.StartTime)

	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.history = append(t.c.history, t.m)
	if len(t.c.history) > 100 {
		t.c.history = t.c.history[1:]
	}
}

// IncrementRetry counts one model-call retry.
func (c *Collector) IncrementRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

// IncrementToolCall counts one successful tool invocation.
func (c *Collector) IncrementToolCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolCalls++
}

// Snapshot is a point-in-time view for the health endpoint.
type Snapshot struct {
	Turns        int64         `json:"turns"`
	Retries      int64         `json:"retries"`
	ToolCalls    int64         `json:"tool_calls"`
	AvgReply     time.Duration `json:"avg_reply_ms"`
	AvgAudio     time.Duration `json:"avg_audio_ms"`
	AvgTotal     time.Duration `json:"avg_total_ms"`
	SampledTurns int           `json:"sampled_turns"`
}

// Snapshot returns counters and averages over recent turns.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Turns:        c.turns,
		Retries:      c.retries,
		ToolCalls:    c.toolCalls,
		SampledTurns: len(c.history),
	}
	if len(c.history) == 0 {
		return snap
	}

	for _, m := range c.history {
		snap.AvgReply += m.ReplyLatency
		snap.AvgAudio += m.AudioLatency
		snap.AvgTotal += m.TotalLatency
	}
	n := time.Duration(len(c.history))
	snap.AvgReply /= n
	snap.AvgAudio /= n
	snap.AvgTotal /= n
	return snap
}
