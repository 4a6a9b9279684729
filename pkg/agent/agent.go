// Package agent turns a finalized transcript into a spoken reply.
//
// Each turn is routed to a capability (plain chat, web search, image
// generation), answered, persisted, and then synthesized and relayed to
// the client. Text always reaches the client before any audio frame, so
// a synthesis failure degrades to a text-only turn instead of silence.
package agent

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/voicewire/go-voicewire/pkg/llm"
	"github.com/voicewire/go-voicewire/pkg/protocol"
	"github.com/voicewire/go-voicewire/pkg/relay"
	"github.com/voicewire/go-voicewire/pkg/store"
	"github.com/voicewire/go-voicewire/pkg/tools"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// SystemPrompt shapes the model into a voice-first persona. Replies are
// read aloud, so it asks for short conversational answers.
const SystemPrompt = "You are a friendly voice assistant. You are talking, not writing: " +
	"answer in a warm conversational tone, keep it to a few sentences, and never " +
	"use markdown, bullet points, or code blocks. If a question needs a long " +
	"answer, give the short version and offer to go deeper."

// historyTurns is how many stored turns seed the model prompt.
const historyTurns = 10

// modelApology is spoken when the model is unreachable after retries.
const modelApology = "I'm having trouble thinking right now. Give me a moment and ask again?"

// Agent is the reply pipeline for one or more sessions. It is safe for
// concurrent use; per-session ordering is the Dispatcher's job.
type Agent struct {
	generator llm.Generator
	router    tools.Router
	search    *tools.SearchClient
	image     *tools.ImageClient
	synth     tts.Synthesizer
	relay     *relay.Relay
	store     *store.Store
	metrics   *Collector
	voice     string
	logger    *slog.Logger
}

// Options configures an Agent. Generator, Synth, and Relay are
// required; nil tool clients disable their routes gracefully.
type Options struct {
	Generator llm.Generator
	Router    tools.Router
	Search    *tools.SearchClient
	Image     *tools.ImageClient
	Synth     tts.Synthesizer
	Relay     *relay.Relay
	Store     *store.Store
	Voice     string
	Metrics   *Collector
	Logger    *slog.Logger
}

// New creates an Agent.
func New(opts Options) *Agent {
	if opts.Router == nil {
		opts.Router = tools.NewKeywordRouter()
	}
	if opts.Voice == "" {
		opts.Voice = tts.DefaultVoice
	}
	if opts.Metrics == nil {
		opts.Metrics = NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Agent{
		generator: opts.Generator,
		router:    opts.Router,
		search:    opts.Search,
		image:     opts.Image,
		synth:     opts.Synth,
		relay:     opts.Relay,
		store:     opts.Store,
		metrics:   opts.Metrics,
		voice:     opts.Voice,
		logger:    opts.Logger.With("component", "agent"),
	}
}

// Metrics returns the agent's turn metrics collector.
func (a *Agent) Metrics() *Collector {
	return a.metrics
}

// HandleTurn answers one finalized transcript.
//
// The turn is persisted and its text delivered before synthesis starts,
// so storage and the client's transcript view never depend on the audio
// path. Tool and synthesis failures degrade the turn; only a dead sink
// is an error.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, transcript string, sink protocol.Sink) error {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}

	turn := a.metrics.StartTurn()
	reply, imageURL := a.answer(ctx, sessionID, transcript, sink)
	turn.MarkReply()

	if err := sink.Send(protocol.NewAgentResponseText(reply)); err != nil {
		return err
	}
	if imageURL != "" {
		if err := sink.Send(protocol.NewImageGenerated(imageURL)); err != nil {
			return err
		}
	}

	audio, err := a.synth.Synthesize(ctx, reply, a.voice)
	if err != nil || len(audio) == 0 {
		a.logger.Warn("synthesis failed, turn is text-only", "session_id", sessionID, "error", err)
		turn.MarkDone()
		return nil
	}
	turn.MarkAudio()

	if err := a.relay.Send(sink, audio); err != nil {
		return err
	}
	turn.MarkDone()
	return nil
}

// Chat answers one transcript over plain HTTP: same routing, retries,
// and persistence as a voice turn, but no sink and no audio. Retry
// toasts have nowhere to go and are dropped.
func (a *Agent) Chat(ctx context.Context, sessionID, transcript string) (reply, imageURL string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", ""
	}

	turn := a.metrics.StartTurn()
	reply, imageURL = a.answer(ctx, sessionID, transcript, nopSink{})
	turn.MarkReply()
	turn.MarkDone()
	return reply, imageURL
}

// answer routes the transcript, produces the reply, and persists the
// turn. Every path returns some speakable text.
func (a *Agent) answer(ctx context.Context, sessionID, transcript string, sink protocol.Sink) (reply, imageURL string) {
	route := a.router.Route(transcript)
	a.logger.Info("turn dispatched", "session_id", sessionID, "route", route.String(), "chars", len(transcript))

	switch route {
	case tools.RouteSearch:
		reply = a.searchReply(ctx, transcript)
	case tools.RouteImage:
		reply, imageURL = a.imageReply(ctx, transcript)
	default:
		reply = a.modelReply(ctx, sessionID, transcript, sink)
	}

	if a.store != nil {
		if err := a.store.SaveTurn(ctx, sessionID, transcript, reply); err != nil {
			// History is best effort; the reply still goes out.
			a.logger.Error("persist turn failed", "session_id", sessionID, "error", err)
		}
	}
	return reply, imageURL
}

// nopSink swallows progress messages on the HTTP path.
type nopSink struct{}

func (nopSink) Send(any) error { return nil }

// modelReply asks the model, retrying rate limits, and trims the answer
// to a speakable length.
func (a *Agent) modelReply(ctx context.Context, sessionID, transcript string, sink protocol.Sink) string {
	req := &llm.Request{
		System:  SystemPrompt,
		History: a.history(ctx, sessionID),
		Prompt:  transcript,
	}

	reply, err := a.generateWithRetry(ctx, req, sink)
	if err != nil {
		a.logger.Error("model call failed", "session_id", sessionID, "error", err)
		return modelApology
	}
	return TrimReply(reply)
}

// history loads recent turns as alternating user/model messages.
func (a *Agent) history(ctx context.Context, sessionID string) []llm.Message {
	if a.store == nil {
		return nil
	}
	turns, err := a.store.RecentContext(ctx, sessionID, historyTurns)
	if err != nil {
		a.logger.Warn("history load failed", "session_id", sessionID, "error", err)
		return nil
	}

	msgs := make([]llm.Message, 0, len(turns)*2)
	for _, t := range turns {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Text: t.UserMessage},
			llm.Message{Role: llm.RoleModel, Text: t.AgentResponse},
		)
	}
	return msgs
}

// searchReply answers from web results, degrading to an apology.
func (a *Agent) searchReply(ctx context.Context, transcript string) string {
	if a.search == nil {
		return tools.SearchApology
	}
	resp, err := a.search.Search(ctx, transcript, 3)
	if err != nil {
		a.logger.Warn("search failed", "error", err)
		return tools.SearchApology
	}
	a.metrics.IncrementToolCall()
	return resp.FormatForSpeech()
}

// imageReply generates an image, returning a spoken caption and the
// image URL. Failure degrades to an apology with no URL.
func (a *Agent) imageReply(ctx context.Context, transcript string) (string, string) {
	if a.image == nil {
		return tools.ImageApology, ""
	}
	img, err := a.image.Generate(ctx, transcript)
	if err != nil {
		a.logger.Warn("image generation failed", "error", err)
		return tools.ImageApology, ""
	}
	a.metrics.IncrementToolCall()
	return tools.CaptionFor(img), img.URL
}

// closingPhrases sign off a reply that had to be cut short. One is
// picked at random per trim so back-to-back long answers don't end on
// the same line.
var closingPhrases = []string{
	" That's the short version, happy to keep going if you want more.",
	" There's more to it, so just ask if you want the details.",
	" I'll stop there, but say the word and I'll go deeper.",
}

// spokenLimit leaves room for any closing phrase under the synthesis
// ceiling.
var spokenLimit = tts.MaxTextLen - longestClosing()

func longestClosing() int {
	longest := 0
	for _, p := range closingPhrases {
		if len(p) > longest {
			longest = len(p)
		}
	}
	return longest
}

// TrimReply bounds a reply to a speakable length, cutting at a sentence
// boundary and signing off so the cut doesn't sound like a glitch.
func TrimReply(reply string) string {
	if len(reply) <= spokenLimit {
		return reply
	}
	closing := closingPhrases[rand.Intn(len(closingPhrases))]
	return tts.TruncateForSpeech(reply, spokenLimit) + closing
}
