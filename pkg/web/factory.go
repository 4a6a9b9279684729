package web

import (
	"log/slog"

	"github.com/voicewire/go-voicewire/internal/config"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/llm"
	"github.com/voicewire/go-voicewire/pkg/relay"
	"github.com/voicewire/go-voicewire/pkg/store"
	"github.com/voicewire/go-voicewire/pkg/stt"
	"github.com/voicewire/go-voicewire/pkg/tools"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// Factory builds provider-backed components with current credentials.
//
// Components are built per use, so a key set through the config
// endpoint takes effect on the next request without a restart. Every
// method fails explicitly when its credential is missing.
type Factory interface {
	Streamer() (stt.Streamer, error)
	FileTranscriber() (stt.FileTranscriber, error)
	Agent() (*agent.Agent, error)
	Synthesizer() (tts.Synthesizer, error)
	URLSynthesizer() (tts.URLSynthesizer, error)
}

// Providers is the production Factory, reading credentials from the
// runtime registry on every build.
type Providers struct {
	Runtime *config.Runtime
	Store   *store.Store
	Metrics *agent.Collector

	// ImageDir is where generated images are written; ImageURLBase is
	// the public path they are served under.
	ImageDir     string
	ImageURLBase string

	// Voice is the preferred synthesis voice.
	Voice string

	Logger *slog.Logger
}

func (p *Providers) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Streamer builds the duplex transcription client.
func (p *Providers) Streamer() (stt.Streamer, error) {
	key, err := p.Runtime.Get(config.KeyAssemblyAI)
	if err != nil {
		return nil, err
	}
	return stt.NewAssemblyAI(stt.WithAPIKey(key), stt.WithLogger(p.logger()))
}

// FileTranscriber builds the one-shot file transcription client.
func (p *Providers) FileTranscriber() (stt.FileTranscriber, error) {
	key, err := p.Runtime.Get(config.KeyAssemblyAI)
	if err != nil {
		return nil, err
	}
	return stt.NewAssemblyAI(stt.WithAPIKey(key), stt.WithLogger(p.logger()))
}

// Synthesizer builds the streaming synthesizer with voice fallback.
func (p *Providers) Synthesizer() (tts.Synthesizer, error) {
	key, err := p.Runtime.Get(config.KeyMurf)
	if err != nil {
		return nil, err
	}
	synth, err := tts.NewMurfWS(tts.WithAPIKey(key), tts.WithLogger(p.logger()))
	if err != nil {
		return nil, err
	}
	return tts.NewFallback(synth, p.logger()), nil
}

// URLSynthesizer builds the hosted-audio synthesizer.
func (p *Providers) URLSynthesizer() (tts.URLSynthesizer, error) {
	key, err := p.Runtime.Get(config.KeyMurf)
	if err != nil {
		return nil, err
	}
	return tts.NewMurf(tts.WithAPIKey(key), tts.WithLogger(p.logger()))
}

// Agent assembles the full reply pipeline. The model credential is
// required; search and image credentials are optional and their routes
// degrade when missing.
func (p *Providers) Agent() (*agent.Agent, error) {
	geminiKey, err := p.Runtime.Get(config.KeyGemini)
	if err != nil {
		return nil, err
	}
	generator, err := llm.NewGemini(llm.WithAPIKey(geminiKey), llm.WithLogger(p.logger()))
	if err != nil {
		return nil, err
	}

	synth, err := p.Synthesizer()
	if err != nil {
		return nil, err
	}

	var search *tools.SearchClient
	if key, err := p.Runtime.Get(config.KeyTavily); err == nil {
		search = tools.NewSearchClient(key, p.logger())
	}

	// The image API works without a key, just slower.
	hfKey, _ := p.Runtime.Get(config.KeyHuggingFace)
	image := tools.NewImageClient(hfKey, p.ImageDir, p.ImageURLBase, p.logger())

	return agent.New(agent.Options{
		Generator: generator,
		Router:    tools.NewKeywordRouter(),
		Search:    search,
		Image:     image,
		Synth:     synth,
		Relay:     relay.New(relay.DefaultFrameSize, p.logger()),
		Store:     p.Store,
		Voice:     p.Voice,
		Metrics:   p.Metrics,
		Logger:    p.logger(),
	}), nil
}

// Verify Providers implements Factory at compile time.
var _ Factory = (*Providers)(nil)
