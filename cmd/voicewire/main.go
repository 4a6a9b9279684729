// voicewire: conversational voice-agent relay.
// Bridges browser microphone audio to streaming transcription, answers
// turns with an LLM plus tools, and streams synthesized speech back.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voicewire/go-voicewire/internal/config"
	"github.com/voicewire/go-voicewire/internal/log"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/hub"
	"github.com/voicewire/go-voicewire/pkg/store"
	"github.com/voicewire/go-voicewire/pkg/tts"
	"github.com/voicewire/go-voicewire/pkg/web"
)

var version = "1.0.0"

var (
	port     = flag.String("port", "", "HTTP server port (overrides PORT)")
	dbPath   = flag.String("db", "", "SQLite path for session history (overrides DB_PATH)")
	imageDir = flag.String("image-dir", "generated_images", "directory for generated images")
	voice    = flag.String("voice", tts.DefaultVoice, "preferred synthesis voice")
	debug    = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	// Local development keys; absence is fine in production.
	_ = godotenv.Load()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	if *port == "" {
		*port = config.Port()
	}
	if *dbPath == "" {
		*dbPath = config.DBPath()
	}

	logger.Info("voicewire starting", "version", version, "port", *port)

	st, err := store.Open(*dbPath, logger)
	if err != nil {
		logger.Error("open session store failed", "path", *dbPath, "error", err)
		os.Exit(1)
	}

	runtime := config.NewRuntime()
	for name, ok := range runtime.Configured() {
		if !ok {
			logger.Warn("provider credential not set", "provider", name)
		}
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	monitor := hub.New("sessions", logger)
	go monitor.Run(hubCtx)

	metrics := agent.NewCollector()
	factory := &web.Providers{
		Runtime:      runtime,
		Store:        st,
		Metrics:      metrics,
		ImageDir:     *imageDir,
		ImageURLBase: web.ImageURLBase,
		Voice:        *voice,
		Logger:       logger,
	}

	server := web.NewServer(web.Options{
		Port:     *port,
		Factory:  factory,
		Runtime:  runtime,
		Store:    st,
		Metrics:  metrics,
		Monitor:  monitor,
		ImageDir: *imageDir,
		Debug:    *debug,
		Logger:   logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("voicewire v%s\n", version)
	fmt.Printf("  stream:  ws://localhost:%s/ws/stream?session_id=<id>\n", *port)
	fmt.Printf("  health:  http://localhost:%s/health\n", *port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
