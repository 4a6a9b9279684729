// Package web exposes the relay over HTTP: a duplex audio WebSocket for
// the voice loop plus REST endpoints for chat, history, one-shot
// synthesis, file transcription, and runtime credentials.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/voicewire/go-voicewire/internal/config"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/hub"
	"github.com/voicewire/go-voicewire/pkg/store"
)

// Server is the HTTP and WebSocket front of the relay.
type Server struct {
	app     *fiber.App
	factory Factory
	runtime *config.Runtime
	store   *store.Store
	metrics *agent.Collector
	monitor *hub.Hub
	logger  *slog.Logger
	port    string
}

// Options configures a Server.
type Options struct {
	Port    string
	Factory Factory
	Runtime *config.Runtime
	Store   *store.Store
	Metrics *agent.Collector

	// Monitor, when set, mirrors every session event to /ws/monitor.
	Monitor *hub.Hub

	// ImageDir, when set, is served under /static/generated_images.
	ImageDir string

	// Debug enables per-request access logging.
	Debug bool

	Logger *slog.Logger
}

// NewServer creates the server and registers every route.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		factory: opts.Factory,
		runtime: opts.Runtime,
		store:   opts.Store,
		metrics: opts.Metrics,
		monitor: opts.Monitor,
		logger:  opts.Logger.With("component", "web"),
		port:    opts.Port,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicewire",
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024, // audio file uploads
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if opts.Debug {
		app.Use(fiberlogger.New())
	}

	if opts.ImageDir != "" {
		app.Static(ImageURLBase, opts.ImageDir)
	}

	app.Get("/health", s.handleHealth)

	agentGroup := app.Group("/agent")
	agentGroup.Post("/chat/:session_id", s.handleChat)
	agentGroup.Get("/history/:session_id", s.handleHistory)
	agentGroup.Delete("/history/:session_id", s.handleClearHistory)
	agentGroup.Get("/sessions", s.handleSessions)

	app.Get("/tts/voices", s.handleVoices)
	app.Post("/tts/generate", s.handleTTSGenerate)
	app.Post("/tts/echo", s.handleTTSEcho)
	app.Post("/transcribe/file", s.handleTranscribeFile)

	app.Get("/config/keys", s.handleGetKeys)
	app.Post("/config/keys", s.handleSetKeys)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stream", websocket.New(s.handleStream))
	app.Get("/ws/monitor", websocket.New(s.handleMonitor))

	s.app = app
	return s
}

// ImageURLBase is the public path generated images are served under.
const ImageURLBase = "/static/generated_images"

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
