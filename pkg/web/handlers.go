package web

import (
	"encoding/base64"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/voicewire/go-voicewire/internal/config"
	"github.com/voicewire/go-voicewire/pkg/agent"
	"github.com/voicewire/go-voicewire/pkg/store"
	"github.com/voicewire/go-voicewire/pkg/stt"
	"github.com/voicewire/go-voicewire/pkg/tts"
)

// errStatus maps a provider failure to an HTTP status. A missing
// credential is the caller's problem, not the server's.
func errStatus(err error) int {
	if errors.Is(err, config.ErrKeyNotConfigured) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusBadGateway
}

func errJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// formAudio reads the uploaded "audio" form file.
func formAudio(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		return nil, err
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleHealth reports liveness, configured providers, and turn
// metrics.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"providers": s.runtime.Configured(),
	}
	if s.metrics != nil {
		body["metrics"] = s.metrics.Snapshot()
	}
	return c.JSON(body)
}

// ChatRequest is the JSON body of POST /agent/chat/:session_id.
type ChatRequest struct {
	Message string `json:"message"`
}

// handleChat answers one turn of a session. The primary form is a
// multipart audio upload run through the full pipeline: transcription,
// history-aware reply, hosted synthesis. A JSON {message} body skips
// the audio legs and answers in text.
func (s *Server) handleChat(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	a, err := s.factory.Agent()
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}

	if audio, uploadErr := formAudio(c); uploadErr == nil {
		return s.chatFromAudio(c, a, sessionID, audio)
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return errJSON(c, fiber.StatusBadRequest, errors.New("an audio upload or a message is required"))
	}

	reply, imageURL := a.Chat(c.Context(), sessionID, req.Message)
	body := fiber.Map{
		"session_id": sessionID,
		"message":    reply,
	}
	if imageURL != "" {
		body["image_url"] = imageURL
	}
	return c.JSON(body)
}

// chatFromAudio is the voice form of a chat turn: uploaded audio in,
// spoken reply URL out. A synthesis failure degrades to text, matching
// the streaming path.
func (s *Server) chatFromAudio(c *fiber.Ctx, a *agent.Agent, sessionID string, audio []byte) error {
	transcriber, err := s.factory.FileTranscriber()
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}

	transcript, err := transcriber.TranscribeFile(c.Context(), audio)
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			return c.JSON(fiber.Map{
				"session_id": sessionID,
				"transcript": "",
				"message":    "",
				"note":       "no speech detected",
			})
		}
		return errJSON(c, errStatus(err), err)
	}

	reply, imageURL := a.Chat(c.Context(), sessionID, transcript)
	body := fiber.Map{
		"session_id": sessionID,
		"transcript": transcript,
		"message":    reply,
	}
	if imageURL != "" {
		body["image_url"] = imageURL
	}

	synth, err := s.factory.URLSynthesizer()
	if err != nil {
		s.logger.Warn("chat synthesis unavailable, reply is text-only", "error", err)
		return c.JSON(body)
	}
	audioURL, err := synth.GenerateURL(c.Context(), reply, "")
	if err != nil {
		s.logger.Warn("chat synthesis failed, reply is text-only", "error", err)
		return c.JSON(body)
	}
	body["audio_url"] = audioURL
	return c.JSON(body)
}

// handleHistory returns the most recent turns of a session, newest
// first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	limit := c.QueryInt("limit", 0)

	turns, err := s.store.History(c.Context(), sessionID, limit)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"turns":      len(turns),
		"history":    turns,
	})
}

// handleClearHistory deletes every turn of a session.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	deleted, err := s.store.Clear(c.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return errJSON(c, fiber.StatusNotFound, err)
	}
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"deleted":    deleted,
	})
}

// handleSessions lists stored sessions.
func (s *Server) handleSessions(c *fiber.Ctx) error {
	sessions, err := s.store.Sessions(c.Context())
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// TTSRequest is the body of the synthesis endpoints.
type TTSRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// handleVoices lists the synthesis voices clients can ask for.
func (s *Server) handleVoices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"voices":  tts.KnownVoices(),
		"default": tts.DefaultVoice,
		"format":  tts.DefaultFormat(),
	})
}

// handleTTSGenerate renders text and returns a hosted audio URL.
func (s *Server) handleTTSGenerate(c *fiber.Ctx) error {
	var req TTSRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return errJSON(c, fiber.StatusBadRequest, errors.New("text is required"))
	}

	synth, err := s.factory.URLSynthesizer()
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}

	audioURL, err := synth.GenerateURL(c.Context(), req.Text, req.VoiceID)
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}
	return c.JSON(fiber.Map{"audio_url": audioURL})
}

// handleTTSEcho speaks back what it hears: an uploaded recording is
// transcribed and the transcript synthesized, returned inline as
// base64. A JSON {text} body skips the transcription leg.
func (s *Server) handleTTSEcho(c *fiber.Ctx) error {
	voiceID := c.Query("voice_id")
	text := ""
	transcribed := false

	if audio, uploadErr := formAudio(c); uploadErr == nil {
		transcriber, err := s.factory.FileTranscriber()
		if err != nil {
			return errJSON(c, errStatus(err), err)
		}
		transcript, err := transcriber.TranscribeFile(c.Context(), audio)
		if err != nil {
			if errors.Is(err, stt.ErrNoSpeech) {
				return c.JSON(fiber.Map{"transcript": "", "note": "no speech detected"})
			}
			return errJSON(c, errStatus(err), err)
		}
		text = transcript
		transcribed = true
	} else {
		var req TTSRequest
		if err := c.BodyParser(&req); err != nil || req.Text == "" {
			return errJSON(c, fiber.StatusBadRequest, errors.New("an audio upload or text is required"))
		}
		text = req.Text
		if req.VoiceID != "" {
			voiceID = req.VoiceID
		}
	}

	synth, err := s.factory.Synthesizer()
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}

	audio, err := synth.Synthesize(c.Context(), text, voiceID)
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}
	body := fiber.Map{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
		"total_length": len(audio),
		"format":       tts.DefaultFormat(),
	}
	if transcribed {
		body["transcript"] = text
	}
	return c.JSON(body)
}

// handleTranscribeFile transcribes one uploaded audio file.
func (s *Server) handleTranscribeFile(c *fiber.Ctx) error {
	audio, err := formAudio(c)
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, errors.New("audio file is required"))
	}

	transcriber, err := s.factory.FileTranscriber()
	if err != nil {
		return errJSON(c, errStatus(err), err)
	}

	transcript, err := transcriber.TranscribeFile(c.Context(), audio)
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			return c.JSON(fiber.Map{"transcript": "", "note": "no speech detected"})
		}
		return errJSON(c, errStatus(err), err)
	}
	return c.JSON(fiber.Map{"transcript": transcript})
}

// handleGetKeys reports which credentials are configured. Values are
// never returned.
func (s *Server) handleGetKeys(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"configured": s.runtime.Configured()})
}

// handleSetKeys updates runtime credentials from a name-to-value map.
// An empty value clears a key back to its environment fallback.
func (s *Server) handleSetKeys(c *fiber.Ctx) error {
	var keys map[string]string
	if err := c.BodyParser(&keys); err != nil || len(keys) == 0 {
		return errJSON(c, fiber.StatusBadRequest, errors.New("expected a map of credential names to values"))
	}

	for name, value := range keys {
		if err := s.runtime.Set(name, value); err != nil {
			return errJSON(c, fiber.StatusBadRequest, err)
		}
	}
	s.logger.Info("runtime credentials updated", "count", len(keys))
	return c.JSON(fiber.Map{"configured": s.runtime.Configured()})
}
