package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// murfSession records what one fake call received.
type murfSession struct {
	mu        sync.Mutex
	gotConfig bool
	voiceID   string
}

func (s *murfSession) record(cfg voiceConfigMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotConfig = true
	s.voiceID = cfg.VoiceConfig.VoiceID
}

func (s *murfSession) configured() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotConfig, s.voiceID
}

// fakeMurf runs a minimal stream-input endpoint for tests. It checks
// the handshake, reads the optional voice config and the text message,
// then plays back the scripted frames.
func fakeMurf(t *testing.T, frames []streamResp) (*httptest.Server, string, *murfSession) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	session := &murfSession{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read first message: %v", err)
			return
		}

		contextID := ""
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			t.Errorf("unparseable first message: %v", err)
			return
		}
		if _, ok := probe["voice_config"]; ok {
			var cfg voiceConfigMsg
			if err := json.Unmarshal(data, &cfg); err != nil {
				t.Errorf("unparseable voice config: %v", err)
				return
			}
			if cfg.VoiceConfig.VoiceID == "" || cfg.ContextID == "" {
				t.Errorf("incomplete voice config: %+v", cfg)
			}
			session.record(cfg)
			contextID = cfg.ContextID

			if _, data, err = conn.ReadMessage(); err != nil {
				t.Errorf("read text: %v", err)
				return
			}
		}

		var msg textMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Errorf("unparseable text message: %v", err)
			return
		}
		if !msg.End {
			t.Errorf("text message should close the context")
		}
		if contextID != "" && msg.ContextID != contextID {
			t.Errorf("context id changed mid-call: %q then %q", contextID, msg.ContextID)
		}

		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL, session
}

func TestMurfWSAccumulatesDecodedFrames(t *testing.T) {
	chunks := [][]byte{[]byte("RIFF-header"), []byte("middle"), []byte("tail")}
	frames := make([]streamResp, 0, len(chunks))
	for i, c := range chunks {
		frames = append(frames, streamResp{
			Audio: base64.StdEncoding.EncodeToString(c),
			Final: i == len(chunks)-1,
		})
	}

	srv, wsURL, session := fakeMurf(t, frames)
	defer srv.Close()

	synth, err := NewMurfWS(WithAPIKey("test-key"), WithStreamURL(wsURL))
	if err != nil {
		t.Fatalf("NewMurfWS: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "hello world", VoiceNatalie)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}

	// Decoded frames concatenate; the base64 strings do not.
	want := "RIFF-headermiddletail"
	if string(audio) != want {
		t.Errorf("got %q, want %q", audio, want)
	}

	if ok, voice := session.configured(); !ok || voice != VoiceNatalie {
		t.Errorf("voice config carried %q, want %q", voice, VoiceNatalie)
	}
}

func TestMurfWSEmptyVoiceOmitsConfig(t *testing.T) {
	frames := []streamResp{{
		Audio: base64.StdEncoding.EncodeToString([]byte("default-voice-audio")),
		Final: true,
	}}
	srv, wsURL, session := fakeMurf(t, frames)
	defer srv.Close()

	synth, err := NewMurfWS(WithAPIKey("test-key"), WithStreamURL(wsURL))
	if err != nil {
		t.Fatalf("NewMurfWS: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "default-voice-audio" {
		t.Errorf("got %q", audio)
	}

	// The provider keeps its own default: no voice_config on the wire.
	if ok, voice := session.configured(); ok {
		t.Errorf("voice config sent for the empty voice: %q", voice)
	}
}

func TestMurfWSNoAudio(t *testing.T) {
	srv, wsURL, _ := fakeMurf(t, []streamResp{{Final: true}})
	defer srv.Close()

	synth, err := NewMurfWS(WithAPIKey("test-key"), WithStreamURL(wsURL))
	if err != nil {
		t.Fatalf("NewMurfWS: %v", err)
	}

	_, err = synth.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("got %v, want ErrNoAudio", err)
	}
}

func TestMurfWSProviderError(t *testing.T) {
	srv, wsURL, _ := fakeMurf(t, []streamResp{{Error: "voice not found"}})
	defer srv.Close()

	synth, err := NewMurfWS(WithAPIKey("test-key"), WithStreamURL(wsURL))
	if err != nil {
		t.Fatalf("NewMurfWS: %v", err)
	}

	_, err = synth.Synthesize(context.Background(), "hello", "bogus-voice")
	if err == nil {
		t.Fatal("expected provider error")
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("got %T, want *ProviderError", err)
	}
	if provErr.Voice != "bogus-voice" {
		t.Errorf("error should carry the failing voice, got %q", provErr.Voice)
	}
}

func TestMurfWSEmptyText(t *testing.T) {
	synth, err := NewMurfWS(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewMurfWS: %v", err)
	}

	if _, err := synth.Synthesize(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("got %v, want ErrEmptyText", err)
	}
}

func TestMurfWSRequiresKey(t *testing.T) {
	if _, err := NewMurfWS(); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
}
