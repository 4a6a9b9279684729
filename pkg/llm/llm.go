// Package llm provides language-model text generation via Google Gemini.
//
// Generation is history-aware: callers pass the prior turns of the session
// and the new prompt, and receive the reply either as one string or as a
// stream of fragments. Rate limits surface as a typed APIError so callers
// can apply their own backoff policy.
package llm

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role Role
	Text string
}

// Request describes one generation call.
type Request struct {
	// System is the optional system instruction.
	System string

	// History holds the session's prior turns, oldest first.
	History []Message

	// Prompt is the new user message.
	Prompt string
}

// Generator is the language-model interface.
type Generator interface {
	// Generate returns the complete reply in one call.
	Generate(ctx context.Context, req *Request) (string, error)

	// Stream invokes onText for each reply fragment as it arrives and
	// returns the accumulated reply.
	Stream(ctx context.Context, req *Request, onText func(fragment string)) (string, error)
}
