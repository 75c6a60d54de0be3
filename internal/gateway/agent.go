package gateway

import "context"

// Responder is the external agent collaborator: given a session and a
// piece of content, it produces a reply. The gateway only depends on this
// contract — it never constructs or configures an LLM client itself.
type Responder interface {
	Respond(ctx context.Context, sessionID, content string) (string, error)
}

// EchoResponder is a trivial Responder that reflects its input back,
// unmodified. Used by tests and by `opencrust serve`, which ships no other
// Responder implementation.
type EchoResponder struct{}

// Respond returns content unchanged.
func (EchoResponder) Respond(ctx context.Context, sessionID, content string) (string, error) {
	return content, nil
}
