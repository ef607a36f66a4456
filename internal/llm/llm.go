package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Client abstracts chat-completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Request carries a single completion call. Empty Model and nil Temperature
// fall back to the client's configured defaults.
type Request struct {
	APIKey      string
	Model       string
	Messages    []Message
	Temperature *float64
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type promptHashKey struct{}

// WithPromptHashSink returns a context that asks the client to record the prompt hash into sink.
func WithPromptHashSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashKey{}, sink)
}

// PromptHashSinkFromContext returns the prompt hash sink, if any.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashKey{}).(*string)
	return sink, ok
}

// HashMessages returns a stable sha256 of the rendered conversation.
func HashMessages(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
