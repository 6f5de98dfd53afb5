package pipeline

import (
	"context"
	"time"

	"github.com/yanqian/answered-once/internal/domain/answer"
)

// Event is the canonical message shape produced at the transport boundary.
// Webhook payload variants are normalized into this before they reach the
// pipeline.
type Event struct {
	ChatID     string
	MessageID  string
	RootID     string
	ParentID   string
	Text       string
	SenderID   string
	CreateTime time.Time
}

// IsThreadReply reports whether the event belongs to an existing thread.
func (e Event) IsThreadReply() bool {
	return e.RootID != "" || e.ParentID != ""
}

// ThreadRoot resolves the root message the event replies to.
func (e Event) ThreadRoot() string {
	if e.RootID != "" {
		return e.RootID
	}
	return e.ParentID
}

// FetchedMessage is a single message retrieved from the chat platform.
type FetchedMessage struct {
	Text       string
	SenderID   string
	ChatID     string
	CreateTime time.Time
}

// ChatClient is the outbound chat-platform surface the pipeline depends on.
type ChatClient interface {
	// SendText posts plain text; a non-empty rootID replies in that thread.
	SendText(ctx context.Context, chatID, text, rootID string) (string, error)
	// SendPost posts rich content in the platform's post format.
	SendPost(ctx context.Context, chatID string, content map[string]any, rootID string) (string, error)
	GetMessage(ctx context.Context, messageID string) (FetchedMessage, bool, error)
	ThreadLink(chatID, messageID string) string
}

// Config holds pipeline knobs.
type Config struct {
	// AllowedChats restricts processing to these scopes; empty allows all.
	AllowedChats []string
	Mode         answer.Mode
	TopK         int
}
