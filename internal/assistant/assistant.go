// Package assistant is the boundary to the hosted LLM API: assistant and
// vector store lifecycle, corpus file uploads, and conversation runs. All
// retrieval happens behind the hosted file_search tool; nothing in this
// module indexes documents locally.
package assistant

import (
	"context"
	"errors"
)

// TurnAuthor identifies who wrote a transcript turn.
type TurnAuthor string

const (
	TurnUser      TurnAuthor = "user"
	TurnAssistant TurnAuthor = "assistant"
)

// Turn is one message of a conversation transcript.
type Turn struct {
	Author  TurnAuthor
	Content string
}

// Config describes the assistant to provision.
type Config struct {
	Name          string
	Model         string
	Instructions  string
	VectorStoreID string
}

// ReplyRequest carries one conversation turn to the hosted assistant.
type ReplyRequest struct {
	AssistantID string
	// Instructions is the active role profile, applied per run so that
	// concurrent conversations with different roles share one assistant.
	Instructions        string
	Transcript          []Turn
	MaxPromptTokens     int64
	MaxCompletionTokens int64
}

// ErrNoReply is returned when a run completes without an assistant message.
var ErrNoReply = errors.New("no response received from the assistant")

// Client is the hosted-API contract, pluggable for tests and local dev.
type Client interface {
	// EnsureVectorStore retrieves the store by ID, or creates a fresh one
	// named name when the ID is empty or stale. Returns the effective ID.
	EnsureVectorStore(ctx context.Context, id, name string) (string, error)

	// EnsureAssistant retrieves the assistant by ID, or creates one from cfg
	// with the file_search tool bound to cfg.VectorStoreID.
	EnsureAssistant(ctx context.Context, id string, cfg Config) (string, error)

	// UpdateInstructions rewrites the assistant's base instructions.
	UpdateInstructions(ctx context.Context, assistantID, instructions string) error

	// UploadFile pushes one document into the vector store and waits until
	// the hosted side has finished indexing it. Returns the hosted file ID.
	UploadFile(ctx context.Context, vectorStoreID, filename string, content []byte) (string, error)

	// Reply runs the transcript through the assistant and returns the new
	// assistant message.
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}
