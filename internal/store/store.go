package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bluo42/adu-chatbot/internal/corpus"
)

// Author identifies who wrote a conversation message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// DocumentStatus tracks a corpus file through hosted ingestion.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusUploading DocumentStatus = "uploading"
	StatusIndexed   DocumentStatus = "indexed"
	StatusFailed    DocumentStatus = "failed"
)

var ErrNotFound = errors.New("not found")

// Conversation is one chat session with a fixed-at-a-time response role.
type Conversation struct {
	ID        uuid.UUID
	Role      string
	CreatedAt time.Time
}

// Message is one transcript turn.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Author         Author
	Content        string
	CreatedAt      time.Time
}

// CorpusDocument records one regulatory PDF and its hosted-ingestion state.
type CorpusDocument struct {
	ID          uuid.UUID
	Filename    string
	Category    corpus.Category
	Statewide   bool
	Status      DocumentStatus
	FileID      string
	Pages       int
	SectionRefs []string
	Error       string
	CreatedAt   time.Time
}

// DocumentUpdate carries the fields an ingest outcome may set.
type DocumentUpdate struct {
	Status      DocumentStatus
	FileID      string
	Pages       int
	SectionRefs []string
	Error       string
}

// AssistantState persists the provisioned hosted IDs across restarts.
type AssistantState struct {
	AssistantID   string
	VectorStoreID string
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateConversation(ctx context.Context, role, greeting string) (Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	SetConversationRole(ctx context.Context, id uuid.UUID, role string) error
	AppendMessage(ctx context.Context, conversationID uuid.UUID, author Author, content string) (Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)

	UpsertCorpusDocument(ctx context.Context, filename string, category corpus.Category, statewide bool) (CorpusDocument, error)
	UpdateCorpusDocument(ctx context.Context, id uuid.UUID, update DocumentUpdate) error
	GetCorpusDocument(ctx context.Context, id uuid.UUID) (CorpusDocument, error)
	ListCorpusDocuments(ctx context.Context) ([]CorpusDocument, error)

	LoadAssistantState(ctx context.Context) (AssistantState, error)
	SaveAssistantState(ctx context.Context, state AssistantState) error
}
