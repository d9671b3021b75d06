package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bluo42/adu-chatbot/internal/corpus"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateConversation(ctx context.Context, role, greeting string) (Conversation, error) {
	args := m.Called(ctx, role, greeting)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockStore) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockStore) SetConversationRole(ctx context.Context, id uuid.UUID, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, author Author, content string) (Message, error) {
	args := m.Called(ctx, conversationID, author, content)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockStore) UpsertCorpusDocument(ctx context.Context, filename string, category corpus.Category, statewide bool) (CorpusDocument, error) {
	args := m.Called(ctx, filename, category, statewide)
	return args.Get(0).(CorpusDocument), args.Error(1)
}

func (m *MockStore) UpdateCorpusDocument(ctx context.Context, id uuid.UUID, update DocumentUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockStore) GetCorpusDocument(ctx context.Context, id uuid.UUID) (CorpusDocument, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(CorpusDocument), args.Error(1)
}

func (m *MockStore) ListCorpusDocuments(ctx context.Context) ([]CorpusDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CorpusDocument), args.Error(1)
}

func (m *MockStore) LoadAssistantState(ctx context.Context) (AssistantState, error) {
	args := m.Called(ctx)
	return args.Get(0).(AssistantState), args.Error(1)
}

func (m *MockStore) SaveAssistantState(ctx context.Context, state AssistantState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}
