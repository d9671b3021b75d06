package assistant

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) EnsureVectorStore(ctx context.Context, id, name string) (string, error) {
	args := m.Called(ctx, id, name)
	return args.String(0), args.Error(1)
}

func (m *MockClient) EnsureAssistant(ctx context.Context, id string, cfg Config) (string, error) {
	args := m.Called(ctx, id, cfg)
	return args.String(0), args.Error(1)
}

func (m *MockClient) UpdateInstructions(ctx context.Context, assistantID, instructions string) error {
	args := m.Called(ctx, assistantID, instructions)
	return args.Error(0)
}

func (m *MockClient) UploadFile(ctx context.Context, vectorStoreID, filename string, content []byte) (string, error) {
	args := m.Called(ctx, vectorStoreID, filename, content)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
