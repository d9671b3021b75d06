package assistant

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StubClient is an offline Client for local development and tests. It hands
// out deterministic IDs and echoes the last user turn.
type StubClient struct {
	seq atomic.Int64
}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) EnsureVectorStore(_ context.Context, id, _ string) (string, error) {
	if id != "" {
		return id, nil
	}
	return fmt.Sprintf("vs_stub_%d", s.seq.Add(1)), nil
}

func (s *StubClient) EnsureAssistant(_ context.Context, id string, _ Config) (string, error) {
	if id != "" {
		return id, nil
	}
	return fmt.Sprintf("asst_stub_%d", s.seq.Add(1)), nil
}

func (s *StubClient) UpdateInstructions(context.Context, string, string) error {
	return nil
}

func (s *StubClient) UploadFile(_ context.Context, _, filename string, _ []byte) (string, error) {
	return fmt.Sprintf("file_stub_%d", s.seq.Add(1)), nil
}

func (s *StubClient) Reply(_ context.Context, req ReplyRequest) (string, error) {
	for i := len(req.Transcript) - 1; i >= 0; i-- {
		if req.Transcript[i].Author == TurnUser {
			return fmt.Sprintf("Stub reply to: %s", req.Transcript[i].Content), nil
		}
	}
	return "", ErrNoReply
}
