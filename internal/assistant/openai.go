package assistant

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client against the OpenAI Assistants API.
type OpenAIClient struct {
	client *openai.Client
}

const (
	defaultRunTimeout    = 120 * time.Second
	defaultUploadTimeout = 5 * time.Minute
	uploadPollInterval   = 2 * time.Second

	// runInstruction is the per-run directive; the role profile travels as
	// additional instructions so one assistant serves every role.
	runInstruction = "Please answer the user's query based on the conversation context."
)

// NewOpenAIClient builds a client with defaults against api.openai.com.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &cli}, nil
}

func (c *OpenAIClient) EnsureVectorStore(ctx context.Context, id, name string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	if id != "" {
		vs, err := c.client.VectorStores.Get(ctx, id)
		if err == nil {
			return vs.ID, nil
		}
		// Stale or foreign ID: fall through and provision a fresh store.
	}
	vs, err := c.client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name: openai.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	return vs.ID, nil
}

func (c *OpenAIClient) EnsureAssistant(ctx context.Context, id string, cfg Config) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	if id != "" {
		a, err := c.client.Beta.Assistants.Get(ctx, id)
		if err == nil {
			return a.ID, nil
		}
	}
	params := openai.BetaAssistantNewParams{
		Model:        openai.ChatModel(cfg.Model),
		Name:         openai.String(cfg.Name),
		Instructions: openai.String(cfg.Instructions),
		Tools: []openai.AssistantToolUnionParam{
			{OfFileSearch: &openai.FileSearchToolParam{}},
		},
	}
	if cfg.VectorStoreID != "" {
		params.ToolResources = openai.BetaAssistantNewParamsToolResources{
			FileSearch: openai.BetaAssistantNewParamsToolResourcesFileSearch{
				VectorStoreIDs: []string{cfg.VectorStoreID},
			},
		}
	}
	a, err := c.client.Beta.Assistants.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return a.ID, nil
}

func (c *OpenAIClient) UpdateInstructions(ctx context.Context, assistantID, instructions string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("nil openai client")
	}
	_, err := c.client.Beta.Assistants.Update(ctx, assistantID, openai.BetaAssistantUpdateParams{
		Instructions: openai.String(instructions),
	})
	if err != nil {
		return fmt.Errorf("update assistant instructions: %w", err)
	}
	return nil
}

func (c *OpenAIClient) UploadFile(ctx context.Context, vectorStoreID, filename string, content []byte) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	f, err := c.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(content), filename, "application/pdf"),
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if _, err := c.client.VectorStores.Files.New(ctx, vectorStoreID, openai.VectorStoreFileNewParams{
		FileID: f.ID,
	}); err != nil {
		return "", fmt.Errorf("attach %s to vector store: %w", filename, err)
	}

	deadline := time.Now().Add(defaultUploadTimeout)
	for {
		vf, err := c.client.VectorStores.Files.Get(ctx, vectorStoreID, f.ID)
		if err != nil {
			return "", fmt.Errorf("poll vector store file %s: %w", f.ID, err)
		}
		switch string(vf.Status) {
		case "completed":
			return f.ID, nil
		case "failed", "cancelled":
			return "", fmt.Errorf("hosted indexing of %s ended with status %s", filename, vf.Status)
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timed out waiting for %s to finish indexing", filename)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(uploadPollInterval):
		}
	}
}

func (c *OpenAIClient) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	thread, err := c.client.Beta.Threads.New(reqCtx, openai.BetaThreadNewParams{
		Messages: buildThreadMessages(req.Transcript),
	})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	runParams := openai.BetaThreadRunNewParams{
		AssistantID:  req.AssistantID,
		Instructions: openai.String(runInstruction),
	}
	if req.Instructions != "" {
		runParams.AdditionalInstructions = openai.String(req.Instructions)
	}
	if req.MaxPromptTokens > 0 {
		runParams.MaxPromptTokens = openai.Int(req.MaxPromptTokens)
	}
	if req.MaxCompletionTokens > 0 {
		runParams.MaxCompletionTokens = openai.Int(req.MaxCompletionTokens)
	}

	run, err := c.client.Beta.Threads.Runs.NewAndPoll(reqCtx, thread.ID, runParams, 0)
	if err != nil {
		return "", fmt.Errorf("run thread: %w", err)
	}
	if string(run.Status) != "completed" {
		return "", fmt.Errorf("run ended with status %s", run.Status)
	}

	page, err := c.client.Beta.Threads.Messages.List(reqCtx, thread.ID, openai.BetaThreadMessageListParams{
		RunID: openai.String(run.ID),
	})
	if err != nil {
		return "", fmt.Errorf("list run messages: %w", err)
	}
	for _, msg := range page.Data {
		if string(msg.Role) != "assistant" {
			continue
		}
		for _, content := range msg.Content {
			if text := strings.TrimSpace(content.Text.Value); text != "" {
				return text, nil
			}
		}
	}
	return "", ErrNoReply
}

func buildThreadMessages(transcript []Turn) []openai.BetaThreadNewParamsMessage {
	msgs := make([]openai.BetaThreadNewParamsMessage, 0, len(transcript))
	for _, t := range transcript {
		msg := openai.BetaThreadNewParamsMessage{
			Content: openai.BetaThreadNewParamsMessageContentUnion{
				OfString: openai.String(t.Content),
			},
		}
		if t.Author == TurnAssistant {
			msg.Role = "assistant"
		} else {
			msg.Role = "user"
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
