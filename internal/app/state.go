package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bluo42/adu-chatbot/internal/assistant"
	"github.com/bluo42/adu-chatbot/internal/config"
	"github.com/bluo42/adu-chatbot/internal/roles"
	"github.com/bluo42/adu-chatbot/internal/store"
)

// EnsureAssistantState makes sure the hosted vector store and assistant
// exist and persists their IDs. IDs already stored win over configured ones;
// either is re-validated against the hosted side, and stale IDs are replaced
// by freshly provisioned resources. When set overrides the default profile,
// the override is pushed onto an assistant that already existed.
func EnsureAssistantState(ctx context.Context, cfg config.Config, log *slog.Logger, st store.Store, client assistant.Client, set roles.Set) (store.AssistantState, error) {
	state, err := st.LoadAssistantState(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return store.AssistantState{}, fmt.Errorf("load assistant state: %w", err)
	}
	if state.VectorStoreID == "" {
		state.VectorStoreID = cfg.VectorStoreID
	}
	if state.AssistantID == "" {
		state.AssistantID = cfg.AssistantID
	}

	vsID, err := client.EnsureVectorStore(ctx, state.VectorStoreID, cfg.VectorStoreName)
	if err != nil {
		return store.AssistantState{}, fmt.Errorf("ensure vector store: %w", err)
	}
	if vsID != state.VectorStoreID {
		log.Info("provisioned vector store", "vector_store_id", vsID)
	}

	defaultProfile, _ := set.Get(roles.Default)
	asstID, err := client.EnsureAssistant(ctx, state.AssistantID, assistant.Config{
		Name:          cfg.AssistantName,
		Model:         cfg.AssistantModel,
		Instructions:  defaultProfile.Instructions,
		VectorStoreID: vsID,
	})
	if err != nil {
		return store.AssistantState{}, fmt.Errorf("ensure assistant: %w", err)
	}
	if asstID != state.AssistantID {
		log.Info("provisioned assistant", "assistant_id", asstID)
	} else if builtin, _ := roles.Builtin().Get(roles.Default); defaultProfile.Instructions != builtin.Instructions {
		// EnsureAssistant only applies instructions on creation; an assistant
		// that already existed still carries the previous default profile.
		if err := client.UpdateInstructions(ctx, asstID, defaultProfile.Instructions); err != nil {
			return store.AssistantState{}, fmt.Errorf("update assistant instructions: %w", err)
		}
		log.Info("updated assistant instructions", "assistant_id", asstID)
	}

	state = store.AssistantState{AssistantID: asstID, VectorStoreID: vsID}
	if err := st.SaveAssistantState(ctx, state); err != nil {
		return store.AssistantState{}, fmt.Errorf("save assistant state: %w", err)
	}
	return state, nil
}
