package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/bluo42/adu-chatbot/internal/assistant"
	"github.com/bluo42/adu-chatbot/internal/config"
	"github.com/bluo42/adu-chatbot/internal/roles"
	"github.com/bluo42/adu-chatbot/internal/store"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAssistantStateProvisionsFresh(t *testing.T) {
	st := new(store.MockStore)
	client := new(assistant.MockClient)

	st.On("LoadAssistantState", mock.Anything).
		Return(store.AssistantState{}, store.ErrNotFound).Once()
	client.On("EnsureVectorStore", mock.Anything, "", "ADU Permit Vector Store").
		Return("vs_new", nil).Once()
	client.On("EnsureAssistant", mock.Anything, "", mock.MatchedBy(func(cfg assistant.Config) bool {
		return cfg.VectorStoreID == "vs_new" && cfg.Model == "gpt-4o"
	})).Return("asst_new", nil).Once()
	st.On("SaveAssistantState", mock.Anything, store.AssistantState{
		AssistantID: "asst_new", VectorStoreID: "vs_new",
	}).Return(nil).Once()

	cfg := config.Config{
		AssistantModel:  "gpt-4o",
		AssistantName:   "ADU Permit Chatbot Assistant",
		VectorStoreName: "ADU Permit Vector Store",
	}
	state, err := EnsureAssistantState(context.Background(), cfg, testLog(), st, client, roles.Builtin())
	if err != nil {
		t.Fatalf("EnsureAssistantState failed: %v", err)
	}
	if state.AssistantID != "asst_new" || state.VectorStoreID != "vs_new" {
		t.Errorf("unexpected state: %+v", state)
	}
	st.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestEnsureAssistantStatePrefersStoredIDs(t *testing.T) {
	st := new(store.MockStore)
	client := new(assistant.MockClient)

	st.On("LoadAssistantState", mock.Anything).
		Return(store.AssistantState{AssistantID: "asst_db", VectorStoreID: "vs_db"}, nil).Once()
	client.On("EnsureVectorStore", mock.Anything, "vs_db", mock.Anything).
		Return("vs_db", nil).Once()
	client.On("EnsureAssistant", mock.Anything, "asst_db", mock.Anything).
		Return("asst_db", nil).Once()
	st.On("SaveAssistantState", mock.Anything, store.AssistantState{
		AssistantID: "asst_db", VectorStoreID: "vs_db",
	}).Return(nil).Once()

	// Configured IDs must not shadow persisted ones.
	cfg := config.Config{AssistantID: "asst_cfg", VectorStoreID: "vs_cfg"}
	state, err := EnsureAssistantState(context.Background(), cfg, testLog(), st, client, roles.Builtin())
	if err != nil {
		t.Fatalf("EnsureAssistantState failed: %v", err)
	}
	if state.VectorStoreID != "vs_db" {
		t.Errorf("expected persisted vector store ID, got %s", state.VectorStoreID)
	}
	st.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestEnsureAssistantStateVectorStoreFailure(t *testing.T) {
	st := new(store.MockStore)
	client := new(assistant.MockClient)

	st.On("LoadAssistantState", mock.Anything).
		Return(store.AssistantState{}, store.ErrNotFound).Once()
	client.On("EnsureVectorStore", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("api down")).Once()

	_, err := EnsureAssistantState(context.Background(), config.Config{}, testLog(), st, client, roles.Builtin())
	if err == nil {
		t.Fatal("expected error when vector store provisioning fails")
	}
}

func TestEnsureAssistantStatePushesOverriddenInstructions(t *testing.T) {
	st := new(store.MockStore)
	client := new(assistant.MockClient)

	st.On("LoadAssistantState", mock.Anything).
		Return(store.AssistantState{AssistantID: "asst_db", VectorStoreID: "vs_db"}, nil).Once()
	client.On("EnsureVectorStore", mock.Anything, "vs_db", mock.Anything).
		Return("vs_db", nil).Once()
	client.On("EnsureAssistant", mock.Anything, "asst_db", mock.MatchedBy(func(cfg assistant.Config) bool {
		return cfg.Instructions == "Answer as a permit concierge."
	})).Return("asst_db", nil).Once()
	// Existing assistants keep their old instructions until explicitly updated.
	client.On("UpdateInstructions", mock.Anything, "asst_db", "Answer as a permit concierge.").
		Return(nil).Once()
	st.On("SaveAssistantState", mock.Anything, store.AssistantState{
		AssistantID: "asst_db", VectorStoreID: "vs_db",
	}).Return(nil).Once()

	set := roles.Builtin()
	set[roles.Default] = roles.Profile{Name: roles.Default, Instructions: "Answer as a permit concierge."}

	state, err := EnsureAssistantState(context.Background(), config.Config{}, testLog(), st, client, set)
	if err != nil {
		t.Fatalf("EnsureAssistantState failed: %v", err)
	}
	if state.AssistantID != "asst_db" {
		t.Errorf("unexpected state: %+v", state)
	}
	st.AssertExpectations(t)
	client.AssertExpectations(t)
}
