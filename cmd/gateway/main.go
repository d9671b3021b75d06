package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bluo42/adu-chatbot/internal/app"
	"github.com/bluo42/adu-chatbot/internal/assistant"
	"github.com/bluo42/adu-chatbot/internal/cache"
	"github.com/bluo42/adu-chatbot/internal/corpus"
	"github.com/bluo42/adu-chatbot/internal/httputil"
	"github.com/bluo42/adu-chatbot/internal/queue"
	"github.com/bluo42/adu-chatbot/internal/roles"
	"github.com/bluo42/adu-chatbot/internal/store"
)

type ingestTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Statewide  bool      `json:"statewide"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	state, err := app.EnsureAssistantState(ctx, deps.Config, deps.Log, deps.Store, deps.Assistant, deps.Roles)
	if err != nil {
		deps.Log.Error("failed to ensure hosted assistant", "err", err)
		os.Exit(1)
	}

	r := httputil.NewRouter(deps.Log)

	r.Post("/api/conversations", createConversationHandler(deps))
	r.Get("/api/conversations/{id}", getConversationHandler(deps))
	r.Patch("/api/conversations/{id}/role", setRoleHandler(deps))
	r.Post("/api/conversations/{id}/messages", postMessageHandler(deps, state))
	r.Post("/api/corpus/sync", corpusSyncHandler(deps))
	r.Get("/api/corpus", listCorpusHandler(deps))
	r.Get("/api/corpus/{id}", getCorpusDocumentHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr, "assistant_id", state.AssistantID)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

type createConversationRequest struct {
	Role string `json:"role"`
}

type messageView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func createConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createConversationRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
				return
			}
		}
		if req.Role == "" {
			req.Role = roles.Default
		}
		if _, ok := deps.Roles.Get(req.Role); !ok {
			httputil.Fail(deps.Log, w, fmt.Sprintf("unknown role %q (valid: %v)", req.Role, deps.Roles.Names()), nil, http.StatusBadRequest)
			return
		}

		conv, err := deps.Store.CreateConversation(r.Context(), req.Role, roles.Greeting)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create conversation", err, http.StatusInternalServerError)
			return
		}
		msgs, err := deps.Store.ListMessages(r.Context(), conv.ID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load transcript", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"conversation_id": conv.ID.String(),
			"role":            conv.Role,
			"messages":        toMessageViews(msgs),
		})
	}
}

func getConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := conversationFromPath(deps, w, r)
		if !ok {
			return
		}
		msgs, err := deps.Store.ListMessages(r.Context(), conv.ID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load transcript", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"conversation_id": conv.ID.String(),
			"role":            conv.Role,
			"messages":        toMessageViews(msgs),
		})
	}
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func setRoleHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := conversationFromPath(deps, w, r)
		if !ok {
			return
		}
		var req setRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if _, okRole := deps.Roles.Get(req.Role); !okRole {
			httputil.Fail(deps.Log, w, fmt.Sprintf("unknown role %q (valid: %v)", req.Role, deps.Roles.Names()), nil, http.StatusBadRequest)
			return
		}
		if err := deps.Store.SetConversationRole(r.Context(), conv.ID, req.Role); err != nil {
			httputil.Fail(deps.Log, w, "failed to switch role", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"conversation_id": conv.ID.String(),
			"role":            req.Role,
		})
	}
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

func postMessageHandler(deps app.Deps, state store.AssistantState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := conversationFromPath(deps, w, r)
		if !ok {
			return
		}
		var req postMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		ctx := r.Context()
		profile, _ := deps.Roles.Get(conv.Role)

		if _, err := deps.Store.AppendMessage(ctx, conv.ID, store.AuthorUser, req.Content); err != nil {
			httputil.Fail(deps.Log, w, "failed to persist message", err, http.StatusInternalServerError)
			return
		}
		msgs, err := deps.Store.ListMessages(ctx, conv.ID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load transcript", err, http.StatusInternalServerError)
			return
		}
		transcript := toTranscript(msgs)

		// Identical conversations get the cached reply; anything else misses.
		cacheKey := cache.Key(conv.Role, transcript)
		if cached, err := deps.Cache.GetReply(ctx, cacheKey); err == nil && cached != nil {
			deps.Log.Info("reply cache hit", "conversation_id", conv.ID)
			if _, err := deps.Store.AppendMessage(ctx, conv.ID, store.AuthorAssistant, cached.Content); err != nil {
				httputil.Fail(deps.Log, w, "failed to persist reply", err, http.StatusInternalServerError)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"reply":  cached.Content,
				"role":   conv.Role,
				"cached": true,
			})
			return
		}

		reply, err := deps.Assistant.Reply(ctx, assistant.ReplyRequest{
			AssistantID:         state.AssistantID,
			Instructions:        profile.Instructions,
			Transcript:          transcript,
			MaxPromptTokens:     deps.Config.MaxPromptTokens,
			MaxCompletionTokens: deps.Config.MaxCompletionTokens,
		})
		if err != nil {
			// The turn still lands in the transcript as an error reply so
			// the user sees the failure instead of a dropped message.
			errMsg := fmt.Sprintf("Error: %v", err)
			if _, appendErr := deps.Store.AppendMessage(ctx, conv.ID, store.AuthorAssistant, errMsg); appendErr != nil {
				deps.Log.Error("failed to persist error reply", "err", appendErr, "conversation_id", conv.ID)
			}
			deps.Log.Error("assistant reply failed", "err", err, "conversation_id", conv.ID)
			httputil.WriteJSON(w, http.StatusBadGateway, map[string]any{
				"reply":  errMsg,
				"role":   conv.Role,
				"cached": false,
			})
			return
		}

		if _, err := deps.Store.AppendMessage(ctx, conv.ID, store.AuthorAssistant, reply); err != nil {
			httputil.Fail(deps.Log, w, "failed to persist reply", err, http.StatusInternalServerError)
			return
		}
		ttl := time.Duration(deps.Config.CacheTTL) * time.Second
		if err := deps.Cache.SetReply(ctx, cacheKey, &cache.Reply{Content: reply, Role: conv.Role}, ttl); err != nil {
			deps.Log.Warn("failed to cache reply", "err", err)
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"reply":  reply,
			"role":   conv.Role,
			"cached": false,
		})
	}
}

func corpusSyncHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cfg := deps.Config
		files := corpus.Scan(cfg.LettersDir, cfg.OrdinancesDir, cfg.StatewideHandbook)
		if len(files) == 0 {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"enqueued": []string{},
				"note":     "no PDF files found in the configured directories",
			})
			return
		}

		var enqueued []string
		for _, f := range files {
			doc, err := deps.Store.UpsertCorpusDocument(ctx, f.Filename, f.Category, f.Statewide)
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to record corpus document", err, http.StatusInternalServerError)
				return
			}
			payload := ingestTaskPayload{
				DocumentID: doc.ID,
				Filename:   f.Filename,
				Path:       f.Path,
				Statewide:  f.Statewide,
			}
			body, err := json.Marshal(payload)
			if err != nil {
				httputil.Fail(deps.Log, w, "marshal payload failed", err, http.StatusInternalServerError)
				return
			}
			task := queue.Task{Type: queue.TaskTypeIngest, Payload: body}
			if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
				markDocumentFailed(ctx, deps, doc.ID, err)
				httputil.Fail(deps.Log, w, "failed to enqueue document; please retry", err, http.StatusInternalServerError)
				return
			}
			enqueued = append(enqueued, f.Filename)
		}

		// New documents can change any answer.
		if err := deps.Cache.Invalidate(ctx); err != nil {
			deps.Log.Warn("failed to invalidate reply cache", "err", err)
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"enqueued": enqueued,
		})
	}
}

func listCorpusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Store.ListCorpusDocuments(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list corpus documents", err, http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			out = append(out, toDocumentView(d))
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": out})
	}
}

func getCorpusDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		doc, err := deps.Store.GetCorpusDocument(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
			} else {
				httputil.Fail(deps.Log, w, "failed to load document", err, http.StatusInternalServerError)
			}
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toDocumentView(doc))
	}
}

func toDocumentView(d store.CorpusDocument) map[string]any {
	return map[string]any{
		"document_id":  d.ID.String(),
		"filename":     d.Filename,
		"category":     d.Category,
		"statewide":    d.Statewide,
		"status":       d.Status,
		"pages":        d.Pages,
		"section_refs": d.SectionRefs,
		"error":        d.Error,
	}
}

// conversationFromPath resolves the {id} URL param; on failure it writes the
// error response and returns ok=false.
func conversationFromPath(deps app.Deps, w http.ResponseWriter, r *http.Request) (store.Conversation, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid conversation id", err, http.StatusBadRequest)
		return store.Conversation{}, false
	}
	conv, err := deps.Store.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.Fail(deps.Log, w, "conversation not found", err, http.StatusNotFound)
		} else {
			httputil.Fail(deps.Log, w, "failed to load conversation", err, http.StatusInternalServerError)
		}
		return store.Conversation{}, false
	}
	return conv, true
}

func markDocumentFailed(ctx context.Context, deps app.Deps, id uuid.UUID, cause error) {
	update := store.DocumentUpdate{Status: store.StatusFailed, Error: cause.Error()}
	if err := deps.Store.UpdateCorpusDocument(ctx, id, update); err != nil {
		deps.Log.Error("failed to mark document failed", "err", err, "document_id", id)
	}
}

func toMessageViews(msgs []store.Message) []messageView {
	out := make([]messageView, len(msgs))
	for i, m := range msgs {
		out[i] = messageView{
			ID:        m.ID.String(),
			Author:    string(m.Author),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return out
}

func toTranscript(msgs []store.Message) []assistant.Turn {
	out := make([]assistant.Turn, len(msgs))
	for i, m := range msgs {
		author := assistant.TurnUser
		if m.Author == store.AuthorAssistant {
			author = assistant.TurnAssistant
		}
		out[i] = assistant.Turn{Author: author, Content: m.Content}
	}
	return out
}
