package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bluo42/adu-chatbot/internal/app"
	"github.com/bluo42/adu-chatbot/internal/corpus"
	"github.com/bluo42/adu-chatbot/internal/httputil"
	"github.com/bluo42/adu-chatbot/internal/queue"
	"github.com/bluo42/adu-chatbot/internal/store"
)

type ingestTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Statewide  bool      `json:"statewide"`
}

func main() {
	deps, err := app.BuildIngest()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("ingest worker starting")

	state, err := app.EnsureAssistantState(context.Background(), deps.Config, deps.Log, deps.Store, deps.Assistant, deps.Roles)
	if err != nil {
		deps.Log.Error("failed to ensure hosted assistant", "err", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(context.Background())

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeIngest, func(ctx context.Context, task queue.Task) error {
			var payload ingestTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleIngest(ctx, deps, state.VectorStoreID, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "ingest")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("ingest service stopped", "err", err)
	}
}

func handleIngest(ctx context.Context, deps app.IngestDeps, vectorStoreID string, payload ingestTaskPayload) error {
	log := deps.Log.With("document_id", payload.DocumentID, "filename", payload.Filename)

	content, err := os.ReadFile(payload.Path)
	if err != nil {
		return failDocument(ctx, deps, payload.DocumentID, fmt.Errorf("read %s: %w", payload.Path, err))
	}

	info, err := corpus.Inspect(content, deps.Config.MaxPDFSize)
	if err != nil {
		return failDocument(ctx, deps, payload.DocumentID, fmt.Errorf("inspect: %w", err))
	}

	if err := deps.Store.UpdateCorpusDocument(ctx, payload.DocumentID, store.DocumentUpdate{
		Status:      store.StatusUploading,
		Pages:       info.Pages,
		SectionRefs: info.SectionRefs,
	}); err != nil {
		return err
	}

	fileID, err := deps.Assistant.UploadFile(ctx, vectorStoreID, payload.Filename, content)
	if err != nil {
		return failDocument(ctx, deps, payload.DocumentID, fmt.Errorf("upload: %w", err))
	}

	if err := deps.Store.UpdateCorpusDocument(ctx, payload.DocumentID, store.DocumentUpdate{
		Status: store.StatusIndexed,
		FileID: fileID,
	}); err != nil {
		return err
	}
	log.Info("document indexed", "file_id", fileID, "pages", info.Pages, "section_refs", len(info.SectionRefs))
	return nil
}

// failDocument records the failure and returns the cause so the queue can
// retry; a later success overwrites the failed status.
func failDocument(ctx context.Context, deps app.IngestDeps, id uuid.UUID, cause error) error {
	if err := deps.Store.UpdateCorpusDocument(ctx, id, store.DocumentUpdate{
		Status: store.StatusFailed,
		Error:  cause.Error(),
	}); err != nil {
		deps.Log.Error("failed to mark document failed", "err", err, "document_id", id)
	}
	return cause
}
