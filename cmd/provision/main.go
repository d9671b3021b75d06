// Command provision ensures the hosted assistant and vector store exist and
// prints their IDs. Run it once before first deploy, or any time the hosted
// resources need to be re-created.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bluo42/adu-chatbot/internal/app"
)

func main() {
	deps, err := app.BuildProvision()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	state, err := app.EnsureAssistantState(context.Background(), deps.Config, deps.Log, deps.Store, deps.Assistant, deps.Roles)
	if err != nil {
		deps.Log.Error("provisioning failed", "err", err)
		os.Exit(1)
	}

	deps.Log.Info("hosted resources ready",
		"assistant_id", state.AssistantID,
		"vector_store_id", state.VectorStoreID,
	)
}
