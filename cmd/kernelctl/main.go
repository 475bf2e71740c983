package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/maintenance"
	"github.com/orbitalmind/kernel/internal/store"
)

func main() {
	dbPath := flag.String("db", "kernel.db", "Path to the SQLite database")
	action := flag.String("action", "", "Action to perform: reembed-thoughts, reembed-kg, embed-pending, sweep-candidates, ensure-continuity-fields, health")
	olderThanDays := flag.Int("older-than-days", 30, "Age threshold for sweep-candidates")
	limit := flag.Int("limit", 0, "Batch size cap for embed-pending (0 uses the default batch size)")
	embeddingModel := flag.String("embedding-model", "text-embedding-local", "Embedding model name")
	embeddingDim := flag.Int("embedding-dim", 768, "Embedding vector dimension")
	embeddingURL := flag.String("embedding-url", "http://localhost:8080", "Embedding provider base URL")
	dryRun := flag.Bool("dry-run", false, "Report what would change without mutating the store")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *action == "" {
		fmt.Fprintf(os.Stderr, "Usage: kernelctl -db <path> -action <action> [-json]\n")
		fmt.Fprintf(os.Stderr, "Actions: reembed-thoughts, reembed-kg, embed-pending, sweep-candidates, ensure-continuity-fields, health\n")
		os.Exit(1)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	emb := embedding.NewHTTPClientWithAPIKey(*embeddingURL, *embeddingModel, *embeddingDim, os.Getenv("KERNEL_EMBEDDING_API_KEY"))
	ctx := context.Background()

	var result interface{}
	switch *action {
	case "reembed-thoughts":
		result, err = maintenance.ReembedThoughts(ctx, st, emb, *dryRun)
	case "reembed-kg":
		result, err = maintenance.ReembedKG(ctx, st, emb, *dryRun)
	case "embed-pending":
		result, err = maintenance.EmbedPending(ctx, st, emb, *limit, *dryRun)
	case "sweep-candidates":
		result, err = maintenance.SweepCandidates(st, *olderThanDays, *dryRun)
	case "ensure-continuity-fields":
		result, err = maintenance.EnsureContinuityFields(st)
	case "health":
		result, err = maintenance.Snapshot(st, emb)
	default:
		fmt.Fprintf(os.Stderr, "unknown action: %s\n", *action)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "action %s failed: %v\n", *action, err)
		os.Exit(1)
	}

	if *jsonOutput {
		json.NewEncoder(os.Stdout).Encode(result)
		return
	}
	switch r := result.(type) {
	case maintenance.Report:
		fmt.Printf("processed=%d succeeded=%d failed=%d remaining=%d\n", r.Processed, r.Succeeded, r.Failed, r.Remaining)
	case maintenance.Health:
		fmt.Printf("thoughts_pending_embedding=%d thoughts_mismatched=%d entities_mismatched=%d\n",
			r.ThoughtsPendingEmbedding, r.ThoughtsMismatched, r.EntitiesMismatched)
	}
}
