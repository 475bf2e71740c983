// Package maintenance implements the out-of-band upkeep sweeps exposed
// through the maintain RPC tool and kernelctl: re-embedding on model/
// dimension change, catching up thoughts whose embedding never completed,
// aging out stale candidates, and a health snapshot.
package maintenance

import (
	"context"
	"fmt"
	"log"

	"github.com/orbitalmind/kernel/internal/embedding"
	"github.com/orbitalmind/kernel/internal/store"
)

// Report is the shared shape every maintenance sweep returns.
type Report struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

const sweepBatchSize = 200

// ReembedThoughts re-embeds every thought whose (model, dim) no longer
// matches the configured embedding client, one batch at a time so a large
// backlog doesn't block a single call indefinitely. With dryRun=true it
// reports how many thoughts would be processed without requesting a single
// embedding or writing a single row.
func ReembedThoughts(ctx context.Context, st *store.Store, emb embedding.Client, dryRun bool) (Report, error) {
	thoughts, err := st.ThoughtsMismatchedEmbedding(emb.Model(), emb.Dimension())
	if err != nil {
		return Report{}, fmt.Errorf("load mismatched thoughts: %w", err)
	}

	if dryRun {
		return Report{Processed: len(thoughts), Remaining: len(thoughts)}, nil
	}

	batch := thoughts
	if len(batch) > sweepBatchSize {
		batch = batch[:sweepBatchSize]
	}

	var report Report
	for _, t := range batch {
		report.Processed++
		vec, err := emb.Embed(ctx, t.Content)
		if err != nil {
			log.Printf("[MAINTENANCE] re-embed failed for thought %s: %v", t.ID, err)
			report.Failed++
			continue
		}
		if err := st.CompleteThoughtEmbedding(t.ID, vec, emb.Model(), emb.Dimension()); err != nil {
			log.Printf("[MAINTENANCE] failed to persist re-embedding for thought %s: %v", t.ID, err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	remaining, err := st.CountThoughtsMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return report, fmt.Errorf("count remaining mismatched thoughts: %w", err)
	}
	report.Remaining = remaining
	return report, nil
}

// ReembedKG re-embeds every stale knowledge-graph entity and observation,
// mirroring ReembedThoughts for the promoted graph. dryRun reports the
// mismatch counts without requesting embeddings or mutating any row.
func ReembedKG(ctx context.Context, st *store.Store, emb embedding.Client, dryRun bool) (Report, error) {
	entities, err := st.AllEntitiesMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return Report{}, fmt.Errorf("load mismatched entities: %w", err)
	}
	observations, err := st.AllObservationsMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return Report{}, fmt.Errorf("load mismatched observations: %w", err)
	}

	if dryRun {
		n := len(entities) + len(observations)
		return Report{Processed: n, Remaining: n}, nil
	}

	var report Report
	for _, e := range entities {
		report.Processed++
		vec, err := emb.Embed(ctx, e.Name)
		if err != nil {
			log.Printf("[MAINTENANCE] re-embed failed for entity %s: %v", e.ID, err)
			report.Failed++
			continue
		}
		if err := st.UpdateEntityEmbedding(e.ID, vec, emb.Model(), emb.Dimension()); err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
	}
	for _, o := range observations {
		report.Processed++
		vec, err := emb.Embed(ctx, o.Body)
		if err != nil {
			log.Printf("[MAINTENANCE] re-embed failed for observation %s: %v", o.ID, err)
			report.Failed++
			continue
		}
		if err := st.UpdateObservationEmbedding(o.ID, vec, emb.Model(), emb.Dimension()); err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	remainingEntities, err := st.CountEntitiesMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return report, fmt.Errorf("count remaining mismatched entities: %w", err)
	}
	report.Remaining = remainingEntities
	return report, nil
}

// EmbedPending retries embedding for thoughts stuck in pending or failed
// status, the recovery path for the save-first ingestion guarantee. dryRun
// reports the backlog size without requesting a single embedding. limit
// caps how many thoughts are processed in this call; limit<=0 falls back to
// sweepBatchSize.
func EmbedPending(ctx context.Context, st *store.Store, emb embedding.Client, limit int, dryRun bool) (Report, error) {
	if limit <= 0 {
		limit = sweepBatchSize
	}
	thoughts, err := st.ThoughtsNeedingEmbedding(limit)
	if err != nil {
		return Report{}, fmt.Errorf("load pending thoughts: %w", err)
	}

	if dryRun {
		remaining, err := st.CountThoughtsPendingEmbedding()
		if err != nil {
			return Report{}, fmt.Errorf("count pending thoughts: %w", err)
		}
		return Report{Processed: len(thoughts), Remaining: remaining}, nil
	}

	var report Report
	for _, t := range thoughts {
		report.Processed++
		vec, err := emb.Embed(ctx, t.Content)
		if err != nil {
			if ferr := st.FailThoughtEmbedding(t.ID); ferr != nil {
				log.Printf("[MAINTENANCE] failed to record embedding failure for thought %s: %v", t.ID, ferr)
			}
			report.Failed++
			continue
		}
		if err := st.CompleteThoughtEmbedding(t.ID, vec, emb.Model(), emb.Dimension()); err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
	}

	remaining, err := st.CountThoughtsPendingEmbedding()
	if err != nil {
		return report, fmt.Errorf("count remaining pending thoughts: %w", err)
	}
	report.Remaining = remaining
	return report, nil
}

// SweepCandidates ages out pending entity/edge candidates older than
// olderThanDays, keeping the moderation queue from accumulating forever on
// candidates nobody ever reviewed. dryRun counts what would be aged out
// without rejecting anything.
func SweepCandidates(st *store.Store, olderThanDays int, dryRun bool) (Report, error) {
	if dryRun {
		n, err := st.CountStaleCandidates(olderThanDays)
		if err != nil {
			return Report{}, fmt.Errorf("count stale candidates: %w", err)
		}
		return Report{Processed: int(n), Remaining: int(n)}, nil
	}
	n, err := st.AgeOutCandidates(olderThanDays)
	if err != nil {
		return Report{}, fmt.Errorf("age out candidates: %w", err)
	}
	return Report{Processed: int(n), Succeeded: int(n)}, nil
}

// EnsureContinuityFields backfills session_id to empty string (rather than
// NULL) on older thought rows, the maintain ensure_continuity_fields action.
func EnsureContinuityFields(st *store.Store) (Report, error) {
	n, err := st.EnsureContinuityFields()
	if err != nil {
		return Report{}, fmt.Errorf("ensure continuity fields: %w", err)
	}
	return Report{Processed: int(n), Succeeded: int(n)}, nil
}

// Health is the shape Snapshot returns for the maintain "health" action and
// kernelctl's health action: a snapshot of outstanding maintenance debt.
type Health struct {
	ThoughtsPendingEmbedding int `json:"thoughts_pending_embedding"`
	ThoughtsMismatched       int `json:"thoughts_mismatched"`
	EntitiesMismatched       int `json:"entities_mismatched"`
}

// Snapshot computes the current Health.
func Snapshot(st *store.Store, emb embedding.Client) (Health, error) {
	pending, err := st.CountThoughtsPendingEmbedding()
	if err != nil {
		return Health{}, fmt.Errorf("count pending: %w", err)
	}
	mismatched, err := st.CountThoughtsMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return Health{}, fmt.Errorf("count mismatched thoughts: %w", err)
	}
	entMismatched, err := st.CountEntitiesMismatched(emb.Model(), emb.Dimension())
	if err != nil {
		return Health{}, fmt.Errorf("count mismatched entities: %w", err)
	}
	return Health{ThoughtsPendingEmbedding: pending, ThoughtsMismatched: mismatched, EntitiesMismatched: entMismatched}, nil
}
