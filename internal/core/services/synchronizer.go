package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure Synchronizer implements the interface.
var _ driving.Synchronizer = (*Synchronizer)(nil)

// DefaultWorkers is the default size of the apply worker pool.
const DefaultWorkers = 4

// Synchronizer drives one sync cycle: fetch the source listing, run the
// reconciler, apply the mutation plan to the index backend and commit
// the new state. It owns all failure handling and the idempotency
// guarantees of the cycle.
type Synchronizer struct {
	source     driven.ContentSource
	index      driven.IndexBackend
	store      driven.SyncStateStore
	lock       driven.CycleLock
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	hasher     *ContentHasher
	reconciler *Reconciler
	workers    int
}

// NewSynchronizer creates a synchronizer. The embedder is optional - if
// nil, chunks are indexed without embeddings. workers bounds the apply
// pool; non-positive selects DefaultWorkers.
func NewSynchronizer(
	source driven.ContentSource,
	index driven.IndexBackend,
	store driven.SyncStateStore,
	lock driven.CycleLock,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	hasher *ContentHasher,
	workers int,
) *Synchronizer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Synchronizer{
		source:     source,
		index:      index,
		store:      store,
		lock:       lock,
		chunker:    chunker,
		embedder:   embedder,
		hasher:     hasher,
		reconciler: NewReconciler(hasher),
		workers:    workers,
	}
}

// applyTask is one independent unit of work in the apply phase.
// Everything a worker needs is copied in up front so workers never
// touch the shared SyncState.
type applyTask struct {
	id           string
	class        domain.Classification
	doc          *domain.DocumentInfo
	prevChunkIDs []string
}

// applyResult is the outcome of one applyTask.
type applyResult struct {
	id    string
	class domain.Classification
	rec   domain.SyncRecord
	err   error
}

// RunCycle performs one sync cycle.
//
// A fatal error (source unreachable, state corrupted, duplicate ids,
// concurrent cycle) aborts before any mutation: the index and the state
// file are untouched and the returned report is nil. Per-document
// failures never abort the cycle; each failed document keeps its prior
// sync record and is reported for retry next cycle.
//
// With no upstream changes and no prior failures the cycle performs
// zero index-backend calls.
func (s *Synchronizer) RunCycle(ctx context.Context) (*domain.SyncReport, error) {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			logger.Warn("Failed to release cycle lock: %v", rerr)
		}
	}()

	report := &domain.SyncReport{StartedAt: time.Now()}

	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	logger.Info("Starting sync cycle against %s source (%d tracked documents)",
		s.source.Type(), state.Len())

	docs, err := s.source.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch document listing: %w", err)
	}

	plan, err := s.reconciler.Plan(docs, state)
	if err != nil {
		return nil, err
	}
	report.Unchanged = plan.Unchanged
	report.Failed = append(report.Failed, plan.Excluded...)

	if plan.IsEmpty() {
		// Nothing to apply and nothing to commit: the state on disk
		// already agrees with the source.
		report.StateCommitted = true
		s.finish(report)
		return report, nil
	}

	s.applyPlan(ctx, plan, docs, state, report)

	// A failed commit still reads as partial: the index mutations above
	// happened, they are just not recorded, so next cycle reclassifies
	// and re-applies them. StateCommitted stays false to distinguish
	// this from ordinary per-document failures.
	if err := s.store.Save(ctx, state); err != nil {
		report.Status = domain.StatusPartial
		report.FinishedAt = time.Now()
		return report, fmt.Errorf("commit sync state: %w", err)
	}
	report.StateCommitted = true

	s.finish(report)
	return report, nil
}

// applyPlan runs the plan's mutations on a bounded worker pool.
// Deletes are dispatched before upserts. Workers report results over a
// channel; only this goroutine mutates the state and the report, so the
// SyncState has a single writer even while index operations run
// concurrently.
func (s *Synchronizer) applyPlan(
	ctx context.Context,
	plan *domain.MutationPlan,
	docs []domain.DocumentInfo,
	state domain.SyncState,
	report *domain.SyncReport,
) {
	docByID := make(map[string]*domain.DocumentInfo, len(docs))
	for i := range docs {
		docByID[docs[i].ID] = &docs[i]
	}

	tasks := make([]applyTask, 0, len(plan.ToDelete)+len(plan.ToUpsert))
	for _, id := range plan.ToDelete {
		rec, _ := state.Get(id)
		tasks = append(tasks, applyTask{id: id, class: domain.ClassDeleted, prevChunkIDs: rec.ChunkIDs})
	}
	for _, id := range plan.ToUpsert {
		task := applyTask{id: id, class: plan.Class[id], doc: docByID[id]}
		if rec, ok := state.Get(id); ok {
			task.prevChunkIDs = rec.ChunkIDs
		}
		tasks = append(tasks, task)
	}

	taskCh := make(chan applyTask)
	resCh := make(chan applyResult)

	for i := 0; i < s.workers; i++ {
		go func() {
			for t := range taskCh {
				resCh <- s.apply(ctx, t)
			}
		}()
	}

	// Dispatcher. Once the cycle deadline passes, no further tasks are
	// handed to workers; the undispatched remainder is reported failed
	// so the caller can see what was skipped. Those documents keep
	// their prior records and retry next cycle.
	go func() {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				resCh <- applyResult{
					id:    t.id,
					class: t.class,
					err:   fmt.Errorf("not dispatched: %w", ctx.Err()),
				}
			case taskCh <- t:
			}
		}
	}()

	// Single writer: exactly one result arrives per task.
	for range tasks {
		res := <-resCh
		if res.err != nil {
			logger.Warn("Document %s (%s) failed: %v", res.id, res.class, res.err)
			report.Failed = append(report.Failed, domain.DocumentFailure{
				ID:     res.id,
				Reason: res.err.Error(),
			})
			continue
		}
		switch res.class {
		case domain.ClassAdded:
			state.Set(res.id, res.rec)
			report.Added = append(report.Added, res.id)
		case domain.ClassModified:
			state.Set(res.id, res.rec)
			report.Modified = append(report.Modified, res.id)
		case domain.ClassDeleted:
			state.Remove(res.id)
			report.Deleted = append(report.Deleted, res.id)
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Modified)
	sort.Strings(report.Deleted)
}

// apply executes one task against the index backend.
func (s *Synchronizer) apply(ctx context.Context, t applyTask) applyResult {
	res := applyResult{id: t.id, class: t.class}

	if t.class == domain.ClassDeleted {
		if err := s.index.Delete(ctx, t.prevChunkIDs); err != nil {
			res.err = fmt.Errorf("delete chunks: %w", err)
		}
		return res
	}

	rec, err := s.upsertDocument(ctx, t)
	if err != nil {
		res.err = err
		return res
	}
	res.rec = rec
	return res
}

// upsertDocument indexes one added or modified document.
//
// For a modified document the previously recorded chunk ids are deleted
// from the backend before the new chunks are inserted. This prevents
// orphaned stale chunks when the chunk count shrinks, and closes the
// window where old and new chunks are simultaneously retrievable and
// contradict each other in answers.
func (s *Synchronizer) upsertDocument(ctx context.Context, t applyTask) (domain.SyncRecord, error) {
	var rec domain.SyncRecord

	if len(t.prevChunkIDs) > 0 {
		if err := s.index.Delete(ctx, t.prevChunkIDs); err != nil {
			return rec, fmt.Errorf("delete stale chunks: %w", err)
		}
	}

	chunks, err := s.chunker.Split(ctx, t.doc)
	if err != nil {
		return rec, fmt.Errorf("chunk: %w", err)
	}

	if s.embedder != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return rec, fmt.Errorf("embed: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return rec, fmt.Errorf("embed: got %d embeddings for %d chunks", len(embeddings), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	if err := s.index.Upsert(ctx, t.doc.ID, chunks); err != nil {
		return rec, fmt.Errorf("upsert chunks: %w", err)
	}

	hash, err := s.hasher.HashDocument(t.doc)
	if err != nil {
		return rec, fmt.Errorf("hash: %w", err)
	}

	chunkIDs := make([]string, len(chunks))
	for i := range chunks {
		chunkIDs[i] = chunks[i].ID
	}
	return domain.SyncRecord{
		ContentHash:   hash,
		ChunkIDs:      chunkIDs,
		Title:         t.doc.Title,
		SourceVersion: t.doc.SourceVersion,
		LastSyncedAt:  time.Now(),
		Metadata:      t.doc.Metadata,
	}, nil
}

// finish stamps the report's terminal status.
func (s *Synchronizer) finish(report *domain.SyncReport) {
	if report.HasFailures() {
		report.Status = domain.StatusPartial
	} else {
		report.Status = domain.StatusClean
	}
	report.FinishedAt = time.Now()
	logger.Info("Sync cycle %s: %d added, %d modified, %d deleted, %d unchanged, %d failed",
		report.Status, len(report.Added), len(report.Modified), len(report.Deleted),
		report.Unchanged, len(report.Failed))
}
