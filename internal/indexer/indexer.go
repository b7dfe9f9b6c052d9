// Package indexer discovers corpus files, classifies them against the store and
// extracts the pages of documents seen for the first time.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/biblio/internal/config"
	"github.com/hyperjump/biblio/internal/extract"
	"github.com/hyperjump/biblio/internal/identity"
	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/storage"
	"go.uber.org/zap"
)

// PageExtractor streams the pages of a document file. *extract.Extractor implements it.
type PageExtractor interface {
	EachPage(ctx context.Context, path string, fn extract.PageFunc) error
}

// ProgressFunc observes the extraction phase of a run. It is called with the
// title of each NEW document before it is extracted (done counts the documents
// already finished) and once more with done == total and an empty title at the end.
// It is not called when a run has nothing to extract.
type ProgressFunc func(done, total int, title string)

// Indexer runs ingestion over the configured corpus roots.
type Indexer struct {
	storage   storage.Storage
	extractor PageExtractor
	parser    *identity.Parser
	corpus    config.CorpusConfig
	logger    *zap.Logger
	progress  ProgressFunc

	// mu keeps runs from overlapping.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for run events (moves, skipped files, failures).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithProgress sets a callback that observes extraction progress.
func WithProgress(fn ProgressFunc) IndexerOption {
	return func(idx *Indexer) { idx.progress = fn }
}

// NewIndexer creates an indexer writing to store. Filenames are parsed with
// cfg.Delimiter and Run walks cfg.Roots.
func NewIndexer(store storage.Storage, extractor PageExtractor, cfg config.CorpusConfig, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:   store,
		extractor: extractor,
		parser:    identity.NewParser(cfg.Delimiter),
		corpus:    cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// PlannedFile is one discovered file and what a run would do with it.
// StoredPath is the path on record for MOVED and UNCHANGED files, or the path
// that claimed the id first for DUPLICATE files.
type PlannedFile struct {
	Path       string                `json:"path"`
	Identity   identity.Identity     `json:"identity"`
	Class      models.Classification `json:"classification"`
	StoredPath string                `json:"stored_path,omitempty"`
}

// Plan is the classification of every discovered file.
type Plan struct {
	Files     []PlannedFile      `json:"files"`
	Malformed []models.FileError `json:"malformed,omitempty"`
}

// Run discovers the files under the configured roots and ingests them.
func (idx *Indexer) Run(ctx context.Context) (*models.IngestReport, error) {
	paths, err := idx.discover()
	if err != nil {
		return nil, err
	}
	return idx.Ingest(ctx, paths)
}

// Plan discovers and classifies files without writing anything.
func (idx *Indexer) Plan(ctx context.Context) (*Plan, error) {
	paths, err := idx.discover()
	if err != nil {
		return nil, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	tx, err := idx.storage.BeginIngest(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ingestion run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return idx.classify(ctx, tx, paths)
}

func (idx *Indexer) discover() ([]string, error) {
	if len(idx.corpus.Roots) == 0 {
		return nil, errors.New("no corpus roots configured")
	}
	paths, err := Discover(idx.corpus.Roots, idx.corpus.Extensions, idx.corpus.RecursiveOrDefault())
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return paths, nil
}

// Ingest classifies paths and applies the result in a single transaction:
// MOVED documents get their path updated and NEW documents are extracted.
// Per-file problems are collected in the report; store failures abort the run
// and nothing from it is committed. Concurrent calls wait for each other.
func (idx *Indexer) Ingest(ctx context.Context, paths []string) (*models.IngestReport, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	start := time.Now()
	report := &models.IngestReport{RunID: uuid.NewString(), Discovered: len(paths)}
	log := idx.logger.With(zap.String("run_id", report.RunID))
	log.Info("ingestion run started", zap.Int("files", len(paths)))

	tx, err := idx.storage.BeginIngest(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ingestion run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	plan, err := idx.classify(ctx, tx, paths)
	if err != nil {
		return nil, err
	}
	report.Malformed = plan.Malformed
	for _, m := range plan.Malformed {
		log.Warn("skipping malformed filename", zap.String("path", m.Path), zap.String("error", m.Error))
	}

	var pending []PlannedFile
	for _, f := range plan.Files {
		switch f.Class {
		case models.New:
			pending = append(pending, f)
		case models.Moved:
			if err := tx.UpdateDocumentPath(ctx, f.Identity.ID, f.Path); err != nil {
				return nil, fmt.Errorf("update path of %s: %w", f.Identity.ID, err)
			}
			report.Moved = append(report.Moved, models.PathChange{ID: f.Identity.ID, OldPath: f.StoredPath, NewPath: f.Path})
			log.Info("document moved",
				zap.String("id", f.Identity.ID), zap.String("old_path", f.StoredPath), zap.String("new_path", f.Path))
		case models.Unchanged:
			report.Unchanged++
			log.Debug("document unchanged", zap.String("id", f.Identity.ID), zap.String("path", f.Path))
		case models.Duplicate:
			msg := fmt.Sprintf("id %q already claimed by %s", f.Identity.ID, f.StoredPath)
			report.Duplicates = append(report.Duplicates, models.FileError{Path: f.Path, Error: msg})
			log.Warn("skipping duplicate id", zap.String("path", f.Path), zap.String("error", msg))
		}
	}

	if err := idx.extractAll(ctx, tx, pending, report, log); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingestion run: %w", err)
	}
	report.DurationMs = time.Since(start).Milliseconds()
	log.Info("ingestion run completed",
		zap.Int("added", len(report.Added)),
		zap.Int("moved", len(report.Moved)),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", len(report.Failed)),
		zap.Int("pages", report.Pages),
		zap.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

// classify looks every path up in the store. When several paths carry the same
// id in one run, the stored path keeps the id if it is among them; otherwise the
// first path in discovery order claims it. The other paths are duplicates.
func (idx *Indexer) classify(ctx context.Context, tx storage.IngestTx, paths []string) (*Plan, error) {
	plan := &Plan{}
	parsed := make([]PlannedFile, 0, len(paths))
	candidates := make(map[string][]string, len(paths))
	var ids []string
	for _, p := range paths {
		id, err := idx.parser.Parse(p)
		if err != nil {
			plan.Malformed = append(plan.Malformed, models.FileError{Path: p, Error: err.Error()})
			continue
		}
		if _, ok := candidates[id.ID]; !ok {
			ids = append(ids, id.ID)
		}
		candidates[id.ID] = append(candidates[id.ID], p)
		parsed = append(parsed, PlannedFile{Path: p, Identity: id})
	}

	stored := make(map[string]*models.Document, len(ids))
	claimed := make(map[string]string, len(ids))
	for _, id := range ids {
		doc, err := tx.GetDocument(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("look up %s: %w", id, err)
		default:
			stored[id] = doc
		}
		claimed[id] = candidates[id][0]
		if doc := stored[id]; doc != nil && slices.Contains(candidates[id], doc.Path) {
			claimed[id] = doc.Path
		}
	}

	for _, f := range parsed {
		doc := stored[f.Identity.ID]
		switch owner := claimed[f.Identity.ID]; {
		case f.Path != owner:
			f.Class = models.Duplicate
			f.StoredPath = owner
		case doc == nil:
			f.Class = models.New
		case doc.Path == f.Path:
			f.Class = models.Unchanged
			f.StoredPath = doc.Path
		default:
			f.Class = models.Moved
			f.StoredPath = doc.Path
		}
		plan.Files = append(plan.Files, f)
	}
	return plan, nil
}

// storeError marks a failure writing to the store, as opposed to reading the document.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// extractAll writes each pending document and its pages inside its own savepoint,
// so a document whose extraction fails leaves neither its row nor any page behind.
func (idx *Indexer) extractAll(ctx context.Context, tx storage.IngestTx, pending []PlannedFile, report *models.IngestReport, log *zap.Logger) error {
	total := len(pending)
	for i, f := range pending {
		if idx.progress != nil {
			idx.progress(i, total, f.Identity.Title)
		}
		var pages int
		err := tx.WithSavepoint(ctx, func() error {
			var err error
			pages, err = idx.extractOne(ctx, tx, f)
			return err
		})
		var se *storeError
		switch {
		case err == nil:
			report.Added = append(report.Added, f.Identity.ID)
			report.Pages += pages
			log.Info("document added",
				zap.String("id", f.Identity.ID), zap.String("path", f.Path), zap.Int("pages", pages))
		case errors.As(err, &se), ctx.Err() != nil:
			return fmt.Errorf("write %s: %w", f.Identity.ID, err)
		default:
			report.Failed = append(report.Failed, models.FileError{Path: f.Path, Error: err.Error()})
			log.Warn("extraction failed", zap.String("path", f.Path), zap.Error(err))
		}
	}
	if idx.progress != nil && total > 0 {
		idx.progress(total, total, "")
	}
	return nil
}

func (idx *Indexer) extractOne(ctx context.Context, tx storage.IngestTx, f PlannedFile) (int, error) {
	doc := &models.Document{
		ID:     f.Identity.ID,
		Title:  f.Identity.Title,
		Author: f.Identity.Author,
		Path:   f.Path,
	}
	if err := tx.CreateDocument(ctx, doc); err != nil {
		return 0, &storeError{fmt.Errorf("create document: %w", err)}
	}
	pages := 0
	err := idx.extractor.EachPage(ctx, f.Path, func(number int, text string) error {
		if err := tx.CreatePage(ctx, &models.Page{DocumentID: doc.ID, Number: number, Content: text}); err != nil {
			return &storeError{fmt.Errorf("create page %d: %w", number, err)}
		}
		pages = number
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pages, nil
}
