// Package search answers keyword queries over the corpus store.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/biblio/internal/config"
	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/query"
	"github.com/hyperjump/biblio/internal/storage"
	"go.uber.org/zap"
)

// Engine compiles keyword queries and runs them against the store.
type Engine struct {
	storage storage.Storage
	config  config.QueryConfig
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger; compiled predicates are logged at debug level.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine. cfg supplies the column and id filter used
// when a query leaves them blank.
func NewEngine(store storage.Storage, cfg config.QueryConfig, opts ...EngineOption) *Engine {
	e := &Engine{storage: store, config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile validates q and returns the statement Search would run.
func (e *Engine) Compile(q *models.SearchQuery) (*query.Statement, error) {
	if err := q.Validate(e.config.DefaultColumn, e.config.DefaultIDs); err != nil {
		return nil, err
	}
	return query.Compile(q.Query, q.Column, q.IDs)
}

// Search runs q and returns one result per matching document, ordered by id.
// A query that matches nothing succeeds with NoResults set.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	stmt, err := e.Compile(q)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("search compiled",
		zap.String("query", q.Query),
		zap.String("column", q.Column),
		zap.String("ids", q.IDs),
		zap.String("predicate", stmt.Predicate),
	)

	results, err := e.storage.Search(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if results == nil {
		results = []*models.SearchResult{}
	}
	resp := &models.SearchResponse{
		Query:     q.Query,
		Column:    q.Column,
		IDs:       q.IDs,
		Predicate: stmt.Predicate,
		SQL:       stmt.SQL,
		Results:   results,
		Total:     len(results),
		NoResults: len(results) == 0,
		QueryTime: time.Since(startTime).Milliseconds(),
	}
	e.logger.Debug("search completed", zap.Int("results", resp.Total), zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}
